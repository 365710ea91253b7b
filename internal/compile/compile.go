// Package compile assembles a run's drafts into the final report
// artifact: summary fields under hard length limits, tags, reading-time
// estimate, and sections in plan order.
package compile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"newsdesk/internal/logging"
	"newsdesk/internal/ports"
	"newsdesk/internal/report"
)

// DigestMode selects the shape of the report digest.
type DigestMode string

const (
	// DigestSingle is one line of at most report.MaxDigestLen runes.
	DigestSingle DigestMode = "single"
	// DigestLines is exactly three lines of at most
	// report.MaxDigestLineLen runes each.
	DigestLines DigestMode = "lines"
)

const (
	minTags = 5
	maxTags = 10

	// readingRate is characters per estimated minute of reading.
	readingRate = 200

	summaryAttempts = 3
)

// Config tunes compilation.
type Config struct {
	DigestMode DigestMode // default DigestLines
}

// Compiler turns a finished run state into a report.
type Compiler struct {
	gen    ports.Generator
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func New(gen ports.Generator, cfg Config) *Compiler {
	if cfg.DigestMode == "" {
		cfg.DigestMode = DigestLines
	}
	return &Compiler{
		gen:    gen,
		cfg:    cfg,
		logger: logging.New("compile"),
		now:    time.Now,
	}
}

// summaryOutput is the structured shape requested from the generator.
type summaryOutput struct {
	Title  string   `json:"title"`
	Micro  string   `json:"micro"`
	Digest []string `json:"digest"`
	Tags   []string `json:"tags"`
}

// Compile builds the final report. Sections appear in plan order; a
// failed or missing draft yields a degraded section rather than a gap.
// Summary generation is retried with validation feedback up to
// summaryAttempts, then clamped to the limits.
func (c *Compiler) Compile(ctx context.Context, st *report.RunState) (*report.Report, error) {
	sections := assembleSections(st)
	if len(sections) == 0 {
		return nil, fmt.Errorf("compile: no sections to assemble")
	}

	summary, err := c.generateSummary(ctx, st, sections)
	if err != nil {
		return nil, fmt.Errorf("compile: summary: %w", err)
	}

	r := &report.Report{
		Title:            summary.Title,
		Micro:            summary.Micro,
		Digest:           report.Digest(summary.Digest),
		Tags:             c.finishTags(summary.Tags, st.Plans),
		Sections:         sections,
		EstimatedMinutes: estimateMinutes(sections),
		CreatedAt:        c.now().UTC(),
	}
	if src := st.Source(); src != nil {
		r.Input = &report.SourceRef{URL: src.URL, Title: src.Title, Metadata: src.Metadata}
	}
	return r, nil
}

// assembleSections maps plans to compiled sections in plan order.
func assembleSections(st *report.RunState) []report.Section {
	sections := make([]report.Section, 0, len(st.Plans))
	for _, plan := range st.Plans {
		draft := st.DraftFor(plan.ID)
		if draft == nil {
			sections = append(sections, report.Section{
				Headline: plan.Heading,
				Content:  "This section could not be completed.",
				Degraded: true,
			})
			continue
		}
		sections = append(sections, report.Section{
			Headline:   draft.Headline,
			Content:    draft.Content,
			Quotes:     draft.Quotes,
			References: draft.References,
			Degraded:   draft.Degraded || draft.Status == report.StatusFailed,
		})
	}
	return sections
}

func (c *Compiler) generateSummary(ctx context.Context, st *report.RunState, sections []report.Section) (summaryOutput, error) {
	body := renderBody(sections)
	feedback := ""

	var out summaryOutput
	for attempt := 1; attempt <= summaryAttempts; attempt++ {
		prompt := ports.Prompt{
			System: c.summaryInstructions(),
			User:   body + feedback,
		}
		if err := c.gen.GenerateJSON(ctx, prompt, &out); err != nil {
			return out, err
		}

		problems := c.validate(out)
		if len(problems) == 0 {
			return out, nil
		}
		c.logger.Debug("summary rejected", "attempt", attempt, "problems", strings.Join(problems, "; "))
		feedback = "\n\nYour previous answer was rejected: " + strings.Join(problems, "; ") + ". Fix these and answer again."
	}

	// Retries exhausted; force the fields under the limits.
	c.logger.Warn("summary clamped after retries", "title", out.Title)
	return c.clamp(out), nil
}

func (c *Compiler) summaryInstructions() string {
	digestRule := fmt.Sprintf("a single line of at most %d characters", report.MaxDigestLen)
	if c.cfg.DigestMode == DigestLines {
		digestRule = fmt.Sprintf("exactly %d lines, each at most %d characters", report.DigestLineCount, report.MaxDigestLineLen)
	}
	return fmt.Sprintf(`You summarize a finished report.

Produce:
- title: at most %d characters, no punctuation flourishes
- micro: one sentence of 60-%d characters
- digest: %s
- tags: %d-%d short lowercase topic tags

Respond with JSON: {"title": "...", "micro": "...", "digest": ["..."], "tags": ["..."]}`,
		report.MaxTitleLen, report.MaxMicroLen, digestRule, minTags, maxTags)
}

func (c *Compiler) validate(out summaryOutput) []string {
	var problems []string
	if out.Title == "" || utf8.RuneCountInString(out.Title) > report.MaxTitleLen {
		problems = append(problems, fmt.Sprintf("title must be 1-%d characters", report.MaxTitleLen))
	}
	if out.Micro == "" || utf8.RuneCountInString(out.Micro) > report.MaxMicroLen {
		problems = append(problems, fmt.Sprintf("micro must be 1-%d characters", report.MaxMicroLen))
	}
	switch c.cfg.DigestMode {
	case DigestSingle:
		if len(out.Digest) != 1 || utf8.RuneCountInString(out.Digest[0]) > report.MaxDigestLen {
			problems = append(problems, fmt.Sprintf("digest must be one line of at most %d characters", report.MaxDigestLen))
		}
	default:
		if len(out.Digest) != report.DigestLineCount {
			problems = append(problems, fmt.Sprintf("digest must have exactly %d lines", report.DigestLineCount))
		}
		for _, line := range out.Digest {
			if utf8.RuneCountInString(line) > report.MaxDigestLineLen {
				problems = append(problems, fmt.Sprintf("digest lines must be at most %d characters", report.MaxDigestLineLen))
				break
			}
		}
	}
	return problems
}

// clamp truncates whatever the model produced into the limits so a
// report is always emitted.
func (c *Compiler) clamp(out summaryOutput) summaryOutput {
	out.Title = truncate(out.Title, report.MaxTitleLen)
	out.Micro = truncate(out.Micro, report.MaxMicroLen)
	switch c.cfg.DigestMode {
	case DigestSingle:
		line := out.Micro
		if len(out.Digest) > 0 {
			line = out.Digest[0]
		}
		out.Digest = []string{truncate(line, report.MaxDigestLen)}
	default:
		lines := out.Digest
		if len(lines) > report.DigestLineCount {
			lines = lines[:report.DigestLineCount]
		}
		// A short digest is padded so the three-line shape holds even
		// on the degraded path.
		for _, fill := range []string{out.Micro, out.Title} {
			if len(lines) >= report.DigestLineCount {
				break
			}
			if fill != "" {
				lines = append(lines, fill)
			}
		}
		for len(lines) < report.DigestLineCount {
			lines = append(lines, out.Title)
		}
		for i, line := range lines {
			lines[i] = truncate(line, report.MaxDigestLineLen)
		}
		out.Digest = lines
	}
	if len(out.Tags) > maxTags {
		out.Tags = out.Tags[:maxTags]
	}
	return out
}

// finishTags normalizes generated tags and pads from section headings
// when the model produced too few.
func (c *Compiler) finishTags(tags []string, plans []report.SectionPlan) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, maxTags)
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] || len(out) >= maxTags {
			return
		}
		seen[tag] = true
		out = append(out, tag)
	}

	for _, t := range tags {
		add(t)
	}
	if len(out) < minTags {
		for _, p := range plans {
			if len(out) >= minTags {
				break
			}
			add(p.Heading)
		}
	}
	return out
}

// estimateMinutes is reading time at readingRate characters per minute,
// never below one minute.
func estimateMinutes(sections []report.Section) int {
	chars := 0
	for _, s := range sections {
		chars += utf8.RuneCountInString(s.Content)
	}
	m := int(math.Ceil(float64(chars) / readingRate))
	if m < 1 {
		m = 1
	}
	return m
}

func renderBody(sections []report.Section) string {
	var b strings.Builder
	b.WriteString("Report sections:\n\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "## %s\n%s\n\n", s.Headline, s.Content)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
