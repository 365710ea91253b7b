// Package browser implements the PageFetcher port with a headless
// Chrome, for use without a scraping API key. Content comes back as
// the page's visible text rather than true markdown.
package browser

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"newsdesk/internal/ports"
)

// Fetcher drives a headless browser. Each Fetch spawns its own browser
// context, so a crashed page never poisons later fetches.
type Fetcher struct {
	Timeout time.Duration // per-fetch budget, default 30s
}

func New() *Fetcher {
	return &Fetcher{Timeout: 30 * time.Second}
}

// Fetch navigates to the URL and extracts title and body text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*ports.PageContent, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var title, body string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Title(&title),
		chromedp.Text("body", &body, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil && ctx.Err() != context.Canceled {
			return nil, &ports.FetchError{URL: url, Transient: true, Err: err}
		}
		return nil, &ports.FetchError{URL: url, Err: err}
	}

	return &ports.PageContent{
		Title:    title,
		Markdown: strings.TrimSpace(body),
		Metadata: map[string]string{"fetcher": "browser"},
	}, nil
}
