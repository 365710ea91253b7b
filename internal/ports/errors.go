package ports

import (
	"errors"
	"fmt"
)

// GenerationError reports a failed or malformed model completion.
type GenerationError struct {
	Provider  string
	Transient bool
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate (%s): %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SearchError reports a failed web-search call.
type SearchError struct {
	Query     string
	Transient bool
	Err       error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// FetchError reports an unreachable or blocked URL.
type FetchError struct {
	URL       string
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a port error worth retrying.
// Unknown error types are treated as permanent.
func IsTransient(err error) bool {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Transient
	}
	var se *SearchError
	if errors.As(err, &se) {
		return se.Transient
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	return false
}
