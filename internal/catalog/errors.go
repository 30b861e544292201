package catalog

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCatalogUnavailable covers network, status and parse failures while
	// loading the catalog or a single definition.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrRateLimited means the GitHub API quota is exhausted.
	ErrRateLimited = errors.New("rate limited")
)

// UnavailableError describes a failed request to the catalog host.
type UnavailableError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *UnavailableError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: catalog unavailable", e.URL)
	}
}

// Unwrap implements errors.Unwrap
func (e *UnavailableError) Unwrap() error { return e.Err }

// Is implements errors.Is support
func (e *UnavailableError) Is(target error) bool { return target == ErrCatalogUnavailable }

// ParseError reports a definition or listing whose content lacks the
// expected structure.
type ParseError struct {
	Filename string
	Err      error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Filename, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error { return e.Err }

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool { return target == ErrCatalogUnavailable }

// RateLimitError is returned when GitHub refuses the listing request for
// quota reasons. The message tells the user what to do about it.
type RateLimitError struct {
	TokenSupplied bool
	Reset         time.Time
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	if !e.TokenSupplied {
		return "GitHub API rate limit exceeded (60 requests/hour). " +
			"Set the GITHUB_TOKEN environment variable for 5000 requests/hour."
	}
	if !e.Reset.IsZero() {
		return fmt.Sprintf("GitHub API rate limit exceeded. Try again after %s.", e.Reset.Local().Format("15:04"))
	}
	return "GitHub API rate limit exceeded. Try again later."
}

// Is implements errors.Is support
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }
