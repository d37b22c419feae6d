// Package browser defines the narrow capability surface the extraction logic
// needs from a controllable browser, plus its chromedp implementation.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that a selector matched nothing. Callers treat it as
// "this unit of work yields nothing", never as a fatal condition.
var ErrNotFound = errors.New("element not found")

// Session is a live browser page. One session is acquired per run and reused
// for every row; Close must be called on every exit path.
type Session interface {
	// Navigate loads url in the session's page.
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until the selector is present or the timeout elapses.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	// WaitVisible blocks until the selector is visible or the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Query returns handles for every element matching selector, in DOM order.
	Query(ctx context.Context, selector string) ([]Element, error)
	// OuterHTML returns the outer HTML of the first element matching selector.
	OuterHTML(ctx context.Context, selector string) (string, error)
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Run executes a script in the page for its side effects.
	Run(ctx context.Context, script string) error
	// Close releases the underlying browser.
	Close()
}

// Element is a handle to one matched element. A child selector scopes each
// operation to a descendant; the empty selector addresses the element itself.
type Element interface {
	Text(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, error)
	Click(ctx context.Context, selector string) error
}
