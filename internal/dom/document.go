// Package dom models the page a fill run operates on.
//
// Every component receives a Document instead of reaching for a global page.
// Reads go through the golang.org/x/net/html tree returned by Root; writes
// and synthetic events go through the Document methods so that a live
// browser implementation can mirror them into the real page.
package dom

import (
	"context"
	"errors"
	"time"

	"golang.org/x/net/html"
)

// Standard synthetic event types.
const (
	EventInput  = "input"
	EventChange = "change"
	EventBlur   = "blur"
	EventClick  = "click"
)

var (
	// ErrDetached is returned when an operation needs a node that is no longer in the tree.
	ErrDetached = errors.New("dom: node is detached from the document")
	// ErrNotSettable is returned when a value write targets a node that holds no value.
	ErrNotSettable = errors.New("dom: node does not accept a value")
	// ErrOutOfRange is returned for an option index outside the select's option list.
	ErrOutOfRange = errors.New("dom: option index out of range")
)

// Document is the page capability injected into the scraper, context builder,
// injector and orchestrator.
type Document interface {
	// Root returns the document node of the current tree.
	Root() *html.Node
	// Visible reports whether n renders with a non-empty box.
	Visible(n *html.Node) bool

	SetValue(ctx context.Context, n *html.Node, value string) error
	SetChecked(ctx context.Context, n *html.Node, checked bool) error
	SelectIndex(ctx context.Context, n *html.Node, index int) error
	// Dispatch fires a bubbling synthetic event of the given type at n.
	Dispatch(ctx context.Context, n *html.Node, eventType string) error

	// Highlight marks n and shows message next to it. Both revert after d.
	Highlight(ctx context.Context, n *html.Node, message string, d time.Duration) error
	// Notify shows a page-level message that removes itself after d.
	Notify(ctx context.Context, message string, d time.Duration) error
}

// Refresher is implemented by documents whose tree is a snapshot of a
// page that changes underneath it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ControlHost is implemented by documents that can host the floating fill control.
type ControlHost interface {
	// EnsureControl inserts a button with the given id unless an element with
	// that id already exists. It reports whether a button was created.
	EnsureControl(ctx context.Context, id, label string) (bool, error)
}

// Event is a synthetic event recorded by an in-memory document.
type Event struct {
	Target *html.Node
	Type   string
}
