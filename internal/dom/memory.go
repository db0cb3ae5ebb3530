package dom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	highlightStyle = "border: 2px solid #FF9800; box-shadow: 0 0 10px rgba(255, 152, 0, 0.5)"
	// OverlayAttr marks nodes inserted by Highlight and Notify.
	OverlayAttr = "data-smartfill-overlay"
)

// Memory is an in-memory Document over a parsed HTML tree.
//
// Writes mutate attributes the way a serialized DOM reflects them: input
// values live in the value attribute, textarea values in its text, and
// checked/selected state in the boolean attributes. Highlights and
// notifications expire on timers; the expiry itself is applied on the next
// access to the document so the tree is only touched by the caller's goroutine.
type Memory struct {
	root *html.Node

	mu        sync.Mutex
	events    []Event
	listeners []func(Event)
	reverts   []*revert
}

type revert struct {
	fn    func()
	timer *time.Timer
	due   bool
}

var (
	_ Document    = (*Memory)(nil)
	_ ControlHost = (*Memory)(nil)
)

// NewMemory wraps an existing document tree.
func NewMemory(root *html.Node) *Memory {
	return &Memory{root: root}
}

// Parse reads HTML from r into a new in-memory document.
func Parse(r io.Reader) (*Memory, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return NewMemory(root), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Memory, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node after applying expired reverts.
func (m *Memory) Root() *html.Node {
	m.sweep()
	return m.root
}

// Visible applies the markup-based visibility rules of IsVisible.
func (m *Memory) Visible(n *html.Node) bool {
	m.sweep()
	return IsVisible(n)
}

// SetValue writes a control value.
func (m *Memory) SetValue(_ context.Context, n *html.Node, value string) error {
	m.sweep()
	if !Attached(n) {
		return ErrDetached
	}
	switch TagName(n) {
	case "input":
		SetAttr(n, "value", value)
	case "textarea":
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	default:
		return fmt.Errorf("%w: <%s>", ErrNotSettable, TagName(n))
	}
	return nil
}

// SetChecked sets the checked state. Checking a radio unchecks the rest of
// its group within the same form, or the whole document when it has no form.
func (m *Memory) SetChecked(_ context.Context, n *html.Node, checked bool) error {
	m.sweep()
	if !Attached(n) {
		return ErrDetached
	}
	if !checked {
		RemoveAttr(n, "checked")
		return nil
	}
	SetAttr(n, "checked", "checked")

	name := Attr(n, "name")
	if ControlType(n) != "radio" || name == "" {
		return nil
	}
	scope := FindParentForm(n)
	if scope == nil {
		scope = m.root
	}
	for _, other := range Elements(scope, "input") {
		if other != n && ControlType(other) == "radio" && Attr(other, "name") == name {
			RemoveAttr(other, "checked")
		}
	}
	return nil
}

// SelectIndex selects the option at index and deselects the others.
func (m *Memory) SelectIndex(_ context.Context, n *html.Node, index int) error {
	m.sweep()
	if !Attached(n) {
		return ErrDetached
	}
	if TagName(n) != "select" {
		return fmt.Errorf("%w: <%s> is not a select", ErrNotSettable, TagName(n))
	}
	opts := Options(n)
	if index < 0 || index >= len(opts) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, len(opts))
	}
	for i, o := range opts {
		if i == index {
			SetAttr(o, "selected", "selected")
		} else {
			RemoveAttr(o, "selected")
		}
	}
	return nil
}

// Dispatch records the event and delivers it to the registered listeners.
func (m *Memory) Dispatch(_ context.Context, n *html.Node, eventType string) error {
	m.sweep()
	if !Attached(n) {
		return ErrDetached
	}
	ev := Event{Target: n, Type: eventType}
	m.mu.Lock()
	m.events = append(m.events, ev)
	listeners := append([]func(Event){}, m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
	return nil
}

// Highlight outlines n and inserts message right after it until d elapses.
func (m *Memory) Highlight(_ context.Context, n *html.Node, message string, d time.Duration) error {
	m.sweep()
	if !Attached(n) || n.Parent == nil {
		return ErrDetached
	}

	hadStyle := HasAttr(n, "style")
	original := Attr(n, "style")
	merged := highlightStyle
	if s := strings.TrimSpace(original); s != "" {
		merged = strings.TrimSuffix(s, ";") + "; " + highlightStyle
	}
	SetAttr(n, "style", merged)

	notice := overlayNode("div", "highlight", message)
	SetAttr(notice, "style", "color: #FF9800; font-size: 12px; margin-top: 4px")
	n.Parent.InsertBefore(notice, n.NextSibling)

	m.schedule(d, func() {
		if hadStyle {
			SetAttr(n, "style", original)
		} else {
			RemoveAttr(n, "style")
		}
		detach(notice)
	})
	return nil
}

// Notify appends a page-level notification to body until d elapses.
func (m *Memory) Notify(_ context.Context, message string, d time.Duration) error {
	m.sweep()
	body := Body(m.root)
	notice := overlayNode("div", "notification", message)
	SetAttr(notice, "role", "status")
	body.AppendChild(notice)
	m.schedule(d, func() { detach(notice) })
	return nil
}

// EnsureControl appends a floating button to body unless an element with id exists.
func (m *Memory) EnsureControl(_ context.Context, id, label string) (bool, error) {
	m.sweep()
	if ElementByID(m.root, id) != nil {
		return false, nil
	}
	btn := &html.Node{Type: html.ElementNode, DataAtom: atom.Button, Data: "button"}
	SetAttr(btn, "id", id)
	SetAttr(btn, "type", "button")
	btn.AppendChild(&html.Node{Type: html.TextNode, Data: label})
	Body(m.root).AppendChild(btn)
	return true, nil
}

// AddListener registers fn for every subsequently dispatched event.
func (m *Memory) AddListener(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Events returns a copy of every dispatched event in order.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// EventTypes returns the types of the events dispatched at n, in order.
func (m *Memory) EventTypes(n *html.Node) []string {
	var out []string
	for _, ev := range m.Events() {
		if ev.Target == n {
			out = append(out, ev.Type)
		}
	}
	return out
}

// Pending returns the number of highlights and notifications still shown.
func (m *Memory) Pending() int {
	m.sweep()
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reverts)
}

// Settle immediately reverts every highlight and notification.
func (m *Memory) Settle() {
	m.mu.Lock()
	all := m.reverts
	m.reverts = nil
	m.mu.Unlock()

	for _, r := range all {
		r.timer.Stop()
		r.fn()
	}
}

// HTML renders the current tree.
func (m *Memory) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, m.Root()); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

func (m *Memory) schedule(d time.Duration, fn func()) {
	r := &revert{fn: fn}
	m.mu.Lock()
	defer m.mu.Unlock()
	r.timer = time.AfterFunc(d, func() {
		m.mu.Lock()
		r.due = true
		m.mu.Unlock()
	})
	m.reverts = append(m.reverts, r)
}

// sweep applies the reverts whose timers have fired.
func (m *Memory) sweep() {
	m.mu.Lock()
	var due []*revert
	kept := m.reverts[:0]
	for _, r := range m.reverts {
		if r.due {
			due = append(due, r)
		} else {
			kept = append(kept, r)
		}
	}
	m.reverts = kept
	m.mu.Unlock()

	for _, r := range due {
		r.fn()
	}
}

func overlayNode(tag, kind, text string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: atom.Lookup([]byte(tag)), Data: tag}
	SetAttr(n, OverlayAttr, kind)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
