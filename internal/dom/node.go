package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// knownInputTypes are the input types a browser reports as-is; anything
// else (including a missing type) is reported as "text".
var knownInputTypes = map[string]struct{}{
	"button": {}, "checkbox": {}, "color": {}, "date": {}, "datetime-local": {},
	"email": {}, "file": {}, "hidden": {}, "image": {}, "month": {}, "number": {},
	"password": {}, "radio": {}, "range": {}, "reset": {}, "search": {}, "submit": {},
	"tel": {}, "text": {}, "time": {}, "url": {}, "week": {},
}

// Attr returns the value of the attribute key, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries the attribute key.
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Attributes returns a copy of n's attributes as a map.
func Attributes(n *html.Node) map[string]string {
	out := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		out[strings.ToLower(a.Key)] = a.Val
	}
	return out
}

// TagName returns the lowercase tag of an element node, or "".
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// IsElement reports whether n is an element with one of the given tags.
func IsElement(n *html.Node, tags ...string) bool {
	tag := TagName(n)
	if tag == "" {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if tag == t {
			return true
		}
	}
	return false
}

// ControlType returns the control subtype the way a browser reports
// element.type: the normalized input type, "select-one"/"select-multiple",
// "textarea", or the button type.
func ControlType(n *html.Node) string {
	switch TagName(n) {
	case "input":
		t := strings.ToLower(strings.TrimSpace(Attr(n, "type")))
		if _, ok := knownInputTypes[t]; ok {
			return t
		}
		return "text"
	case "select":
		if HasAttr(n, "multiple") {
			return "select-multiple"
		}
		return "select-one"
	case "textarea":
		return "textarea"
	case "button":
		t := strings.ToLower(strings.TrimSpace(Attr(n, "type")))
		if t == "button" || t == "reset" {
			return t
		}
		return "submit"
	}
	return ""
}

// Value returns the current value of a form control.
func Value(n *html.Node) string {
	switch TagName(n) {
	case "input":
		if !HasAttr(n, "value") {
			switch ControlType(n) {
			case "checkbox", "radio":
				return "on"
			}
		}
		return Attr(n, "value")
	case "textarea":
		return TextContent(n)
	case "select":
		opts := Options(n)
		if i := SelectedIndex(n); i >= 0 {
			return OptionValue(opts[i])
		}
	}
	return ""
}

// Checked reports the checked state of a checkbox or radio.
func Checked(n *html.Node) bool {
	return HasAttr(n, "checked")
}

// Options returns the option elements of a select in document order.
func Options(sel *html.Node) []*html.Node {
	var opts []*html.Node
	Walk(sel, func(c *html.Node) bool {
		if c == sel {
			return true
		}
		if TagName(c) == "option" {
			opts = append(opts, c)
			return false
		}
		return true
	})
	return opts
}

// OptionText returns the label of an option with whitespace collapsed.
func OptionText(opt *html.Node) string {
	return CollapseSpace(TextContent(opt))
}

// OptionValue returns the submitted value of an option, which falls back to its text.
func OptionValue(opt *html.Node) string {
	if HasAttr(opt, "value") {
		return Attr(opt, "value")
	}
	return OptionText(opt)
}

// SelectedIndex returns the index of the selected option: the last option
// marked selected, else the first option, else -1.
func SelectedIndex(sel *html.Node) int {
	opts := Options(sel)
	if len(opts) == 0 {
		return -1
	}
	idx := 0
	for i, o := range opts {
		if HasAttr(o, "selected") {
			idx = i
		}
	}
	return idx
}

// TextContent concatenates all descendant text, like Node.textContent.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				sb.WriteString(c.Data)
			case html.ElementNode, html.DocumentNode:
				collect(c)
			}
		}
	}
	collect(n)
	return sb.String()
}

// InnerText approximates the rendered text of n: script and style are
// dropped and whitespace is collapsed.
func InnerText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	Walk(n, func(c *html.Node) bool {
		switch c.Type {
		case html.TextNode:
			parts = append(parts, c.Data)
		case html.ElementNode:
			switch TagName(c) {
			case "script", "style", "template", "noscript":
				return false
			}
		}
		return true
	})
	return CollapseSpace(strings.Join(parts, " "))
}

// CollapseSpace trims s and replaces runs of whitespace with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Walk visits n and its descendants depth-first in document order.
// Returning false from fn skips the node's children.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// Elements returns every element under root with one of the given tags,
// or every element when no tags are given.
func Elements(root *html.Node, tags ...string) []*html.Node {
	var out []*html.Node
	Walk(root, func(c *html.Node) bool {
		if c != root && IsElement(c, tags...) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// ElementByID returns the first element whose id equals id.
func ElementByID(root *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	var found *html.Node
	Walk(root, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c.Type == html.ElementNode && Attr(c, "id") == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// LabelFor returns the first label whose for attribute equals id.
func LabelFor(root *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	for _, l := range Elements(root, "label") {
		if Attr(l, "for") == id {
			return l
		}
	}
	return nil
}

// Closest returns the nearest ancestor of n with the given tag. The search
// gives up when it reaches an ancestor tagged stopAt.
func Closest(n *html.Node, tag, stopAt string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		t := TagName(p)
		if t == "" {
			continue
		}
		if stopAt != "" && t == stopAt {
			return nil
		}
		if t == tag {
			return p
		}
	}
	return nil
}

// FindParentForm returns the form that contains n, if any.
func FindParentForm(n *html.Node) *html.Node {
	return Closest(n, "form", "")
}

// Clone returns a detached deep copy of n.
func Clone(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// Body returns the body element of the document, falling back to the
// first element child of root.
func Body(root *html.Node) *html.Node {
	if b := Elements(root, "body"); len(b) > 0 {
		return b[0]
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return root
}

// Attached reports whether n is still connected to a document node.
func Attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.DocumentNode {
			return true
		}
	}
	return false
}
