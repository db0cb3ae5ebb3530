package form

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/smartfill/internal/dom"
)

var fillableInputTypes = map[string]struct{}{
	"text": {}, "email": {}, "tel": {}, "number": {}, "password": {}, "search": {},
	"url": {}, "date": {}, "file": {}, "radio": {}, "checkbox": {},
}

// IsFillable reports whether n is a control the agent attempts to fill:
// textareas, selects, untyped inputs and inputs of a fillable type.
func IsFillable(n *html.Node) bool {
	switch dom.TagName(n) {
	case "textarea", "select":
		return true
	case "input":
		if !dom.HasAttr(n, "type") {
			return true
		}
		_, ok := fillableInputTypes[strings.ToLower(strings.TrimSpace(dom.Attr(n, "type")))]
		return ok
	}
	return false
}

// Fillable lists the fillable controls under root in document order.
func Fillable(root *html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range dom.Elements(root, "input", "textarea", "select") {
		if IsFillable(n) {
			out = append(out, n)
		}
	}
	return out
}

// HasPrefill reports whether n already carries a value that a run must keep.
// Checkable and file controls never count as prefilled.
func HasPrefill(n *html.Node) bool {
	switch dom.ControlType(n) {
	case "checkbox", "radio", "file":
		return false
	}
	return dom.Value(n) != ""
}
