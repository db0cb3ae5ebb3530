package dom

import (
	"strconv"
	"strings"

	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// InlineStyle returns the declarations of n's style attribute keyed by
// lowercase property. Later declarations win; malformed styles yield an empty map.
func InlineStyle(n *html.Node) map[string]string {
	raw := strings.TrimSpace(Attr(n, "style"))
	if raw == "" {
		return nil
	}
	// The parser drops the value of an unterminated final declaration.
	decls, err := parser.ParseDeclarations(strings.TrimSuffix(raw, ";") + ";")
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(decls))
	for _, d := range decls {
		val := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(d.Value), "!important"))
		out[strings.ToLower(strings.TrimSpace(d.Property))] = strings.ToLower(val)
	}
	return out
}

// IsVisible reports whether n would render with a non-empty box, judged
// from markup alone: the hidden attribute, hidden inputs, and inline
// display, visibility, opacity and size on n and its ancestors.
func IsVisible(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || !Attached(n) {
		return false
	}
	if TagName(n) == "input" && ControlType(n) == "hidden" {
		return false
	}
	if HasAttr(n, "hidden") {
		return false
	}

	style := InlineStyle(n)
	if style["display"] == "none" || zeroLength(style["width"]) || zeroLength(style["height"]) {
		return false
	}
	if op, ok := style["opacity"]; ok {
		if f, err := strconv.ParseFloat(op, 64); err == nil && f <= 0 {
			return false
		}
	}
	visibility := style["visibility"]

	for p := n.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if HasAttr(p, "hidden") {
			return false
		}
		ps := InlineStyle(p)
		if ps["display"] == "none" {
			return false
		}
		// visibility is inherited until an element sets it explicitly.
		if visibility == "" {
			visibility = ps["visibility"]
		}
	}
	return visibility != "hidden" && visibility != "collapse"
}

// OptionVisible reports whether an option inside a select is displayed.
func OptionVisible(opt *html.Node) bool {
	return !HasAttr(opt, "hidden") && InlineStyle(opt)["display"] != "none"
}

func zeroLength(v string) bool {
	if v == "" {
		return false
	}
	num := strings.TrimRight(v, "abcdefghijklmnopqrstuvwxyz%")
	f, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	return err == nil && f == 0
}
