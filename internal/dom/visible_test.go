package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVisible(t *testing.T) {
	root := mustParse(t, `
		<input id="plain">
		<input id="hidden-type" type="hidden">
		<input id="hidden-attr" hidden>
		<input id="display-none" style="display:none">
		<input id="display-none-upper" style="DISPLAY: None !important">
		<input id="invisible" style="visibility: hidden">
		<input id="transparent" style="opacity:0">
		<input id="half" style="opacity:0.5">
		<input id="zero-width" style="width:0px">
		<input id="auto-width" style="width:auto">
		<div style="display:none"><input id="in-hidden-parent"></div>
		<div hidden><input id="in-hidden-attr-parent"></div>
		<div style="visibility:hidden"><input id="inherits-hidden"></div>
		<div style="visibility:hidden"><input id="overrides-visible" style="visibility:visible"></div>
		<div style="opacity:0"><input id="in-transparent-parent"></div>
		<input id="broken-style" style="color:">`)

	tests := map[string]bool{
		"plain":                 true,
		"hidden-type":           false,
		"hidden-attr":           false,
		"display-none":          false,
		"display-none-upper":    false,
		"invisible":             false,
		"transparent":           false,
		"half":                  true,
		"zero-width":            false,
		"auto-width":            true,
		"in-hidden-parent":      false,
		"in-hidden-attr-parent": false,
		"inherits-hidden":       false,
		"overrides-visible":     true,
		// Only the element's own opacity is consulted.
		"in-transparent-parent": true,
		"broken-style":          true,
	}
	for id, want := range tests {
		t.Run(id, func(t *testing.T) {
			assert.Equal(t, want, IsVisible(byID(t, root, id)))
		})
	}

	t.Run("detached nodes are not visible", func(t *testing.T) {
		assert.False(t, IsVisible(Clone(byID(t, root, "plain"))))
		assert.False(t, IsVisible(nil))
	})
}

func TestInlineStyle(t *testing.T) {
	root := mustParse(t, `<div id="d" style="Display: Block; color: red; display: none"></div>`)
	style := InlineStyle(byID(t, root, "d"))
	assert.Equal(t, "none", style["display"], "later declarations win")
	assert.Equal(t, "red", style["color"])
}

func TestInlineStyleLastDeclaration(t *testing.T) {
	tests := []struct {
		style, prop, want string
	}{
		{"display:none", "display", "none"},
		{"color: red; opacity:0", "opacity", "0"},
		{"visibility: hidden", "visibility", "hidden"},
		{"width:0;", "width", "0"},
		{"display: none !important", "display", "none"},
	}
	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			root := mustParse(t, `<input id="i" style="`+tt.style+`">`)
			n := byID(t, root, "i")
			assert.Equal(t, tt.want, InlineStyle(n)[tt.prop])
			assert.False(t, IsVisible(n))
		})
	}

	root := mustParse(t, `<div style="visibility:hidden"><input id="i"></div>`)
	assert.False(t, IsVisible(byID(t, root, "i")), "hidden ancestor without trailing semicolon")
}

func TestOptionVisible(t *testing.T) {
	root := mustParse(t, `<select><option id="a">A</option><option id="b" hidden>B</option><option id="c" style="display:none">C</option></select>`)
	assert.True(t, OptionVisible(byID(t, root, "a")))
	assert.False(t, OptionVisible(byID(t, root, "b")))
	assert.False(t, OptionVisible(byID(t, root, "c")))
}
