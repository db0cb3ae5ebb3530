package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// mustParse parses a fragment of body markup into a document tree.
func mustParse(t *testing.T, body string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader("<html><body>" + body + "</body></html>"))
	require.NoError(t, err)
	return root
}

func byID(t *testing.T, root *html.Node, id string) *html.Node {
	t.Helper()
	n := ElementByID(root, id)
	require.NotNil(t, n, "element #%s not found", id)
	return n
}

func TestControlType(t *testing.T) {
	root := mustParse(t, `
		<input id="plain">
		<input id="email" type="EMAIL">
		<input id="weird" type="fancy">
		<input id="file" type="file">
		<select id="single"></select>
		<select id="multi" multiple></select>
		<textarea id="area"></textarea>
		<button id="btn"></button>
		<div id="div"></div>`)

	tests := map[string]string{
		"plain":  "text",
		"email":  "email",
		"weird":  "text",
		"file":   "file",
		"single": "select-one",
		"multi":  "select-multiple",
		"area":   "textarea",
		"btn":    "submit",
		"div":    "",
	}
	for id, want := range tests {
		t.Run(id, func(t *testing.T) {
			assert.Equal(t, want, ControlType(byID(t, root, id)))
		})
	}
}

func TestValue(t *testing.T) {
	root := mustParse(t, `
		<input id="text" value="hello">
		<input id="empty">
		<input id="box" type="checkbox">
		<textarea id="area">  some notes </textarea>
		<select id="placeholder"><option value="">Select…</option><option value="ind">India</option></select>
		<select id="preset"><option value="a">A</option><option value="b" selected>B</option></select>
		<select id="novalue"><option> Plain  Text </option></select>
		<select id="none"></select>`)

	assert.Equal(t, "hello", Value(byID(t, root, "text")))
	assert.Equal(t, "", Value(byID(t, root, "empty")))
	assert.Equal(t, "on", Value(byID(t, root, "box")))
	assert.Equal(t, "  some notes ", Value(byID(t, root, "area")))
	assert.Equal(t, "", Value(byID(t, root, "placeholder")))
	assert.Equal(t, "b", Value(byID(t, root, "preset")))
	assert.Equal(t, "Plain Text", Value(byID(t, root, "novalue")))
	assert.Equal(t, "", Value(byID(t, root, "none")))
}

func TestOptionsAndSelectedIndex(t *testing.T) {
	root := mustParse(t, `
		<select id="s">
			<optgroup label="g"><option>One</option><option selected>Two</option></optgroup>
			<option>Three</option>
		</select>`)
	sel := byID(t, root, "s")

	opts := Options(sel)
	require.Len(t, opts, 3)
	assert.Equal(t, "Three", OptionText(opts[2]))
	assert.Equal(t, 1, SelectedIndex(sel))
}

func TestTextHelpers(t *testing.T) {
	root := mustParse(t, `<div id="d">  Hello <b>big</b>
		world <script>var x = 1;</script></div>`)
	d := byID(t, root, "d")

	assert.Contains(t, TextContent(d), "var x = 1;")
	assert.Equal(t, "Hello big world", InnerText(d))
	assert.Equal(t, "a b c", CollapseSpace("  a \n\t b   c "))
}

func TestClosest(t *testing.T) {
	root := mustParse(t, `
		<label id="outer"><form><div><input id="inside"></div></form></label>
		<label id="wrap"><span><input id="wrapped"></span></label>`)

	assert.Nil(t, Closest(byID(t, root, "inside"), "label", "form"), "search must stop at the form")
	assert.Equal(t, byID(t, root, "wrap"), Closest(byID(t, root, "wrapped"), "label", "form"))
	assert.NotNil(t, FindParentForm(byID(t, root, "inside")))
}

func TestLabelFor(t *testing.T) {
	root := mustParse(t, `<label for="email">Email</label><input id="email">`)

	l := LabelFor(root, "email")
	require.NotNil(t, l)
	assert.Equal(t, "Email", TextContent(l))
	assert.Nil(t, LabelFor(root, ""))
	assert.Nil(t, LabelFor(root, "missing"))
}

func TestCloneIsDetached(t *testing.T) {
	root := mustParse(t, `<div id="p"><span class="x">text</span><input id="i"></div>`)
	p := byID(t, root, "p")

	c := Clone(p)
	require.NotNil(t, c)
	assert.Nil(t, c.Parent)
	assert.False(t, Attached(c))

	// Mutating the clone leaves the original untouched.
	c.RemoveChild(c.FirstChild)
	SetAttr(c, "data-x", "1")
	assert.Equal(t, "text", TextContent(p))
	assert.False(t, HasAttr(p, "data-x"))
}

func TestAttrHelpers(t *testing.T) {
	root := mustParse(t, `<input id="i" Data-Label="x">`)
	n := byID(t, root, "i")

	assert.Equal(t, "x", Attr(n, "data-label"))
	SetAttr(n, "value", "1")
	SetAttr(n, "value", "2")
	assert.Equal(t, "2", Attr(n, "value"))
	RemoveAttr(n, "value")
	assert.False(t, HasAttr(n, "value"))
	assert.Equal(t, map[string]string{"id": "i", "data-label": "x"}, Attributes(n))
}

func TestQuery(t *testing.T) {
	root := mustParse(t, `
		<div id="a" class="dropdown" role="listbox"><li>1</li></div>
		<ul id="b" class="custom-dropdown"><li>2</li></ul>
		<div id="c" role="listbox"></div>`)

	got := Query(root, `[role="listbox"], .custom-dropdown, .dropdown`)
	require.Len(t, got, 3, "an element matching several selectors appears once")
	assert.Equal(t, "a", Attr(got[0], "id"))
	assert.Equal(t, "b", Attr(got[1], "id"))
	assert.Equal(t, "c", Attr(got[2], "id"))

	assert.Empty(t, Query(root, "[[["), "invalid selectors match nothing")
}
