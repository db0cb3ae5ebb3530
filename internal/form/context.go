package form

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/smartfill/internal/dom"
)

// DefaultSurroundingLimit caps SurroundingText in runes.
const DefaultSurroundingLimit = 200

// Option is one choice offered by a select or by a radio/checkbox group.
type Option struct {
	Value string
	Text  string
}

// FieldContext describes a single form control at one point in time.
type FieldContext struct {
	Tag             string
	InputType       string
	ID              string
	Name            string
	Classes         string
	Placeholder     string
	Required        bool
	Accept          string
	Attributes      map[string]string
	Label           string
	SurroundingText string
	Options         []Option
	Catalog         *CatalogEntry
}

// Identifier is the id, falling back to the name.
func (fc FieldContext) Identifier() string {
	if fc.ID != "" {
		return fc.ID
	}
	return fc.Name
}

// noiseTags are stripped from the cloned parent before reading surrounding text.
var noiseTags = []string{"input", "select", "textarea", "button", "script", "style"}

// Builder assembles FieldContext records.
type Builder struct {
	scraper *Scraper
	limit   int
}

// NewBuilder returns a Builder truncating surrounding text to limit runes.
// A non-positive limit selects DefaultSurroundingLimit.
func NewBuilder(scraper *Scraper, limit int) *Builder {
	if scraper == nil {
		scraper = NewScraper()
	}
	if limit <= 0 {
		limit = DefaultSurroundingLimit
	}
	return &Builder{scraper: scraper, limit: limit}
}

// Build never fails; absent attributes leave zero values. The option
// catalog is scraped afresh on each call.
func (b *Builder) Build(doc dom.Document, n *html.Node) FieldContext {
	root := doc.Root()
	fc := FieldContext{
		Tag:         dom.TagName(n),
		InputType:   dom.ControlType(n),
		ID:          dom.Attr(n, "id"),
		Name:        dom.Attr(n, "name"),
		Classes:     dom.Attr(n, "class"),
		Placeholder: dom.Attr(n, "placeholder"),
		Required:    dom.HasAttr(n, "required"),
		Accept:      dom.Attr(n, "accept"),
		Attributes:  dom.Attributes(n),
	}

	fc.Label = Label(root, n)
	fc.SurroundingText = b.surroundingText(n)

	switch {
	case fc.Tag == "select":
		for _, opt := range dom.Options(n) {
			fc.Options = append(fc.Options, Option{Value: dom.OptionValue(opt), Text: dom.OptionText(opt)})
		}
	case fc.Tag == "input" && fc.Name != "" && (fc.InputType == "radio" || fc.InputType == "checkbox"):
		fc.Options = groupOptions(root, fc.InputType, fc.Name)
	}

	if ident := fc.Identifier(); ident != "" {
		fc.Catalog = matchCatalog(b.scraper.Scrape(doc), ident)
	}
	return fc
}

// Label resolves a control's label: label[for=id], then the nearest
// enclosing label within the same form.
func Label(root, n *html.Node) string {
	if id := dom.Attr(n, "id"); id != "" {
		if l := dom.LabelFor(root, id); l != nil {
			return strings.TrimSpace(dom.TextContent(l))
		}
	}
	if l := dom.Closest(n, "label", "form"); l != nil {
		return strings.TrimSpace(dom.TextContent(l))
	}
	return ""
}

func (b *Builder) surroundingText(n *html.Node) string {
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return ""
	}
	clone := dom.Clone(n.Parent)
	var noise []*html.Node
	dom.Walk(clone, func(c *html.Node) bool {
		if c != clone && dom.IsElement(c, noiseTags...) {
			noise = append(noise, c)
			return false
		}
		return true
	})
	for _, c := range noise {
		c.Parent.RemoveChild(c)
	}

	text := dom.CollapseSpace(dom.TextContent(clone))
	if runes := []rune(text); len(runes) > b.limit {
		text = string(runes[:b.limit])
	}
	return text
}

func groupOptions(root *html.Node, typ, name string) []Option {
	var out []Option
	for _, in := range dom.Elements(root, "input") {
		if dom.ControlType(in) != typ || dom.Attr(in, "name") != name {
			continue
		}
		out = append(out, Option{Value: dom.Value(in), Text: Label(root, in)})
	}
	return out
}

// matchCatalog returns the first entry whose field label and ident contain
// one another, ignoring case, provided that entry has something to offer.
func matchCatalog(catalog OptionCatalog, ident string) *CatalogEntry {
	needle := strings.ToLower(ident)
	for i := range catalog {
		field := strings.ToLower(catalog[i].Field)
		if !strings.Contains(field, needle) && !strings.Contains(needle, field) {
			continue
		}
		if !catalog[i].HasChoices() {
			return nil
		}
		entry := catalog[i]
		return &entry
	}
	return nil
}
