// Package form harvests page-wide option catalogs and per-field context records.
package form

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/smartfill/internal/dom"
)

// EntryKind tells which payload a CatalogEntry carries.
type EntryKind int

const (
	// KindOptions entries carry a flat option list.
	KindOptions EntryKind = iota
	// KindDateParts entries carry day/month/year sets.
	KindDateParts
	// KindDatePicker entries mark a native date input and carry no options.
	KindDatePicker
)

func (k EntryKind) String() string {
	switch k {
	case KindOptions:
		return "options"
	case KindDateParts:
		return "date-parts"
	case KindDatePicker:
		return "date-picker"
	}
	return "unknown"
}

const (
	defaultSelectLabel   = "Unnamed Select"
	defaultDropdownLabel = "Custom Dropdown"
	defaultDatePicker    = "Date Picker"
	dateOfBirthLabel     = "Date of Birth"

	customDropdownSelector = `[role="listbox"], .custom-dropdown, .dropdown`
	dropdownItemSelector   = `[role="option"], .dropdown-item, li`
)

// DateParts holds the deduplicated option texts of split date-of-birth selects.
type DateParts struct {
	Day   []string
	Month []string
	Year  []string
}

// Empty reports whether no group has any value.
func (d *DateParts) Empty() bool {
	return d == nil || (len(d.Day) == 0 && len(d.Month) == 0 && len(d.Year) == 0)
}

// CatalogEntry is one dropdown-like or date-like control found on the page.
type CatalogEntry struct {
	Field   string
	Kind    EntryKind
	Options []string
	Date    *DateParts
}

// HasChoices reports whether the entry offers anything to choose from.
func (e CatalogEntry) HasChoices() bool {
	switch e.Kind {
	case KindOptions:
		return len(e.Options) > 0
	case KindDateParts:
		return !e.Date.Empty()
	}
	return false
}

// OptionCatalog is the ordered page-wide harvest of option sets.
type OptionCatalog []CatalogEntry

// Scraper builds option catalogs. It is stateless and safe to reuse.
type Scraper struct{}

// NewScraper returns a Scraper.
func NewScraper() *Scraper { return &Scraper{} }

// Scrape reads the whole document into a fresh catalog. It never mutates the tree.
func (s *Scraper) Scrape(doc dom.Document) OptionCatalog {
	root := doc.Root()
	catalog := OptionCatalog{}
	catalog = append(catalog, s.nativeSelects(root)...)
	catalog = append(catalog, s.customDropdowns(root)...)
	if dob, ok := s.dateOfBirth(root); ok {
		catalog = append(catalog, dob)
	}
	catalog = append(catalog, s.datePickers(root)...)
	return catalog
}

func (s *Scraper) nativeSelects(root *html.Node) []CatalogEntry {
	var out []CatalogEntry
	for _, sel := range dom.Elements(root, "select") {
		field := ""
		if l := dom.LabelFor(root, dom.Attr(sel, "id")); l != nil {
			field = dom.InnerText(l)
		}
		field = firstNonEmpty(field, dom.Attr(sel, "name"), dom.Attr(sel, "id"), defaultSelectLabel)

		var options []string
		for _, opt := range dom.Options(sel) {
			if !dom.OptionVisible(opt) {
				continue
			}
			if text := strings.TrimSpace(dom.TextContent(opt)); text != "" {
				options = append(options, text)
			}
		}
		out = append(out, CatalogEntry{Field: field, Kind: KindOptions, Options: options})
	}
	return out
}

func (s *Scraper) customDropdowns(root *html.Node) []CatalogEntry {
	var out []CatalogEntry
	for _, dd := range dom.Query(root, customDropdownSelector) {
		field := firstNonEmpty(dom.Attr(dd, "aria-label"), dom.Attr(dd, "data-label"), defaultDropdownLabel)

		var options []string
		for _, item := range dom.Query(dd, dropdownItemSelector) {
			if text := strings.TrimSpace(dom.TextContent(item)); text != "" {
				options = append(options, text)
			}
		}
		if len(options) == 0 {
			continue
		}
		out = append(out, CatalogEntry{Field: field, Kind: KindOptions, Options: options})
	}
	return out
}

func (s *Scraper) dateOfBirth(root *html.Node) (CatalogEntry, bool) {
	var day, month, year []*html.Node
	for _, sel := range dom.Elements(root, "select") {
		ident := strings.ToLower(dom.Attr(sel, "name") + " " + dom.Attr(sel, "id"))
		if strings.Contains(ident, "day") {
			day = append(day, sel)
		}
		if strings.Contains(ident, "month") {
			month = append(month, sel)
		}
		if strings.Contains(ident, "year") {
			year = append(year, sel)
		}
	}

	parts := &DateParts{
		Day:   uniqueOptionTexts(day),
		Month: uniqueOptionTexts(month),
		Year:  uniqueOptionTexts(year),
	}
	if parts.Empty() {
		return CatalogEntry{}, false
	}
	return CatalogEntry{Field: dateOfBirthLabel, Kind: KindDateParts, Date: parts}, true
}

func (s *Scraper) datePickers(root *html.Node) []CatalogEntry {
	var out []CatalogEntry
	for _, in := range dom.Elements(root, "input") {
		id, name := dom.Attr(in, "id"), dom.Attr(in, "name")
		isDate := dom.ControlType(in) == "date" ||
			strings.Contains(strings.ToLower(name), "dob") ||
			strings.Contains(strings.ToLower(id), "dob")
		if !isDate {
			continue
		}
		field := ""
		if l := dom.LabelFor(root, id); l != nil {
			field = strings.TrimSpace(dom.TextContent(l))
		}
		field = firstNonEmpty(field, name, id, defaultDatePicker)
		out = append(out, CatalogEntry{Field: field, Kind: KindDatePicker})
	}
	return out
}

// uniqueOptionTexts flattens the trimmed non-empty option texts of sels,
// keeping the first occurrence of each.
func uniqueOptionTexts(sels []*html.Node) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, sel := range sels {
		for _, opt := range dom.Options(sel) {
			text := strings.TrimSpace(dom.TextContent(opt))
			if text == "" {
				continue
			}
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			out = append(out, text)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
