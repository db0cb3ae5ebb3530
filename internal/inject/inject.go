// Package inject writes resolved values into form controls the way a user
// would, firing the events page scripts listen for.
package inject

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/smartfill/internal/dom"
)

// Status is the control-level verdict of an injection attempt.
type Status int

const (
	// Applied means the value was written and its events fired.
	Applied Status = iota
	// Unsupported means the control kind takes no injected values.
	Unsupported
	// Rejected means the control could not accept this particular value.
	Rejected
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case Unsupported:
		return "unsupported"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

const isoDateLayout = "2006-01-02"

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var (
	textEvents   = []string{dom.EventInput, dom.EventChange, dom.EventBlur}
	selectEvents = []string{dom.EventChange, dom.EventBlur}
	checkEvents  = []string{dom.EventClick, dom.EventChange}
)

// Injector dispatches on control kind.
type Injector struct {
	logger   *zap.Logger
	location *time.Location
}

// New returns an Injector parsing free-form dates in the local time zone.
func New(logger *zap.Logger) *Injector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Injector{logger: logger.Named("inject"), location: time.Local}
}

// Fill writes value into n. The returned error is reserved for failures of
// the document itself; control-level refusals are reported through Status.
func (i *Injector) Fill(ctx context.Context, doc dom.Document, n *html.Node, value string) (Status, error) {
	switch typ := dom.ControlType(n); typ {
	case "text", "email", "tel", "number", "password", "search", "url", "textarea":
		return i.fillText(ctx, doc, n, value)
	case "select-one", "select-multiple":
		return i.fillSelect(ctx, doc, n, value)
	case "checkbox", "radio":
		return i.fillCheckable(ctx, doc, n, value)
	case "date":
		return i.fillDate(ctx, doc, n, value)
	default:
		return Unsupported, nil
	}
}

func (i *Injector) fillText(ctx context.Context, doc dom.Document, n *html.Node, value string) (Status, error) {
	if err := doc.SetValue(ctx, n, value); err != nil {
		return Rejected, fmt.Errorf("set value on %s: %w", dom.Describe(n), err)
	}
	return Applied, fire(ctx, doc, n, textEvents)
}

func (i *Injector) fillSelect(ctx context.Context, doc dom.Document, n *html.Node, value string) (Status, error) {
	idx := MatchOption(dom.Options(n), value)
	if idx < 0 {
		return Rejected, nil
	}
	if err := doc.SelectIndex(ctx, n, idx); err != nil {
		return Rejected, fmt.Errorf("select option %d on %s: %w", idx, dom.Describe(n), err)
	}
	return Applied, fire(ctx, doc, n, selectEvents)
}

func (i *Injector) fillCheckable(ctx context.Context, doc dom.Document, n *html.Node, value string) (Status, error) {
	if err := doc.SetChecked(ctx, n, Truthy(value)); err != nil {
		return Rejected, fmt.Errorf("set checked on %s: %w", dom.Describe(n), err)
	}
	return Applied, fire(ctx, doc, n, checkEvents)
}

func (i *Injector) fillDate(ctx context.Context, doc dom.Document, n *html.Node, value string) (Status, error) {
	normalized, err := NormalizeDate(value, i.location)
	if err != nil {
		i.logger.Warn("Could not parse date value.",
			zap.String("field", dom.Describe(n)),
			zap.String("value", value),
			zap.Error(err))
		return Rejected, nil
	}
	if err := doc.SetValue(ctx, n, normalized); err != nil {
		return Rejected, fmt.Errorf("set date on %s: %w", dom.Describe(n), err)
	}
	return Applied, fire(ctx, doc, n, textEvents)
}

func fire(ctx context.Context, doc dom.Document, n *html.Node, events []string) error {
	for _, ev := range events {
		if err := doc.Dispatch(ctx, n, ev); err != nil {
			return fmt.Errorf("dispatch %s on %s: %w", ev, dom.Describe(n), err)
		}
	}
	return nil
}

// MatchOption picks the option to select for value: the first whose text or
// value contains it, ignoring case. Failing that it falls back to the first
// option, or the second when the first is a placeholder. It returns -1 only
// for a select with no options.
func MatchOption(options []*html.Node, value string) int {
	if len(options) == 0 {
		return -1
	}
	needle := strings.ToLower(value)
	for idx, opt := range options {
		if strings.Contains(strings.ToLower(dom.OptionText(opt)), needle) ||
			strings.Contains(strings.ToLower(dom.OptionValue(opt)), needle) {
			return idx
		}
	}
	if len(options) > 1 && IsPlaceholder(options[0]) {
		return 1
	}
	return 0
}

// IsPlaceholder reports options like "Select..." or "-- Choose --", and
// options with an empty value.
func IsPlaceholder(opt *html.Node) bool {
	text := strings.ToLower(dom.OptionText(opt))
	if strings.Contains(text, "select") || strings.Contains(text, "choose") {
		return true
	}
	return dom.HasAttr(opt, "value") && dom.Attr(opt, "value") == ""
}

// Truthy interprets an answer for a checkbox or radio.
func Truthy(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return strings.Contains(v, "check") || v == "yes" || v == "true"
}

// NormalizeDate returns value as YYYY-MM-DD, parsing free-form input in loc.
func NormalizeDate(value string, loc *time.Location) (string, error) {
	value = strings.TrimSpace(value)
	if isoDate.MatchString(value) {
		return value, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := dateparse.ParseIn(value, loc)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", value, err)
	}
	return t.Format(isoDateLayout), nil
}
