// Package resolver turns a field's context into a value by asking the oracle.
package resolver

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smartfill/internal/form"
	"github.com/xkilldash9x/smartfill/internal/llmclient"
)

const (
	DefaultMaxOutputTokens = 100
	DefaultTemperature     = 0.2
)

// Profile supplies the personal details every prompt starts with.
type Profile interface {
	Text() string
}

// StaticProfile is a Profile backed by a fixed string.
type StaticProfile string

// Text returns the string itself.
func (p StaticProfile) Text() string { return string(p) }

// Options tune the oracle request.
type Options struct {
	MaxOutputTokens int
	// Temperature is sent as given; nil selects DefaultTemperature.
	Temperature *float32
}

// Resolver asks the oracle for one field value at a time.
type Resolver struct {
	client      llmclient.Client
	profile     Profile
	maxTokens   int
	temperature float32
	logger      *zap.Logger
	sanitize    *bluemonday.Policy
}

// New returns a Resolver. Unset options select the defaults.
func New(client llmclient.Client, profile Profile, opts Options, logger *zap.Logger) *Resolver {
	maxTokens := opts.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	temperature := float32(DefaultTemperature)
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if profile == nil {
		profile = StaticProfile("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		client:      client,
		profile:     profile,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger.Named("resolver"),
		sanitize:    bluemonday.StrictPolicy(),
	}
}

// Resolve returns the value to fill and whether there is one. Oracle
// failures are logged and reported as no value; nothing is retried.
func (r *Resolver) Resolve(ctx context.Context, fc form.FieldContext) (string, bool) {
	answer, err := r.client.Generate(ctx, llmclient.Request{
		Prompt:          r.Prompt(fc),
		MaxOutputTokens: r.maxTokens,
		Temperature:     r.temperature,
	})
	if err != nil {
		r.logger.Warn("Oracle request failed.",
			zap.String("field", fc.Identifier()),
			zap.Error(err))
		return "", false
	}

	value := r.Normalize(answer)
	if value == "" {
		r.logger.Debug("Oracle answered with an empty value.", zap.String("field", fc.Identifier()))
		return "", false
	}
	return value, true
}

// Prompt renders the oracle prompt for fc.
func (r *Resolver) Prompt(fc form.FieldContext) string {
	var b strings.Builder
	b.WriteString(r.profile.Text())
	b.WriteString("\n\n")

	b.WriteString("Form Element Details:\n")
	b.WriteString("Type: " + fc.Tag)
	if fc.InputType != "" {
		b.WriteString(" (" + fc.InputType + ")")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "ID: %s\n", fc.ID)
	fmt.Fprintf(&b, "Name: %s\n", fc.Name)
	fmt.Fprintf(&b, "Placeholder: %s\n", fc.Placeholder)
	fmt.Fprintf(&b, "Label: %s\n", fc.Label)
	fmt.Fprintf(&b, "Required: %s\n", strconv.FormatBool(fc.Required))
	if fc.SurroundingText != "" {
		fmt.Fprintf(&b, "Surrounding text: %s\n", fc.SurroundingText)
	}

	switch {
	case len(fc.Options) > 0:
		b.WriteString("Available dropdown options (respond with exact text as shown):\n")
		for i, opt := range fc.Options {
			text := opt.Text
			if text == "" {
				text = opt.Value
			}
			fmt.Fprintf(&b, "  %d. %s\n", i+1, text)
		}
	case fc.Catalog != nil:
		b.WriteString("Detected form options:\n")
		writeCatalog(&b, fc.Catalog)
		b.WriteString("For dropdown, date picker, or select options, respond with the exact text of the option to select.\n")
	}

	b.WriteString("\nValue to fill (respond with ONLY the value, no explanations):")
	return b.String()
}

func writeCatalog(b *strings.Builder, entry *form.CatalogEntry) {
	if entry.Kind == form.KindDateParts && entry.Date != nil {
		if len(entry.Date.Day) > 0 {
			fmt.Fprintf(b, "  Days: %s\n", strings.Join(entry.Date.Day, ", "))
		}
		if len(entry.Date.Month) > 0 {
			fmt.Fprintf(b, "  Months: %s\n", strings.Join(entry.Date.Month, ", "))
		}
		if len(entry.Date.Year) > 0 {
			fmt.Fprintf(b, "  Years: %s\n", strings.Join(entry.Date.Year, ", "))
		}
		return
	}
	for i, opt := range entry.Options {
		fmt.Fprintf(b, "  %d. %s\n", i+1, opt)
	}
}

// Normalize cleans a raw oracle answer: surrounding whitespace, Markdown
// code fences, matched quotes and any markup are removed.
func (r *Resolver) Normalize(answer string) string {
	s := strings.TrimSpace(answer)
	s = stripFences(s)
	s = stripQuotes(s)
	s = html.UnescapeString(r.sanitize.Sanitize(s))
	return strings.TrimSpace(s)
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an info string such as "text" on the opening fence.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func stripQuotes(s string) string {
	for _, q := range []string{`"`, `'`, "`"} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
