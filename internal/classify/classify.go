// Package classify detects whether a file upload control expects a photo or a resume.
package classify

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/xkilldash9x/smartfill/internal/config"
	"github.com/xkilldash9x/smartfill/internal/form"
)

// Result is the upload intent of a field.
type Result int

const (
	Unrecognized Result = iota
	Photo
	Resume
)

func (r Result) String() string {
	switch r {
	case Photo:
		return "photo"
	case Resume:
		return "resume"
	}
	return "unrecognized"
}

// Keywords are the ordered substring lists that signal each intent.
type Keywords struct {
	Photo  []string
	Resume []string
}

// DefaultKeywords returns the stock lists.
func DefaultKeywords() Keywords {
	return Keywords{
		Photo:  append([]string(nil), config.DefaultPhotoKeywords...),
		Resume: append([]string(nil), config.DefaultResumeKeywords...),
	}
}

// KeywordsFromConfig reads the lists from classifier configuration,
// keeping the defaults for any list left empty.
func KeywordsFromConfig(cfg config.ClassifierConfig) Keywords {
	kw := DefaultKeywords()
	if len(cfg.PhotoKeywords) > 0 {
		kw.Photo = cfg.PhotoKeywords
	}
	if len(cfg.ResumeKeywords) > 0 {
		kw.Resume = cfg.ResumeKeywords
	}
	return kw
}

// Classifier is a pure function of a FieldContext and its keyword lists.
type Classifier struct {
	photo  []string
	resume []string
}

// fold case-folds s. Casers carry state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// New folds the keyword lists once up front.
func New(kw Keywords) *Classifier {
	return &Classifier{photo: foldAll(kw.Photo), resume: foldAll(kw.Resume)}
}

func foldAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, fold(w))
		}
	}
	return out
}

// haystack is the field's identifying text, folded. Keywords match
// within one entry, never across two.
func (c *Classifier) haystack(fc form.FieldContext) []string {
	fields := []string{fc.Label, fc.Name, fc.ID, fc.Classes, fc.Placeholder, fc.SurroundingText}
	for i, f := range fields {
		fields[i] = fold(f)
	}
	return fields
}

func containsAny(texts []string, words []string) bool {
	for _, text := range texts {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
	}
	return false
}

// IsPhoto reports a photo upload: an image accept filter or a file input,
// together with a photo keyword.
func (c *Classifier) IsPhoto(fc form.FieldContext) bool {
	if !containsAny(c.haystack(fc), c.photo) {
		return false
	}
	accept := fold(fc.Accept)
	return strings.Contains(accept, "image") || fc.InputType == "file"
}

// IsResume reports a resume upload: a pdf or application accept filter or a
// file input, together with a resume keyword.
func (c *Classifier) IsResume(fc form.FieldContext) bool {
	if !containsAny(c.haystack(fc), c.resume) {
		return false
	}
	accept := fold(fc.Accept)
	return strings.Contains(accept, "pdf") || strings.Contains(accept, "application") || fc.InputType == "file"
}

// Classify prefers Photo over Resume.
func (c *Classifier) Classify(fc form.FieldContext) Result {
	switch {
	case c.IsPhoto(fc):
		return Photo
	case c.IsResume(fc):
		return Resume
	}
	return Unrecognized
}
