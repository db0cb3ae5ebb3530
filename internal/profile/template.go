package profile

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one key of a generated YAML profile.
type Entry struct {
	Key   string
	Value string
}

// Field describes a question asked when creating a profile.
type Field struct {
	Key      string
	Prompt   string
	Help     string
	Required bool
	// Multiline answers are kept as YAML block scalars.
	Multiline bool
}

// Fields is the default question list, in output order.
var Fields = []Field{
	{Key: "Full Name", Prompt: "Full name:", Required: true},
	{Key: "Email", Prompt: "Email address:", Required: true},
	{Key: "Phone", Prompt: "Phone number:"},
	{Key: "Date of Birth", Prompt: "Date of birth:", Help: "Any format, for example 1990-04-12 or April 12, 1990."},
	{Key: "Gender", Prompt: "Gender:"},
	{Key: "Address", Prompt: "Street address:"},
	{Key: "City", Prompt: "City:"},
	{Key: "State", Prompt: "State or region:"},
	{Key: "Postal Code", Prompt: "Postal code:"},
	{Key: "Country", Prompt: "Country:"},
	{Key: "Current Company", Prompt: "Current employer:"},
	{Key: "Job Title", Prompt: "Job title:"},
	{Key: "Years of Experience", Prompt: "Years of experience:"},
	{Key: "LinkedIn", Prompt: "LinkedIn URL:"},
	{Key: "Website", Prompt: "Personal website or portfolio:"},
	{Key: "Summary", Prompt: "Short professional summary:", Multiline: true},
}

// WriteYAML writes entries as a YAML mapping, preserving their order and
// omitting empty values.
func WriteYAML(w io.Writer, entries []Entry) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		if strings.TrimSpace(e.Value) == "" {
			continue
		}
		val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Value}
		if strings.Contains(e.Value, "\n") {
			val.Style = yaml.LiteralStyle
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
			val)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return enc.Close()
}
