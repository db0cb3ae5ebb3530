// Package profile loads the personal profile document that grounds every
// oracle prompt.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"baliance.com/gooxml/document"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for profile files of an unknown kind.
var ErrUnsupportedFormat = errors.New("unsupported profile format")

// Format identifies how a profile file is interpreted.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatDOCX Format = "docx"
)

// Document is a loaded profile. Its text is handed to the oracle verbatim.
type Document struct {
	Path   string
	Format Format
	text   string
}

// New wraps already rendered text.
func New(text string) *Document {
	return &Document{Format: FormatText, text: text}
}

// Text returns the rendered profile.
func (d *Document) Text() string {
	if d == nil {
		return ""
	}
	return d.text
}

// FormatFor picks the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", "":
		return FormatText, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".docx":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// Load reads and renders the profile at path.
func Load(path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	var text string
	switch format {
	case FormatDOCX:
		text, err = loadDOCX(path)
	default:
		var raw []byte
		raw, err = os.ReadFile(path)
		if err != nil {
			break
		}
		if format == FormatYAML {
			text, err = RenderYAML(raw)
		} else {
			text = string(raw)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", path, err)
	}
	return &Document{Path: path, Format: format, text: text}, nil
}

func loadDOCX(path string) (string, error) {
	doc, err := document.Open(path)
	if err != nil {
		return "", err
	}

	var lines []string
	appendParagraph := func(p document.Paragraph) {
		var sb strings.Builder
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		if line := strings.TrimRight(sb.String(), " \t"); line != "" {
			lines = append(lines, line)
		}
	}
	for _, p := range doc.Paragraphs() {
		appendParagraph(p)
	}
	for _, t := range doc.Tables() {
		for _, row := range t.Rows() {
			var cells []string
			for _, c := range row.Cells() {
				var sb strings.Builder
				for _, p := range c.Paragraphs() {
					for _, r := range p.Runs() {
						sb.WriteString(r.Text())
					}
				}
				cells = append(cells, strings.TrimSpace(sb.String()))
			}
			if joined := strings.Join(cells, ": "); strings.TrimSpace(joined) != "" {
				lines = append(lines, joined)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// RenderYAML turns a YAML profile into "Key: value" lines, keeping the
// document's key order. Nested mappings are indented by two spaces and
// scalar lists are joined with ", ".
func RenderYAML(raw []byte) (string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", err
	}
	if root.Kind == 0 {
		return "", nil
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	var buf bytes.Buffer
	renderNode(&buf, node, 0)
	return strings.TrimRight(buf.String(), "\n"), nil
}

func renderNode(buf *bytes.Buffer, n *yaml.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			switch {
			case val.Kind == yaml.ScalarNode:
				fmt.Fprintf(buf, "%s%s: %s\n", indent, key.Value, val.Value)
			case val.Kind == yaml.SequenceNode && scalarSeq(val):
				fmt.Fprintf(buf, "%s%s: %s\n", indent, key.Value, joinScalars(val))
			case val.Kind == yaml.AliasNode && val.Alias != nil:
				fmt.Fprintf(buf, "%s%s:\n", indent, key.Value)
				renderNode(buf, val.Alias, depth+1)
			default:
				fmt.Fprintf(buf, "%s%s:\n", indent, key.Value)
				renderNode(buf, val, depth+1)
			}
		}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind == yaml.ScalarNode {
				fmt.Fprintf(buf, "%s- %s\n", indent, item.Value)
				continue
			}
			fmt.Fprintf(buf, "%s-\n", indent)
			renderNode(buf, item, depth+1)
		}
	case yaml.ScalarNode:
		fmt.Fprintf(buf, "%s%s\n", indent, n.Value)
	}
}

func scalarSeq(n *yaml.Node) bool {
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode {
			return false
		}
	}
	return true
}

func joinScalars(n *yaml.Node) string {
	vals := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		vals = append(vals, item.Value)
	}
	return strings.Join(vals, ", ")
}
