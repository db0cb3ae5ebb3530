package dom

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// XPath generates a unique XPath expression for node, anchored on the
// nearest ancestor with an id when there is one.
func XPath(node *html.Node) string {
	if node == nil {
		return ""
	}

	var path []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(n.Data)
		if tag == "" {
			continue
		}

		if id := htmlquery.SelectAttr(n, "id"); id != "" && !strings.Contains(id, "'") {
			path = append(path, fmt.Sprintf(`//*[@id='%s']`, id))
			break
		}

		// XPath indices are 1-based and count same-tag siblings only.
		index := 1
		for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
				index++
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", tag, index))
	}

	if len(path) == 0 {
		return "/"
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	xpath := strings.Join(path, "/")
	if !strings.HasPrefix(xpath, "//*[@id=") {
		xpath = "/" + xpath
	}
	return xpath
}

// Describe returns a short human-readable handle for n, e.g.
// `input#email`, `select[name=country]` or `input[type=file]`.
func Describe(n *html.Node) string {
	tag := TagName(n)
	if tag == "" {
		return ""
	}
	if id := Attr(n, "id"); id != "" {
		return tag + "#" + id
	}
	if name := Attr(n, "name"); name != "" {
		return fmt.Sprintf("%s[name=%s]", tag, name)
	}
	if tag == "input" {
		return fmt.Sprintf("input[type=%s]", ControlType(n))
	}
	return tag
}
