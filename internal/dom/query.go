package dom

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Query returns the descendants of root matching a CSS selector group, in
// document order, each element once. An invalid selector matches nothing.
func Query(root *html.Node, selector string) []*html.Node {
	if root == nil {
		return nil
	}
	return goquery.NewDocumentFromNode(root).Find(selector).Nodes
}

// QueryFunc returns the descendants of root matching selector for which keep returns true.
func QueryFunc(root *html.Node, selector string, keep func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for _, n := range Query(root, selector) {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}
