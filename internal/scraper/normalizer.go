package scraper

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TextNodes collects every non-blank text node under n in document order,
// trimmed. Script and style bodies are skipped.
func TextNodes(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, t)
			}
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// JoinText joins the text nodes of all given roots with single spaces.
func JoinText(nodes []*html.Node) string {
	var parts []string
	for _, n := range nodes {
		parts = append(parts, TextNodes(n)...)
	}
	return strings.Join(parts, " ")
}
