package overlay

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// ElementInner returns the inner markup of the element with the given id.
func ElementInner(markup, id string) (string, bool) {
	if id == "" || markup == "" {
		return "", false
	}
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", false
	}
	el := findByID(doc, id)
	if el == nil {
		return "", false
	}
	var buf bytes.Buffer
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", false
		}
	}
	return buf.String(), true
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
