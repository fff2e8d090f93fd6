package topic2html

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// walkNodes visits n and every descendant in document order.
func walkNodes(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, visit)
	}
}

// collectNodes returns every node matching the predicate, in document order.
// Collecting before mutating keeps traversal safe when callers detach or
// replace nodes.
func collectNodes(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var nodes []*html.Node
	walkNodes(root, func(n *html.Node) {
		if match(n) {
			nodes = append(nodes, n)
		}
	})
	return nodes
}

// isElement reports whether n is an element with the given tag name.
func isElement(n *html.Node, name string) bool {
	return n.Type == html.ElementNode && n.Data == name
}

// getAttr returns the value of the named attribute, or "".
func getAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// hasAttr reports whether the named attribute is present.
func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

// setAttr sets or replaces the named attribute.
func setAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// removeAttr deletes the named attribute if present.
func removeAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// hasClass reports whether the element's class list contains the class.
func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent concatenates the text nodes under n.
func textContent(n *html.Node) string {
	var b strings.Builder
	walkNodes(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

// findFirst returns the first node matching the predicate, or nil.
func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if match(n) {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}

// newLinkNode builds a plain <a> replacement for network-dependent elements
// (iframe, audio, video). An empty href falls back to the literal text
// "link".
func newLinkNode(href string) *html.Node {
	safe := strings.TrimSpace(href)
	display := safe
	if display == "" {
		display = "link"
	}

	a := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.A,
		Data:     "a",
		Attr: []html.Attribute{
			{Key: "href", Val: safe},
			{Key: "rel", Val: "noreferrer noopener"},
		},
	}
	a.AppendChild(&html.Node{Type: html.TextNode, Data: display})
	return a
}

// renderBodyChildren serializes only the children of <body>, never wrapping
// a second document shell around an already-fragment-like input. Documents
// without a <body> serialize whole.
func renderBodyChildren(doc *html.Node) (string, error) {
	body := findFirst(doc, func(n *html.Node) bool { return isElement(n, "body") })

	var b strings.Builder
	if body == nil {
		if err := html.Render(&b, doc); err != nil {
			return "", err
		}
		return b.String(), nil
	}

	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}
