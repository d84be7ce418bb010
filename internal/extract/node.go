package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Taggable is the view of a markup element that region rules inspect.
type Taggable interface {
	Tag() string
	// Classes returns the class tokens and whether a class attribute exists.
	Classes() ([]string, bool)
	// ID returns the id attribute and whether it exists.
	ID() (string, bool)
	// DirectString returns the element's text when it has exactly one child
	// that is either a text node or an element with a direct string itself.
	DirectString() (string, bool)
}

type element struct {
	n *html.Node
}

func (e element) Tag() string {
	return e.n.Data
}

func (e element) Classes() ([]string, bool) {
	raw, ok := attr(e.n, "class")
	if !ok {
		return nil, false
	}
	return strings.Fields(strings.ToLower(raw)), true
}

func (e element) ID() (string, bool) {
	raw, ok := attr(e.n, "id")
	return strings.ToLower(raw), ok
}

func (e element) DirectString() (string, bool) {
	return directString(e.n)
}

func directString(n *html.Node) (string, bool) {
	child := n.FirstChild
	if child == nil || child.NextSibling != nil {
		return "", false
	}
	switch child.Type {
	case html.TextNode:
		return child.Data, true
	case html.ElementNode:
		return directString(child)
	default:
		return "", false
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

var fragmentTags = map[atom.Atom]struct{}{
	atom.P:  {},
	atom.H1: {},
	atom.H2: {},
	atom.H3: {},
	atom.H4: {},
	atom.H5: {},
	atom.H6: {},
	atom.Li: {},
}

func isFragmentTag(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	_, ok := fragmentTags[n.DataAtom]
	return ok
}
