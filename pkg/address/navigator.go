package address

import (
	"strings"

	"github.com/antchfx/xpath"
	"github.com/beevik/etree"
)

// navigator implements xpath.NodeNavigator over an etree document, so
// compiled XPath expressions can be evaluated directly against the tree
// the rest of the engine mutates. It also implements the optional
// NamespaceURL method the evaluator uses for expressions compiled with a
// namespace map, which makes element and attribute matching follow
// namespace URIs rather than document prefixes.
//
// The cursor is a token plus an attribute index: attr < 0 means the
// cursor sits on the token itself, attr >= 0 means it sits on that
// attribute of the current element.
type navigator struct {
	doc  *etree.Document
	cur  etree.Token
	attr int
}

func newNavigator(doc *etree.Document) *navigator {
	return &navigator{doc: doc, cur: &doc.Element, attr: -1}
}

// usable reports whether a token participates in XPath navigation.
// Processing instructions and directives have no XPath node type here.
func usable(t etree.Token) bool {
	switch t.(type) {
	case *etree.Element, *etree.CharData, *etree.Comment:
		return true
	}
	return false
}

func (n *navigator) element() (*etree.Element, bool) {
	el, ok := n.cur.(*etree.Element)
	return el, ok
}

func (n *navigator) onAttr() bool {
	return n.attr >= 0
}

func (n *navigator) NodeType() xpath.NodeType {
	if n.onAttr() {
		return xpath.AttributeNode
	}
	switch t := n.cur.(type) {
	case *etree.Element:
		if t == &n.doc.Element {
			return xpath.RootNode
		}
		return xpath.ElementNode
	case *etree.CharData:
		return xpath.TextNode
	case *etree.Comment:
		return xpath.CommentNode
	}
	return xpath.RootNode
}

func (n *navigator) LocalName() string {
	if n.onAttr() {
		el, _ := n.element()
		return el.Attr[n.attr].Key
	}
	if el, ok := n.element(); ok {
		return el.Tag
	}
	return ""
}

func (n *navigator) Prefix() string {
	if n.onAttr() {
		el, _ := n.element()
		return el.Attr[n.attr].Space
	}
	if el, ok := n.element(); ok {
		return el.Space
	}
	return ""
}

// NamespaceURL resolves the current element or attribute prefix to its
// declared namespace URI. Unprefixed attributes have no namespace.
func (n *navigator) NamespaceURL() string {
	if n.onAttr() {
		el, _ := n.element()
		a := el.Attr[n.attr]
		if a.Space == "" {
			return ""
		}
		return a.NamespaceURI()
	}
	if el, ok := n.element(); ok && el != &n.doc.Element {
		return el.NamespaceURI()
	}
	return ""
}

func (n *navigator) Value() string {
	if n.onAttr() {
		el, _ := n.element()
		return el.Attr[n.attr].Value
	}
	switch t := n.cur.(type) {
	case *etree.Element:
		return innerText(t)
	case *etree.CharData:
		return t.Data
	case *etree.Comment:
		return t.Data
	}
	return ""
}

// innerText returns the concatenated character data of el and all of its
// descendants, the XPath string-value of an element node.
func innerText(el *etree.Element) string {
	var b strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, t := range e.Child {
			switch c := t.(type) {
			case *etree.CharData:
				b.WriteString(c.Data)
			case *etree.Element:
				walk(c)
			}
		}
	}
	walk(el)
	return b.String()
}

func (n *navigator) Copy() xpath.NodeNavigator {
	c := *n
	return &c
}

func (n *navigator) MoveToRoot() {
	n.cur = &n.doc.Element
	n.attr = -1
}

func (n *navigator) MoveToParent() bool {
	if n.onAttr() {
		n.attr = -1
		return true
	}
	p := n.cur.Parent()
	if p == nil {
		return false
	}
	n.cur = p
	return true
}

func (n *navigator) MoveToNextAttribute() bool {
	if el, ok := n.element(); ok {
		for i := n.attr + 1; i < len(el.Attr); i++ {
			a := el.Attr[i]
			// namespace declarations are not attribute nodes
			if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
				continue
			}
			n.attr = i
			return true
		}
	}
	return false
}

func (n *navigator) MoveToChild() bool {
	if n.onAttr() {
		return false
	}
	el, ok := n.element()
	if !ok {
		return false
	}
	for _, t := range el.Child {
		if usable(t) {
			n.cur = t
			return true
		}
	}
	return false
}

func (n *navigator) MoveToFirst() bool {
	if n.onAttr() {
		return false
	}
	p := n.cur.Parent()
	if p == nil {
		return true
	}
	for _, t := range p.Child {
		if usable(t) {
			n.cur = t
			return true
		}
	}
	return false
}

func (n *navigator) MoveToNext() bool {
	if n.onAttr() {
		return false
	}
	p := n.cur.Parent()
	if p == nil {
		return false
	}
	for i := n.cur.Index() + 1; i < len(p.Child); i++ {
		if usable(p.Child[i]) {
			n.cur = p.Child[i]
			return true
		}
	}
	return false
}

func (n *navigator) MoveToPrevious() bool {
	if n.onAttr() {
		return false
	}
	p := n.cur.Parent()
	if p == nil {
		return false
	}
	for i := n.cur.Index() - 1; i >= 0; i-- {
		if usable(p.Child[i]) {
			n.cur = p.Child[i]
			return true
		}
	}
	return false
}

func (n *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.doc != n.doc {
		return false
	}
	n.cur = o.cur
	n.attr = o.attr
	return true
}
