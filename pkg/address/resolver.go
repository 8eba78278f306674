// Package address compiles and evaluates structural-address expressions
// (XPath) against an etree document, with namespace aliases resolved
// through the run configuration's namespace map.
package address

import (
	"fmt"
	"strings"

	"github.com/antchfx/xpath"
	"github.com/beevik/etree"
)

// CDATASuffix is the reserved address suffix that marks the matched
// element's content as a verbatim (CDATA) region.
const CDATASuffix = "[CDATA]"

// SyntaxError reports a structural-address expression that does not
// compile. It is a configuration error, never silently ignored.
type SyntaxError struct {
	Expr   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid address expression %q: %s", e.Expr, e.Reason)
}

// UnknownAliasError reports a namespace alias used in an expression that
// is absent from the configured namespace map.
type UnknownAliasError struct {
	Alias string
	Expr  string
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("unknown namespace alias %q in address %q", e.Alias, e.Expr)
}

// TargetKind discriminates the closed set of addressable node kinds.
type TargetKind int

const (
	TargetElement TargetKind = iota
	TargetAttribute
)

// Target is one matched node. Element is always set; for
// TargetAttribute it is the owning element and Attribute points at the
// matched attribute. Verbatim marks content addressed through the
// CDATA convention.
type Target struct {
	Kind      TargetKind
	Element   *etree.Element
	Attribute *etree.Attr
	Verbatim  bool
}

// Compiled is a namespace-resolved, compiled address expression.
type Compiled struct {
	// Source is the expression exactly as configured, including any
	// CDATA suffix.
	Source string

	// Display is the alias-resolved form used in audit records, with
	// each alias:local step rewritten as {uri}local.
	Display string

	// Verbatim is true when Source carried the CDATA suffix.
	Verbatim bool

	expr *xpath.Expr
}

// ResolveAliases rewrites every alias:local step of expr to {uri}local
// display form. It is a pure function and fails if any alias used in
// the expression is missing from ns.
func ResolveAliases(expr string, ns map[string]string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(expr) {
		c := expr[i]

		// skip string literals untouched
		if c == '\'' || c == '"' {
			j := strings.IndexByte(expr[i+1:], c)
			if j < 0 {
				b.WriteString(expr[i:])
				break
			}
			b.WriteString(expr[i : i+j+2])
			i += j + 2
			continue
		}

		if isNameStart(c) {
			j := i + 1
			for j < len(expr) && isNameChar(expr[j]) {
				j++
			}
			// alias:local, but not an axis specifier (alias::)
			if j < len(expr) && expr[j] == ':' && (j+1 >= len(expr) || expr[j+1] != ':') {
				alias := expr[i:j]
				uri, ok := ns[alias]
				if !ok {
					return "", &UnknownAliasError{Alias: alias, Expr: expr}
				}
				b.WriteString("{" + uri + "}")
				i = j + 1
				continue
			}
			b.WriteString(expr[i:j])
			i = j
			continue
		}

		b.WriteByte(c)
		i++
	}
	return b.String(), nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9') || c == '-' || c == '.'
}

// Compile strips the CDATA suffix convention, resolves namespace
// aliases, and compiles the remaining XPath expression. Namespace
// matching during evaluation is by URI, so documents binding a
// different prefix to the same URI still match.
func Compile(expr string, ns map[string]string) (*Compiled, error) {
	c := &Compiled{Source: expr}

	path := expr
	if strings.HasSuffix(path, CDATASuffix) {
		path = strings.TrimSuffix(path, CDATASuffix)
		c.Verbatim = true
	}
	if strings.TrimSpace(path) == "" {
		return nil, &SyntaxError{Expr: expr, Reason: "empty expression"}
	}

	display, err := ResolveAliases(path, ns)
	if err != nil {
		return nil, err
	}
	c.Display = display

	compiled, err := xpath.CompileWithNS(path, ns)
	if err != nil {
		return nil, &SyntaxError{Expr: expr, Reason: err.Error()}
	}
	c.expr = compiled
	return c, nil
}

// Evaluate returns all matches of the compiled expression against doc,
// in document order. Text-node matches are folded into their parent
// element, and duplicate targets are dropped while preserving order.
func (c *Compiled) Evaluate(doc *etree.Document) []Target {
	var targets []Target
	seenEl := make(map[*etree.Element]bool)
	seenAttr := make(map[*etree.Attr]bool)

	iter := c.expr.Select(newNavigator(doc))
	for iter.MoveNext() {
		nav, ok := iter.Current().(*navigator)
		if !ok {
			continue
		}
		switch nav.NodeType() {
		case xpath.AttributeNode:
			el, _ := nav.element()
			attr := &el.Attr[nav.attr]
			if seenAttr[attr] {
				continue
			}
			seenAttr[attr] = true
			targets = append(targets, Target{
				Kind:      TargetAttribute,
				Element:   el,
				Attribute: attr,
				Verbatim:  c.Verbatim,
			})
		case xpath.ElementNode:
			el, _ := nav.element()
			if seenEl[el] {
				continue
			}
			seenEl[el] = true
			targets = append(targets, Target{Kind: TargetElement, Element: el, Verbatim: c.Verbatim})
		case xpath.TextNode:
			// a text() selection modifies its parent element's text
			parent := nav.cur.Parent()
			if parent == nil || seenEl[parent] {
				continue
			}
			seenEl[parent] = true
			targets = append(targets, Target{Kind: TargetElement, Element: parent, Verbatim: c.Verbatim})
		}
	}
	return targets
}
