package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/xmlforge/xmlmod/pkg/xmldoc"
)

// Result is the outcome of validating one document. Diagnostics are
// ordered by document position.
type Result struct {
	Valid       bool
	Diagnostics []string
}

// Validate checks the document tree against the schema. It never
// mutates the tree.
func (s *Schema) Validate(doc *xmldoc.Document) Result {
	v := &validator{schema: s}

	root := doc.Root()
	if root == nil {
		v.addf("", "document has no root element")
		return v.result()
	}
	decl, ok := s.elements[root.Tag]
	if !ok {
		v.addf(root.Tag, "no declaration for root element")
		return v.result()
	}
	if s.TargetNamespace != "" && root.NamespaceURI() != s.TargetNamespace {
		v.addf(root.Tag, "root element namespace %q does not match target namespace %q", root.NamespaceURI(), s.TargetNamespace)
	}
	v.element(root, decl, root.Tag)
	return v.result()
}

type validator struct {
	schema *Schema
	diags  []string
}

func (v *validator) addf(path, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = path + ": " + msg
	}
	v.diags = append(v.diags, msg)
}

func (v *validator) result() Result {
	return Result{Valid: len(v.diags) == 0, Diagnostics: v.diags}
}

// element validates one element instance against its declaration.
func (v *validator) element(el *etree.Element, decl *Element, path string) {
	switch {
	case decl.ComplexType != nil:
		v.complexContent(el, decl.ComplexType, path)
	case decl.SimpleType != nil:
		v.simpleContent(el.Text(), decl.SimpleType, path)
	case decl.Type != "":
		name := localName(decl.Type)
		if ct, ok := v.schema.complex[name]; ok {
			v.complexContent(el, ct, path)
			return
		}
		if st, ok := v.schema.simple[name]; ok {
			v.simpleContent(el.Text(), st, path)
			return
		}
		if msg := checkBuiltin(el.Text(), name); msg != "" {
			v.addf(path, "%s", msg)
		}
	default:
		// no type: any content allowed
	}
}

func (v *validator) complexContent(el *etree.Element, ct *ComplexType, path string) {
	for _, attr := range ct.Attributes {
		v.attribute(el, attr, path)
	}

	children := el.ChildElements()
	switch {
	case ct.Sequence != nil:
		v.sequence(children, ct.Sequence.Elements, path)
	case ct.All != nil:
		v.all(children, ct.All.Elements, path)
	case ct.Choice != nil:
		v.choice(children, ct.Choice, path)
	default:
		for _, child := range children {
			v.addf(path, "unexpected element <%s>", child.Tag)
		}
	}
}

// sequence checks an ordered group: each declared particle consumes its
// occurrences in order, leftovers are unexpected.
func (v *validator) sequence(children []*etree.Element, decls []Element, path string) {
	pos := 0
	for i := range decls {
		decl := &decls[i]
		min, max := occurs(decl.MinOccurs, decl.MaxOccurs)
		count := 0
		for pos < len(children) && children[pos].Tag == decl.Name && (max < 0 || count < max) {
			v.element(children[pos], decl, path+"/"+decl.Name)
			pos++
			count++
		}
		if count < min {
			v.addf(path, "expected %d occurrence(s) of <%s>, found %d", min, decl.Name, count)
		}
	}
	for ; pos < len(children); pos++ {
		v.addf(path, "unexpected element <%s>", children[pos].Tag)
	}
}

// all checks an unordered group where each declared element appears at
// most once.
func (v *validator) all(children []*etree.Element, decls []Element, path string) {
	counts := make(map[string]int)
	for _, child := range children {
		decl := findDecl(decls, child.Tag)
		if decl == nil {
			v.addf(path, "unexpected element <%s>", child.Tag)
			continue
		}
		counts[child.Tag]++
		if counts[child.Tag] > 1 {
			v.addf(path, "element <%s> appears more than once", child.Tag)
			continue
		}
		v.element(child, decl, path+"/"+child.Tag)
	}
	for i := range decls {
		min, _ := occurs(decls[i].MinOccurs, decls[i].MaxOccurs)
		if min > 0 && counts[decls[i].Name] == 0 {
			v.addf(path, "missing required element <%s>", decls[i].Name)
		}
	}
}

// choice checks a group where every child matches one alternative and
// the total occurrence count respects the group bounds.
func (v *validator) choice(children []*etree.Element, ch *Choice, path string) {
	min, max := occurs(ch.MinOccurs, ch.MaxOccurs)
	total := 0
	for _, child := range children {
		decl := findDecl(ch.Elements, child.Tag)
		if decl == nil {
			v.addf(path, "element <%s> matches no choice alternative", child.Tag)
			continue
		}
		total++
		v.element(child, decl, path+"/"+child.Tag)
	}
	if total < min {
		v.addf(path, "choice group requires at least %d element(s), found %d", min, total)
	}
	if max >= 0 && total > max {
		v.addf(path, "choice group allows at most %d element(s), found %d", max, total)
	}
}

func (v *validator) attribute(el *etree.Element, decl Attribute, path string) {
	attr := el.SelectAttr(decl.Name)
	apath := path + "/@" + decl.Name
	if attr == nil {
		if decl.Use == "required" {
			v.addf(path, "missing required attribute %q", decl.Name)
		}
		return
	}
	if decl.Use == "prohibited" {
		v.addf(apath, "attribute is prohibited")
		return
	}
	if decl.Fixed != "" && attr.Value != decl.Fixed {
		v.addf(apath, "value %q does not match fixed value %q", attr.Value, decl.Fixed)
		return
	}
	if decl.SimpleType != nil {
		v.simpleContent(attr.Value, decl.SimpleType, apath)
		return
	}
	if decl.Type != "" {
		name := localName(decl.Type)
		if st, ok := v.schema.simple[name]; ok {
			v.simpleContent(attr.Value, st, apath)
		} else if msg := checkBuiltin(attr.Value, name); msg != "" {
			v.addf(apath, "%s", msg)
		}
	}
}

func (v *validator) simpleContent(value string, st *SimpleType, path string) {
	r := st.Restriction
	if r == nil {
		return
	}
	if msg := checkBuiltin(value, localName(r.Base)); msg != "" {
		v.addf(path, "%s", msg)
	}
	if len(r.Enumeration) > 0 && !inEnumeration(value, r.Enumeration) {
		v.addf(path, "value %q is not an allowed enumeration value", value)
	}
	if r.Pattern != nil {
		re, err := regexp.Compile("^(?:" + r.Pattern.Value + ")$")
		if err != nil {
			v.addf(path, "invalid pattern facet %q", r.Pattern.Value)
		} else if !re.MatchString(value) {
			v.addf(path, "value %q does not match pattern %q", value, r.Pattern.Value)
		}
	}
	n := len([]rune(value))
	if r.MinLength != nil {
		if min, err := strconv.Atoi(r.MinLength.Value); err == nil && n < min {
			v.addf(path, "value shorter than minLength %d", min)
		}
	}
	if r.MaxLength != nil {
		if max, err := strconv.Atoi(r.MaxLength.Value); err == nil && n > max {
			v.addf(path, "value longer than maxLength %d", max)
		}
	}
	if r.MinInclusive != nil || r.MaxInclusive != nil {
		num, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			v.addf(path, "value %q is not numeric", value)
			return
		}
		if r.MinInclusive != nil {
			if bound, err := strconv.ParseFloat(r.MinInclusive.Value, 64); err == nil && num < bound {
				v.addf(path, "value %v below minInclusive %v", num, bound)
			}
		}
		if r.MaxInclusive != nil {
			if bound, err := strconv.ParseFloat(r.MaxInclusive.Value, 64); err == nil && num > bound {
				v.addf(path, "value %v above maxInclusive %v", num, bound)
			}
		}
	}
}

func findDecl(decls []Element, name string) *Element {
	for i := range decls {
		if decls[i].Name == name {
			return &decls[i]
		}
	}
	return nil
}

func inEnumeration(value string, facets []*Facet) bool {
	for _, f := range facets {
		if f != nil && f.Value == value {
			return true
		}
	}
	return false
}

// occurs parses minOccurs/maxOccurs with XSD defaults; max "unbounded"
// is reported as -1.
func occurs(minStr, maxStr string) (int, int) {
	min, max := 1, 1
	if minStr != "" {
		if n, err := strconv.Atoi(minStr); err == nil {
			min = n
		}
	}
	switch {
	case maxStr == "unbounded":
		max = -1
	case maxStr != "":
		if n, err := strconv.Atoi(maxStr); err == nil {
			max = n
		}
	}
	return min, max
}

// checkBuiltin validates a value against a built-in type name and
// returns a diagnostic message, or "" when valid. Unknown names are
// treated as string.
func checkBuiltin(value, typeName string) string {
	value = strings.TrimSpace(value)
	switch typeName {
	case "integer", "int", "long", "short", "byte",
		"nonNegativeInteger", "positiveInteger", "negativeInteger", "nonPositiveInteger",
		"unsignedInt", "unsignedLong", "unsignedShort", "unsignedByte":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Sprintf("value %q is not a valid %s", value, typeName)
		}
	case "decimal", "double", "float":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Sprintf("value %q is not a valid %s", value, typeName)
		}
	case "boolean":
		switch value {
		case "true", "false", "1", "0":
		default:
			return fmt.Sprintf("value %q is not a valid boolean", value)
		}
	case "date":
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Sprintf("value %q is not a valid date", value)
		}
	case "dateTime":
		if _, err := time.Parse("2006-01-02T15:04:05", value); err != nil {
			if _, err := time.Parse(time.RFC3339, value); err != nil {
				return fmt.Sprintf("value %q is not a valid dateTime", value)
			}
		}
	}
	return ""
}
