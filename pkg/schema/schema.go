// Package schema checks a document tree against an XML Schema (XSD)
// subset: global elements, named and inline complex types with
// sequence/choice/all groups, simple-type restrictions, attribute
// declarations, occurrence bounds, and the common built-in types.
package schema

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Schema is a parsed XML Schema Definition.
type Schema struct {
	XMLName            xml.Name `xml:"http://www.w3.org/2001/XMLSchema schema"`
	TargetNamespace    string   `xml:"targetNamespace,attr"`
	ElementFormDefault string   `xml:"elementFormDefault,attr"`

	Elements     []Element     `xml:"element"`
	ComplexTypes []ComplexType `xml:"complexType"`
	SimpleTypes  []SimpleType  `xml:"simpleType"`

	elements map[string]*Element
	complex  map[string]*ComplexType
	simple   map[string]*SimpleType
}

// Element is an element declaration.
type Element struct {
	Name      string `xml:"name,attr"`
	Type      string `xml:"type,attr"`
	MinOccurs string `xml:"minOccurs,attr"`
	MaxOccurs string `xml:"maxOccurs,attr"`

	// Inline type definitions, the alternative to a Type reference.
	ComplexType *ComplexType `xml:"complexType"`
	SimpleType  *SimpleType  `xml:"simpleType"`
}

// ComplexType defines an element holding child elements or attributes.
type ComplexType struct {
	Name       string      `xml:"name,attr"`
	Sequence   *Sequence   `xml:"sequence"`
	Choice     *Choice     `xml:"choice"`
	All        *All        `xml:"all"`
	Attributes []Attribute `xml:"attribute"`
}

// Sequence is an ordered group of child elements.
type Sequence struct {
	Elements []Element `xml:"element"`
}

// Choice is a group where each particle is one of the alternatives.
type Choice struct {
	Elements  []Element `xml:"element"`
	MinOccurs string    `xml:"minOccurs,attr"`
	MaxOccurs string    `xml:"maxOccurs,attr"`
}

// All is an unordered group where each element appears at most once.
type All struct {
	Elements []Element `xml:"element"`
}

// SimpleType constrains text content.
type SimpleType struct {
	Name        string       `xml:"name,attr"`
	Restriction *Restriction `xml:"restriction"`
}

// Restriction holds the validation facets of a simple type.
type Restriction struct {
	Base string `xml:"base,attr"`

	MinLength    *Facet   `xml:"minLength"`
	MaxLength    *Facet   `xml:"maxLength"`
	Pattern      *Facet   `xml:"pattern"`
	MinInclusive *Facet   `xml:"minInclusive"`
	MaxInclusive *Facet   `xml:"maxInclusive"`
	Enumeration  []*Facet `xml:"enumeration"`
}

// Facet is a single constraint value.
type Facet struct {
	Value string `xml:"value,attr"`
}

// Attribute is an attribute declaration.
type Attribute struct {
	Name       string      `xml:"name,attr"`
	Type       string      `xml:"type,attr"`
	Use        string      `xml:"use,attr"`
	Fixed      string      `xml:"fixed,attr"`
	SimpleType *SimpleType `xml:"simpleType"`
}

// Load reads and parses a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return Parse(data)
}

// Parse parses schema bytes.
func Parse(data []byte) (*Schema, error) {
	s := &Schema{}
	if err := xml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	s.index()
	return s, nil
}

func (s *Schema) index() {
	s.elements = make(map[string]*Element, len(s.Elements))
	for i := range s.Elements {
		s.elements[s.Elements[i].Name] = &s.Elements[i]
	}
	s.complex = make(map[string]*ComplexType, len(s.ComplexTypes))
	for i := range s.ComplexTypes {
		s.complex[s.ComplexTypes[i].Name] = &s.ComplexTypes[i]
	}
	s.simple = make(map[string]*SimpleType, len(s.SimpleTypes))
	for i := range s.SimpleTypes {
		s.simple[s.SimpleTypes[i].Name] = &s.SimpleTypes[i]
	}
}

// localName strips a namespace prefix from a QName reference such as
// "xs:string" or "tns:HeaderType".
func localName(ref string) string {
	if i := strings.LastIndexByte(ref, ':'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
