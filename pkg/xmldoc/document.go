// Package xmldoc owns one document's tree: parsing raw bytes into an
// etree document (strictly, or with best-effort recovery), and
// serializing the mutated tree back to markup text.
package xmldoc

import (
	"fmt"

	"github.com/beevik/etree"
)

// Document is the parsed representation of one input file. It is owned
// by the processing of a single document and never shared.
type Document struct {
	Tree *etree.Document

	// Encoding is the encoding declared by the source document, empty
	// when the input carried no XML declaration.
	Encoding string

	// Repairs lists every repair made during tolerant parsing. It is
	// empty for a strictly well-formed input.
	Repairs []Repair
}

// Root returns the document's root element.
func (d *Document) Root() *etree.Element {
	return d.Tree.Root()
}

// Repair describes one change the tolerant parser made to salvage a
// tree from malformed input.
type Repair struct {
	Line   int
	Detail string
}

func (r Repair) String() string {
	if r.Line > 0 {
		return fmt.Sprintf("recovered (line %d): %s", r.Line, r.Detail)
	}
	return "recovered: " + r.Detail
}

// ParseFailure reports a document that could not be parsed as markup.
// It is fatal to that document only.
type ParseFailure struct {
	Line   int
	Reason string
}

func (e *ParseFailure) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse failure at line %d: %s", e.Line, e.Reason)
	}
	return "parse failure: " + e.Reason
}

// fullTag renders an element name with its prefix, as written in the
// source.
func fullTag(el *etree.Element) string {
	if el.Space != "" {
		return el.Space + ":" + el.Tag
	}
	return el.Tag
}
