package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// ParseOptions configures parsing behavior for one invocation. There is
// no process-wide parser state.
type ParseOptions struct {
	// Recover enables best-effort reconstruction of malformed input.
	Recover bool
}

// Parse parses raw document bytes into a Document.
//
// With Recover disabled, any well-formedness violation fails the whole
// document with a *ParseFailure carrying the violation location and no
// partial tree is produced. With Recover enabled, a violating document
// goes through a salvage pass that drops or auto-closes malformed
// fragments, recording one Repair per change made; input that yields no
// salvageable root element still fails with *ParseFailure.
func Parse(data []byte, opts ParseOptions) (*Document, error) {
	violation := checkWellFormed(data)
	if violation != nil {
		if !opts.Recover {
			return nil, violation
		}
		tree, repairs, failure := salvage(data)
		if failure != nil {
			return nil, failure
		}
		repairs = append([]Repair{{Line: violation.Line, Detail: violation.Reason}}, repairs...)
		return &Document{Tree: tree, Encoding: declaredEncoding(tree), Repairs: repairs}, nil
	}

	tree := etree.NewDocument()
	tree.ReadSettings.PreserveCData = true
	tree.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, &ParseFailure{Reason: err.Error()}
	}
	if tree.Root() == nil {
		return nil, &ParseFailure{Reason: "document has no root element"}
	}
	return &Document{Tree: tree, Encoding: declaredEncoding(tree)}, nil
}

// checkWellFormed runs a strict token scan over the input and returns
// the first well-formedness violation, or nil.
func checkWellFormed(data []byte) *ParseFailure {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	sawElement := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var syn *xml.SyntaxError
			if errors.As(err, &syn) {
				return &ParseFailure{Line: syn.Line, Reason: syn.Msg}
			}
			return &ParseFailure{Reason: err.Error()}
		}
		if _, ok := tok.(xml.StartElement); ok {
			sawElement = true
		}
	}
	if !sawElement {
		return &ParseFailure{Reason: "document has no root element"}
	}
	return checkPrefixesDeclared(data)
}

// checkPrefixesDeclared scans raw tokens and fails on any element or
// attribute prefix with no in-scope xmlns declaration. The strict
// decoder leaves unbound prefixes in place silently, so this runs as a
// second pass over input that already scanned clean.
func checkPrefixesDeclared(data []byte) *ParseFailure {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	// each scope holds the prefixes declared on one element
	var scopes [][]string
	declared := func(prefix string) bool {
		if prefix == "xml" || prefix == "xmlns" {
			return true
		}
		for i := len(scopes) - 1; i >= 0; i-- {
			for _, p := range scopes[i] {
				if p == prefix {
					return true
				}
			}
		}
		return false
	}

	for {
		offset := dec.InputOffset()
		tok, err := dec.RawToken()
		if err != nil {
			return nil
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var decls []string
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					decls = append(decls, a.Name.Local)
				}
			}
			scopes = append(scopes, decls)
			if t.Name.Space != "" && !declared(t.Name.Space) {
				return &ParseFailure{
					Line:   lineAt(data, offset),
					Reason: fmt.Sprintf("namespace prefix %q is not declared", t.Name.Space),
				}
			}
			for _, a := range t.Attr {
				if a.Name.Space != "" && a.Name.Space != "xmlns" && !declared(a.Name.Space) {
					return &ParseFailure{
						Line:   lineAt(data, offset),
						Reason: fmt.Sprintf("namespace prefix %q is not declared", a.Name.Space),
					}
				}
			}
		case xml.EndElement:
			if len(scopes) > 0 {
				scopes = scopes[:len(scopes)-1]
			}
		}
	}
}

// declaredEncoding extracts the encoding pseudo-attribute from the
// document's XML declaration, if present.
func declaredEncoding(tree *etree.Document) string {
	for _, t := range tree.Child {
		pi, ok := t.(*etree.ProcInst)
		if !ok || pi.Target != "xml" {
			continue
		}
		return encodingFromDecl(pi.Inst)
	}
	return ""
}

func encodingFromDecl(inst string) string {
	i := strings.Index(inst, "encoding=")
	if i < 0 {
		return ""
	}
	rest := inst[i+len("encoding="):]
	if rest == "" {
		return ""
	}
	quote := rest[0]
	if quote != '"' && quote != '\'' {
		return ""
	}
	end := strings.IndexByte(rest[1:], quote)
	if end < 0 {
		return ""
	}
	return rest[1 : 1+end]
}
