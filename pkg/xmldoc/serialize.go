package xmldoc

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// WriteOptions configures serialization of a mutated document.
type WriteOptions struct {
	// PrettyPrint inserts whitespace-only indentation between element
	// boundaries. Text, attribute, and CDATA content is not altered.
	PrettyPrint bool

	// Encoding overrides the output encoding. Empty means the
	// document's recorded source encoding, falling back to UTF-8.
	Encoding string
}

// Serialize renders the document back to markup text. Attribute and
// child order is emitted exactly as it stands in the tree, and CDATA
// regions are written unescaped.
func Serialize(doc *Document, opts WriteOptions) ([]byte, error) {
	enc := opts.Encoding
	if enc == "" {
		enc = doc.Encoding
	}
	if enc == "" {
		enc = "UTF-8"
	}
	ensureDeclaration(doc.Tree, enc)

	if opts.PrettyPrint {
		doc.Tree.Indent(2)
	}

	out, err := doc.Tree.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}
	if isUTF8(enc) {
		return out, nil
	}
	return transcode(out, enc)
}

// ensureDeclaration makes the XML declaration carry the given encoding,
// creating the declaration if the document has none.
func ensureDeclaration(tree *etree.Document, enc string) {
	inst := fmt.Sprintf(`version="1.0" encoding=%q`, enc)
	for _, t := range tree.Child {
		if pi, ok := t.(*etree.ProcInst); ok && pi.Target == "xml" {
			pi.Inst = inst
			return
		}
	}
	tree.InsertChildAt(0, etree.NewProcInst("xml", inst))
}

func isUTF8(enc string) bool {
	return strings.EqualFold(enc, "UTF-8") || strings.EqualFold(enc, "UTF8")
}

// transcode converts UTF-8 output bytes to the named IANA encoding.
func transcode(out []byte, enc string) ([]byte, error) {
	e, err := ianaindex.IANA.Encoding(enc)
	if err != nil || e == nil {
		return nil, fmt.Errorf("unsupported output encoding %q", enc)
	}
	converted, _, err := transform.Bytes(e.NewEncoder(), out)
	if err != nil {
		return nil, fmt.Errorf("encoding output as %s: %w", enc, err)
	}
	return converted, nil
}
