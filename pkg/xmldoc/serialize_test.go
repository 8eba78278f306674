package xmldoc

import (
	"bytes"
	"strings"
	"testing"
)

func TestSerializeAddsDeclaration(t *testing.T) {
	doc, err := Parse([]byte(`<root><a>x</a></root>`), ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Serialize(doc, WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("output = %s", out)
	}
}

func TestSerializeKeepsDeclaredEncoding(t *testing.T) {
	src := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?>`+"\n<root>caf"), 0xE9, '<', '/', 'r', 'o', 'o', 't', '>')
	doc, err := Parse(src, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Root().Text(); got != "café" {
		t.Fatalf("decoded text = %q", got)
	}
	out, err := Serialize(doc, WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `encoding="ISO-8859-1"`) {
		t.Errorf("declaration lost: %s", out)
	}
	// "é" is a single 0xE9 byte in Latin-1.
	if !bytes.Contains(out, []byte{'c', 'a', 'f', 0xE9}) {
		t.Errorf("output not transcoded: %q", out)
	}
}

func TestSerializeEncodingOverride(t *testing.T) {
	doc, err := Parse([]byte(`<?xml version="1.0" encoding="UTF-8"?><root/>`), ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Serialize(doc, WriteOptions{Encoding: "ISO-8859-1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `encoding="ISO-8859-1"`) {
		t.Errorf("declaration not rewritten: %s", out)
	}
}

func TestSerializeUnsupportedEncoding(t *testing.T) {
	doc, err := Parse([]byte(`<root/>`), ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Serialize(doc, WriteOptions{Encoding: "NOT-AN-ENCODING"}); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestSerializePrettyPrint(t *testing.T) {
	doc, err := Parse([]byte(`<root><a attr="v">value</a><b/></root>`), ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Serialize(doc, WriteOptions{PrettyPrint: true})
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, "\n  <a attr=\"v\">value</a>") {
		t.Errorf("not indented: %s", s)
	}
	// Indentation must not leak into element text.
	reparsed, err := Parse(out, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got := reparsed.Root().SelectElement("a").Text(); got != "value" {
		t.Errorf("text after pretty print = %q", got)
	}
}

func TestSerializeAttributeOrderStable(t *testing.T) {
	src := `<root z="1" a="2" m="3"/>`
	doc, err := Parse([]byte(src), ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Serialize(doc, WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `<root z="1" a="2" m="3"/>`) {
		t.Errorf("attribute order changed: %s", out)
	}
}
