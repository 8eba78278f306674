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

// salvage rebuilds a best-effort tree from malformed input, one raw
// token at a time. Unterminated elements are auto-closed, stray and
// mismatched end tags are reconciled against the open-element stack,
// and undecodable trailing input is discarded. Every change is recorded
// as a Repair; nothing not present in the input is fabricated.
//
// Raw tokens keep prefixes and xmlns attributes as written, so the
// salvaged tree serializes with the source's own namespace spelling.
func salvage(data []byte) (*etree.Document, []Repair, *ParseFailure) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.CharsetReader = charset.NewReaderLabel

	tree := etree.NewDocument()
	cur := &tree.Element
	var repairs []Repair

	for {
		offset := dec.InputOffset()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			repairs = append(repairs, Repair{
				Line:   lineAt(data, offset),
				Detail: "discarded remaining input: " + err.Error(),
			})
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := cur.CreateElement(rawName(t.Name))
			for _, a := range t.Attr {
				el.CreateAttr(rawName(a.Name), a.Value)
			}
			cur = el

		case xml.EndElement:
			cur = closeElement(tree, cur, rawName(t.Name), lineAt(data, offset), &repairs)

		case xml.CharData:
			text := string(t)
			if cur == &tree.Element {
				if strings.TrimSpace(text) != "" {
					repairs = append(repairs, Repair{
						Line:   lineAt(data, offset),
						Detail: "dropped character data outside the root element",
					})
				}
				continue
			}
			if bytes.HasPrefix(remaining(data, offset), []byte("<![CDATA[")) {
				cur.CreateCData(text)
			} else {
				cur.CreateText(text)
			}

		case xml.Comment:
			cur.CreateComment(string(t))

		case xml.ProcInst:
			cur.CreateProcInst(t.Target, string(t.Inst))

		case xml.Directive:
			cur.CreateDirective(string(t))
		}
	}

	for cur != &tree.Element {
		repairs = append(repairs, Repair{Detail: fmt.Sprintf("auto-closed unterminated element <%s>", fullTag(cur))})
		cur = cur.Parent()
	}

	if tree.Root() == nil {
		return nil, nil, &ParseFailure{Reason: "no salvageable root element"}
	}
	return tree, repairs, nil
}

// closeElement reconciles an end tag against the open-element stack. A
// matching ancestor closes everything above it (recording each
// auto-close); an end tag matching nothing open is dropped.
func closeElement(tree *etree.Document, cur *etree.Element, name string, line int, repairs *[]Repair) *etree.Element {
	match := cur
	for match != &tree.Element && fullTag(match) != name {
		match = match.Parent()
	}
	if match == &tree.Element {
		*repairs = append(*repairs, Repair{Line: line, Detail: fmt.Sprintf("dropped stray end tag </%s>", name)})
		return cur
	}
	for cur != match {
		*repairs = append(*repairs, Repair{Line: line, Detail: fmt.Sprintf("auto-closed <%s> at mismatched end tag </%s>", fullTag(cur), name)})
		cur = cur.Parent()
	}
	return cur.Parent()
}

// rawName renders a raw token name as written, prefix included.
func rawName(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

func remaining(data []byte, offset int64) []byte {
	if offset < 0 || offset >= int64(len(data)) {
		return nil
	}
	return data[offset:]
}

func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return 1 + bytes.Count(data[:offset], []byte{'\n'})
}
