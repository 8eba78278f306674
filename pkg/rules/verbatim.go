package rules

import (
	"strings"

	"github.com/beevik/etree"
)

// Verbatim content is read and written without entity-escaping. Rule
// values for verbatim addresses may arrive wrapped in the CDATA
// delimiter convention; the wrapper is stripped transparently on the
// way in and content is re-emitted as a CDATA region on the way out.

const (
	cdataOpen  = "<![CDATA["
	cdataClose = "]]>"
)

// unwrapDelimiters strips one CDATA delimiter pair from a configured
// value, if present.
func unwrapDelimiters(s string) string {
	if strings.HasPrefix(s, cdataOpen) && strings.HasSuffix(s, cdataClose) {
		return s[len(cdataOpen) : len(s)-len(cdataClose)]
	}
	return s
}

// verbatimText returns the raw text of the element's CDATA children.
// An element addressed through the CDATA convention that holds no CDATA
// region falls back to its plain text.
func verbatimText(el *etree.Element) string {
	var b strings.Builder
	found := false
	for _, t := range el.Child {
		cd, ok := t.(*etree.CharData)
		if !ok || !cd.IsCData() {
			continue
		}
		b.WriteString(cd.Data)
		found = true
	}
	if !found {
		return el.Text()
	}
	return b.String()
}

// setVerbatim replaces the element's content with a single unescaped
// CDATA region.
func setVerbatim(el *etree.Element, value string) {
	el.SetCData(value)
}
