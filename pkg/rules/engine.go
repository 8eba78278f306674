// Package rules applies an ordered list of conditional replacement
// rules to a parsed document, producing one audit record per decision.
// Rule evaluation is a pure in-memory operation over an already-parsed
// tree; no I/O happens here.
package rules

import (
	"github.com/xmlforge/xmlmod/pkg/address"
	"github.com/xmlforge/xmlmod/pkg/audit"
	"github.com/xmlforge/xmlmod/pkg/config"
	"github.com/xmlforge/xmlmod/pkg/xmldoc"
)

// Apply evaluates every configured rule against doc in order, mutating
// matched values in place and recording one audit record per
// (rule, matched node) pair. A rule matching zero nodes produces
// exactly one NOTFOUND record. A rule whose address fails to resolve
// produces one ERROR record; the remaining rules still run. Apply
// reports whether any value was modified.
func Apply(doc *xmldoc.Document, cfg *config.Config, log *audit.Log) bool {
	modified := false
	for i, rule := range cfg.Mappings {
		if applyRule(doc, cfg, i, rule, log) {
			modified = true
		}
	}
	return modified
}

func applyRule(doc *xmldoc.Document, cfg *config.Config, index int, rule config.Rule, log *audit.Log) bool {
	compiled, err := address.Compile(rule.XPath, cfg.Namespaces)
	if err != nil {
		log.Add(audit.Record{
			RuleIndex: index,
			Address:   rule.XPath,
			Outcome:   audit.Error,
			Detail:    err.Error(),
		})
		return false
	}

	targets := compiled.Evaluate(doc.Tree)
	if len(targets) == 0 {
		log.Add(audit.Record{
			RuleIndex: index,
			Address:   compiled.Display,
			Outcome:   audit.NotFound,
			Detail:    "no matching node or attribute",
		})
		return false
	}

	expected, hasExpected := rule.Expected()
	replacement := rule.Replacement()

	modified := false
	for _, target := range targets {
		verbatim := target.Verbatim && cfg.HandleCDATA
		want, next := expected, replacement
		if verbatim {
			want = unwrapDelimiters(want)
			next = unwrapDelimiters(next)
		}

		current := readValue(target, verbatim)
		switch {
		case current == next:
			log.Add(audit.Record{
				RuleIndex: index,
				Address:   compiled.Display,
				Outcome:   audit.Skipped,
				OldValue:  current,
				NewValue:  next,
				Detail:    "current value already matches the replacement",
			})
		case hasExpected && current != want:
			log.Add(audit.Record{
				RuleIndex:     index,
				Address:       compiled.Display,
				Outcome:       audit.Skipped,
				OldValue:      current,
				NewValue:      next,
				ExpectedValue: want,
			})
		default:
			writeValue(target, next, verbatim)
			modified = true
			log.Add(audit.Record{
				RuleIndex: index,
				Address:   compiled.Display,
				Outcome:   audit.Modified,
				OldValue:  current,
				NewValue:  next,
			})
		}
	}
	return modified
}

// readValue returns the current textual value of a matched target:
// attribute value, element text, or raw CDATA content for verbatim
// targets.
func readValue(target address.Target, verbatim bool) string {
	if target.Kind == address.TargetAttribute {
		return target.Attribute.Value
	}
	if verbatim {
		return verbatimText(target.Element)
	}
	return target.Element.Text()
}

// writeValue replaces only the targeted value. Node identity, names,
// sibling order, and unrelated content stay untouched.
func writeValue(target address.Target, value string, verbatim bool) {
	if target.Kind == address.TargetAttribute {
		target.Attribute.Value = value
		return
	}
	if verbatim {
		setVerbatim(target.Element, value)
		return
	}
	target.Element.SetText(value)
}
