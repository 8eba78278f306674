package audit

import "fmt"

// Outcome classifies the result of evaluating one rule against one node.
type Outcome string

const (
	Modified Outcome = "MODIFIED"
	Skipped  Outcome = "SKIPPED"
	NotFound Outcome = "NOTFOUND"
	Error    Outcome = "ERROR"
)

// Record represents a single rule-evaluation decision. NewValue always
// carries the configured replacement; a mismatch skip carries the
// unmet expectation in ExpectedValue.
type Record struct {
	RuleIndex     int     `json:"rule_index"`
	Address       string  `json:"address"`
	Outcome       Outcome `json:"outcome"`
	OldValue      string  `json:"old_value,omitempty"`
	NewValue      string  `json:"new_value,omitempty"`
	ExpectedValue string  `json:"expected_value,omitempty"`
	Detail        string  `json:"detail,omitempty"`
}

func (r Record) String() string {
	switch r.Outcome {
	case Modified:
		return fmt.Sprintf("%s(rule %d): %s: %q -> %q", r.Outcome, r.RuleIndex, r.Address, r.OldValue, r.NewValue)
	case Skipped:
		if r.Detail != "" {
			return fmt.Sprintf("%s(rule %d): %s: %s", r.Outcome, r.RuleIndex, r.Address, r.Detail)
		}
		return fmt.Sprintf("%s(rule %d): %s: current %q does not match expected %q", r.Outcome, r.RuleIndex, r.Address, r.OldValue, r.ExpectedValue)
	default:
		if r.Detail != "" {
			return fmt.Sprintf("%s(rule %d): %s: %s", r.Outcome, r.RuleIndex, r.Address, r.Detail)
		}
		return fmt.Sprintf("%s(rule %d): %s", r.Outcome, r.RuleIndex, r.Address)
	}
}

// Log collects all records and notes from processing one document.
// Repairs holds tolerant-parse diagnostics emitted before rule evaluation;
// Notes holds validation and disposition lines emitted after it.
type Log struct {
	Document string   `json:"document"`
	Repairs  []string `json:"repairs,omitempty"`
	Records  []Record `json:"records"`
	Notes    []string `json:"notes,omitempty"`
}

// NewLog creates an empty log for the named document.
func NewLog(document string) *Log {
	return &Log{Document: document}
}

// Add appends a record to the log.
func (l *Log) Add(rec Record) {
	l.Records = append(l.Records, rec)
}

// AddRepair appends a tolerant-parse repair diagnostic.
func (l *Log) AddRepair(format string, args ...any) {
	l.Repairs = append(l.Repairs, fmt.Sprintf(format, args...))
}

// AddNote appends a post-evaluation note (validation result, disposition).
func (l *Log) AddNote(format string, args ...any) {
	l.Notes = append(l.Notes, fmt.Sprintf(format, args...))
}

// ModifiedCount returns the number of MODIFIED records.
func (l *Log) ModifiedCount() int {
	return l.count(Modified)
}

// SkippedCount returns the number of SKIPPED records.
func (l *Log) SkippedCount() int {
	return l.count(Skipped)
}

// NotFoundCount returns the number of NOTFOUND records.
func (l *Log) NotFoundCount() int {
	return l.count(NotFound)
}

// ErrorCount returns the number of ERROR records.
func (l *Log) ErrorCount() int {
	return l.count(Error)
}

func (l *Log) count(o Outcome) int {
	n := 0
	for _, r := range l.Records {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// DidModify returns true if at least one record is MODIFIED.
func (l *Log) DidModify() bool {
	return l.ModifiedCount() > 0
}
