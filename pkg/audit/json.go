package audit

import (
	"encoding/json"
	"io"
)

// JSONOutput is the JSON structure written for a single document log.
type JSONOutput struct {
	Document      string   `json:"document"`
	Repairs       []string `json:"repairs,omitempty"`
	Records       []Record `json:"records"`
	Notes         []string `json:"notes,omitempty"`
	ModifiedCount int      `json:"modified_count"`
	SkippedCount  int      `json:"skipped_count"`
	NotFoundCount int      `json:"not_found_count"`
	ErrorCount    int      `json:"error_count"`
}

// WriteJSON writes the log in JSON format to w.
func (l *Log) WriteJSON(w io.Writer) error {
	out := JSONOutput{
		Document:      l.Document,
		Repairs:       l.Repairs,
		Records:       l.Records,
		Notes:         l.Notes,
		ModifiedCount: l.ModifiedCount(),
		SkippedCount:  l.SkippedCount(),
		NotFoundCount: l.NotFoundCount(),
		ErrorCount:    l.ErrorCount(),
	}
	if out.Records == nil {
		out.Records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
