package audit

import (
	"fmt"
	"io"
)

// WriteText writes the human-readable log report to w, one line per
// record, in evaluation order.
func (l *Log) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Processing file: %s\n", l.Document)
	for _, line := range l.Repairs {
		fmt.Fprintln(w, line)
	}
	for _, r := range l.Records {
		fmt.Fprintln(w, r.String())
	}
	for _, line := range l.Notes {
		fmt.Fprintln(w, line)
	}
}
