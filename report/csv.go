package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// A CSVReporter appends one row per result, writing the header before
// the first row.
type CSVReporter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVReporter creates a reporter writing CSV to w.
func NewCSVReporter(w io.Writer) *CSVReporter {
	return &CSVReporter{w: csv.NewWriter(w)}
}

func (c *CSVReporter) Report(r *Result) error {
	if !c.wroteHeader {
		header := []string{"run_id", "operation", "algorithm", "nodes", "count", "seconds"}
		if err := c.w.Write(header); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	return c.w.Write([]string{
		r.RunID,
		r.Operation,
		r.Algorithm,
		strconv.Itoa(r.Nodes),
		strconv.Itoa(r.Count),
		strconv.FormatFloat(r.Seconds, 'g', -1, 64),
	})
}

// Flush forces buffered rows out to the underlying writer.
func (c *CSVReporter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
