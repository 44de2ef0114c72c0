package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mikey/llm-email-classifier/internal/core"
)

// Columns is the CSV header row
var Columns = []string{"filename", "classification", "confidence", "subject", "sender", "recipient", "error"}

// CSVWriter writes classification results as CSV rows
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a CSV writer and writes the header row
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if err := cw.w.Write(Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return cw, nil
}

// Write appends one result row
func (c *CSVWriter) Write(r *core.ClassificationResult) error {
	row := []string{
		r.FileName,
		labelOrUnknown(r),
		fmt.Sprintf("%.3f", r.TopScore()),
		flatten(r.Subject),
		flatten(r.Sender),
		flatten(r.Recipient),
		flatten(r.Error),
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row for %s: %w", r.FileName, err)
	}
	return nil
}

// Flush writes buffered rows to the underlying writer
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// LabelCount is the number of results that carry one label
type LabelCount struct {
	Label string
	Count int
}

// Summary aggregates a run of classifications
type Summary struct {
	Total      int
	Successful int
	Failed     int
	counts     map[string]int
}

// Add records one result. Results without a label count as unknown.
func (s *Summary) Add(r *core.ClassificationResult) {
	if s.counts == nil {
		s.counts = make(map[string]int)
	}
	s.Total++
	if r.Failed() {
		s.Failed++
	} else {
		s.Successful++
	}
	s.counts[labelOrUnknown(r)]++
}

// Summarize builds a summary of results
func Summarize(results []*core.ClassificationResult) Summary {
	var s Summary
	for _, r := range results {
		s.Add(r)
	}
	return s
}

// Counts returns per-label counts, most frequent first
func (s Summary) Counts() []LabelCount {
	out := make([]LabelCount, 0, len(s.counts))
	for label, n := range s.counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Percent returns count as a percentage of the total
func (s Summary) Percent(count int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(count) / float64(s.Total) * 100
}

// WriteSummary prints totals and the label distribution
func WriteSummary(w io.Writer, s Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n=== Summary ===\n")
	fmt.Fprintf(&b, "Total files: %d\n", s.Total)
	fmt.Fprintf(&b, "Successful: %d\n", s.Successful)
	fmt.Fprintf(&b, "Failed: %d\n", s.Failed)
	if len(s.counts) > 0 {
		fmt.Fprintf(&b, "\nClassifications:\n")
		for _, lc := range s.Counts() {
			fmt.Fprintf(&b, "  %s: %d (%.1f%%)\n", lc.Label, lc.Count, s.Percent(lc.Count))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteResult prints a human readable block for one result
func WriteResult(w io.Writer, r *core.ClassificationResult, verbose bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n=== %s ===\n", r.FileName)
	fmt.Fprintf(&b, "From: %s\n", flatten(r.Sender))
	fmt.Fprintf(&b, "To: %s\n", flatten(r.Recipient))
	fmt.Fprintf(&b, "Subject: %s\n", flatten(r.Subject))
	fmt.Fprintf(&b, "Classification: %s\n", labelOrUnknown(r))
	for _, score := range r.Scores {
		fmt.Fprintf(&b, "  %s: %.4f\n", score.Label, score.Score)
	}
	if r.Failed() {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}
	fmt.Fprintf(&b, "Model used: %s\n", r.ModelVersion)
	fmt.Fprintf(&b, "Processing time: %.2fms\n", core.DurationMillis(r.ProcessingTime))
	if verbose && r.RawModelOutput != "" {
		fmt.Fprintf(&b, "\nModel output:\n%s\n", r.RawModelOutput)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func labelOrUnknown(r *core.ClassificationResult) string {
	if r.HasLabel() {
		return r.Label
	}
	return core.UnknownLabel
}

// flatten replaces line breaks so a header value stays on one line
func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(s)
}
