package report

import (
	"encoding/json"
	"io"

	"github.com/masahif/scopecrawl/internal/stats"
)

// JSONWriter outputs the summary and crawl metadata as one JSON document.
type JSONWriter struct {
	output io.Writer
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{output: output}
}

type jsonReport struct {
	Meta
	DurationSeconds float64       `json:"duration_seconds"`
	Summary         stats.Summary `json:"summary"`
}

// Write outputs the report as indented JSON.
func (w *JSONWriter) Write(summary stats.Summary, meta Meta) error {
	enc := json.NewEncoder(w.output)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Meta:            meta,
		DurationSeconds: meta.Duration().Seconds(),
		Summary:         summary,
	})
}
