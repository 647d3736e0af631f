// Package report renders the end-of-crawl summary.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/masahif/scopecrawl/internal/admission"
	"github.com/masahif/scopecrawl/internal/stats"
)

// Supported report formats
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatJSON     = "json"
)

// ErrUnknownFormat is returned by NewWriter for unsupported formats.
var ErrUnknownFormat = errors.New("unknown report format")

// Meta describes the crawl a report summarizes.
type Meta struct {
	CrawlID    string             `json:"crawl_id"`
	Seeds      []string           `json:"seeds"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Counters   admission.Counters `json:"counters"`
}

// Duration returns the wall-clock length of the crawl rounded to seconds.
func (m Meta) Duration() time.Duration {
	if m.StartedAt.IsZero() || m.FinishedAt.Before(m.StartedAt) {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt).Round(time.Second)
}

// Writer outputs a crawl summary.
type Writer interface {
	Write(summary stats.Summary, meta Meta) error
}

// NewWriter returns the writer for format, writing to output.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md", "":
		return NewMarkdownWriter(output), nil
	case FormatText:
		return NewTextWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
