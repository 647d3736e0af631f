package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/masahif/scopecrawl/internal/stats"
)

const separator = "================================================================"

// TextWriter renders the summary as plain text for terminals and log files.
type TextWriter struct {
	output io.Writer
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{output: output}
}

// Write outputs the report in plain text.
func (w *TextWriter) Write(summary stats.Summary, meta Meta) error {
	var sb strings.Builder

	sb.WriteString(separator + "\n")
	sb.WriteString("                         CRAWL REPORT\n")
	sb.WriteString(separator + "\n\n")

	fmt.Fprintf(&sb, "Crawl ID:      %s\n", meta.CrawlID)
	fmt.Fprintf(&sb, "Duration:      %s\n", meta.Duration())
	fmt.Fprintf(&sb, "Unique pages:  %s\n", humanize.Comma(int64(summary.UniquePages)))
	fmt.Fprintf(&sb, "Total words:   %s\n", humanize.Comma(int64(summary.TotalWords)))
	if summary.LongestPage.URL != "" {
		fmt.Fprintf(&sb, "Longest page:  %s (%s words)\n", summary.LongestPage.URL, humanize.Comma(int64(summary.LongestPage.Words)))
	}

	c := meta.Counters
	sb.WriteString("\nADMISSION\n")
	fmt.Fprintf(&sb, "  admitted:        %s\n", humanize.Comma(int64(c.Admitted)))
	fmt.Fprintf(&sb, "  bad status:      %s\n", humanize.Comma(int64(c.BadStatus)))
	fmt.Fprintf(&sb, "  out of scope:    %s\n", humanize.Comma(int64(c.OutOfScope)))
	fmt.Fprintf(&sb, "  no content:      %s\n", humanize.Comma(int64(c.NoContent)))
	fmt.Fprintf(&sb, "  exact duplicate: %s\n", humanize.Comma(int64(c.ExactDuplicate)))
	fmt.Fprintf(&sb, "  near duplicate:  %s\n", humanize.Comma(int64(c.NearDuplicate)))

	sb.WriteString("\nSUBDOMAINS\n")
	for _, s := range summary.Subdomains {
		fmt.Fprintf(&sb, "  %s, %d\n", s.Authority, s.Pages)
	}

	sb.WriteString("\nTOP WORDS\n")
	for i, wc := range summary.TopWords {
		fmt.Fprintf(&sb, "  %3d. %-24s %s\n", i+1, wc.Word, humanize.Comma(int64(wc.Count)))
	}

	_, err := io.WriteString(w.output, sb.String())
	return err
}
