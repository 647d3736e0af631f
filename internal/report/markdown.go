package report

import (
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"

	"github.com/masahif/scopecrawl/internal/stats"
)

// MarkdownWriter renders the summary as GitHub-flavored markdown tables.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(summary stats.Summary, meta Meta) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Report")
	md.PlainText("")
	w.writeOverview(md, summary, meta)
	w.writeAdmission(md, meta)
	w.writeSubdomains(md, summary)
	w.writeTopWords(md, summary)

	return md.Build()
}

func (w *MarkdownWriter) writeOverview(md *markdown.Markdown, summary stats.Summary, meta Meta) {
	longest := "-"
	if summary.LongestPage.URL != "" {
		longest = summary.LongestPage.URL + " (" + humanize.Comma(int64(summary.LongestPage.Words)) + " words)"
	}

	rows := [][]string{
		{"Crawl ID", "`" + meta.CrawlID + "`"},
	}
	if !meta.StartedAt.IsZero() {
		rows = append(rows, []string{"Started", meta.StartedAt.Format("2006-01-02 15:04:05 MST")})
	}
	rows = append(rows,
		[]string{"Duration", meta.Duration().String()},
		[]string{"Unique Pages", humanize.Comma(int64(summary.UniquePages))},
		[]string{"Total Words", humanize.Comma(int64(summary.TotalWords))},
		[]string{"Longest Page", longest},
	)

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(meta.Seeds) > 0 {
		md.H3("Seeds")
		md.PlainText("")
		md.BulletList(meta.Seeds...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeAdmission(md *markdown.Markdown, meta Meta) {
	c := meta.Counters
	md.H2("Admission")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Pages"},
		Rows: [][]string{
			{"Admitted", humanize.Comma(int64(c.Admitted))},
			{"Bad status", humanize.Comma(int64(c.BadStatus))},
			{"Out of scope", humanize.Comma(int64(c.OutOfScope))},
			{"No content", humanize.Comma(int64(c.NoContent))},
			{"Exact duplicate", humanize.Comma(int64(c.ExactDuplicate))},
			{"Near duplicate", humanize.Comma(int64(c.NearDuplicate))},
			{"**Total**", "**" + humanize.Comma(int64(c.Total())) + "**"},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSubdomains(md *markdown.Markdown, summary stats.Summary) {
	md.H2("Subdomains")
	md.PlainText("")
	if len(summary.Subdomains) == 0 {
		md.PlainText("No pages admitted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.Subdomains))
	for _, s := range summary.Subdomains {
		rows = append(rows, []string{s.Authority, humanize.Comma(int64(s.Pages))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Subdomain", "Unique Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeTopWords(md *markdown.Markdown, summary stats.Summary) {
	md.H2("Top " + strconv.Itoa(len(summary.TopWords)) + " Words")
	md.PlainText("")
	if len(summary.TopWords) == 0 {
		md.PlainText("No words recorded.")
		return
	}

	rows := make([][]string, 0, len(summary.TopWords))
	for i, wc := range summary.TopWords {
		rows = append(rows, []string{strconv.Itoa(i + 1), wc.Word, humanize.Comma(int64(wc.Count))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Word", "Count"},
		Rows:   rows,
	})
}
