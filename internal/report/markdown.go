// Package report renders crawl sessions for sharing.
package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/user/crawl-pilot/internal/entity"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// MarkdownWriter renders a session snapshot as GitHub-flavored markdown.
type MarkdownWriter struct {
	output io.Writer
}

func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders snap and returns the number of bytes written.
func (w *MarkdownWriter) Write(snap *entity.SessionSnapshot) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, snap)
	w.writeLinks(md, snap.Frontier)
	w.writeAssets(md, snap.Frontier.Assets)
	w.writeBulkScan(md, snap.BulkScan)
	w.writeTranscript(md, snap.Transcript)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, snap *entity.SessionSnapshot) {
	counts := snap.Frontier.Counts()

	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Session", "`" + snap.ID + "`"},
			{"Seed URL", cell(snap.SeedURL)},
			{"Started", snap.StartedAt.Format(timeLayout)},
			{"Links", strconv.Itoa(len(snap.Frontier.Links))},
			{"Scanned", strconv.Itoa(counts[entity.LinkScanned])},
			{"Pending", strconv.Itoa(counts[entity.LinkPending])},
			{"Failed", strconv.Itoa(counts[entity.LinkFailed])},
			{"Assets", strconv.Itoa(len(snap.Frontier.Assets))},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeLinks(md *markdown.Markdown, frontier entity.FrontierSnapshot) {
	md.H2("Links")
	md.PlainText("")
	if len(frontier.Links) == 0 {
		md.PlainText("No links discovered.")
		md.PlainText("")
		return
	}

	w.writeStatusChart(md, frontier.Counts())

	rows := make([][]string, 0, len(frontier.Links))
	for _, l := range frontier.Links {
		rows = append(rows, []string{cell(l.URL), string(l.Status), cell(l.Title), cell(l.Error)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Title", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStatusChart(md *markdown.Markdown, counts map[entity.LinkStatus]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Status"),
		piechart.WithShowData(true),
	)
	for _, status := range entity.AllLinkStatuses {
		if n := counts[status]; n > 0 {
			chart.LabelAndIntValue(string(status), uint64(n))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAssets(md *markdown.Markdown, assets []entity.DiscoveredAsset) {
	md.H2("Assets")
	md.PlainText("")
	if len(assets) == 0 {
		md.PlainText("No assets discovered.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, []string{cell(a.URL), string(a.Kind), cell(a.SourcePage)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Found On"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeBulkScan(md *markdown.Markdown, status entity.BulkScanStatus) {
	if status.Total == 0 && !status.Running {
		return
	}
	md.H2("Bulk Scan")
	md.PlainText("")
	md.BulletList(
		"State: "+bulkState(status),
		"Processed: "+strconv.Itoa(status.Processed)+" of "+strconv.Itoa(status.Total),
		"Scanned: "+strconv.Itoa(status.Scanned),
		"Failed: "+strconv.Itoa(status.Failed),
		"Skipped: "+strconv.Itoa(status.Skipped),
	)
	md.PlainText("")
}

func bulkState(status entity.BulkScanStatus) string {
	switch {
	case status.Running:
		return "running"
	case status.Stopped:
		return "stopped"
	default:
		return "finished"
	}
}

// writeTranscript lists text turns. Tool proposals still awaiting a decision
// are shown by name.
func (w *MarkdownWriter) writeTranscript(md *markdown.Markdown, turns []entity.Turn) {
	if len(turns) == 0 {
		return
	}
	md.H2("Transcript")
	md.PlainText("")
	items := make([]string, 0, len(turns))
	for _, t := range turns {
		switch t.Kind {
		case entity.TurnToolCall:
			if t.Proposal != nil {
				items = append(items, "**"+string(t.Sender)+"** proposed `"+t.Proposal.Name+"`")
			}
		default:
			items = append(items, "**"+string(t.Sender)+"**: "+oneLine(t.Text))
		}
	}
	md.BulletList(items...)
	md.PlainText("")
}

func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", "\\|")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
