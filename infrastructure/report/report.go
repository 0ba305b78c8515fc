// Package report renders panel data as plain-text tables for terminals.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/ahrav/go-panel/infrastructure/bulk"
	"github.com/ahrav/go-panel/infrastructure/scoring"
	"github.com/ahrav/go-panel/internal/domain"
)

// Writer prints titled tables to an io.Writer.
type Writer struct {
	out     io.Writer
	heading *color.Color
}

// NewWriter creates a Writer. Headings are coloured unless colour output is
// disabled globally or plain is true.
func NewWriter(out io.Writer, plain bool) *Writer {
	heading := color.New(color.FgYellow, color.Bold)
	if plain {
		heading.DisableColor()
	}
	return &Writer{out: out, heading: heading}
}

// Table prints title followed by a table of rows.
func (w *Writer) Table(title string, header []string, rows [][]string) {
	if title != "" {
		w.heading.Fprintf(w.out, "\n%s\n", title)
	}
	table := tablewriter.NewWriter(w.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}

// Results prints the ranked standings for one position.
func (w *Writer) Results(position domain.Position, standings []scoring.Standing) {
	rows := make([][]string, 0, len(standings))
	for _, s := range standings {
		rows = append(rows, []string{
			strconv.Itoa(s.Rank),
			s.Nominee.Name,
			s.Nominee.RegNo,
			s.Nominee.Department,
			strconv.Itoa(s.Nominee.Votes),
			Percent(s.Share),
		})
	}
	w.Table(fmt.Sprintf("Results: %s", position), []string{"Rank", "Name", "Reg No", "Department", "Votes", "Share"}, rows)
}

// Scores prints one candidate's per-parameter averages.
func (w *Writer) Scores(c domain.Candidate, summary *domain.ScoreSummary) {
	title := fmt.Sprintf("%s (%s)", c.Name, c.Position)
	if summary == nil {
		w.Table(title, []string{"Parameter", "Average"}, [][]string{{"not rated", "-"}})
		return
	}
	rows := make([][]string, 0, len(summary.Parameters)+1)
	for _, p := range summary.Parameters {
		rows = append(rows, []string{string(p.Parameter), Score(p.Average)})
	}
	rows = append(rows, []string{"overall", Score(summary.Overall)})
	w.Table(fmt.Sprintf("%s, %d rating(s)", title, summary.Ratings), []string{"Parameter", "Average"}, rows)
}

// Nominees prints nominees in the given order.
func (w *Writer) Nominees(title string, nominees []domain.Nominee) {
	rows := make([][]string, 0, len(nominees))
	for _, n := range nominees {
		rows = append(rows, []string{
			n.ID,
			n.Name,
			n.Email,
			n.RegNo,
			strconv.Itoa(int(n.Shift)),
			n.Department,
			string(n.Position),
		})
	}
	w.Table(title, []string{"ID", "Name", "Email", "Reg No", "Shift", "Department", "Position"}, rows)
}

// Rejected prints the rows a bulk import skipped.
func (w *Writer) Rejected(rows []*bulk.RowError) {
	if len(rows) == 0 {
		return
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{strconv.Itoa(r.Line), r.Reason()})
	}
	w.Table("Rejected rows", []string{"Line", "Reason"}, out)
}

// Score formats an average on the 1 to 5 scale, or "-" for zero.
func Score(v float64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Percent formats a fraction as a percentage with one decimal.
func Percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}
