package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
	"github.com/sqlsandbox/sandboxdb/pkg/sql"
)

// Format selects how outcomes and errors are printed.
type Format int

const (
	FormatTable Format = iota
	FormatJSON
)

// ParseFormat converts "table" or "json" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatTable, fmt.Errorf("unknown format %q (must be table or json)", s)
	}
}

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "table"
}

// Printer writes outcomes and errors to a writer.
type Printer struct {
	Out      io.Writer
	Format   Format
	MaxWidth int // 0 disables truncation
}

// PrintOutcome writes one statement outcome.
func (p *Printer) PrintOutcome(out *sql.Outcome) {
	if p.Format == FormatJSON {
		p.printJSON(out)
		return
	}
	if out.Kind != sql.OutcomeRows {
		fmt.Fprintln(p.Out, out.Summary())
		return
	}
	p.printTable(out.Columns, out.Strings())
	fmt.Fprintf(p.Out, "%s\n", out.Summary())
}

// PrintError writes an engine error. Table format prints the error kind and
// message; JSON format prints the tagged report.
func (p *Printer) PrintError(err error) {
	report := sql.Report(err)
	if p.Format == FormatJSON {
		p.printJSON(struct {
			Error sql.ErrorReport `json:"error"`
		}{report})
		return
	}
	kind := report.Kind
	if report.Code != "" {
		kind += "/" + report.Code
	}
	fmt.Fprintf(p.Out, "Error [%s]: %s\n", kind, report.Message)
}

func (p *Printer) printJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(p.Out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(p.Out, string(data))
}

// printTable renders a grid with the header separated by a rule.
func (p *Printer) printTable(columns []string, rows [][]string) {
	if len(columns) == 0 {
		fmt.Fprintln(p.Out, "(no columns)")
		return
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	if p.MaxWidth > 0 {
		for i := range widths {
			if widths[i] > p.MaxWidth {
				widths[i] = p.MaxWidth
			}
		}
	}

	p.printRow(columns, widths)
	for i := range columns {
		fmt.Fprint(p.Out, strings.Repeat("─", widths[i]+2))
		if i < len(columns)-1 {
			fmt.Fprint(p.Out, "┼")
		}
	}
	fmt.Fprintln(p.Out)
	for _, row := range rows {
		p.printRow(row, widths)
	}
}

func (p *Printer) printRow(cells []string, widths []int) {
	for i, cell := range cells {
		cell = truncate(cell, widths[i])
		pad := widths[i] - utf8.RuneCountInString(cell)
		fmt.Fprintf(p.Out, " %s%s ", cell, strings.Repeat(" ", pad))
		if i < len(cells)-1 {
			fmt.Fprint(p.Out, "│")
		}
	}
	fmt.Fprintln(p.Out)
}

// PrintTables writes the table list for \dt.
func (p *Printer) PrintTables(names []string, counts []int) {
	if p.Format == FormatJSON {
		type entry struct {
			Name string `json:"name"`
			Rows int    `json:"rows"`
		}
		list := make([]entry, len(names))
		for i, n := range names {
			list[i] = entry{n, counts[i]}
		}
		p.printJSON(list)
		return
	}
	if len(names) == 0 {
		fmt.Fprintln(p.Out, "No tables found.")
		return
	}
	rows := make([][]string, len(names))
	for i, n := range names {
		rows[i] = []string{n, fmt.Sprint(counts[i])}
	}
	p.printTable([]string{"table", "rows"}, rows)
	fmt.Fprintf(p.Out, "(%d table(s))\n", len(names))
}

// PrintSchema writes one table definition for \d.
func (p *Printer) PrintSchema(t *catalog.Table) {
	rows := make([][]string, len(t.Columns))
	for i, c := range t.Columns {
		nullable := "YES"
		if !c.Nullable() {
			nullable = "NO"
		}
		def := ""
		if c.DefaultValue != nil {
			def = c.DefaultValue.SQL()
		}
		rows[i] = []string{c.Name, c.Type.String(), nullable, def}
	}

	if p.Format == FormatJSON {
		p.printJSON(struct {
			Table   string     `json:"table"`
			Columns [][]string `json:"columns"`
			Key     []string   `json:"primaryKey,omitempty"`
			Notes   []string   `json:"constraints,omitempty"`
		}{t.Name, rows, t.PrimaryKey, constraintNotes(t)})
		return
	}

	fmt.Fprintf(p.Out, "Table: %s\n", t.Name)
	p.printTable([]string{"column", "type", "nullable", "default"}, rows)
	if len(t.PrimaryKey) > 0 {
		fmt.Fprintf(p.Out, "PRIMARY KEY (%s)\n", strings.Join(t.PrimaryKey, ", "))
	}
	for _, note := range constraintNotes(t) {
		fmt.Fprintln(p.Out, note)
	}
}

func constraintNotes(t *catalog.Table) []string {
	var notes []string
	for _, u := range t.Uniques {
		notes = append(notes, fmt.Sprintf("UNIQUE (%s)", strings.Join(u.Columns, ", ")))
	}
	for _, fk := range t.ForeignKeys {
		notes = append(notes, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)", fk.Column, fk.RefTable, fk.RefColumn))
	}
	return notes
}

// truncate limits a string to maxLen runes.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen < 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
