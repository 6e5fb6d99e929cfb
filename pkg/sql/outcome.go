package sql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
)

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

const (
	OutcomeRows OutcomeKind = iota
	OutcomeMutated
	OutcomeSchemaChanged
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRows:
		return "Rows"
	case OutcomeMutated:
		return "Mutated"
	case OutcomeSchemaChanged:
		return "SchemaChanged"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of one successfully executed statement.
// Columns and Rows are set for OutcomeRows, Count for OutcomeMutated.
type Outcome struct {
	Kind    OutcomeKind
	Columns []string
	Rows    [][]catalog.Value
	Count   int
}

func rowsOutcome(columns []string, rows [][]catalog.Value) *Outcome {
	if rows == nil {
		rows = [][]catalog.Value{}
	}
	return &Outcome{Kind: OutcomeRows, Columns: columns, Rows: rows}
}

func mutatedOutcome(n int) *Outcome {
	return &Outcome{Kind: OutcomeMutated, Count: n}
}

func schemaChangedOutcome() *Outcome {
	return &Outcome{Kind: OutcomeSchemaChanged}
}

// MarshalJSON renders {"columns","rows"}, {"mutatedCount"} or {"schemaChanged"}.
func (o *Outcome) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OutcomeRows:
		rows := o.Rows
		if rows == nil {
			rows = [][]catalog.Value{}
		}
		return json.Marshal(struct {
			Columns []string          `json:"columns"`
			Rows    [][]catalog.Value `json:"rows"`
		}{o.Columns, rows})
	case OutcomeMutated:
		return json.Marshal(struct {
			MutatedCount int `json:"mutatedCount"`
		}{o.Count})
	case OutcomeSchemaChanged:
		return json.Marshal(struct {
			SchemaChanged bool `json:"schemaChanged"`
		}{true})
	default:
		return nil, fmt.Errorf("unknown outcome kind %d", o.Kind)
	}
}

// Summary is a one-line description suitable for a status banner.
func (o *Outcome) Summary() string {
	switch o.Kind {
	case OutcomeRows:
		if len(o.Rows) == 1 {
			return "(1 row)"
		}
		return fmt.Sprintf("(%d rows)", len(o.Rows))
	case OutcomeMutated:
		if o.Count == 1 {
			return "1 row affected"
		}
		return fmt.Sprintf("%d rows affected", o.Count)
	default:
		return "schema changed"
	}
}

// Strings renders every row value for display, NULL as "NULL".
func (o *Outcome) Strings() [][]string {
	out := make([][]string, len(o.Rows))
	for i, row := range o.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		out[i] = cells
	}
	return out
}

func (o *Outcome) String() string {
	if o.Kind != OutcomeRows {
		return o.Summary()
	}
	var sb strings.Builder
	sb.WriteString(strings.Join(o.Columns, "|"))
	for _, row := range o.Strings() {
		sb.WriteByte('\n')
		sb.WriteString(strings.Join(row, "|"))
	}
	return sb.String()
}
