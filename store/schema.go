package store

import (
	"fmt"
	"strings"
)

// Column describes one allow-listed column with the semantic note given to
// the query generator. The model only ever sees this metadata, never rows.
type Column struct {
	Name string
	Type string
	Note string
}

// TableSchema is the fixed, documented transaction schema. Queries may
// reference this table and these columns only.
type TableSchema struct {
	Table   string
	Columns []Column
}

// TransactionSchema mirrors the card-transaction dataset loaded by the
// ingestion job.
func TransactionSchema(table string) TableSchema {
	if table == "" {
		table = "transactions"
	}
	return TableSchema{
		Table: table,
		Columns: []Column{
			{Name: "trans_date_trans_time", Type: "TEXT", Note: `transaction datetime, format "YYYY-MM-DD HH:MM:SS"`},
			{Name: "cc_num", Type: "TEXT", Note: "credit card number"},
			{Name: "merchant", Type: "TEXT", Note: "merchant name"},
			{Name: "category", Type: "TEXT", Note: "merchant category"},
			{Name: "amt", Type: "REAL", Note: "transaction amount"},
			{Name: "first", Type: "TEXT", Note: "cardholder first name"},
			{Name: "last", Type: "TEXT", Note: "cardholder last name"},
			{Name: "gender", Type: "TEXT", Note: "cardholder gender"},
			{Name: "street", Type: "TEXT", Note: "cardholder street"},
			{Name: "city", Type: "TEXT", Note: "cardholder city"},
			{Name: "state", Type: "TEXT", Note: "cardholder state"},
			{Name: "zip", Type: "TEXT", Note: "cardholder zip"},
			{Name: "lat", Type: "REAL", Note: "cardholder latitude"},
			{Name: "long", Type: "REAL", Note: "cardholder longitude"},
			{Name: "city_pop", Type: "INTEGER", Note: "city population"},
			{Name: "job", Type: "TEXT", Note: "cardholder job"},
			{Name: "dob", Type: "TEXT", Note: `date of birth, format "YYYY-MM-DD"`},
			{Name: "trans_num", Type: "TEXT", Note: "transaction id"},
			{Name: "unix_time", Type: "INTEGER", Note: "unix timestamp of transaction"},
			{Name: "merch_lat", Type: "REAL", Note: "merchant latitude"},
			{Name: "merch_long", Type: "REAL", Note: "merchant longitude"},
			{Name: "is_fraud", Type: "INTEGER", Note: "1 if fraud else 0"},
			{Name: "is_eea", Type: "INTEGER", Note: "1 if the transaction originated inside the EEA else 0"},
		},
	}
}

// ColumnSet returns the lowercase column names for allow-list checks.
func (s TableSchema) ColumnSet() map[string]struct{} {
	out := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		out[strings.ToLower(c.Name)] = struct{}{}
	}
	return out
}

// Describe renders the schema metadata block for the synthesis prompt.
func (s TableSchema) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\nColumns (use ONLY these):\n", s.Table)
	for _, c := range s.Columns {
		fmt.Fprintf(&b, "- %s (%s): %s\n", c.Name, c.Type, c.Note)
	}
	return b.String()
}
