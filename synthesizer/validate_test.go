package synthesizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frauddesk/fraudqa/store"
)

func newTestValidator() *Validator {
	return NewValidator(store.TransactionSchema("transactions"), 50, 200)
}

func TestValidateRejectsUnsafeStatements(t *testing.T) {
	v := newTestValidator()
	cases := []struct {
		name string
		sql  string
	}{
		{"empty", ""},
		{"drop", "DROP TABLE transactions"},
		{"update", "UPDATE transactions SET amt = 0"},
		{"delete", "DELETE FROM transactions"},
		{"insert", "INSERT INTO transactions (amt) VALUES (1)"},
		{"pragma", "PRAGMA table_info(transactions)"},
		{"multi statement", "SELECT amt FROM transactions; DROP TABLE transactions"},
		{"piggyback comment", "SELECT amt FROM transactions -- WHERE is_fraud = 1"},
		{"block comment", "SELECT amt /* hidden */ FROM transactions"},
		{"select into", "SELECT amt INTO stolen FROM transactions"},
		{"not a select", "EXPLAIN SELECT amt FROM transactions"},
		{"unknown table", "SELECT amt FROM users"},
		{"unknown column", "SELECT password FROM transactions"},
		{"forbidden inside select", "SELECT amt FROM transactions WHERE merchant IN (SELECT name FROM sqlite_master)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.sql)
			assert.Error(t, err)
		})
	}
}

func TestValidateAcceptsReadOnlySelects(t *testing.T) {
	v := newTestValidator()
	cases := []string{
		"SELECT COUNT(*) AS n FROM transactions",
		"SELECT merchant, SUM(amt) AS total_amt FROM transactions GROUP BY merchant ORDER BY total_amt DESC LIMIT 10",
		"SELECT AVG(is_fraud) AS fraud_rate FROM transactions WHERE category = 'grocery_pos'",
		"SELECT strftime('%Y-%m', trans_date_trans_time) AS ym, SUM(is_fraud) AS fraud_count FROM transactions GROUP BY ym",
		`WITH bounds AS (SELECT MAX(trans_date_trans_time) AS max_t FROM transactions)
SELECT COUNT(*) AS n FROM transactions, bounds WHERE trans_date_trans_time >= max_t`,
	}
	for _, sql := range cases {
		_, err := v.Validate(sql)
		assert.NoError(t, err, sql)
	}
}

func TestValidateTrailingSemicolonAllowed(t *testing.T) {
	v := newTestValidator()
	out, err := v.Validate("SELECT COUNT(*) AS n FROM transactions;")
	require.NoError(t, err)
	assert.NotContains(t, out, ";")
}

func TestValidateAppendsDefaultLimit(t *testing.T) {
	v := newTestValidator()
	out, err := v.Validate("SELECT merchant AS m FROM transactions")
	require.NoError(t, err)
	assert.Contains(t, out, "LIMIT 50")
}

func TestValidateClampsOversizeLimit(t *testing.T) {
	v := newTestValidator()
	out, err := v.Validate("SELECT merchant AS m FROM transactions LIMIT 100000")
	require.NoError(t, err)
	assert.Contains(t, out, "LIMIT 200")
	assert.NotContains(t, out, "100000")
}

func TestValidateKeepsReasonableLimit(t *testing.T) {
	v := newTestValidator()
	out, err := v.Validate("SELECT merchant AS m FROM transactions LIMIT 10")
	require.NoError(t, err)
	assert.Contains(t, out, "LIMIT 10")
}

func TestValidateIgnoresStringLiteralContents(t *testing.T) {
	// Words inside literals must not be treated as identifiers.
	v := newTestValidator()
	_, err := v.Validate("SELECT COUNT(*) AS n FROM transactions WHERE merchant = 'Mysterious Vendor LLC'")
	assert.NoError(t, err)
}
