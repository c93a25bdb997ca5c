package synthesizer

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frauddesk/fraudqa/config"
	"github.com/frauddesk/fraudqa/schema"
	"github.com/frauddesk/fraudqa/store"
)

type mockProvider struct {
	responses []string
	err       error
	calls     int
}

func (m *mockProvider) GenerateCompletion(context.Context, string, string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	i := m.calls
	m.calls++
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func (m *mockProvider) GetProviderType() string { return "mock" }

// openSeededStore creates a real SQLite file with a few transactions and
// opens it through the read-only store.
func openSeededStore(t *testing.T, withTable bool) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fraud.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	if withTable {
		_, err = db.Exec(`CREATE TABLE transactions (
			trans_date_trans_time TEXT, merchant TEXT, category TEXT,
			amt REAL, is_fraud INTEGER, is_eea INTEGER
		)`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO transactions VALUES
			('2019-01-01 10:00:00', 'Heller and Sons', 'grocery_pos', 107.23, 1, 1),
			('2019-01-02 11:00:00', 'Lind-Buckridge', 'entertainment', 220.11, 0, 0),
			('2019-01-03 12:00:00', 'Kub and Mann', 'misc_net', 4.97, 0, 0)`)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	st, err := store.Open(config.StoreConfig{
		Driver: "sqlite3", Path: path, Table: "transactions",
		DefaultLimit: 50, MaxRows: 200, QueryTimeoutMs: 5000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSynthesizeAndExecute(t *testing.T) {
	st := openSeededStore(t, true)
	mock := &mockProvider{responses: []string{
		`{"sql":"SELECT COUNT(*) AS n, SUM(is_fraud) AS fraud_count FROM transactions","notes":"simple counts"}`,
	}}
	s := New(mock, st, 50)

	ev, err := s.SynthesizeAndExecute(context.Background(), "how many transactions and how many are fraud?")
	require.NoError(t, err)
	require.Len(t, ev.Rows, 1)
	assert.Equal(t, int64(3), ev.Rows[0]["n"])
	assert.Equal(t, int64(1), ev.Rows[0]["fraud_count"])
	assert.Contains(t, ev.Query.SQL, "LIMIT 50")
	assert.Equal(t, "simple counts", ev.Query.Notes)
	assert.Greater(t, ev.Elapsed, time.Duration(0))
}

func TestSynthesizeDeclinedQuestion(t *testing.T) {
	st := openSeededStore(t, true)
	mock := &mockProvider{responses: []string{`{"sql": null, "notes": "UNSUPPORTED: needs cardholder age"}`}}
	s := New(mock, st, 50)

	_, err := s.SynthesizeAndExecute(context.Background(), "average age of victims?")
	require.Error(t, err)
	assert.Equal(t, schema.FailUnsafeQuery, schema.FailureOf(err, schema.FailExecution).Kind)
	assert.Equal(t, 1, mock.calls)
}

func TestSynthesizeRejectsMutation(t *testing.T) {
	st := openSeededStore(t, true)
	mock := &mockProvider{responses: []string{`{"sql":"DELETE FROM transactions","notes":""}`}}
	s := New(mock, st, 50)

	_, err := s.SynthesizeAndExecute(context.Background(), "clear the table please")
	require.Error(t, err)
	assert.Equal(t, schema.FailUnsafeQuery, schema.FailureOf(err, schema.FailExecution).Kind)
}

func TestSynthesizeRetriesOnceOnExecutionFailure(t *testing.T) {
	// Valid-looking SQL against a database whose table is missing fails at
	// execution; the synthesizer retries exactly once, then gives up.
	st := openSeededStore(t, false)
	mock := &mockProvider{responses: []string{
		`{"sql":"SELECT COUNT(*) AS n FROM transactions","notes":""}`,
	}}
	s := New(mock, st, 50)

	_, err := s.SynthesizeAndExecute(context.Background(), "how many transactions?")
	require.Error(t, err)
	assert.Equal(t, schema.FailExecution, schema.FailureOf(err, schema.FailUnsafeQuery).Kind)
	assert.Equal(t, 2, mock.calls)
}

func TestSynthesizeEEAFraction(t *testing.T) {
	st := openSeededStore(t, true)
	mock := &mockProvider{responses: []string{
		`{"sql":"SELECT AVG(CASE WHEN is_eea = 0 THEN 1.0 ELSE 0.0 END) AS outside_eea_fraction FROM transactions","notes":"share outside the EEA"}`,
	}}
	s := New(mock, st, 50)

	ev, err := s.SynthesizeAndExecute(context.Background(), "what fraction of transactions happened outside the EEA?")
	require.NoError(t, err)
	require.Len(t, ev.Rows, 1)
	assert.InDelta(t, 2.0/3.0, ev.Rows[0]["outside_eea_fraction"], 0.0001)
}
