package ingest

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frauddesk/fraudqa/config"
)

const sampleCSV = `Unnamed: 0,trans_date_trans_time,cc_num,merchant,category,amt,is_fraud,mystery_col
0,2019-01-01 00:00:18,2703186189652095,"fraud_Rippin, Kub and Mann",misc_net,4.97,0,x
1,01/02/2019 13:45,630423337322,Heller and Sons,grocery_pos,107.23,1.0,y
2,2019-01-03 07:12:44,38859492057661,Lind-Buckridge,entertainment,220.11,,z
`

func loadSample(t *testing.T, force bool) (*CSVLoader, string, int) {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "fraudTrain.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))

	cfg := config.StoreConfig{Path: filepath.Join(dir, "fraud.db"), Table: "transactions"}
	loader := NewCSVLoader(cfg)
	n, err := loader.Load(context.Background(), csvPath, force)
	require.NoError(t, err)
	return loader, cfg.Path, n
}

func TestCSVLoadNormalizesRows(t *testing.T) {
	_, dbPath, n := loadSample(t, false)
	assert.Equal(t, 3, n)

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var when string
	var fraud int
	err = db.QueryRow(`SELECT trans_date_trans_time, is_fraud FROM transactions WHERE merchant = 'Heller and Sons'`).Scan(&when, &fraud)
	require.NoError(t, err)
	assert.Equal(t, "2019-01-02 13:45:00", when)
	assert.Equal(t, 1, fraud)

	// Missing fraud flag coerces to 0, never NULL.
	var zeros int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE is_fraud = 0`).Scan(&zeros))
	assert.Equal(t, 2, zeros)
}

func TestCSVLoadSkipsWhenPopulated(t *testing.T) {
	loader, dbPath, _ := loadSample(t, false)

	dir := filepath.Dir(dbPath)
	csvPath := filepath.Join(dir, "fraudTrain.csv")
	n, err := loader.Load(context.Background(), csvPath, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = loader.Load(context.Background(), csvPath, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNormalizeField(t *testing.T) {
	assert.Equal(t, "2019-01-01 00:00:18", normalizeField("trans_date_trans_time", "2019-01-01 00:00:18"))
	assert.Equal(t, "1988-03-09", normalizeField("dob", "1988-03-09"))
	assert.Equal(t, "1988-03-09", normalizeField("dob", "03/09/1988"))
	assert.Nil(t, normalizeField("dob", "not a date"))
	assert.Equal(t, 1, normalizeField("is_fraud", "1"))
	assert.Equal(t, 1, normalizeField("is_fraud", "1.0"))
	assert.Equal(t, 0, normalizeField("is_fraud", "junk"))
	assert.Equal(t, 0, normalizeField("is_eea", ""))
	assert.Nil(t, normalizeField("merchant", ""))
}
