package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/frauddesk/fraudqa/common/logger"
	"github.com/frauddesk/fraudqa/config"
	"github.com/frauddesk/fraudqa/store"
)

// insertBatch is how many rows go into one transaction during CSV load.
const insertBatch = 500

var junkColumns = map[string]struct{}{
	"":                  {},
	"unnamed: 0":        {},
	"index":             {},
	"__index_level_0__": {},
}

var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	"01/02/2006",
}

// CSVLoader bootstraps the analytical SQLite database from the raw
// transaction CSV. The pipeline's query store opens the result read-only;
// this loader is the only writer.
type CSVLoader struct {
	cfg    config.StoreConfig
	schema store.TableSchema
}

// NewCSVLoader builds a loader for the configured store path and table.
func NewCSVLoader(cfg config.StoreConfig) *CSVLoader {
	return &CSVLoader{cfg: cfg, schema: store.TransactionSchema(cfg.Table)}
}

// Load reads csvPath into the transactions table. When force is false and
// the table already has rows, the load is skipped and only the indexes
// are ensured. It returns the number of rows inserted.
func (l *CSVLoader) Load(ctx context.Context, csvPath string, force bool) (int, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", l.cfg.Path))
	if err != nil {
		return 0, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := l.initSchema(ctx, db); err != nil {
		return 0, err
	}

	if force {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", l.schema.Table)); err != nil {
			return 0, fmt.Errorf("clear table: %w", err)
		}
		logger.Warnf("ingest: force reload, cleared table %s", l.schema.Table)
	}

	var existing int
	if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(1) FROM %s", l.schema.Table)).Scan(&existing); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	if existing > 0 {
		logger.Infof("ingest: table %s already has %d row(s), skipping load", l.schema.Table, existing)
		return 0, l.createIndexes(ctx, db)
	}

	n, err := l.loadFile(ctx, db, csvPath)
	if err != nil {
		return n, err
	}
	return n, l.createIndexes(ctx, db)
}

func (l *CSVLoader) initSchema(ctx context.Context, db *sql.DB) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", l.schema.Table)
	for i, c := range l.schema.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "    %q %s", c.Name, c.Type)
	}
	b.WriteString("\n)")
	if _, err := db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func (l *CSVLoader) createIndexes(ctx context.Context, db *sql.DB) error {
	for _, col := range []string{"trans_date_trans_time", "merchant", "category", "is_fraud"} {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%q)", l.schema.Table, col, l.schema.Table, col)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index on %s: %w", col, err)
		}
	}
	return nil
}

func (l *CSVLoader) loadFile(ctx context.Context, db *sql.DB, csvPath string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	start := time.Now()
	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}

	// Map CSV columns onto schema columns, dropping junk index columns
	// pandas-style exports tend to carry.
	known := l.schema.ColumnSet()
	type mapping struct {
		csvIdx int
		name   string
	}
	var cols []mapping
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, junk := junkColumns[name]; junk {
			continue
		}
		if _, ok := known[name]; !ok {
			logger.Warnf("ingest: csv column %q not in schema, ignoring", h)
			continue
		}
		cols = append(cols, mapping{csvIdx: i, name: name})
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("csv header shares no columns with table %s", l.schema.Table)
	}

	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = strconv.Quote(c.name)
		marks[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		l.schema.Table, strings.Join(names, ", "), strings.Join(marks, ", "))

	total := 0
	for {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return total, fmt.Errorf("begin batch: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			tx.Rollback()
			return total, fmt.Errorf("prepare insert: %w", err)
		}

		inBatch := 0
		var readErr error
		for inBatch < insertBatch {
			record, err := r.Read()
			if err != nil {
				readErr = err
				break
			}
			args := make([]any, len(cols))
			for i, c := range cols {
				var raw string
				if c.csvIdx < len(record) {
					raw = record[c.csvIdx]
				}
				args[i] = normalizeField(c.name, raw)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				stmt.Close()
				tx.Rollback()
				return total, fmt.Errorf("insert row %d: %w", total+inBatch+1, err)
			}
			inBatch++
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			return total, fmt.Errorf("commit batch: %w", err)
		}
		total += inBatch

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, fmt.Errorf("read csv row %d: %w", total+1, readErr)
		}
		if total%(insertBatch*50) == 0 {
			logger.Infof("ingest: %d row(s) inserted", total)
		}
	}

	logger.Infof("ingest: csv load done, rows=%d elapsed=%s", total, time.Since(start).Round(time.Millisecond))
	return total, nil
}

// normalizeField applies the per-column cleanup the analytical queries
// rely on: canonical datetime formats and strict 0/1 flags.
func normalizeField(name, raw string) any {
	raw = strings.TrimSpace(raw)
	switch name {
	case "trans_date_trans_time":
		return normalizeDatetime(raw, "2006-01-02 15:04:05")
	case "dob":
		return normalizeDatetime(raw, "2006-01-02")
	case "is_fraud", "is_eea":
		return coerceFlag(raw)
	default:
		if raw == "" {
			return nil
		}
		return raw
	}
}

func normalizeDatetime(raw, outLayout string) any {
	if raw == "" {
		return nil
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(outLayout)
		}
	}
	return nil
}

func coerceFlag(raw string) int {
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0.5 {
		return 0
	}
	return 1
}
