package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/frauddesk/fraudqa/common/logger"
	"github.com/frauddesk/fraudqa/config"
	"github.com/frauddesk/fraudqa/schema"
)

// Store is the read-only query interface over the transaction table. The
// connection is opened in read-only mode so even a statement that slipped
// past the validation gate cannot mutate anything.
type Store struct {
	db      *sql.DB
	schema  TableSchema
	maxRows int
	timeout time.Duration
}

// Open opens the transaction store in read-only mode.
func Open(cfg config.StoreConfig) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_query_only=1&_busy_timeout=5000", cfg.Path)
	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(4)

	timeout := 5 * time.Second
	if cfg.QueryTimeoutMs > 0 {
		timeout = time.Duration(cfg.QueryTimeoutMs) * time.Millisecond
	}
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 200
	}
	return &Store{
		db:      db,
		schema:  TransactionSchema(cfg.Table),
		maxRows: maxRows,
		timeout: timeout,
	}, nil
}

// Schema returns the allow-listed table schema.
func (s *Store) Schema() TableSchema { return s.schema }

// MaxRows returns the hard cap on result rows.
func (s *Store) MaxRows() int { return s.maxRows }

// Query executes one validated SELECT with the store's row cap and time
// budget. The caller is responsible for having validated the statement.
func (s *Store) Query(ctx context.Context, sqlText string) ([]string, []schema.Row, error) {
	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(qctx, sqlText)
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	var out []schema.Row
	for rows.Next() {
		if len(out) >= s.maxRows {
			logger.Warnf("store: result truncated at %d rows", s.maxRows)
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(schema.Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}

	logger.Debugf("store: query returned %d rows in %s", len(out), time.Since(start))
	return cols, out, nil
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

// normalizeValue maps driver-specific values to JSON-friendly ones.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}
