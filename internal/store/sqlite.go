package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kquant/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ OutcomeStore = (*SQLiteStore)(nil)

// defaultListLimit bounds ListOutcomes when the caller passes no limit.
const defaultListLimit = 20

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol                TEXT NOT NULL,
	market                TEXT NOT NULL,
	params                TEXT NOT NULL,
	train_sharpe          REAL NOT NULL,
	test_sharpe           REAL NOT NULL,
	test_win_rate         REAL NOT NULL,
	sharpe_divergence_pct REAL NOT NULL,
	verdict               TEXT NOT NULL,
	created_at            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_symbol_created
	ON outcomes (symbol, created_at DESC);
`

// SQLiteStore implements OutcomeStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// The driver serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent saves.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveOutcome appends an outcome to the history for its symbol.
func (s *SQLiteStore) SaveOutcome(ctx context.Context, outcome *domain.OptimizationOutcome) error {
	params, err := json.Marshal(outcome.Best)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcomes
			(symbol, market, params, train_sharpe, test_sharpe, test_win_rate,
			 sharpe_divergence_pct, verdict, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.Symbol,
		string(outcome.Market),
		string(params),
		outcome.TrainSharpe,
		outcome.TestSharpe,
		outcome.TestWinRate,
		outcome.SharpeDivergencePct,
		string(outcome.Verdict),
		outcome.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting outcome for %s: %w", outcome.Symbol, err)
	}
	return nil
}

// ListOutcomes returns the most recent outcomes for a symbol, newest first.
// A non-positive limit falls back to defaultListLimit.
func (s *SQLiteStore) ListOutcomes(ctx context.Context, symbol string, limit int) ([]domain.OptimizationOutcome, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, market, params, train_sharpe, test_sharpe, test_win_rate,
		       sharpe_divergence_pct, verdict, created_at
		FROM outcomes
		WHERE symbol = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes for %s: %w", symbol, err)
	}
	defer rows.Close()

	var outcomes []domain.OptimizationOutcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *o)
	}
	return outcomes, rows.Err()
}

// LatestOutcome returns the newest outcome for a symbol, or ErrNotFound.
func (s *SQLiteStore) LatestOutcome(ctx context.Context, symbol string) (*domain.OptimizationOutcome, error) {
	outcomes, err := s.ListOutcomes(ctx, symbol, 1)
	if err != nil {
		return nil, err
	}
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("%w: no outcome for %s", ErrNotFound, symbol)
	}
	return &outcomes[0], nil
}

func scanOutcome(rows *sql.Rows) (*domain.OptimizationOutcome, error) {
	var (
		o         domain.OptimizationOutcome
		market    string
		params    string
		verdict   string
		createdAt string
	)
	if err := rows.Scan(&o.Symbol, &market, &params, &o.TrainSharpe, &o.TestSharpe,
		&o.TestWinRate, &o.SharpeDivergencePct, &verdict, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning outcome: %w", err)
	}

	if err := json.Unmarshal([]byte(params), &o.Best); err != nil {
		return nil, fmt.Errorf("decoding params for %s: %w", o.Symbol, err)
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", o.Symbol, err)
	}

	o.Market = domain.Market(market)
	o.Verdict = domain.Verdict(verdict)
	o.CreatedAt = ts
	return &o, nil
}
