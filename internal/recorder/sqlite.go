package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists audit data to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read the audit tables while the server writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.Named("recorder"), now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS query_log (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			request_id TEXT,
			route      TEXT NOT NULL,
			symbol     TEXT,
			params     TEXT,
			status     INTEGER,
			bars       INTEGER,
			latency_ms REAL,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_query_ts ON query_log(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_query_symbol ON query_log(symbol)`,

		`CREATE TABLE IF NOT EXISTS provider_probes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			provider   TEXT NOT NULL,
			symbol     TEXT,
			up         INTEGER,
			bars       INTEGER,
			latency_ms REAL,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_probe_ts ON provider_probes(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordQuery(evt *QueryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO query_log
		(timestamp, request_id, route, symbol, params, status, bars, latency_ms, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), evt.RequestID, evt.Route, evt.Symbol, evt.Params,
		evt.Status, evt.Bars, millis(evt.Latency), evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordProbe(evt *ProbeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	up := 0
	if evt.Up {
		up = 1
	}
	_, err := r.db.Exec(`INSERT INTO provider_probes
		(timestamp, provider, symbol, up, bars, latency_ms, error)
		VALUES (?,?,?,?,?,?,?)`,
		r.now().Unix(), evt.Provider, evt.Symbol, up, evt.Bars, millis(evt.Latency), evt.Error,
	)
	return err
}

// QueryCount returns the number of audited queries for symbol, or for all
// symbols when symbol is empty.
func (r *SQLiteRecorder) QueryCount(symbol string) (int, error) {
	var n int
	var err error
	if symbol == "" {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM query_log`).Scan(&n)
	} else {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM query_log WHERE symbol = ?`, symbol).Scan(&n)
	}
	return n, err
}

// LastProbe returns the most recent probe of provider, or nil when none exists.
func (r *SQLiteRecorder) LastProbe(provider string) (*ProbeEvent, error) {
	var (
		evt     ProbeEvent
		up      int
		latency float64
	)
	err := r.db.QueryRow(`SELECT provider, symbol, up, bars, latency_ms, error
		FROM provider_probes WHERE provider = ? ORDER BY id DESC LIMIT 1`, provider).
		Scan(&evt.Provider, &evt.Symbol, &up, &evt.Bars, &latency, &evt.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	evt.Up = up == 1
	evt.Latency = time.Duration(latency * float64(time.Millisecond))
	return &evt, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
