// Package state persists extracted lineage in SQLite so that runs over
// many scripts can be queried together.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrNotOpen is returned when the store has no database connection.
	ErrNotOpen = errors.New("database not opened")
	// ErrRunNotFound is returned for an unknown run ID.
	ErrRunNotFound = errors.New("run not found")
)

// Run is one stored extraction.
type Run struct {
	ID         string
	SourceName string
	CreatedAt  time.Time
	Records    int
}

// Edge is a single sink <- source pair of a stored record.
type Edge struct {
	RunID  string
	Sink   string
	Source string
}

// Store is a SQLite-backed lineage store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used to stamp runs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func newStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the database at path and applies pending migrations.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := newStore(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("opened lineage store", slog.String("path", path))
	return s, nil
}

// NewWithDB wraps an existing connection. Migrations are not applied.
func NewWithDB(db *sql.DB, opts ...Option) *Store {
	return newStore(db, opts...)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores infos as one run and returns it.
func (s *Store) SaveRun(ctx context.Context, sourceName string, infos []lineage.Info) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	run := &Run{
		ID:         uuid.New().String(),
		SourceName: sourceName,
		CreatedAt:  s.now().UTC(),
		Records:    len(infos),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source_name, created_at) VALUES (?, ?, ?)`,
		run.ID, run.SourceName, run.CreatedAt.Format(timeLayout)); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	for seq, info := range infos {
		if err := insertRecord(ctx, tx, run.ID, seq, info); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Debug("saved lineage run",
		slog.String("run", run.ID),
		slog.String("source", sourceName),
		slog.Int("records", len(infos)))
	return run, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, runID string, seq int, info lineage.Info) error {
	var name sql.NullString
	var startLine, startPos, stopLine, stopPos sql.NullInt64
	if info.Context != nil {
		if info.Context.SourceName != nil {
			name = sql.NullString{String: *info.Context.SourceName, Valid: true}
		}
		if p := info.Context.PositionInSource; p != nil {
			startLine = sql.NullInt64{Int64: int64(p.Start.Line), Valid: true}
			startPos = sql.NullInt64{Int64: int64(p.Start.PositionInLine), Valid: true}
			stopLine = sql.NullInt64{Int64: int64(p.Stop.Line), Valid: true}
			stopPos = sql.NullInt64{Int64: int64(p.Stop.PositionInLine), Valid: true}
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO records (run_id, seq, source_name, start_line, start_pos, stop_line, stop_pos)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, seq, name, startLine, startPos, stopLine, stopPos)
	if err != nil {
		return fmt.Errorf("failed to insert record %d: %w", seq, err)
	}
	recordID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get record id: %w", err)
	}

	for _, sink := range info.Sinks() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_sinks (record_id, sink) VALUES (?, ?)`, recordID, sink); err != nil {
			return fmt.Errorf("failed to insert sink %s: %w", sink, err)
		}
		for _, src := range info.Lineage[sink].Sorted() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO edges (record_id, sink, source) VALUES (?, ?, ?)`, recordID, sink, src); err != nil {
				return fmt.Errorf("failed to insert edge %s <- %s: %w", sink, src, err)
			}
		}
	}
	for _, src := range info.Sources.Sorted() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_sources (record_id, name) VALUES (?, ?)`, recordID, src); err != nil {
			return fmt.Errorf("failed to insert source %s: %w", src, err)
		}
	}
	return nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.source_name, r.created_at, COUNT(rec.id)
		FROM runs r
		LEFT JOIN records rec ON rec.run_id = r.id
		GROUP BY r.id, r.source_name, r.created_at
		ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var run Run
		var created string
		if err := rows.Scan(&run.ID, &run.SourceName, &created, &run.Records); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("invalid timestamp for run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run returns a single run.
func (s *Store) Run(ctx context.Context, runID string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	var run Run
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.source_name, r.created_at, COUNT(rec.id)
		FROM runs r
		LEFT JOIN records rec ON rec.run_id = r.id
		WHERE r.id = ?
		GROUP BY r.id, r.source_name, r.created_at`, runID).
		Scan(&run.ID, &run.SourceName, &created, &run.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("invalid timestamp for run %s: %w", run.ID, err)
	}
	return &run, nil
}

type recordRow struct {
	id   int64
	info lineage.Info
}

// LoadRun returns the records of a run in the order they were saved.
func (s *Store) LoadRun(ctx context.Context, runID string) ([]lineage.Info, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	recs, err := s.records(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]lineage.Info, 0, len(recs))
	for _, rec := range recs {
		if err := s.fillRecord(ctx, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec.info)
	}
	return out, nil
}

func (s *Store) records(ctx context.Context, runID string) ([]recordRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_name, start_line, start_pos, stop_line, stop_pos
		FROM records WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []recordRow
	for rows.Next() {
		var rec recordRow
		var name sql.NullString
		var startLine, startPos, stopLine, stopPos sql.NullInt64
		if err := rows.Scan(&rec.id, &name, &startLine, &startPos, &stopLine, &stopPos); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.info = lineage.NewEmpty()
		var ctxInfo lineage.Context
		if name.Valid {
			n := name.String
			ctxInfo.SourceName = &n
		}
		if startLine.Valid && stopLine.Valid {
			ctxInfo.PositionInSource = &lineage.SourcePosition{
				Start: lineage.TextPosition{Line: int(startLine.Int64), PositionInLine: int(startPos.Int64)},
				Stop:  lineage.TextPosition{Line: int(stopLine.Int64), PositionInLine: int(stopPos.Int64)},
			}
		}
		if ctxInfo.SourceName != nil || ctxInfo.PositionInSource != nil {
			rec.info = rec.info.WithContext(ctxInfo)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) fillRecord(ctx context.Context, rec *recordRow) error {
	sinks, err := s.names(ctx, `SELECT sink FROM record_sinks WHERE record_id = ?`, rec.id)
	if err != nil {
		return fmt.Errorf("failed to load sinks: %w", err)
	}
	for _, sink := range sinks {
		rec.info.Lineage[sink] = lineage.Set{}
	}

	if err := s.fillEdges(ctx, rec); err != nil {
		return err
	}

	sources, err := s.names(ctx, `SELECT name FROM record_sources WHERE record_id = ?`, rec.id)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	rec.info.Sources = lineage.NewSet(sources...)
	return nil
}

func (s *Store) fillEdges(ctx context.Context, rec *recordRow) error {
	rows, err := s.db.QueryContext(ctx, `SELECT sink, source FROM edges WHERE record_id = ?`, rec.id)
	if err != nil {
		return fmt.Errorf("failed to load edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var sink, src string
		if err := rows.Scan(&sink, &src); err != nil {
			return fmt.Errorf("failed to scan edge: %w", err)
		}
		if _, ok := rec.info.Lineage[sink]; !ok {
			rec.info.Lineage[sink] = lineage.Set{}
		}
		rec.info.Lineage[sink].Add(src)
	}
	return rows.Err()
}

func (s *Store) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// LatestInfos returns the records of the newest run for every source
// name. Older runs of the same source are superseded.
func (s *Store) LatestInfos(ctx context.Context) ([]lineage.Info, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []lineage.Info
	for _, run := range runs {
		if seen[run.SourceName] {
			continue
		}
		seen[run.SourceName] = true
		infos, err := s.LoadRun(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, infos...)
	}
	return out, nil
}

// Edges returns every stored edge that writes or reads table, newest
// run first.
func (s *Store) Edges(ctx context.Context, table string) ([]Edge, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT rec.run_id, e.sink, e.source
		FROM edges e
		JOIN records rec ON rec.id = e.record_id
		JOIN runs r ON r.id = rec.run_id
		WHERE e.sink = ? OR e.source = ?
		ORDER BY r.created_at DESC, rec.seq, e.sink, e.source`, table, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.RunID, &e.Sink, &e.Source); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its records.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	if s.db == nil {
		return ErrNotOpen
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
