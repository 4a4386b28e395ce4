// Package querylog reads executed statements from a Redshift cluster's
// system views so their lineage can be extracted after the fact.
package querylog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// DefaultPort is the Redshift listener port.
const DefaultPort = 5439

// Config holds the cluster connection settings.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a key=value connection string.
func (c Config) DSN() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "require"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, c.Database, sslmode)
	if c.Username != "" {
		dsn += fmt.Sprintf(" user=%s", c.Username)
	}
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}
	return dsn
}

// Query is one executed statement reassembled from its text chunks.
type Query struct {
	ID        int64
	StartTime time.Time
	Text      string
}

// Filter narrows which queries are read.
type Filter struct {
	// Since drops queries started before it. Zero means no lower bound.
	Since time.Time
	// Limit caps the number of queries. Zero means no cap.
	Limit int
}

// Client reads the query log.
type Client struct {
	db     *sql.DB
	logger *slog.Logger
}

// Connect opens a connection to the cluster.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("connecting to redshift", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open redshift connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping redshift: %w", err)
	}
	return NewWithDB(db, logger), nil
}

// NewWithDB wraps an existing connection.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{db: db, logger: logger}
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// recentSQL selects the newest successful statements in the window; the
// outer query returns their text chunks oldest first.
const recentSQL = `
WITH recent AS (
  SELECT h.query_id, h.start_time
  FROM sys_query_history h
  WHERE h.status = 'success'
    AND h.query_type IN ('SELECT', 'INSERT', 'DELETE', 'CTAS', 'DDL')
    AND h.start_time >= $1%s
)
SELECT r.query_id, r.start_time, t.sequence, t.text
FROM recent r
JOIN sys_query_text t ON t.query_id = r.query_id
ORDER BY r.start_time, r.query_id, t.sequence`

// queriesSQL returns the query for the newest limit statements, or every
// statement when limit is not positive.
func queriesSQL(limit int) string {
	if limit <= 0 {
		return fmt.Sprintf(recentSQL, "")
	}
	return fmt.Sprintf(recentSQL, fmt.Sprintf("\n  ORDER BY h.start_time DESC, h.query_id DESC\n  LIMIT %d", limit))
}

// Queries returns the most recent successful statements, at most f.Limit
// of them, in start order. Each statement's text is stored in
// sequence-numbered chunks, which are joined here.
func (c *Client) Queries(ctx context.Context, f Filter) ([]Query, error) {
	if c.db == nil {
		return nil, errors.New("database connection not established")
	}
	since := f.Since
	if since.IsZero() {
		since = time.Unix(0, 0).UTC()
	}

	rows, err := c.db.QueryContext(ctx, queriesSQL(f.Limit), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query sys_query_text: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Query
	var text strings.Builder
	flush := func() {
		if len(out) > 0 {
			out[len(out)-1].Text = strings.TrimRight(text.String(), " \t\r\n")
		}
		text.Reset()
	}
	for rows.Next() {
		var id int64
		var start time.Time
		var seq int
		var chunk string
		if err := rows.Scan(&id, &start, &seq, &chunk); err != nil {
			return nil, fmt.Errorf("failed to scan query text: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			flush()
			out = append(out, Query{ID: id, StartTime: start})
		}
		text.WriteString(chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query text: %w", err)
	}
	flush()

	c.logger.Debug("read query log", slog.Int("queries", len(out)))
	return out, nil
}

// Failure is a query whose text could not be analysed.
type Failure struct {
	QueryID int64
	Err     error
}

func (f Failure) Error() string {
	return fmt.Sprintf("query %d: %v", f.QueryID, f.Err)
}

// SourceName is the context name recorded for a logged query.
func SourceName(id int64) string {
	return fmt.Sprintf("query:%d", id)
}

// Extract computes the lineage of every query with up to concurrency
// workers. Records come back in query order; queries that fail to parse
// are reported as failures and skipped.
func Extract(ctx context.Context, queries []Query, opts report.Options, concurrency int) ([]lineage.Info, []Failure, error) {
	if err := report.ValidatePatterns(opts.Exclude); err != nil {
		return nil, nil, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([][]lineage.Info, len(queries))
	errs := make([]error, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, q := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o := opts
			o.SourceName = SourceName(q.ID)
			res, err := report.Extract(q.Text, o)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = res.Infos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var infos []lineage.Info
	var failures []Failure
	for i, q := range queries {
		if errs[i] != nil {
			failures = append(failures, Failure{QueryID: q.ID, Err: errs[i]})
			continue
		}
		infos = append(infos, results[i]...)
	}
	return infos, failures, nil
}
