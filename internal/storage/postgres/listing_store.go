// Package postgres provides Postgres-backed persistence for listing rows.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/car-listing-crawler/internal/crawler"
	"github.com/JakeFAU/car-listing-crawler/internal/dump"
)

// DefaultTable is the listing table shared by schema creation, inserts, dumps and truncation.
const DefaultTable = "car_data"

// FoundColumn holds the server-assigned discovery timestamp.
const FoundColumn = "datetime_found"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for listing rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error)
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
	Ping(context.Context) error
	Close()
}

// ListingStore writes listing rows into Postgres and archives them.
type ListingStore struct {
	pool  pool
	table string
}

// NewListingStore connects to Postgres and verifies the connection.
func NewListingStore(ctx context.Context, cfg Config) (*ListingStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	table, err := resolveTable(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &ListingStore{pool: p, table: table}, nil
}

// NewListingStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewListingStoreWithPool(p pool, table string) (*ListingStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := resolveTable(table)
	if err != nil {
		return nil, err
	}
	return &ListingStore{pool: p, table: table}, nil
}

func resolveTable(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Table returns the listing table name.
func (s *ListingStore) Table() string {
	return s.table
}

// Close releases the underlying pool resources.
func (s *ListingStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the listing table when it does not exist yet.
func (s *ListingStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	url VARCHAR(255),
	title VARCHAR(255),
	price_usd INTEGER,
	odometer INTEGER,
	username VARCHAR(255),
	image_url VARCHAR(255),
	images_count INTEGER,
	car_number VARCHAR(255),
	car_vin VARCHAR(255),
	phone_number BIGINT,
	%s TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, s.table, FoundColumn)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Insert appends records in one COPY; the server fills the discovery timestamp.
func (s *ListingStore) Insert(ctx context.Context, records []crawler.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	src := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		return records[i].Values(), nil
	})
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.table}, crawler.Columns, src)
	if err != nil {
		return 0, fmt.Errorf("insert listings: %w", err)
	}
	return n, nil
}

// Dump archives every current row as one INSERT statement and then empties the
// table. Select and delete share a repeatable-read snapshot, so rows committed
// by someone else mid-dump are neither archived nor deleted. When the archive
// write fails the transaction rolls back and the rows stay.
func (s *ListingStore) Dump(
	ctx context.Context,
	at time.Time,
	archive crawler.ArchiveWriter,
) (result crawler.DumpResult, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return crawler.DumpResult{}, fmt.Errorf("begin dump: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	columns := dumpColumns()
	rows, err := s.snapshot(ctx, tx, columns)
	if err != nil {
		return crawler.DumpResult{}, err
	}

	data, err := dump.Render(s.table, columns, rows)
	if err != nil {
		return crawler.DumpResult{}, fmt.Errorf("render dump: %w", err)
	}
	name := dump.FileName(at)
	uri, err := archive.Put(ctx, name, data)
	if err != nil {
		return crawler.DumpResult{}, fmt.Errorf("archive dump %s: %w", name, err)
	}

	if _, err = tx.Exec(ctx, "DELETE FROM "+s.table); err != nil {
		return crawler.DumpResult{}, fmt.Errorf("clear table %s: %w", s.table, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return crawler.DumpResult{}, fmt.Errorf("commit dump: %w", err)
	}
	return crawler.DumpResult{FileName: name, URI: uri, Rows: len(rows), DumpedAt: at}, nil
}

func (s *ListingStore) snapshot(ctx context.Context, tx pgx.Tx, columns []string) ([][]any, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), s.table)
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return out, nil
}

func dumpColumns() []string {
	cols := make([]string, 0, len(crawler.Columns)+1)
	cols = append(cols, crawler.Columns...)
	return append(cols, FoundColumn)
}
