// Package postgres mirrors company summaries into Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
)

// DefaultTable receives summary rows when no table is configured.
const DefaultTable = "company_summaries"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SummaryStoreConfig controls the Postgres connection pool used for summary rows.
type SummaryStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// SummaryStore upserts company records keyed by URL. It satisfies
// crawler.Ledger so it can sit beside the CSV and docx ledgers.
type SummaryStore struct {
	pool  execCloser
	table string
}

// NewSummaryStore creates a Postgres-backed SummaryStore using the provided config.
func NewSummaryStore(ctx context.Context, cfg SummaryStoreConfig) (*SummaryStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
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
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SummaryStore{pool: pool, table: table}, nil
}

// NewSummaryStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewSummaryStoreWithPool(pool execCloser, table string) (*SummaryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &SummaryStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *SummaryStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the summary table when it does not exist.
func (s *SummaryStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	url           TEXT PRIMARY KEY,
	company_name  TEXT NOT NULL,
	long_summary  TEXT NOT NULL,
	short_summary TEXT NOT NULL,
	cache_file    TEXT NOT NULL,
	processed_at  TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create summary table: %w", err)
	}
	return nil
}

// Append upserts the record.
func (s *SummaryStore) Append(ctx context.Context, record crawler.CompanyRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("summary store is not configured")
	}
	if record.URL == "" {
		return fmt.Errorf("record url is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	url,
	company_name,
	long_summary,
	short_summary,
	cache_file,
	processed_at
) VALUES (
	$1,$2,$3,$4,$5,$6
)
ON CONFLICT (url) DO UPDATE SET
	company_name = EXCLUDED.company_name,
	long_summary = EXCLUDED.long_summary,
	short_summary = EXCLUDED.short_summary,
	cache_file = EXCLUDED.cache_file,
	processed_at = EXCLUDED.processed_at`, s.table)

	args := []any{
		record.URL,
		record.Name,
		record.LongSummary,
		record.ShortSummary,
		record.CacheFile,
		record.ProcessedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}
