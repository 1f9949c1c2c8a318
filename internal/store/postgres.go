package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/matlycreative/seo-prospects/internal/db"
	"github.com/matlycreative/seo-prospects/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const insertLeadSQL = `INSERT INTO leads (id, created_at, city, country, company, website) VALUES ($1, $2, $3, $4, $5, $6)`

// buildPoolConfig parses the connection string and applies pool sizing.
// nil poolCfg keeps the defaults.
func buildPoolConfig(connString string, poolCfg *PoolConfig) (*pgxpool.Config, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare the hot insert path on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Prepare(ctx, "insert_lead", insertLeadSQL)
		return eris.Wrap(err, "postgres: prepare insert_lead")
	}
	return pgxCfg, nil
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := buildPoolConfig(connString, poolCfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	city       TEXT NOT NULL,
	country    TEXT NOT NULL,
	company    TEXT NOT NULL,
	website    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_city ON leads(city);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) AppendLead(ctx context.Context, row model.LeadRow) error {
	fillRow(&row)
	_, err := s.pool.Exec(ctx, insertLeadSQL,
		row.ID, row.Timestamp, row.City, row.Country, row.Company, row.Website)
	return eris.Wrap(err, "postgres: insert lead")
}

func (s *PostgresStore) AppendLeads(ctx context.Context, rows []model.LeadRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	copyRows := make([][]any, 0, len(rows))
	for _, row := range rows {
		fillRow(&row)
		copyRows = append(copyRows, []any{
			row.ID, row.Timestamp, row.City, row.Country, row.Company, row.Website,
		})
	}
	return db.CopyFrom(ctx, s.pool, "leads",
		[]string{"id", "created_at", "city", "country", "company", "website"}, copyRows)
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRow, error) {
	query := `SELECT id, created_at, city, country, company, website FROM leads`
	var args []any
	if filter.City != "" {
		query += ` WHERE city = $1`
		args = append(args, filter.City)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += ` OFFSET $` + strconv.Itoa(len(args))
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var out []model.LeadRow
	for rows.Next() {
		var r model.LeadRow
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.City, &r.Country, &r.Company, &r.Website); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate leads")
}
