package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/matlycreative/seo-prospects/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id         TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	city       TEXT NOT NULL,
	country    TEXT NOT NULL,
	company    TEXT NOT NULL,
	website    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_city ON leads(city);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AppendLead(ctx context.Context, row model.LeadRow) error {
	fillRow(&row)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, created_at, city, country, company, website) VALUES (?, ?, ?, ?, ?, ?)`,
		row.ID, row.Timestamp, row.City, row.Country, row.Company, row.Website,
	)
	return eris.Wrap(err, "sqlite: insert lead")
}

func (s *SQLiteStore) AppendLeads(ctx context.Context, rows []model.LeadRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int64
	for _, row := range rows {
		fillRow(&row)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO leads (id, created_at, city, country, company, website) VALUES (?, ?, ?, ?, ?, ?)`,
			row.ID, row.Timestamp, row.City, row.Country, row.Company, row.Website,
		); err != nil {
			return 0, eris.Wrap(err, "sqlite: insert lead batch")
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRow, error) {
	query := `SELECT id, created_at, city, country, company, website FROM leads`
	var args []any
	if filter.City != "" {
		query += ` WHERE city = ?`
		args = append(args, filter.City)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.LeadRow
	for rows.Next() {
		var r model.LeadRow
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.City, &r.Country, &r.Company, &r.Website); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

// fillRow assigns id and timestamp when the caller left them zero.
func fillRow(row *model.LeadRow) {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now().UTC()
	}
}
