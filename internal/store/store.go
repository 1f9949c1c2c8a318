// Package store persists accepted leads. Two backends exist: an embedded
// SQLite file for single-machine runs and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/matlycreative/seo-prospects/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	City   string `json:"city,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the lead persistence interface.
type Store interface {
	// AppendLead records one accepted lead.
	AppendLead(ctx context.Context, row model.LeadRow) error

	// AppendLeads bulk-records a batch and returns the row count written.
	AppendLeads(ctx context.Context, rows []model.LeadRow) (int64, error)

	// ListLeads returns persisted leads, newest first.
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a store for the given driver ("sqlite" or "postgres").
// poolCfg tunes the Postgres connection pool; the SQLite backend ignores
// it. nil keeps the pool defaults.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
