// Package board abstracts the external record board the pipeline writes
// accepted leads into. A record is a free-form text document owned by the
// board's human users; the pipeline only ever rewrites it through the
// header-merge algorithm, never wholesale.
package board

import "context"

// Record is one board entry.
type Record struct {
	ID    string
	Title string
	Text  string
}

// Update carries the record fields to change; nil fields are left untouched.
type Update struct {
	Title *string
	Text  *string
}

// Board is implemented per backend.
type Board interface {
	// BlankRecords returns up to limit records whose header has neither a
	// company nor a website filled in, in board order.
	BlankRecords(ctx context.Context, limit int) ([]Record, error)

	// EnsureBlanks tops the board up so at least need blank records exist.
	EnsureBlanks(ctx context.Context, need int) error

	// Update applies the non-nil fields of upd to one record.
	Update(ctx context.Context, id string, upd Update) error
}
