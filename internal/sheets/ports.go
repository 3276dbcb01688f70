package sheets

import (
	"context"

	"billbook/internal/core"
)

// Ports for outbound adapters.
type (
	// BillMirror keeps a copy of the bills table outside the store. Every
	// method is idempotent so events can be replayed after a redelivery.
	BillMirror interface {
		// EnsureHeader writes the header row when the sheet does not have it.
		EnsureHeader(ctx context.Context) error
		// Upsert writes b, replacing the row that carries the same id.
		Upsert(ctx context.Context, b core.Bill) error
		// Remove deletes the row of id. Unknown ids are ignored.
		Remove(ctx context.Context, id int64) error
		// ReplaceAll rewrites the mirror so it holds exactly bills.
		ReplaceAll(ctx context.Context, bills []core.Bill) error
	}
)

// BillReader is implemented by mirrors that can report their contents,
// letting a reconciler skip rewrites when nothing drifted.
type BillReader interface {
	List(ctx context.Context) ([]core.Bill, error)
}
