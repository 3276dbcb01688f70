package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"billbook/internal/core"
	"billbook/internal/log"

	_ "modernc.org/sqlite"
)

// BillStore is the persistence contract shared by the SQLite and in-memory
// backends.
type BillStore interface {
	Insert(ctx context.Context, in core.BillInput) (int64, error)
	ListAll(ctx context.Context) ([]core.Bill, error)
	Replace(ctx context.Context, id int64, in core.BillInput) error
	DeleteByID(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ BillStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// The driver serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newRepository(db), nil
}

func newRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return wrapErr("ping", r.db.PingContext(ctx))
}

// Insert stores a new bill and returns the id assigned by SQLite.
func (r *SQLiteRepository) Insert(ctx context.Context, in core.BillInput) (int64, error) {
	id, err := r.queries.InsertBill(ctx, InsertBillParams{
		Date:         in.Date.String(),
		CustomerName: in.CustomerName,
		Product:      in.Product,
		Quantity:     in.Quantity,
		BasePrice:    in.BasePrice,
		TotalPrice:   in.TotalPrice,
	})
	if err != nil {
		return 0, wrapErr("insert bill", err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentStorage).InfoContext(ctx, "Bill saved to SQLite",
		log.NewFields().WithOperation(log.OpCreate).
			WithBill(id, in.Date.String(), in.CustomerName, in.Product, in.Quantity, in.TotalPrice).ToSlice()...)

	return id, nil
}

// ListAll returns every stored bill in table order.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.queries.ListBills(ctx)
	if err != nil {
		return nil, wrapErr("list bills", err)
	}

	bills := make([]core.Bill, 0, len(rows))
	for _, row := range rows {
		b, err := row.toBill()
		if err != nil {
			return nil, wrapErr("list bills", err)
		}
		bills = append(bills, b)
	}
	return bills, nil
}

// Replace overwrites every field of the bill with the given id.
func (r *SQLiteRepository) Replace(ctx context.Context, id int64, in core.BillInput) error {
	n, err := r.queries.UpdateBill(ctx, UpdateBillParams{
		Date:         in.Date.String(),
		CustomerName: in.CustomerName,
		Product:      in.Product,
		Quantity:     in.Quantity,
		BasePrice:    in.BasePrice,
		TotalPrice:   in.TotalPrice,
		ID:           id,
	})
	if err != nil {
		return wrapErr("update bill", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	log.FromContext(ctx).WithComponent(log.ComponentStorage).InfoContext(ctx, "Bill updated in SQLite",
		log.FieldBillID, id, log.FieldTotalPrice, in.TotalPrice)
	return nil
}

// DeleteByID removes the bill. Deleting an unknown id is not an error.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	if err := r.queries.DeleteBill(ctx, id); err != nil {
		return wrapErr("delete bill", err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentStorage).InfoContext(ctx, "Bill deleted from SQLite", log.FieldBillID, id)
	return nil
}

func (row BillRow) toBill() (core.Bill, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Bill{}, fmt.Errorf("bill %d: %w", row.ID, err)
	}
	return core.Bill{
		ID:           row.ID,
		Date:         d,
		CustomerName: row.CustomerName,
		Product:      row.Product,
		Quantity:     row.Quantity,
		BasePrice:    row.BasePrice,
		TotalPrice:   row.TotalPrice,
	}, nil
}
