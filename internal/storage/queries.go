package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// BillRow mirrors one row of the bills table.
type BillRow struct {
	ID           int64
	Date         string
	CustomerName string
	Product      string
	Quantity     int64
	BasePrice    float64
	TotalPrice   float64
}

const insertBill = `INSERT INTO bills (date, customer_name, product, quantity, base_price, total_price)
VALUES (?, ?, ?, ?, ?, ?)`

type InsertBillParams struct {
	Date         string
	CustomerName string
	Product      string
	Quantity     int64
	BasePrice    float64
	TotalPrice   float64
}

func (q *Queries) InsertBill(ctx context.Context, arg InsertBillParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertBill,
		arg.Date,
		arg.CustomerName,
		arg.Product,
		arg.Quantity,
		arg.BasePrice,
		arg.TotalPrice,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listBills = `SELECT id, date, customer_name, product, quantity, base_price, total_price FROM bills`

func (q *Queries) ListBills(ctx context.Context) ([]BillRow, error) {
	rows, err := q.db.QueryContext(ctx, listBills)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BillRow
	for rows.Next() {
		var i BillRow
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.CustomerName,
			&i.Product,
			&i.Quantity,
			&i.BasePrice,
			&i.TotalPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateBill = `UPDATE bills
SET date = ?, customer_name = ?, product = ?, quantity = ?, base_price = ?, total_price = ?
WHERE id = ?`

type UpdateBillParams struct {
	Date         string
	CustomerName string
	Product      string
	Quantity     int64
	BasePrice    float64
	TotalPrice   float64
	ID           int64
}

// UpdateBill returns the number of rows changed.
func (q *Queries) UpdateBill(ctx context.Context, arg UpdateBillParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBill,
		arg.Date,
		arg.CustomerName,
		arg.Product,
		arg.Quantity,
		arg.BasePrice,
		arg.TotalPrice,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBill = `DELETE FROM bills WHERE id = ?`

func (q *Queries) DeleteBill(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteBill, id)
	return err
}
