package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billbook/internal/core"
)

func newMockRepo(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { db.Close() })
	return newRepository(db), mock
}

func TestInsert_StorageFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO bills").WillReturnError(errors.New("database is locked"))

	_, err := repo.Insert(context.Background(), sampleInput("Ravi", 1, 1))
	require.Error(t, err)

	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "insert bill", se.Op)
	assert.Contains(t, err.Error(), "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_ReturnsLastInsertID(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO bills").
		WithArgs("2024-03-01", "Ravi", "Adai", int64(3), float64(10), float64(30)).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Insert(context.Background(), sampleInput("Ravi", 3, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAll_ScansRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"id", "date", "customer_name", "product", "quantity", "base_price", "total_price"}).
		AddRow(int64(1), "2024-03-01", "Ravi", "Adai", int64(3), 10.0, 30.0).
		AddRow(int64(2), "2024-03-02", "Meena", "Kai Muruku", int64(1), 2.5, 2.5)
	mock.ExpectQuery("SELECT id, date, customer_name").WillReturnRows(rows)

	bills, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.Equal(t, "Meena", bills[1].CustomerName)
	assert.Equal(t, core.NewDate(2024, 3, 2).String(), bills[1].Date.String())
	assert.Equal(t, 2.5, bills[1].TotalPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAll_RejectsMalformedDate(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"id", "date", "customer_name", "product", "quantity", "base_price", "total_price"}).
		AddRow(int64(1), "03/01/2024", "Ravi", "Adai", int64(3), 10.0, 30.0)
	mock.ExpectQuery("SELECT id, date, customer_name").WillReturnRows(rows)

	_, err := repo.ListAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestListAll_QueryFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT id, date, customer_name").WillReturnError(errors.New("no such table: bills"))

	_, err := repo.ListAll(context.Background())
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "list bills", se.Op)
}

func TestReplace_NoRowsIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE bills").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Replace(context.Background(), 99, sampleInput("Ravi", 1, 1))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByID_Failure(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM bills").WithArgs(int64(5)).WillReturnError(errors.New("disk I/O error"))

	err := repo.DeleteByID(context.Background(), 5)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "delete bill", se.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}
