package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, NewClientFromDB(db).ApplySchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySchema_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = NewClientFromDB(db).ApplySchema(context.Background())
	assert.ErrorContains(t, err, "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaCoversEveryTable(t *testing.T) {
	for _, table := range []string{"users", "patients", "doctors", "appointments", "payment_orders", "payments", "prescriptions", "receipt_notifications"} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
