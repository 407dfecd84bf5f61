package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
	"github.com/dmitrijs2005/mousetrap/internal/server/repositories/repomanager"
)

func newSQLMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, repomanager.NewPostgresRepositoryManager()), mock
}

func TestStore_DeleteAccount_Atomic(t *testing.T) {
	s, mock := newSQLMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM dots WHERE account_id = \$1$`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(`^DELETE FROM networks WHERE account_id = \$1$`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE FROM accounts WHERE id = \$1$`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteAccount(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteAccount_RollsBack(t *testing.T) {
	s, mock := newSQLMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM dots`).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(`^DELETE FROM networks`).WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := s.DeleteAccount(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteAccount_Missing(t *testing.T) {
	s, mock := newSQLMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM dots`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE FROM networks`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE FROM accounts`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.DeleteAccount(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestStore_InsertDots_InTransaction(t *testing.T) {
	s, mock := newSQLMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^INSERT INTO dots`).
		WithArgs(int64(1), 5, 6, 7.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.InsertDots(context.Background(), 1, []motion.Dot{{X: 5, Y: 6, V: 7.5}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AccountExists(t *testing.T) {
	s, mock := newSQLMockStore(t)

	q := `^SELECT email FROM accounts WHERE id = \$1$`
	mock.ExpectQuery(q).WithArgs(int64(1)).WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("a@b.c"))
	mock.ExpectQuery(q).WithArgs(int64(2)).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q).WithArgs(int64(3)).WillReturnError(errors.New("down"))

	ok, err := s.AccountExists(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AccountExists(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.AccountExists(context.Background(), 3)
	assert.Error(t, err)
}

func TestStore_InsertAccount(t *testing.T) {
	s, mock := newSQLMockStore(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts`).
		WithArgs("bob", "h", "bob@x.io").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	id, err := s.InsertAccount(context.Background(), "bob", "h", "bob@x.io")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}
