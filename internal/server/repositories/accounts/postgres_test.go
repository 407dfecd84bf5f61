package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const createQ = `(?s)^INSERT\s+INTO\s+accounts\s*\(id,\s*username,\s*password_hash,\s*email\)\s*SELECT\s+COALESCE\(MAX\(id\),\s*0\)\s*\+\s*1,\s*\$1,\s*\$2,\s*\$3\s+FROM\s+accounts\s+RETURNING\s+id\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(createQ).
		WithArgs("alice", "hash", "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	got, err := repo.Create(context.Background(), &models.Account{UserName: "alice", PasswordHash: "hash", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 3 || got.UserName != "alice" {
		t.Fatalf("unexpected account: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(createQ).
		WithArgs("alice", "hash", "a@b.c").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.Account{UserName: "alice", PasswordHash: "hash", Email: "a@b.c"})
	if !errors.Is(err, common.ErrorAlreadyExist) {
		t.Fatalf("want ErrorAlreadyExist, got %v", err)
	}
}

func TestCreate_RetriesIDCollision(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(createQ).
		WithArgs("bob", "hash", "bob@example.com").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_pkey"})
	mock.ExpectQuery(createQ).
		WithArgs("bob", "hash", "bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	got, err := repo.Create(context.Background(), &models.Account{UserName: "bob", PasswordHash: "hash", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 5 {
		t.Fatalf("want id 5, got %d", got.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_IDCollisionGivesUp(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	for attempt := 0; attempt < createAttempts; attempt++ {
		mock.ExpectQuery(createQ).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_pkey"})
	}

	_, err := repo.Create(context.Background(), &models.Account{UserName: "bob"})
	if err == nil {
		t.Fatal("expected an error after repeated id collisions")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(createQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{UserName: "alice"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestCreateWithID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+accounts.*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*ON\s+CONFLICT\s+\(id\)\s+DO\s+NOTHING\s*$`
	mock.ExpectExec(q).WithArgs(int64(0), "admin", "h", "root@x.io").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(0), "admin", "h", "root@x.io").WillReturnResult(sqlmock.NewResult(0, 0))

	a := &models.Account{ID: 0, UserName: "admin", PasswordHash: "h", Email: "root@x.io"}
	created, err := repo.CreateWithID(context.Background(), a)
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	created, err = repo.CreateWithID(context.Background(), a)
	if err != nil || created {
		t.Fatalf("second insert: created=%v err=%v", created, err)
	}
}

func TestGetIDByUserName(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^SELECT id FROM accounts WHERE username = \$1$`
	mock.ExpectQuery(q).WithArgs("alice").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	id, err := repo.GetIDByUserName(context.Background(), "alice")
	if err != nil || id != 7 {
		t.Fatalf("got id=%d err=%v", id, err)
	}
	if _, err := repo.GetIDByUserName(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestGetPasswordHashAndEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT password_hash FROM accounts WHERE id = \$1$`).
		WithArgs(int64(2)).WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow("h2"))
	mock.ExpectQuery(`^SELECT email FROM accounts WHERE id = \$1$`).
		WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	h, err := repo.GetPasswordHash(context.Background(), 2)
	if err != nil || h != "h2" {
		t.Fatalf("got %q %v", h, err)
	}
	if _, err := repo.GetEmail(context.Background(), 99); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^DELETE FROM accounts WHERE id = \$1$`
	mock.ExpectExec(q).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 4); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), 5); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestListUserNamesAndIDs(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT username FROM accounts ORDER BY id$`).
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("admin").AddRow("alice"))
	mock.ExpectQuery(`^SELECT id FROM accounts WHERE id <> 0 ORDER BY id$`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	names, err := repo.ListUserNames(context.Background())
	if err != nil || len(names) != 2 || names[1] != "alice" {
		t.Fatalf("names=%v err=%v", names, err)
	}
	ids, err := repo.ListIDs(context.Background())
	if err != nil || len(ids) != 2 || ids[0] != 1 {
		t.Fatalf("ids=%v err=%v", ids, err)
	}
}
