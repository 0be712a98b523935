package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

const (
	insertAccountQuery   = `(?s)INSERT INTO accounts \(email, password_hash, name, is_active, is_staff, is_superuser, last_login, joined_at, updated_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?, \?, \?, \?\)`
	findByEmailQuery     = `(?s)SELECT id, email, password_hash, name, is_active, is_staff, is_superuser, last_login, joined_at, updated_at\s+FROM accounts WHERE email = \?`
	findByIDQuery        = `(?s)SELECT id, email, password_hash, name, is_active, is_staff, is_superuser, last_login, joined_at, updated_at\s+FROM accounts WHERE id = \?`
	replacePasswordQuery = `UPDATE accounts SET password_hash = \?, updated_at = \? WHERE id = \? AND password_hash = \?`
	updateLastLoginQuery = `UPDATE accounts SET last_login = \? WHERE id = \?`
	setActiveQuery       = `UPDATE accounts SET is_active = \?, updated_at = \? WHERE id = \?`
	insertRevokedQuery   = `(?s)INSERT IGNORE INTO revoked_tokens \(jti, account_id, expires_at, revoked_at\)\s+VALUES \(\?, \?, \?, \?\)`
	findRevokedQuery     = `SELECT 1 FROM revoked_tokens WHERE jti = \? LIMIT 1`
	purgeRevokedQuery    = `DELETE FROM revoked_tokens WHERE expires_at < \?`
)

var accountColumns = []string{
	"id",
	"email",
	"password_hash",
	"name",
	"is_active",
	"is_staff",
	"is_superuser",
	"last_login",
	"joined_at",
	"updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { _ = db.Close() }
}

func TestAccountRepository_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewAccountRepository(db)
	now := time.Now()
	account := &entity.Account{
		Email:        "user@example.com",
		PasswordHash: "hash",
		Name:         "User",
		IsActive:     true,
		JoinedAt:     now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(insertAccountQuery).
		WithArgs(
			account.Email,
			account.PasswordHash,
			account.Name,
			true,
			false,
			false,
			account.LastLogin,
			account.JoinedAt,
			account.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(7, 1))

	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if account.ID != 7 {
		t.Fatalf("expected ID 7, got %d", account.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewAccountRepository(db)
	mock.ExpectExec(insertAccountQuery).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'user@example.com' for key 'accounts.email'"})

	err := repo.Create(context.Background(), &entity.Account{Email: "user@example.com"})
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_CreatePropagatesOtherErrors(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewAccountRepository(db)
	mock.ExpectExec(insertAccountQuery).WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &entity.Account{Email: "user@example.com"})
	if err == nil || errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected raw error, got %v", err)
	}
}

func TestAccountRepository_FindByEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewAccountRepository(db)
	now := time.Now()

	mock.ExpectQuery(findByEmailQuery).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows(accountColumns).AddRow(
			uint64(1),
			"user@example.com",
			"hash",
			"User",
			true,
			true,
			false,
			sql.NullTime{Valid: false},
			now,
			now,
		))

	account, err := repo.FindByEmail(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if account == nil || account.ID != 1 || account.Name != "User" {
		t.Fatalf("unexpected account: %+v", account)
	}
	if !account.IsStaff || account.IsSuperuser {
		t.Fatalf("unexpected permissions: %+v", account.Permissions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_FindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewAccountRepository(db)
	mock.ExpectQuery(findByIDQuery).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	account, err := repo.FindByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if account != nil {
		t.Fatalf("expected nil account, got %+v", account)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_Updates(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewAccountRepository(db)
	now := time.Now()

	mock.ExpectExec(updateLastLoginQuery).
		WithArgs(now, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setActiveQuery).
		WithArgs(false, sqlmock.AnyArg(), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateLastLogin(context.Background(), 1, now); err != nil {
		t.Fatalf("update last login failed: %v", err)
	}
	if err := repo.SetActive(context.Background(), 1, false); err != nil {
		t.Fatalf("set active failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_ReplacePassword(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewAccountRepository(db)

	mock.ExpectExec(replacePasswordQuery).
		WithArgs("new-hash", sqlmock.AnyArg(), uint64(1), "old-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(replacePasswordQuery).
		WithArgs("other-hash", sqlmock.AnyArg(), uint64(1), "old-hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	replaced, err := repo.ReplacePassword(context.Background(), 1, "old-hash", "new-hash")
	if err != nil || !replaced {
		t.Fatalf("expected first replace to succeed, got %v %v", replaced, err)
	}

	replaced, err = repo.ReplacePassword(context.Background(), 1, "old-hash", "other-hash")
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if replaced {
		t.Fatalf("expected stale hash to leave the row untouched")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_ReplacePasswordError(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewAccountRepository(db)
	mock.ExpectExec(replacePasswordQuery).
		WithArgs("new-hash", sqlmock.AnyArg(), uint64(1), "old-hash").
		WillReturnError(errors.New("connection reset"))

	if _, err := repo.ReplacePassword(context.Background(), 1, "old-hash", "new-hash"); err == nil {
		t.Fatalf("expected error")
	}
}
