package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

const accountColumns = `id, email, password_hash, name, is_active, is_staff, is_superuser, last_login, joined_at, updated_at`

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts the account and returns ErrDuplicateEmail when the unique
// index on email rejects it.
func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	query := `
		INSERT INTO accounts (email, password_hash, name, is_active, is_staff, is_superuser, last_login, joined_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		account.Email,
		account.PasswordHash,
		account.Name,
		account.IsActive,
		account.IsStaff,
		account.IsSuperuser,
		account.LastLogin,
		account.JoinedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = uint64(id)
	return nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE email = ?
	`
	return r.findOne(ctx, query, email)
}

func (r *AccountRepository) FindByID(ctx context.Context, id uint64) (*entity.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE id = ?
	`
	return r.findOne(ctx, query, id)
}

// ReplacePassword swaps the hash only while the stored hash still equals
// currentHash. It reports false when another write got there first.
func (r *AccountRepository) ReplacePassword(ctx context.Context, id uint64, currentHash, newHash string) (bool, error) {
	query := `UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ? AND password_hash = ?`
	result, err := r.db.ExecContext(ctx, query, newHash, time.Now(), id, currentHash)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id uint64, lastLogin time.Time) error {
	query := `UPDATE accounts SET last_login = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, lastLogin, id)
	return err
}

func (r *AccountRepository) SetActive(ctx context.Context, id uint64, active bool) error {
	query := `UPDATE accounts SET is_active = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
	return err
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg any) (*entity.Account, error) {
	account := &entity.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Name,
		&account.IsActive,
		&account.IsStaff,
		&account.IsSuperuser,
		&account.LastLogin,
		&account.JoinedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
