package service

import (
	"context"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks an email and password pair against the account store.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*entity.Account, error)
}

type credentialVerifier struct {
	accounts  accountFinder
	dummyHash []byte
}

func NewCredentialVerifier(accounts accountFinder) CredentialVerifier {
	// Compared against when the email is unknown so both paths pay for a bcrypt run.
	dummyHash, _ := bcrypt.GenerateFromPassword([]byte("accounts-dummy-password"), bcrypt.DefaultCost)
	return &credentialVerifier{accounts: accounts, dummyHash: dummyHash}
}

func (v *credentialVerifier) Verify(ctx context.Context, email, password string) (*entity.Account, error) {
	account, err := v.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if account == nil {
		_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	return account, nil
}
