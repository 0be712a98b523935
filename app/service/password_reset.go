package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/mailer"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const passwordResetSubject = "Password Reset Request"

// PasswordResetFlow issues reset links by email and consumes them.
type PasswordResetFlow interface {
	RequestReset(ctx context.Context, email string) error
	ConfirmReset(ctx context.Context, uid, token, newPassword string) error
}

type AsyncRunner func(task func())

type PasswordResetOption func(*passwordResetFlow)

func WithAsyncRunner(runner AsyncRunner) PasswordResetOption {
	return func(f *passwordResetFlow) {
		if runner != nil {
			f.asyncRunner = runner
		}
	}
}

type passwordResetFlow struct {
	accounts    accountRepository
	tokens      *ResetTokenGenerator
	mailer      mailer.Mailer
	cfg         *config.Config
	asyncRunner AsyncRunner
}

func NewPasswordResetFlow(
	accounts accountRepository,
	tokens *ResetTokenGenerator,
	mail mailer.Mailer,
	cfg *config.Config,
	opts ...PasswordResetOption,
) PasswordResetFlow {
	flow := &passwordResetFlow{
		accounts: accounts,
		tokens:   tokens,
		mailer:   mail,
		cfg:      cfg,
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(flow)
	}
	return flow
}

func (f *passwordResetFlow) RequestReset(ctx context.Context, email string) error {
	account, err := f.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if account == nil {
		metrics.PasswordResetsTotal.WithLabelValues("request", "unknown_account").Inc()
		return ErrAccountNotFound
	}

	link := fmt.Sprintf("%s/%s/%s/", f.cfg.App.ResetBaseURL, EncodeUID(account.ID), f.tokens.Make(account))
	msg := mailer.Message{
		To:      []string{account.Email},
		Subject: passwordResetSubject,
		Body:    "Click the link to reset your password: " + link,
	}

	accountID := account.ID
	timeout := f.cfg.Mail.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	f.asyncRunner(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := f.mailer.Send(sendCtx, msg); err != nil {
			metrics.MailDeliveriesTotal.WithLabelValues("failed").Inc()
			logrus.WithError(err).WithField("account_id", accountID).Error("Failed to send password reset email")
			return
		}
		metrics.MailDeliveriesTotal.WithLabelValues("sent").Inc()
		logrus.WithField("account_id", accountID).Info("Password reset email sent")
	})

	metrics.PasswordResetsTotal.WithLabelValues("request", "ok").Inc()
	return nil
}

// ConfirmReset validates the new password first, then the link, then the token.
func (f *passwordResetFlow) ConfirmReset(ctx context.Context, uid, token, newPassword string) error {
	if err := f.cfg.Password.Policy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	accountID, err := DecodeUID(uid)
	if err != nil {
		return ErrInvalidLink
	}
	account, err := f.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrInvalidLink
	}

	if !f.tokens.Check(account, token) {
		metrics.PasswordResetsTotal.WithLabelValues("confirm", "invalid_token").Inc()
		return ErrInvalidOrExpiredToken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	replaced, err := f.accounts.ReplacePassword(ctx, account.ID, account.PasswordHash, string(hashedPassword))
	if err != nil {
		return err
	}
	if !replaced {
		// a concurrent confirm consumed the token first
		metrics.PasswordResetsTotal.WithLabelValues("confirm", "invalid_token").Inc()
		return ErrInvalidOrExpiredToken
	}

	metrics.PasswordResetsTotal.WithLabelValues("confirm", "ok").Inc()
	return nil
}
