package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/app/types"
	"github.com/vibast-solutions/ms-go-accounts/app/validation"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	msgInvalidBody        = "invalid request body"
	msgInvalidInput       = "Invalid input."
	msgInternal           = "internal server error"
	msgInvalidCredentials = "invalid credentials"
	msgAccountInactive    = "This account is currently inactive. This could be due to pending verification, suspension, or deactivation. For assistance, contact support."
	msgAccountExists      = "user with this email already exists."
	msgInvalidToken       = "Invalid token."
	msgInvalidLink        = "Invalid link or user does not exist."
	msgInvalidOrExpired   = "Invalid or expired token."
	msgUnknownResetEmail  = "User with this email cannot be found."
	msgLoggedOut          = "Successfully logged out."
	msgResetLinkSent      = "Password reset link has been sent to your email."
	msgResetSuccessful    = "Password reset successful."
)

type AccountController struct {
	accounts           service.AccountService
	revealUnknownEmail bool
}

// NewAccountController builds the HTTP handlers. When revealUnknownEmail is
// set, a reset request for an unknown email answers 400 instead of the
// generic success message.
func NewAccountController(accounts service.AccountService, revealUnknownEmail bool) *AccountController {
	return &AccountController{accounts: accounts, revealUnknownEmail: revealUnknownEmail}
}

func (c *AccountController) Register(ctx echo.Context) error {
	req, err := types.NewRegisterRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Register validation failed")
		return validationFailed(ctx, err)
	}

	logrus.WithField("email", req.Email).Info("Register request received")
	account, err := c.accounts.Register(ctx.Request().Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountExists):
			logrus.WithField("email", req.Email).Warn("Register failed: account already exists")
			return fieldError(ctx, "email", msgAccountExists)
		case errors.Is(err, service.ErrWeakPassword):
			logrus.WithField("email", req.Email).Warn("Register failed: weak password")
			return fieldError(ctx, "password", err.Error())
		case errors.Is(err, service.ErrInvalidEmail):
			return fieldError(ctx, "email", "Enter a valid email address.")
		case errors.Is(err, service.ErrNameRequired), errors.Is(err, service.ErrNameTooLong):
			return fieldError(ctx, "name", err.Error())
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: msgInternal})
	}

	logrus.WithFields(logrus.Fields{
		"account_id": account.ID,
		"email":      account.Email,
	}).Info("Account registered")

	return ctx.JSON(http.StatusCreated, types.NewAccountResponse(account))
}

func (c *AccountController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Login validation failed")
		return validationFailed(ctx, err)
	}

	logrus.WithField("email", req.Email).Info("Login request received")
	result, err := c.accounts.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidCredentials})
		}
		if errors.Is(err, service.ErrAccountInactive) {
			logrus.WithField("email", req.Email).Warn("Login failed: account inactive")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgAccountInactive})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: msgInternal})
	}

	logrus.WithField("account_id", result.Account.ID).Info("Login successful")
	return ctx.JSON(http.StatusOK, types.LoginResponse{
		Access:  result.Access,
		Refresh: result.Refresh,
		User:    types.NewAccountResponse(result.Account),
	})
}

func (c *AccountController) Logout(ctx echo.Context) error {
	accountID, ok := ctx.Get(middleware.ContextAccountID).(uint64)
	if !ok {
		logrus.Warn("Logout failed: missing account_id in context")
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Detail: "unauthorized"})
	}

	req, err := types.NewLogoutRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind logout request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("account_id", accountID).Debug("Logout validation failed")
		return validationFailed(ctx, err)
	}

	logrus.WithField("account_id", accountID).Info("Logout request received")
	if err = c.accounts.Logout(ctx.Request().Context(), accountID, req.Refresh); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			logrus.WithField("account_id", accountID).Warn("Logout failed: invalid refresh token")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidToken})
		}
		logrus.WithError(err).WithField("account_id", accountID).Error("Logout failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: msgInternal})
	}

	logrus.WithField("account_id", accountID).Info("Logout successful")
	return ctx.JSON(http.StatusOK, types.DetailResponse{Detail: msgLoggedOut})
}

func (c *AccountController) RefreshToken(ctx echo.Context) error {
	req, err := types.NewRefreshRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind refresh token request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Refresh token validation failed")
		return validationFailed(ctx, err)
	}

	access, err := c.accounts.Refresh(ctx.Request().Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			logrus.Warn("Refresh token failed: invalid or revoked token")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Detail: msgInvalidToken})
		}
		logrus.WithError(err).Error("Refresh token failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: msgInternal})
	}

	logrus.Debug("Refresh token successful")
	return ctx.JSON(http.StatusOK, types.RefreshResponse{Access: access})
}

func (c *AccountController) Profile(ctx echo.Context) error {
	accountID, ok := ctx.Get(middleware.ContextAccountID).(uint64)
	if !ok {
		logrus.Warn("Profile failed: missing account_id in context")
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Detail: "unauthorized"})
	}

	account, err := c.accounts.Profile(ctx.Request().Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			logrus.WithField("account_id", accountID).Warn("Profile failed: account not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Detail: "Not found."})
		}
		logrus.WithError(err).WithField("account_id", accountID).Error("Profile failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: msgInternal})
	}

	return ctx.JSON(http.StatusOK, types.NewAccountResponse(account))
}

func (c *AccountController) RequestPasswordReset(ctx echo.Context) error {
	req, err := types.NewPasswordResetRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind password reset request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Password reset validation failed")
		return validationFailed(ctx, err)
	}

	logrus.WithField("email", req.Email).Info("Password reset requested")
	if err = c.accounts.RequestPasswordReset(ctx.Request().Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			logrus.WithField("email", req.Email).Debug("Password reset requested for unknown email")
			if c.revealUnknownEmail {
				return fieldError(ctx, "email", msgUnknownResetEmail)
			}
			return ctx.JSON(http.StatusOK, types.DetailResponse{Detail: msgResetLinkSent})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Password reset request failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: msgInternal})
	}

	return ctx.JSON(http.StatusOK, types.DetailResponse{Detail: msgResetLinkSent})
}

func (c *AccountController) ConfirmPasswordReset(ctx echo.Context) error {
	req, err := types.NewPasswordResetConfirmRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind password reset confirm request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Password reset confirm validation failed")
		return validationFailed(ctx, err)
	}

	logrus.Info("Password reset confirm received")
	err = c.accounts.ConfirmPasswordReset(ctx.Request().Context(), req.UID, req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			logrus.Warn("Password reset confirm failed: weak password")
			return fieldError(ctx, "new_password", err.Error())
		case errors.Is(err, service.ErrInvalidLink):
			logrus.Warn("Password reset confirm failed: invalid link")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidLink})
		case errors.Is(err, service.ErrInvalidOrExpiredToken):
			logrus.Warn("Password reset confirm failed: invalid or expired token")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidOrExpired})
		}
		logrus.WithError(err).Error("Password reset confirm failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: msgInternal})
	}

	logrus.Info("Password reset successful")
	return ctx.JSON(http.StatusOK, types.DetailResponse{Detail: msgResetSuccessful})
}

func validationFailed(ctx echo.Context, err error) error {
	var fieldErrors validation.FieldErrors
	if errors.As(err, &fieldErrors) {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: msgInvalidInput, Errors: fieldErrors})
	}
	return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: err.Error()})
}

func fieldError(ctx echo.Context, field, message string) error {
	return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Detail: message,
		Errors: map[string]string{field: message},
	})
}
