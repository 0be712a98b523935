package types

import (
	"strings"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/validation"

	"github.com/labstack/echo/v4"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

func NewRegisterRequestFromContext(ctx echo.Context) (*RegisterRequest, error) {
	var body RegisterRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	return validation.Struct(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	var body LoginRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validation.Struct(r)
}

type LogoutRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

func NewLogoutRequestFromContext(ctx echo.Context) (*LogoutRequest, error) {
	var body LogoutRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *LogoutRequest) Validate() error {
	return validation.Struct(r)
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

func NewRefreshRequestFromContext(ctx echo.Context) (*RefreshRequest, error) {
	var body RefreshRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *RefreshRequest) Validate() error {
	return validation.Struct(r)
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func NewPasswordResetRequestFromContext(ctx echo.Context) (*PasswordResetRequest, error) {
	var body PasswordResetRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *PasswordResetRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validation.Struct(r)
}

type PasswordResetConfirmRequest struct {
	UID         string `json:"uid" validate:"required"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// NewPasswordResetConfirmRequestFromContext takes uid and token from the path
// and the new password from the body.
func NewPasswordResetConfirmRequestFromContext(ctx echo.Context) (*PasswordResetConfirmRequest, error) {
	var body PasswordResetConfirmRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.UID = ctx.Param("uid")
	body.Token = ctx.Param("token")

	return &body, nil
}

func (r *PasswordResetConfirmRequest) Validate() error {
	return validation.Struct(r)
}

type AccountResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func NewAccountResponse(account *entity.Account) AccountResponse {
	return AccountResponse{Email: account.Email, Name: account.Name}
}

type LoginResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    AccountResponse `json:"user"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
