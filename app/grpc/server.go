package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/app/types"
	"github.com/vibast-solutions/ms-go-accounts/app/validation"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtectedMethods lists the calls that need an access token.
var ProtectedMethods = []string{
	FullMethod("Logout"),
	FullMethod("Profile"),
}

var _ AccountServiceServer = (*AccountServer)(nil)

type AccountServer struct {
	accounts           service.AccountService
	revealUnknownEmail bool
}

func NewAccountServer(accounts service.AccountService, revealUnknownEmail bool) *AccountServer {
	return &AccountServer{accounts: accounts, revealUnknownEmail: revealUnknownEmail}
}

func (s *AccountServer) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req types.RegisterRequest
	if err := decodeAndValidate(in, &req, req.Validate); err != nil {
		logrus.WithField("email", req.Email).Debug("Register validation failed (grpc)")
		return nil, err
	}

	logrus.WithField("email", req.Email).Info("Register request received (grpc)")
	account, err := s.accounts.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountExists):
			logrus.WithField("email", req.Email).Warn("Register failed: account already exists (grpc)")
			return nil, status.Error(codes.AlreadyExists, "user with this email already exists.")
		case errors.Is(err, service.ErrWeakPassword), errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrNameRequired), errors.Is(err, service.ErrNameTooLong):
			logrus.WithField("email", req.Email).Warn("Register failed: invalid input (grpc)")
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	logrus.WithFields(logrus.Fields{
		"account_id": account.ID,
		"email":      account.Email,
	}).Info("Account registered (grpc)")

	return encode(types.NewAccountResponse(account))
}

func (s *AccountServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req types.LoginRequest
	if err := decodeAndValidate(in, &req, req.Validate); err != nil {
		logrus.WithField("email", req.Email).Debug("Login validation failed (grpc)")
		return nil, err
	}

	logrus.WithField("email", req.Email).Info("Login request received (grpc)")
	result, err := s.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials (grpc)")
			return nil, status.Error(codes.Unauthenticated, "invalid credentials")
		}
		if errors.Is(err, service.ErrAccountInactive) {
			logrus.WithField("email", req.Email).Warn("Login failed: account inactive (grpc)")
			return nil, status.Error(codes.PermissionDenied, "account is inactive")
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	logrus.WithField("account_id", result.Account.ID).Info("Login successful (grpc)")
	return encode(types.LoginResponse{
		Access:  result.Access,
		Refresh: result.Refresh,
		User:    types.NewAccountResponse(result.Account),
	})
}

func (s *AccountServer) Logout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	accountID, ok := AccountIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	var req types.LogoutRequest
	if err := decodeAndValidate(in, &req, req.Validate); err != nil {
		logrus.WithField("account_id", accountID).Debug("Logout validation failed (grpc)")
		return nil, err
	}

	logrus.WithField("account_id", accountID).Info("Logout request received (grpc)")
	if err := s.accounts.Logout(ctx, accountID, req.Refresh); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			logrus.WithField("account_id", accountID).Warn("Logout failed: invalid refresh token (grpc)")
			return nil, status.Error(codes.InvalidArgument, "Invalid token.")
		}
		logrus.WithError(err).WithField("account_id", accountID).Error("Logout failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	logrus.WithField("account_id", accountID).Info("Logout successful (grpc)")
	return encode(types.DetailResponse{Detail: "Successfully logged out."})
}

func (s *AccountServer) RefreshToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req types.RefreshRequest
	if err := decodeAndValidate(in, &req, req.Validate); err != nil {
		logrus.Debug("Refresh token validation failed (grpc)")
		return nil, err
	}

	access, err := s.accounts.Refresh(ctx, req.Refresh)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			logrus.Warn("Refresh token failed: invalid or revoked token (grpc)")
			return nil, status.Error(codes.Unauthenticated, "Invalid token.")
		}
		logrus.WithError(err).Error("Refresh token failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return encode(types.RefreshResponse{Access: access})
}

func (s *AccountServer) Profile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, ok := AccountIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	account, err := s.accounts.Profile(ctx, accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			return nil, status.Error(codes.NotFound, "account not found")
		}
		logrus.WithError(err).WithField("account_id", accountID).Error("Profile failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return encode(types.NewAccountResponse(account))
}

func (s *AccountServer) RequestPasswordReset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req types.PasswordResetRequest
	if err := decodeAndValidate(in, &req, req.Validate); err != nil {
		logrus.Debug("Password reset validation failed (grpc)")
		return nil, err
	}

	logrus.WithField("email", req.Email).Info("Password reset requested (grpc)")
	if err := s.accounts.RequestPasswordReset(ctx, req.Email); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			logrus.WithField("email", req.Email).Debug("Password reset requested for unknown email (grpc)")
			if s.revealUnknownEmail {
				return nil, status.Error(codes.NotFound, "User with this email cannot be found.")
			}
			return encode(types.DetailResponse{Detail: "Password reset link has been sent to your email."})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Password reset request failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return encode(types.DetailResponse{Detail: "Password reset link has been sent to your email."})
}

func (s *AccountServer) ConfirmPasswordReset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req types.PasswordResetConfirmRequest
	if err := decodeAndValidate(in, &req, req.Validate); err != nil {
		logrus.Debug("Password reset confirm validation failed (grpc)")
		return nil, err
	}

	err := s.accounts.ConfirmPasswordReset(ctx, req.UID, req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			logrus.Warn("Password reset confirm failed: weak password (grpc)")
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, service.ErrInvalidLink):
			logrus.Warn("Password reset confirm failed: invalid link (grpc)")
			return nil, status.Error(codes.InvalidArgument, "Invalid link or user does not exist.")
		case errors.Is(err, service.ErrInvalidOrExpiredToken):
			logrus.Warn("Password reset confirm failed: invalid or expired token (grpc)")
			return nil, status.Error(codes.InvalidArgument, "Invalid or expired token.")
		}
		logrus.WithError(err).Error("Password reset confirm failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	logrus.Info("Password reset successful (grpc)")
	return encode(types.DetailResponse{Detail: "Password reset successful."})
}

func decodeAndValidate(in *structpb.Struct, dst any, validate func() error) error {
	if err := types.DecodeStruct(in, dst); err != nil {
		return status.Error(codes.InvalidArgument, "invalid request body")
	}
	if err := validate(); err != nil {
		var fieldErrors validation.FieldErrors
		if errors.As(err, &fieldErrors) {
			return status.Error(codes.InvalidArgument, fieldErrors.Error())
		}
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := types.EncodeStruct(v)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode grpc response")
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}
