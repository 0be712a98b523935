package service

import "errors"

var (
	ErrAccountExists         = errors.New("account with this email already exists")
	ErrAccountNotFound       = errors.New("account not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrInvalidToken          = errors.New("invalid token")
	ErrInvalidLink           = errors.New("invalid link or user does not exist")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrWeakPassword          = errors.New("password does not meet policy requirements")
	ErrInvalidEmail          = errors.New("enter a valid email address")
	ErrNameRequired          = errors.New("name is required")
	ErrNameTooLong           = errors.New("name must be at most 255 characters")
)
