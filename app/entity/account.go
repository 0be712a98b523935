package entity

import (
	"database/sql"
	"time"
)

type Permissions struct {
	IsStaff     bool
	IsSuperuser bool
}

type Account struct {
	ID           uint64
	Email        string
	PasswordHash string
	Name         string
	IsActive     bool
	Permissions
	LastLogin sql.NullTime
	JoinedAt  time.Time
	UpdatedAt time.Time
}

type RevokedToken struct {
	JTI       string
	AccountID uint64
	ExpiresAt time.Time
	RevokedAt time.Time
}
