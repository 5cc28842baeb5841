package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleAuditor  UserRole = "auditor"
	RoleReviewer UserRole = "reviewer"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string // argon2id
	Role         UserRole
	SlackUserID  string // empty if the user has no Slack mapping
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context) ([]*User, error)
}
