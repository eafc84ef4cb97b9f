package domain

import (
	"context"
	"time"
)

// UsersRepository is the durable-storage collaborator behind the ledger. The
// contract is deliberately non-incremental: load everything at startup, save
// the full set after every mutating operation.
type UsersRepository interface {
	GetAllUsers(ctx context.Context) ([]*User, error)
	CreateUser(ctx context.Context, user *User) error
	SaveAllUsers(ctx context.Context, users []*User) error
}

type User struct {
	ID string `json:"id"`

	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	Portfolio Portfolio `json:"portfolio"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
