package domain

import (
	"context"
	"time"
)

// User is the application-level identity behind an external auth subject.
type User struct {
	ID        int32      `json:"id"`
	AuthID    string     `json:"authId"`
	AccessURL *string    `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*User, error)
	GetByAuthID(ctx context.Context, authID string) (*User, error)
	// EnsureByAuthID returns the user for the auth subject, creating the row
	// on first sight.
	EnsureByAuthID(ctx context.Context, authID string) (*User, error)
	UpdateAccessURL(ctx context.Context, userID int32, accessURL string) error
}
