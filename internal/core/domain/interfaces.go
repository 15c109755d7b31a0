package domain

//go:generate mockgen -source=interfaces.go -destination=../../mocks/mock_repositories.go -package=mocks

import (
	"context"
)

// UserRepository handles the persistent identity
type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfilePic(ctx context.Context, id, pic string) (*User, error)
	// FindUsersExcept lists every user but the caller, for the sidebar.
	FindUsersExcept(ctx context.Context, id string) ([]User, error)
}

// MessageRepository is the durability boundary for direct messages.
type MessageRepository interface {
	// Save assigns id and createdAt and commits the record.
	Save(ctx context.Context, draft DraftMessage) (Message, error)
	// FindHistory returns the conversation between two users, oldest first.
	FindHistory(ctx context.Context, userA, userB string) ([]Message, error)
}
