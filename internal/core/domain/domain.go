package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account known to the persistence layer. Password holds the bcrypt hash.
type User struct {
	ID         string
	FullName   string
	Email      string
	Password   string
	ProfilePic string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewUser(fullName, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.NewString(),
		FullName:  fullName,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  passwordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DraftMessage is what the sender submits, before the store assigns id and createdAt.
type DraftMessage struct {
	SenderID   string
	ReceiverID string
	Text       string
	Image      string
}

func (d DraftMessage) Validate() error {
	if d.SenderID == "" || d.ReceiverID == "" {
		return ErrInvalidUserID
	}
	if strings.TrimSpace(d.Text) == "" && strings.TrimSpace(d.Image) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Message is a persisted direct message. It is never mutated after Save.
type Message struct {
	ID         uuid.UUID
	SenderID   string
	ReceiverID string
	Text       string
	Image      string
	CreatedAt  time.Time
}

// Roster is the derived set of online users at one point in time.
type Roster struct {
	Version uint64
	Online  []string
}

// DeliveryReport summarises one routing attempt.
type DeliveryReport struct {
	MessageID string
	Receiver  string
	Handles   int
	Delivered int
	Failed    int
	Offline   bool
}
