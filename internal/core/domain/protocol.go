package domain

import "time"

const (
	TypePresenceUpdate = "presence.update"
	TypeMessageNew     = "message.new"
)

// PresenceUpdate is pushed to every connection when the roster changes.
type PresenceUpdate struct {
	Type    string   `json:"type"` // "presence.update"
	Version uint64   `json:"version"`
	Online  []string `json:"online"`
}

// MessageRecord is the wire form of a persisted Message.
type MessageRecord struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewMessageRecord(m Message) MessageRecord {
	return MessageRecord{
		ID:         m.ID.String(),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		Image:      m.Image,
		CreatedAt:  m.CreatedAt,
	}
}

// MessageEvent is pushed to the receiver's connections
type MessageEvent struct {
	Type    string        `json:"type"` // "message.new"
	Message MessageRecord `json:"message"`
}

func NewPresenceUpdate(r Roster) PresenceUpdate {
	online := r.Online
	if online == nil {
		online = []string{}
	}
	return PresenceUpdate{Type: TypePresenceUpdate, Version: r.Version, Online: online}
}

func NewMessageEvent(m Message) MessageEvent {
	return MessageEvent{Type: TypeMessageNew, Message: NewMessageRecord(m)}
}
