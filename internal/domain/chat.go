package domain

import (
	"strings"
	"time"
)

// Chat is a conversation owned by a single user.
type Chat struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OwnedBy reports whether userID owns the chat.
func (c *Chat) OwnedBy(userID string) bool {
	return userID != "" && c.UserID == userID
}

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one immutable message in a chat.
type Turn struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ImageData string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasImage reports whether the turn carries an inline image that may be
// forwarded to the model. Only user turns qualify.
func (t *Turn) HasImage() bool {
	return t.Role == RoleUser && strings.TrimSpace(t.ImageData) != ""
}
