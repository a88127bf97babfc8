// Package domain contains core domain types for the ReplyCraft application.
package domain

import (
	"time"
)

// User represents a registered account.
type User struct {
	UserID       string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Public returns the fields of the user that may be sent to clients.
func (u *User) Public() map[string]string {
	return map[string]string{
		"id":    u.UserID,
		"email": u.Email,
		"name":  u.Name,
	}
}
