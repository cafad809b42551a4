package domain

import (
	"time"

	"github.com/google/uuid"
)

const DefaultPrompt = "send me anonymous messages!"

type User struct {
	ID                uuid.UUID  `json:"_id"`
	Username          string     `json:"username"`
	Email             *string    `json:"email,omitempty"`
	PasswordHash      string     `json:"-"`
	Prompt            string     `json:"prompt"`
	AvatarURL         *string    `json:"profilePictureUrl"`
	AvatarKey         *string    `json:"-"`
	ResetTokenHash    *string    `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// UserSummary is the shape returned by register and login.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}

// PublicProfile is what visitors of a share link see.
type PublicProfile struct {
	Username  string  `json:"username"`
	Prompt    string  `json:"prompt"`
	AvatarURL *string `json:"profilePictureUrl"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{Username: u.Username, Prompt: u.Prompt, AvatarURL: u.AvatarURL}
}
