package domain

import (
	"time"

	"github.com/google/uuid"
)

const MaxMessageLength = 1000

// Message is an anonymous note in a user's inbox. It deliberately has no sender.
type Message struct {
	ID          uuid.UUID `json:"_id"`
	RecipientID uuid.UUID `json:"recipient"`
	Content     string    `json:"content"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}
