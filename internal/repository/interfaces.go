package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/anonbox/internal/domain"
)

// Lookups return (nil, nil) when nothing matches.

var (
	// ErrDuplicateUsername and ErrDuplicateEmail are returned by Create when a
	// unique constraint fires.
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")

	// ErrPollClosed is returned by RecordVote when the poll is gone or no
	// longer accepts votes.
	ErrPollClosed = errors.New("poll closed")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByResetToken only matches tokens that have not expired at now.
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	UpdatePrompt(ctx context.Context, id uuid.UUID, prompt string) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, url, key *string) error
	// SetResetToken stores or, with nil arguments, clears the reset token.
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash *string, expires *time.Time) error
	// UpdatePassword replaces the credential and clears any reset token.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListByRecipient returns messages newest first.
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]domain.Message, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
	// MarkRead flips is_read to true. found is false when the message does
	// not exist or belongs to someone else; changed is false when it was
	// already read.
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) (found, changed bool, err error)
	DeleteAllForRecipient(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type PollRepository interface {
	Create(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	// ListByCreator returns polls newest first; activeOnly drops inactive ones.
	ListByCreator(ctx context.Context, creatorID uuid.UUID, activeOnly bool) ([]domain.Poll, error)
	// RecordVote adds voterID to the poll's ledger and increments the option
	// in one atomic step. It returns false when voterID already voted and
	// ErrPollClosed when the poll is missing or inactive at write time.
	RecordVote(ctx context.Context, pollID, optionID uuid.UUID, voterID string) (bool, error)
	// Toggle flips is_active for a poll owned by creatorID. It returns
	// (nil, nil) when no such poll exists.
	Toggle(ctx context.Context, id, creatorID uuid.UUID) (*domain.Poll, error)
	DeleteOwned(ctx context.Context, id, creatorID uuid.UUID) (bool, error)
}

type StoryRepository interface {
	Create(ctx context.Context, story *domain.Story) error
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*domain.Story, error)
	// ListLive returns unarchived, unexpired stories oldest first.
	ListLive(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.Story, error)
	// ListByOwner returns the owner's stories newest first.
	ListByOwner(ctx context.Context, userID uuid.UUID, archived bool) ([]domain.Story, error)
	// SaveArchiveState writes story's archive flag and expiry. It only matches
	// the owner's story in the opposite archive state, so a concurrent
	// transition makes it report false.
	SaveArchiveState(ctx context.Context, story *domain.Story) (bool, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) (bool, error)
}
