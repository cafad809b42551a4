package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxPollQuestionLength = 280
	MaxPollOptionLength   = 100
	MinPollOptions        = 2
	MaxPollOptions        = 10
)

type PollOption struct {
	ID    uuid.UUID `json:"_id"`
	Text  string    `json:"text"`
	Votes int       `json:"votes"`
}

// Poll carries its options in display order. Voter identifiers live in a
// separate ledger; only their count is loaded.
type Poll struct {
	ID         uuid.UUID    `json:"_id"`
	CreatorID  uuid.UUID    `json:"creator"`
	Question   string       `json:"question"`
	Options    []PollOption `json:"options"`
	IsActive   bool         `json:"isActive"`
	VoterCount int          `json:"voterCount"`
	CreatedAt  time.Time    `json:"createdAt"`
}

type PublicPollOption struct {
	ID   uuid.UUID `json:"_id"`
	Text string    `json:"text"`
}

// PublicPoll hides tallies from visitors who have not created the poll.
type PublicPoll struct {
	ID        uuid.UUID          `json:"_id"`
	Question  string             `json:"question"`
	Options   []PublicPollOption `json:"options"`
	IsActive  bool               `json:"isActive"`
	CreatedAt time.Time          `json:"createdAt"`
}

func (p *Poll) Public() PublicPoll {
	opts := make([]PublicPollOption, len(p.Options))
	for i, o := range p.Options {
		opts[i] = PublicPollOption{ID: o.ID, Text: o.Text}
	}
	return PublicPoll{
		ID:        p.ID,
		Question:  p.Question,
		Options:   opts,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

// TotalVotes sums the option counters. It equals VoterCount for any poll
// whose votes were recorded through the ledger.
func (p *Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}
