package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/repository"
)

var (
	ErrPollNotFound        = errors.New("poll not found or inactive")
	ErrPollQuestion        = errors.New("question is required")
	ErrPollTooFewOptions   = errors.New("at least 2 valid options are required")
	ErrPollTooManyOptions  = errors.New("at most 10 options are allowed")
	ErrInvalidOption       = errors.New("selected option is invalid")
	ErrAlreadyVoted        = errors.New("already voted in this poll")
	ErrMissingVoterAddress = errors.New("voter address is missing")
)

type PollService struct {
	pollRepo repository.PollRepository
	userRepo repository.UserRepository
	voteSalt string
}

func NewPollService(pollRepo repository.PollRepository, userRepo repository.UserRepository, voteSalt string) *PollService {
	return &PollService{pollRepo: pollRepo, userRepo: userRepo, voteSalt: voteSalt}
}

type CreatePollInput struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Create trims and truncates the question and options. Blank options are
// dropped before the option count is checked.
func (s *PollService) Create(ctx context.Context, creatorID uuid.UUID, input CreatePollInput) (*domain.Poll, error) {
	question := truncate(strings.TrimSpace(input.Question), domain.MaxPollQuestionLength)
	if question == "" {
		return nil, ErrPollQuestion
	}

	var options []domain.PollOption
	for _, text := range input.Options {
		text = truncate(strings.TrimSpace(text), domain.MaxPollOptionLength)
		if text == "" {
			continue
		}
		options = append(options, domain.PollOption{ID: uuid.New(), Text: text})
	}
	if len(options) < domain.MinPollOptions {
		return nil, ErrPollTooFewOptions
	}
	if len(options) > domain.MaxPollOptions {
		return nil, ErrPollTooManyOptions
	}

	poll := &domain.Poll{
		ID:        uuid.New(),
		CreatorID: creatorID,
		Question:  question,
		Options:   options,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := s.pollRepo.Create(ctx, poll); err != nil {
		return nil, fmt.Errorf("creating poll: %w", err)
	}
	return poll, nil
}

func (s *PollService) ListMine(ctx context.Context, creatorID uuid.UUID) ([]domain.Poll, error) {
	polls, err := s.pollRepo.ListByCreator(ctx, creatorID, false)
	if err != nil {
		return nil, fmt.Errorf("listing polls: %w", err)
	}
	if polls == nil {
		polls = []domain.Poll{}
	}
	return polls, nil
}

// ListActive returns username's active polls without vote tallies.
func (s *PollService) ListActive(ctx context.Context, username string) ([]domain.PublicPoll, error) {
	creatorID, err := ResolveUsername(ctx, s.userRepo, username)
	if err != nil {
		return nil, err
	}

	polls, err := s.pollRepo.ListByCreator(ctx, creatorID, true)
	if err != nil {
		return nil, fmt.Errorf("listing active polls: %w", err)
	}

	out := make([]domain.PublicPoll, len(polls))
	for i := range polls {
		out[i] = polls[i].Public()
	}
	return out, nil
}

// Vote records one vote per voter address. The address is never stored,
// only its keyed hash.
func (s *PollService) Vote(ctx context.Context, pollID uuid.UUID, optionIndex int, clientIP string) error {
	if clientIP == "" {
		return ErrMissingVoterAddress
	}

	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if poll == nil || !poll.IsActive {
		return ErrPollNotFound
	}
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return ErrInvalidOption
	}

	ok, err := s.pollRepo.RecordVote(ctx, pollID, poll.Options[optionIndex].ID, VoterID(clientIP, s.voteSalt))
	if errors.Is(err, repository.ErrPollClosed) {
		return ErrPollNotFound
	}
	if err != nil {
		return fmt.Errorf("recording vote: %w", err)
	}
	if !ok {
		return ErrAlreadyVoted
	}
	return nil
}

func (s *PollService) Delete(ctx context.Context, creatorID, pollID uuid.UUID) error {
	ok, err := s.pollRepo.DeleteOwned(ctx, pollID, creatorID)
	if err != nil {
		return fmt.Errorf("deleting poll: %w", err)
	}
	if !ok {
		return ErrPollNotFound
	}
	return nil
}

func (s *PollService) Toggle(ctx context.Context, creatorID, pollID uuid.UUID) (*domain.Poll, error) {
	poll, err := s.pollRepo.Toggle(ctx, pollID, creatorID)
	if err != nil {
		return nil, fmt.Errorf("toggling poll: %w", err)
	}
	if poll == nil {
		return nil, ErrPollNotFound
	}
	return poll, nil
}

// VoterID derives the poll voter identifier of a client address.
func VoterID(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}
