// Package memory holds map-backed repositories for tests and local runs
// without Postgres. One mutex guards the whole store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*domain.User
	messages []*domain.Message
	polls    []*domain.Poll
	voters   map[uuid.UUID]map[string]struct{}
	stories  []*domain.Story
}

func NewStore() *Store {
	return &Store{
		users:  make(map[uuid.UUID]*domain.User),
		voters: make(map[uuid.UUID]map[string]struct{}),
	}
}

func (s *Store) Users() *UserRepo       { return &UserRepo{s} }
func (s *Store) Messages() *MessageRepo { return &MessageRepo{s} }
func (s *Store) Polls() *PollRepo       { return &PollRepo{s} }
func (s *Store) Stories() *StoryRepo    { return &StoryRepo{s} }

// --- users ---

type UserRepo struct{ s *Store }

var _ repository.UserRepository = (*UserRepo)(nil)

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
		if user.Email != nil && u.Email != nil && strings.EqualFold(*u.Email, *user.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *UserRepo) find(match func(*domain.User) bool) *domain.User {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return copyUser(u)
		}
	}
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id }), nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email != nil && *u.Email == email }), nil
}

func (r *UserRepo) GetByResetToken(_ context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	return r.find(func(u *domain.User) bool {
		return u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash &&
			u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now)
	}), nil
}

func (r *UserRepo) update(id uuid.UUID, fn func(*domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		fn(u)
		u.UpdatedAt = time.Now()
	}
	return nil
}

func (r *UserRepo) UpdatePrompt(_ context.Context, id uuid.UUID, prompt string) error {
	return r.update(id, func(u *domain.User) { u.Prompt = prompt })
}

func (r *UserRepo) UpdateAvatar(_ context.Context, id uuid.UUID, url, key *string) error {
	return r.update(id, func(u *domain.User) { u.AvatarURL, u.AvatarKey = url, key })
}

func (r *UserRepo) SetResetToken(_ context.Context, id uuid.UUID, tokenHash *string, expires *time.Time) error {
	return r.update(id, func(u *domain.User) { u.ResetTokenHash, u.ResetTokenExpires = tokenHash, expires })
}

func (r *UserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	return r.update(id, func(u *domain.User) {
		u.PasswordHash = passwordHash
		u.ResetTokenHash, u.ResetTokenExpires = nil, nil
	})
}

// --- messages ---

type MessageRepo struct{ s *Store }

var _ repository.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *msg
	r.s.messages = append(r.s.messages, &c)
	return nil
}

func (r *MessageRepo) ListByRecipient(_ context.Context, recipientID uuid.UUID) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Message{}
	for i := len(r.s.messages) - 1; i >= 0; i-- {
		if m := r.s.messages[i]; m.RecipientID == recipientID {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MessageRepo) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, m := range r.s.messages {
		if m.RecipientID == recipientID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) MarkRead(_ context.Context, id, recipientID uuid.UUID) (bool, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, m := range r.s.messages {
		if m.ID != id || m.RecipientID != recipientID {
			continue
		}
		if m.IsRead {
			return true, false, nil
		}
		m.IsRead = true
		return true, true, nil
	}
	return false, false, nil
}

func (r *MessageRepo) DeleteAllForRecipient(_ context.Context, recipientID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.messages[:0]
	var n int64
	for _, m := range r.s.messages {
		if m.RecipientID == recipientID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	r.s.messages = kept
	return n, nil
}

// --- polls ---

type PollRepo struct{ s *Store }

var _ repository.PollRepository = (*PollRepo)(nil)

func (r *PollRepo) copyPoll(p *domain.Poll) domain.Poll {
	c := *p
	c.Options = append([]domain.PollOption(nil), p.Options...)
	c.VoterCount = len(r.s.voters[p.ID])
	return c
}

func (r *PollRepo) Create(_ context.Context, poll *domain.Poll) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *poll
	c.Options = append([]domain.PollOption(nil), poll.Options...)
	r.s.polls = append(r.s.polls, &c)
	r.s.voters[c.ID] = make(map[string]struct{})
	return nil
}

func (r *PollRepo) get(id uuid.UUID) *domain.Poll {
	for _, p := range r.s.polls {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *PollRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p := r.get(id)
	if p == nil {
		return nil, nil
	}
	c := r.copyPoll(p)
	return &c, nil
}

func (r *PollRepo) ListByCreator(_ context.Context, creatorID uuid.UUID, activeOnly bool) ([]domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Poll{}
	for i := len(r.s.polls) - 1; i >= 0; i-- {
		p := r.s.polls[i]
		if p.CreatorID != creatorID || (activeOnly && !p.IsActive) {
			continue
		}
		out = append(out, r.copyPoll(p))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *PollRepo) RecordVote(_ context.Context, pollID, optionID uuid.UUID, voterID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p := r.get(pollID)
	if p == nil || !p.IsActive {
		return false, repository.ErrPollClosed
	}
	ledger := r.s.voters[pollID]
	if _, dup := ledger[voterID]; dup {
		return false, nil
	}
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			p.Options[i].Votes++
			ledger[voterID] = struct{}{}
			return true, nil
		}
	}
	return false, fmt.Errorf("option %s not in poll %s", optionID, pollID)
}

func (r *PollRepo) Toggle(_ context.Context, id, creatorID uuid.UUID) (*domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p := r.get(id)
	if p == nil || p.CreatorID != creatorID {
		return nil, nil
	}
	p.IsActive = !p.IsActive
	c := r.copyPoll(p)
	return &c, nil
}

func (r *PollRepo) DeleteOwned(_ context.Context, id, creatorID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, p := range r.s.polls {
		if p.ID == id && p.CreatorID == creatorID {
			r.s.polls = append(r.s.polls[:i], r.s.polls[i+1:]...)
			delete(r.s.voters, id)
			return true, nil
		}
	}
	return false, nil
}

// --- stories ---

type StoryRepo struct{ s *Store }

var _ repository.StoryRepository = (*StoryRepo)(nil)

func copyStory(st *domain.Story) *domain.Story {
	c := *st
	if st.ExpiresAt != nil {
		exp := *st.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}

func (r *StoryRepo) Create(_ context.Context, story *domain.Story) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stories = append(r.s.stories, copyStory(story))
	return nil
}

func (r *StoryRepo) owned(id, userID uuid.UUID) *domain.Story {
	for _, st := range r.s.stories {
		if st.ID == id && st.UserID == userID {
			return st
		}
	}
	return nil
}

func (r *StoryRepo) GetOwned(_ context.Context, id, userID uuid.UUID) (*domain.Story, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if st := r.owned(id, userID); st != nil {
		return copyStory(st), nil
	}
	return nil, nil
}

func (r *StoryRepo) ListLive(_ context.Context, userID uuid.UUID, now time.Time) ([]domain.Story, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Story{}
	for _, st := range r.s.stories {
		if st.UserID == userID && st.IsLive(now) {
			out = append(out, *copyStory(st))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *StoryRepo) ListByOwner(_ context.Context, userID uuid.UUID, archived bool) ([]domain.Story, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Story{}
	for i := len(r.s.stories) - 1; i >= 0; i-- {
		st := r.s.stories[i]
		if st.UserID == userID && st.IsArchived == archived {
			out = append(out, *copyStory(st))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *StoryRepo) SaveArchiveState(_ context.Context, story *domain.Story) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.owned(story.ID, story.UserID)
	if st == nil || st.IsArchived == story.IsArchived {
		return false, nil
	}
	saved := copyStory(story)
	st.IsArchived = saved.IsArchived
	st.ExpiresAt = saved.ExpiresAt
	return true, nil
}

func (r *StoryRepo) IncrementViews(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.stories {
		if st.ID == id {
			st.ViewCount++
			return true, nil
		}
	}
	return false, nil
}

func (r *StoryRepo) DeleteOwned(_ context.Context, id, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, st := range r.s.stories {
		if st.ID == id && st.UserID == userID {
			r.s.stories = append(r.s.stories[:i], r.s.stories[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
