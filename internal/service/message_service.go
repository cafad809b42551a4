package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/repository"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyMessage    = errors.New("message content cannot be empty")
	ErrMessageTooLong  = errors.New("message is too long")
)

// Notifier pushes inbox events to a recipient's live connection.
// Delivery is best effort; implementations log failures themselves.
type Notifier interface {
	Reachable(userID uuid.UUID) bool
	NotifyNewMessage(recipientID uuid.UUID, msg *domain.Message)
	NotifyUnreadCount(recipientID uuid.UUID, unread int)
	NotifyMessagesCleared(recipientID uuid.UUID)
}

type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	notifier    Notifier
}

func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	Content string `json:"content"`
}

// Send stores an anonymous message for username. Nothing about the sender
// is recorded.
func (s *MessageService) Send(ctx context.Context, username string, input SendMessageInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	recipientID, err := ResolveUsername(ctx, s.userRepo, username)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Content:     content,
		CreatedAt:   time.Now(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	if s.notifier != nil && s.notifier.Reachable(recipientID) {
		s.notifier.NotifyNewMessage(recipientID, msg)
		s.pushUnreadCount(ctx, recipientID)
	}

	return msg, nil
}

func (s *MessageService) List(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	msgs, err := s.messageRepo.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// MarkRead flips a message to read. changed is false when it already was.
func (s *MessageService) MarkRead(ctx context.Context, userID, messageID uuid.UUID) (bool, error) {
	found, changed, err := s.messageRepo.MarkRead(ctx, messageID, userID)
	if err != nil {
		return false, fmt.Errorf("marking read: %w", err)
	}
	if !found {
		return false, ErrMessageNotFound
	}

	if changed && s.notifier != nil && s.notifier.Reachable(userID) {
		s.pushUnreadCount(ctx, userID)
	}
	return changed, nil
}

func (s *MessageService) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.messageRepo.DeleteAllForRecipient(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting messages: %w", err)
	}

	if s.notifier != nil && s.notifier.Reachable(userID) {
		s.notifier.NotifyUnreadCount(userID, 0)
		s.notifier.NotifyMessagesCleared(userID)
	}
	return n, nil
}

func (s *MessageService) pushUnreadCount(ctx context.Context, userID uuid.UUID) {
	unread, err := s.messageRepo.CountUnread(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("counting unread for push")
		return
	}
	s.notifier.NotifyUnreadCount(userID, unread)
}
