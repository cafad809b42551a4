package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/media"
	"github.com/vedran77/anonbox/internal/repository"
)

const MaxAvatarSize = 5 << 20

var (
	ErrNotImage     = errors.New("only image files are allowed")
	ErrFileTooLarge = errors.New("file is too large")
	ErrMediaUpload  = errors.New("failed to upload media")
)

// MediaStore keeps uploaded files on the media host.
type MediaStore interface {
	Upload(ctx context.Context, obj media.Object) (media.Uploaded, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type ProfileService struct {
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	media       MediaStore
}

func NewProfileService(userRepo repository.UserRepository, messageRepo repository.MessageRepository, media MediaStore) *ProfileService {
	return &ProfileService{userRepo: userRepo, messageRepo: messageRepo, media: media}
}

type MeResponse struct {
	ID          uuid.UUID `json:"_id"`
	Username    string    `json:"username"`
	Email       *string   `json:"email"`
	Prompt      string    `json:"prompt"`
	AvatarURL   *string   `json:"profilePictureUrl"`
	UnreadCount int       `json:"unreadCount"`
}

func (s *ProfileService) Me(ctx context.Context, userID uuid.UUID) (*MeResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	unread, err := s.messageRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting unread: %w", err)
	}

	return &MeResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Prompt:      user.Prompt,
		AvatarURL:   user.AvatarURL,
		UnreadCount: unread,
	}, nil
}

func (s *ProfileService) UpdatePrompt(ctx context.Context, userID uuid.UUID, prompt string) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	prompt = strings.TrimSpace(prompt)
	if err := s.userRepo.UpdatePrompt(ctx, userID, prompt); err != nil {
		return "", fmt.Errorf("updating prompt: %w", err)
	}
	return prompt, nil
}

// UpdateAvatar stores a new avatar image and returns its URL. The previous
// avatar object is removed on a best-effort basis.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID uuid.UUID, file Upload) (string, error) {
	if !strings.HasPrefix(file.ContentType, "image/") {
		return "", ErrNotImage
	}
	if file.Size > MaxAvatarSize {
		return "", ErrFileTooLarge
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	up, err := s.media.Upload(ctx, media.Object{
		Folder:      "avatars/" + userID.String(),
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Body:        file.Body,
		Size:        file.Size,
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("avatar upload failed")
		return "", ErrMediaUpload
	}

	if err := s.userRepo.UpdateAvatar(ctx, userID, &up.URL, &up.Key); err != nil {
		s.removeAvatar(ctx, up.Key)
		return "", fmt.Errorf("updating avatar: %w", err)
	}

	if user.AvatarKey != nil && *user.AvatarKey != "" {
		s.removeAvatar(ctx, *user.AvatarKey)
	}

	return up.URL, nil
}

// removeAvatar deletes a stored avatar best-effort.
func (s *ProfileService) removeAvatar(ctx context.Context, key string) {
	if err := s.media.Delete(ctx, key); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("removing avatar failed")
	}
}

func (s *ProfileService) PublicProfile(ctx context.Context, username string) (*domain.PublicProfile, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.ToLower(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	p := user.Public()
	return &p, nil
}

// ResolveUsername translates a public handle into the stable user ID.
func ResolveUsername(ctx context.Context, users repository.UserRepository, username string) (uuid.UUID, error) {
	user, err := users.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return uuid.Nil, err
	}
	if user == nil {
		return uuid.Nil, ErrUserNotFound
	}
	return user.ID, nil
}
