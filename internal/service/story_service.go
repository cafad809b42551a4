package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/media"
	"github.com/vedran77/anonbox/internal/repository"
)

const MaxStoryMediaSize = 25 << 20

var (
	ErrStoryNotFound       = errors.New("story not found")
	ErrStoryNotArchived    = errors.New("story not found or not archived")
	ErrInvalidStoryType    = errors.New("invalid story type")
	ErrEmptyStoryText      = errors.New("story text cannot be empty")
	ErrStoryTextTooLong    = errors.New("story text is too long")
	ErrInvalidTextAlign    = errors.New("text align must be left, center or right")
	ErrMediaRequired       = errors.New("media file is required")
	ErrUnsupportedMedia    = errors.New("only image or video files are allowed")
	ErrReplyImageRequired  = errors.New("reply image url is required")
	ErrInvalidExpiry       = errors.New("expiry must be in the future")
	ErrInvalidImageDataURL = errors.New("imageDataUrl must be a base64 image data url")
	ErrMediaDelete         = errors.New("failed to delete story media")
)

type StoryService struct {
	storyRepo repository.StoryRepository
	userRepo  repository.UserRepository
	media     MediaStore
	now       func() time.Time
}

func NewStoryService(storyRepo repository.StoryRepository, userRepo repository.UserRepository, media MediaStore) *StoryService {
	return &StoryService{storyRepo: storyRepo, userRepo: userRepo, media: media, now: time.Now}
}

type CreateStoryInput struct {
	Type                   domain.StoryType
	TextContent            string
	BackgroundColor        string
	FontColor              string
	FontFamily             string
	TextAlign              string
	ReplyImageMediaURL     string
	OriginalMessageContent string
	UserReplyContent       string
	DurationSeconds        int
	ExpiresAt              *time.Time
	File                   *Upload
}

func (s *StoryService) Create(ctx context.Context, userID uuid.UUID, input CreateStoryInput) (*domain.Story, error) {
	now := s.now()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, ErrInvalidExpiry
	}

	duration := input.DurationSeconds
	if duration <= 0 {
		duration = domain.DefaultStoryDuration
		if input.Type == domain.StoryTypeVideo {
			duration = 0
		}
	}

	var content domain.StoryContent
	switch input.Type {
	case domain.StoryTypeText:
		text, err := buildTextStory(input)
		if err != nil {
			return nil, err
		}
		content = text

	case domain.StoryTypeImage, domain.StoryTypeVideo:
		kind := domain.MediaTypeImage
		if input.Type == domain.StoryTypeVideo {
			kind = domain.MediaTypeVideo
		}
		stored, err := s.uploadStoryMedia(ctx, userID, kind, input.File)
		if err != nil {
			return nil, err
		}
		if kind == domain.MediaTypeVideo {
			content = domain.VideoUpload{Media: stored}
		} else {
			content = domain.ImageUpload{Media: stored}
		}

	case domain.StoryTypeImageReply:
		if strings.TrimSpace(input.ReplyImageMediaURL) == "" {
			return nil, ErrReplyImageRequired
		}
		content = domain.ImageReply{
			MediaURL:               strings.TrimSpace(input.ReplyImageMediaURL),
			OriginalMessageContent: input.OriginalMessageContent,
			UserReplyContent:       input.UserReplyContent,
		}

	default:
		return nil, ErrInvalidStoryType
	}

	story := domain.NewStory(userID, content, duration, now, input.ExpiresAt)
	if err := s.storyRepo.Create(ctx, story); err != nil {
		if m, ok := story.OwnedMedia(); ok {
			s.removeMedia(ctx, m.Key)
		}
		return nil, fmt.Errorf("creating story: %w", err)
	}
	return story, nil
}

func buildTextStory(input CreateStoryInput) (domain.TextStory, error) {
	text := strings.TrimSpace(input.TextContent)
	if text == "" {
		return domain.TextStory{}, ErrEmptyStoryText
	}
	if utf8.RuneCountInString(text) > domain.MaxStoryTextLength {
		return domain.TextStory{}, ErrStoryTextTooLong
	}

	story := domain.TextStory{
		Text:            text,
		BackgroundColor: orDefault(input.BackgroundColor, domain.DefaultStoryBackground),
		FontColor:       orDefault(input.FontColor, domain.DefaultStoryFontColor),
		FontFamily:      orDefault(input.FontFamily, domain.DefaultStoryFontFamily),
		TextAlign:       orDefault(input.TextAlign, domain.DefaultStoryTextAlign),
	}
	switch story.TextAlign {
	case "left", "center", "right":
	default:
		return domain.TextStory{}, ErrInvalidTextAlign
	}
	return story, nil
}

func (s *StoryService) uploadStoryMedia(ctx context.Context, userID uuid.UUID, kind string, file *Upload) (domain.StoredMedia, error) {
	if file == nil {
		return domain.StoredMedia{}, ErrMediaRequired
	}
	if !strings.HasPrefix(file.ContentType, kind+"/") {
		return domain.StoredMedia{}, ErrUnsupportedMedia
	}
	if file.Size > MaxStoryMediaSize {
		return domain.StoredMedia{}, ErrFileTooLarge
	}

	up, err := s.media.Upload(ctx, media.Object{
		Folder:      "stories/" + userID.String(),
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Body:        file.Body,
		Size:        file.Size,
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("story media upload failed")
		return domain.StoredMedia{}, ErrMediaUpload
	}
	return domain.StoredMedia{URL: up.URL, Key: up.Key}, nil
}

type UploadedReplyImage struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// UploadReplyImage stores a client-rendered reply card sent as a data URL.
func (s *StoryService) UploadReplyImage(ctx context.Context, userID uuid.UUID, imageDataURL, filename string) (*UploadedReplyImage, error) {
	contentType, data, err := media.DecodeDataURL(imageDataURL)
	if err != nil || !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidImageDataURL
	}
	if len(data) > MaxStoryMediaSize {
		return nil, ErrFileTooLarge
	}

	if path.Ext(filename) == "" {
		filename = "reply" + extensionFor(contentType)
	}

	up, err := s.media.Upload(ctx, media.Object{
		Folder:      "stories/" + userID.String() + "/reply_images",
		Filename:    filename,
		ContentType: contentType,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("reply image upload failed")
		return nil, ErrMediaUpload
	}
	return &UploadedReplyImage{SecureURL: up.URL, PublicID: up.Key}, nil
}

// Public lists username's live stories oldest first.
func (s *StoryService) Public(ctx context.Context, username string) ([]domain.Story, error) {
	userID, err := ResolveUsername(ctx, s.userRepo, username)
	if err != nil {
		return nil, err
	}

	stories, err := s.storyRepo.ListLive(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("listing stories: %w", err)
	}
	if stories == nil {
		stories = []domain.Story{}
	}
	return stories, nil
}

type MyStories struct {
	Active   []domain.Story `json:"active"`
	Archived []domain.Story `json:"archived"`
}

// Mine returns the owner's live and archived stories, newest first.
// Expired stories show up in neither list.
func (s *StoryService) Mine(ctx context.Context, userID uuid.UUID) (*MyStories, error) {
	live, err := s.storyRepo.ListLive(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("listing live stories: %w", err)
	}
	archived, err := s.storyRepo.ListByOwner(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("listing archived stories: %w", err)
	}

	active := make([]domain.Story, len(live))
	for i := range live {
		active[len(live)-1-i] = live[i]
	}
	if archived == nil {
		archived = []domain.Story{}
	}
	return &MyStories{Active: active, Archived: archived}, nil
}

// Delete removes the story's media from the host before the record itself.
func (s *StoryService) Delete(ctx context.Context, userID, storyID uuid.UUID) error {
	story, err := s.storyRepo.GetOwned(ctx, storyID, userID)
	if err != nil {
		return err
	}
	if story == nil {
		return ErrStoryNotFound
	}

	if m, ok := story.OwnedMedia(); ok {
		if err := s.media.Delete(ctx, m.Key); err != nil {
			logrus.WithError(err).WithField("story_id", storyID).Error("deleting story media failed")
			return ErrMediaDelete
		}
	}

	ok, err := s.storyRepo.DeleteOwned(ctx, storyID, userID)
	if err != nil {
		return fmt.Errorf("deleting story: %w", err)
	}
	if !ok {
		return ErrStoryNotFound
	}
	return nil
}

// Archive is idempotent: archiving an archived story returns it unchanged.
func (s *StoryService) Archive(ctx context.Context, userID, storyID uuid.UUID) (*domain.Story, error) {
	story, err := s.storyRepo.GetOwned(ctx, storyID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading story: %w", err)
	}
	if story == nil {
		return nil, ErrStoryNotFound
	}
	if !story.Archive() {
		return story, nil
	}

	ok, err := s.storyRepo.SaveArchiveState(ctx, story)
	if err != nil {
		return nil, fmt.Errorf("archiving story: %w", err)
	}
	if !ok {
		return nil, ErrStoryNotFound
	}
	return story, nil
}

// Unarchive only applies to archived stories and gives them a fresh TTL.
func (s *StoryService) Unarchive(ctx context.Context, userID, storyID uuid.UUID) (*domain.Story, error) {
	story, err := s.storyRepo.GetOwned(ctx, storyID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading story: %w", err)
	}
	if story == nil || !story.Unarchive(s.now()) {
		return nil, ErrStoryNotArchived
	}

	ok, err := s.storyRepo.SaveArchiveState(ctx, story)
	if err != nil {
		return nil, fmt.Errorf("unarchiving story: %w", err)
	}
	if !ok {
		return nil, ErrStoryNotArchived
	}
	return story, nil
}

// View counts a view from anyone, every time.
func (s *StoryService) View(ctx context.Context, storyID uuid.UUID) error {
	ok, err := s.storyRepo.IncrementViews(ctx, storyID)
	if err != nil {
		return fmt.Errorf("recording view: %w", err)
	}
	if !ok {
		return ErrStoryNotFound
	}
	return nil
}

func (s *StoryService) removeMedia(ctx context.Context, key string) {
	if err := s.media.Delete(ctx, key); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("removing orphaned media failed")
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".png"
}
