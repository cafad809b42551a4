package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type StoryType string

const (
	StoryTypeText       StoryType = "text_story"
	StoryTypeImage      StoryType = "image_upload"
	StoryTypeVideo      StoryType = "video_upload"
	StoryTypeImageReply StoryType = "image_reply"
)

const (
	StoryTTL               = 24 * time.Hour
	DefaultStoryDuration   = 7
	MaxStoryTextLength     = 280
	DefaultStoryBackground = "#C06C84"
	DefaultStoryFontColor  = "#FFFFFF"
	DefaultStoryFontFamily = "sans-serif"
	DefaultStoryTextAlign  = "center"

	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// StoryContent is one of TextStory, ImageUpload, VideoUpload or ImageReply.
type StoryContent interface {
	Type() StoryType
	isStoryContent()
}

type TextStory struct {
	Text            string
	BackgroundColor string
	FontColor       string
	FontFamily      string
	TextAlign       string
}

// StoredMedia is an object owned by the media host. Key is needed to delete it.
type StoredMedia struct {
	URL string
	Key string
}

type ImageUpload struct {
	Media StoredMedia
}

type VideoUpload struct {
	Media        StoredMedia
	ThumbnailURL *string
}

type ImageReply struct {
	MediaURL               string
	OriginalMessageContent string
	UserReplyContent       string
}

func (TextStory) Type() StoryType   { return StoryTypeText }
func (ImageUpload) Type() StoryType { return StoryTypeImage }
func (VideoUpload) Type() StoryType { return StoryTypeVideo }
func (ImageReply) Type() StoryType  { return StoryTypeImageReply }

func (TextStory) isStoryContent()   {}
func (ImageUpload) isStoryContent() {}
func (VideoUpload) isStoryContent() {}
func (ImageReply) isStoryContent()  {}

// Story is Active while ExpiresAt is set and in the future, Expired once it
// has passed, and Archived when IsArchived is set (ExpiresAt is then nil).
type Story struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Content         StoryContent
	DurationSeconds int
	ViewCount       int
	ExpiresAt       *time.Time
	IsArchived      bool
	CreatedAt       time.Time
}

// NewStory builds an Active story. expiresAt overrides the default TTL.
func NewStory(userID uuid.UUID, content StoryContent, durationSeconds int, now time.Time, expiresAt *time.Time) *Story {
	exp := now.Add(StoryTTL)
	if expiresAt != nil {
		exp = *expiresAt
	}
	return &Story{
		ID:              uuid.New(),
		UserID:          userID,
		Content:         content,
		DurationSeconds: durationSeconds,
		ExpiresAt:       &exp,
		CreatedAt:       now,
	}
}

// Archive takes the story out of the feeds for good; archived stories never
// expire. It reports false when the story was already archived.
func (s *Story) Archive() bool {
	if s.IsArchived {
		return false
	}
	s.IsArchived = true
	s.ExpiresAt = nil
	return true
}

// Unarchive restores an archived story with a fresh TTL from now. It reports
// false, leaving the story untouched, when the story was not archived.
func (s *Story) Unarchive(now time.Time) bool {
	if !s.IsArchived {
		return false
	}
	exp := now.Add(StoryTTL)
	s.IsArchived = false
	s.ExpiresAt = &exp
	return true
}

// IsLive reports whether the story belongs in public and active feeds.
func (s *Story) IsLive(now time.Time) bool {
	return !s.IsArchived && s.ExpiresAt != nil && s.ExpiresAt.After(now)
}

// OwnedMedia returns the media host object owned by the story, if any.
// Image replies point at media uploaded separately and own nothing.
func (s *Story) OwnedMedia() (StoredMedia, bool) {
	switch c := s.Content.(type) {
	case ImageUpload:
		return c.Media, c.Media.Key != ""
	case VideoUpload:
		return c.Media, c.Media.Key != ""
	}
	return StoredMedia{}, false
}

// StoryFields is the flat, nullable representation used for storage and JSON.
type StoryFields struct {
	Type                   StoryType `json:"type"`
	TextContent            *string   `json:"textContent,omitempty"`
	BackgroundColor        *string   `json:"backgroundColor,omitempty"`
	FontColor              *string   `json:"fontColor,omitempty"`
	FontFamily             *string   `json:"fontFamily,omitempty"`
	TextAlign              *string   `json:"textAlign,omitempty"`
	MediaURL               *string   `json:"mediaUrl,omitempty"`
	MediaType              *string   `json:"mediaType,omitempty"`
	StorageKey             *string   `json:"-"`
	ThumbnailURL           *string   `json:"thumbnailUrl,omitempty"`
	OriginalMessageContent *string   `json:"originalMessageContent,omitempty"`
	UserReplyContent       *string   `json:"userReplyContent,omitempty"`
}

func ptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Flatten converts content into its flat representation.
func Flatten(c StoryContent) StoryFields {
	f := StoryFields{Type: c.Type()}
	switch c := c.(type) {
	case TextStory:
		f.TextContent = ptr(c.Text)
		f.BackgroundColor = ptr(c.BackgroundColor)
		f.FontColor = ptr(c.FontColor)
		f.FontFamily = ptr(c.FontFamily)
		f.TextAlign = ptr(c.TextAlign)
	case ImageUpload:
		f.MediaURL = ptr(c.Media.URL)
		f.MediaType = ptr(MediaTypeImage)
		f.StorageKey = ptr(c.Media.Key)
	case VideoUpload:
		f.MediaURL = ptr(c.Media.URL)
		f.MediaType = ptr(MediaTypeVideo)
		f.StorageKey = ptr(c.Media.Key)
		f.ThumbnailURL = c.ThumbnailURL
	case ImageReply:
		f.MediaURL = ptr(c.MediaURL)
		f.MediaType = ptr(MediaTypeImage)
		f.OriginalMessageContent = ptr(c.OriginalMessageContent)
		f.UserReplyContent = ptr(c.UserReplyContent)
	}
	return f
}

// Content rebuilds the typed variant from stored fields.
func (f StoryFields) Content() (StoryContent, error) {
	switch f.Type {
	case StoryTypeText:
		return TextStory{
			Text:            deref(f.TextContent),
			BackgroundColor: deref(f.BackgroundColor),
			FontColor:       deref(f.FontColor),
			FontFamily:      deref(f.FontFamily),
			TextAlign:       deref(f.TextAlign),
		}, nil
	case StoryTypeImage:
		return ImageUpload{Media: StoredMedia{URL: deref(f.MediaURL), Key: deref(f.StorageKey)}}, nil
	case StoryTypeVideo:
		return VideoUpload{
			Media:        StoredMedia{URL: deref(f.MediaURL), Key: deref(f.StorageKey)},
			ThumbnailURL: f.ThumbnailURL,
		}, nil
	case StoryTypeImageReply:
		return ImageReply{
			MediaURL:               deref(f.MediaURL),
			OriginalMessageContent: deref(f.OriginalMessageContent),
			UserReplyContent:       deref(f.UserReplyContent),
		}, nil
	}
	return nil, fmt.Errorf("unknown story type %q", f.Type)
}

func (s Story) MarshalJSON() ([]byte, error) {
	type storyJSON struct {
		ID     uuid.UUID `json:"_id"`
		UserID uuid.UUID `json:"userId"`
		StoryFields
		DurationSeconds int        `json:"durationSeconds"`
		ViewCount       int        `json:"viewCount"`
		ExpiresAt       *time.Time `json:"expiresAt"`
		IsArchived      bool       `json:"isArchived"`
		CreatedAt       time.Time  `json:"createdAt"`
	}
	var fields StoryFields
	if s.Content != nil {
		fields = Flatten(s.Content)
	}
	return json.Marshal(storyJSON{
		ID:              s.ID,
		UserID:          s.UserID,
		StoryFields:     fields,
		DurationSeconds: s.DurationSeconds,
		ViewCount:       s.ViewCount,
		ExpiresAt:       s.ExpiresAt,
		IsArchived:      s.IsArchived,
		CreatedAt:       s.CreatedAt,
	})
}
