package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/repository/memory"
)

func newStoryService(t *testing.T) (*StoryService, *memory.Store, *fakeMedia, *domain.User) {
	t.Helper()
	store := memory.NewStore()
	alice := seedUser(t, store, "alice")
	fm := &fakeMedia{}
	return NewStoryService(store.Stories(), store.Users(), fm), store, fm, alice
}

func TestStoryService_CreateText(t *testing.T) {
	svc, _, _, alice := newStoryService(t)
	ctx := context.Background()
	before := time.Now()

	story, err := svc.Create(ctx, alice.ID, CreateStoryInput{Type: domain.StoryTypeText, TextContent: " hello "})
	require.NoError(t, err)

	text, ok := story.Content.(domain.TextStory)
	require.True(t, ok)
	assert.Equal(t, "hello", text.Text)
	assert.Equal(t, domain.DefaultStoryBackground, text.BackgroundColor)
	assert.Equal(t, domain.DefaultStoryTextAlign, text.TextAlign)
	assert.Equal(t, domain.DefaultStoryDuration, story.DurationSeconds)

	require.NotNil(t, story.ExpiresAt)
	assert.False(t, story.ExpiresAt.Before(before))
	assert.False(t, story.ExpiresAt.After(time.Now().Add(domain.StoryTTL)))

	tests := []struct {
		name    string
		input   CreateStoryInput
		wantErr error
	}{
		{"no type", CreateStoryInput{}, ErrInvalidStoryType},
		{"empty text", CreateStoryInput{Type: domain.StoryTypeText, TextContent: "  "}, ErrEmptyStoryText},
		{"long text", CreateStoryInput{Type: domain.StoryTypeText, TextContent: strings.Repeat("x", domain.MaxStoryTextLength+1)}, ErrStoryTextTooLong},
		{"bad align", CreateStoryInput{Type: domain.StoryTypeText, TextContent: "x", TextAlign: "justify"}, ErrInvalidTextAlign},
		{"past expiry", CreateStoryInput{Type: domain.StoryTypeText, TextContent: "x", ExpiresAt: ptrTime(time.Now().Add(-time.Minute))}, ErrInvalidExpiry},
		{"reply without image", CreateStoryInput{Type: domain.StoryTypeImageReply}, ErrReplyImageRequired},
		{"image without file", CreateStoryInput{Type: domain.StoryTypeImage}, ErrMediaRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, alice.ID, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestStoryService_CreateExplicitExpiry(t *testing.T) {
	svc, _, _, alice := newStoryService(t)
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)

	story, err := svc.Create(context.Background(), alice.ID, CreateStoryInput{Type: domain.StoryTypeText, TextContent: "x", ExpiresAt: &exp})
	require.NoError(t, err)
	assert.True(t, exp.Equal(*story.ExpiresAt))
}

func TestStoryService_CreateMedia(t *testing.T) {
	svc, _, fm, alice := newStoryService(t)
	ctx := context.Background()

	video, err := svc.Create(ctx, alice.ID, CreateStoryInput{
		Type: domain.StoryTypeVideo,
		File: &Upload{Filename: "clip.mp4", ContentType: "video/mp4", Size: 4, Body: strings.NewReader("mp4!")},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, video.DurationSeconds)
	m, ok := video.OwnedMedia()
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(m.Key, "stories/"+alice.ID.String()))
	assert.Equal(t, "mp4!", fm.bodies[0])

	_, err = svc.Create(ctx, alice.ID, CreateStoryInput{
		Type: domain.StoryTypeImage,
		File: &Upload{Filename: "clip.mp4", ContentType: "video/mp4", Size: 4, Body: strings.NewReader("mp4!")},
	})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = svc.Create(ctx, alice.ID, CreateStoryInput{
		Type: domain.StoryTypeImage,
		File: &Upload{Filename: "big.png", ContentType: "image/png", Size: MaxStoryMediaSize + 1, Body: strings.NewReader("")},
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	fm.uploadErr = errBoom
	_, err = svc.Create(ctx, alice.ID, CreateStoryInput{
		Type: domain.StoryTypeImage,
		File: &Upload{Filename: "a.png", ContentType: "image/png", Size: 1, Body: strings.NewReader("x")},
	})
	assert.ErrorIs(t, err, ErrMediaUpload)
}

func TestStoryService_UploadReplyImage(t *testing.T) {
	svc, _, fm, alice := newStoryService(t)
	ctx := context.Background()

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))
	up, err := svc.UploadReplyImage(ctx, alice.ID, dataURL, "")
	require.NoError(t, err)
	assert.NotEmpty(t, up.SecureURL)
	assert.True(t, strings.HasPrefix(up.PublicID, "stories/"+alice.ID.String()+"/reply_images"))
	assert.Equal(t, "reply.png", fm.uploads[0].Filename)
	assert.Equal(t, "png", fm.bodies[0])

	_, err = svc.UploadReplyImage(ctx, alice.ID, "not a data url", "")
	assert.ErrorIs(t, err, ErrInvalidImageDataURL)
	_, err = svc.UploadReplyImage(ctx, alice.ID, "data:text/plain;base64,aGk=", "")
	assert.ErrorIs(t, err, ErrInvalidImageDataURL)
}

func TestStoryService_ArchiveLifecycle(t *testing.T) {
	svc, store, _, alice := newStoryService(t)
	ctx := context.Background()

	story, err := svc.Create(ctx, alice.ID, CreateStoryInput{Type: domain.StoryTypeText, TextContent: "x"})
	require.NoError(t, err)

	_, err = svc.Unarchive(ctx, alice.ID, story.ID)
	assert.ErrorIs(t, err, ErrStoryNotArchived)

	archived, err := svc.Archive(ctx, alice.ID, story.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
	assert.Nil(t, archived.ExpiresAt)

	again, err := svc.Archive(ctx, alice.ID, story.ID)
	require.NoError(t, err)
	assert.True(t, again.IsArchived)
	assert.Nil(t, again.ExpiresAt)

	stored, _ := store.Stories().GetOwned(ctx, story.ID, alice.ID)
	assert.True(t, stored.IsArchived)
	assert.Nil(t, stored.ExpiresAt)

	public, err := svc.Public(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, public)

	mine, err := svc.Mine(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, mine.Active)
	require.Len(t, mine.Archived, 1)

	restored, err := svc.Unarchive(ctx, alice.ID, story.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)
	require.NotNil(t, restored.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(domain.StoryTTL), *restored.ExpiresAt, 5*time.Second)

	stored, _ = store.Stories().GetOwned(ctx, story.ID, alice.ID)
	assert.False(t, stored.IsArchived)
	require.NotNil(t, stored.ExpiresAt)
	assert.True(t, restored.ExpiresAt.Equal(*stored.ExpiresAt))

	_, err = svc.Unarchive(ctx, alice.ID, story.ID)
	assert.ErrorIs(t, err, ErrStoryNotArchived)

	_, err = svc.Archive(ctx, uuid.New(), story.ID)
	assert.ErrorIs(t, err, ErrStoryNotFound)
}

func TestStoryService_ExpiredStoriesAreHidden(t *testing.T) {
	svc, _, _, alice := newStoryService(t)
	ctx := context.Background()

	old, err := svc.Create(ctx, alice.ID, CreateStoryInput{Type: domain.StoryTypeText, TextContent: "old"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	fresh, err := svc.Create(ctx, alice.ID, CreateStoryInput{Type: domain.StoryTypeText, TextContent: "fresh"})
	require.NoError(t, err)

	public, err := svc.Public(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, old.ID, public[0].ID)

	mine, err := svc.Mine(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine.Active, 2)
	assert.Equal(t, fresh.ID, mine.Active[0].ID)

	svc.now = func() time.Time { return time.Now().Add(domain.StoryTTL + 30*time.Minute) }
	public, err = svc.Public(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, fresh.ID, public[0].ID)

	_, err = svc.Public(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStoryService_DeleteAndView(t *testing.T) {
	svc, store, fm, alice := newStoryService(t)
	ctx := context.Background()

	story, err := svc.Create(ctx, alice.ID, CreateStoryInput{
		Type: domain.StoryTypeImage,
		File: &Upload{Filename: "a.png", ContentType: "image/png", Size: 1, Body: strings.NewReader("x")},
	})
	require.NoError(t, err)

	require.NoError(t, svc.View(ctx, story.ID))
	require.NoError(t, svc.View(ctx, story.ID))
	got, _ := store.Stories().GetOwned(ctx, story.ID, alice.ID)
	assert.Equal(t, 2, got.ViewCount)
	assert.ErrorIs(t, svc.View(ctx, uuid.New()), ErrStoryNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, uuid.New(), story.ID), ErrStoryNotFound)

	fm.deleteErr = errBoom
	assert.ErrorIs(t, svc.Delete(ctx, alice.ID, story.ID), ErrMediaDelete)
	got, _ = store.Stories().GetOwned(ctx, story.ID, alice.ID)
	assert.NotNil(t, got)

	fm.deleteErr = nil
	require.NoError(t, svc.Delete(ctx, alice.ID, story.ID))
	m, _ := story.OwnedMedia()
	assert.Equal(t, []string{m.Key}, fm.deleted)
	got, _ = store.Stories().GetOwned(ctx, story.ID, alice.ID)
	assert.Nil(t, got)
}
