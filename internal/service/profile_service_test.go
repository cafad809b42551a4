package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/repository"
	"github.com/vedran77/anonbox/internal/repository/memory"
)

func TestProfileService_MeAndPrompt(t *testing.T) {
	store := memory.NewStore()
	alice := seedUser(t, store, "alice")
	svc := NewProfileService(store.Users(), store.Messages(), &fakeMedia{})
	ctx := context.Background()

	require.NoError(t, store.Messages().Create(ctx, &domain.Message{ID: uuid.New(), RecipientID: alice.ID, Content: "hi"}))

	me, err := svc.Me(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, 1, me.UnreadCount)

	prompt, err := svc.UpdatePrompt(ctx, alice.ID, "  ask me anything ")
	require.NoError(t, err)
	assert.Equal(t, "ask me anything", prompt)

	public, err := svc.PublicProfile(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "ask me anything", public.Prompt)

	_, err = svc.Me(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.PublicProfile(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProfileService_UpdateAvatar(t *testing.T) {
	store := memory.NewStore()
	alice := seedUser(t, store, "alice")
	fm := &fakeMedia{}
	svc := NewProfileService(store.Users(), store.Messages(), fm)
	ctx := context.Background()

	png := func() Upload {
		return Upload{Filename: "me.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
	}

	first, err := svc.UpdateAvatar(ctx, alice.ID, png())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fm.uploads[0].Folder, "avatars/"))
	assert.Empty(t, fm.deleted)

	second, err := svc.UpdateAvatar(ctx, alice.ID, png())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	require.Len(t, fm.deleted, 1)

	user, _ := store.Users().GetByID(ctx, alice.ID)
	assert.Equal(t, second, *user.AvatarURL)
	assert.NotEqual(t, fm.deleted[0], *user.AvatarKey)

	// A failed cleanup does not fail the update.
	fm.deleteErr = errBoom
	_, err = svc.UpdateAvatar(ctx, alice.ID, png())
	assert.NoError(t, err)

	_, err = svc.UpdateAvatar(ctx, alice.ID, Upload{ContentType: "video/mp4", Body: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrNotImage)
	_, err = svc.UpdateAvatar(ctx, alice.ID, Upload{ContentType: "image/png", Size: MaxAvatarSize + 1, Body: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	fm.uploadErr = errBoom
	_, err = svc.UpdateAvatar(ctx, alice.ID, png())
	assert.ErrorIs(t, err, ErrMediaUpload)
}

// failingAvatarUsers fails every avatar write.
type failingAvatarUsers struct {
	repository.UserRepository
}

func (failingAvatarUsers) UpdateAvatar(context.Context, uuid.UUID, *string, *string) error {
	return errBoom
}

func TestProfileService_UpdateAvatarRemovesUploadOnSaveFailure(t *testing.T) {
	store := memory.NewStore()
	alice := seedUser(t, store, "alice")
	fm := &fakeMedia{}
	svc := NewProfileService(failingAvatarUsers{store.Users()}, store.Messages(), fm)

	_, err := svc.UpdateAvatar(context.Background(), alice.ID, Upload{
		Filename: "me.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png"),
	})
	assert.ErrorIs(t, err, errBoom)

	require.Len(t, fm.uploads, 1)
	require.Len(t, fm.deleted, 1)
	assert.True(t, strings.HasPrefix(fm.deleted[0], "avatars/"+alice.ID.String()))

	user, _ := store.Users().GetByID(context.Background(), alice.ID)
	assert.Nil(t, user.AvatarURL)
}
