package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/anonbox/internal/domain"
)

type StoryRepo struct {
	db *sql.DB
}

func NewStoryRepo(db *sql.DB) *StoryRepo {
	return &StoryRepo{db: db}
}

const storyColumns = `id, user_id, type, text_content, background_color, font_color, font_family,
	text_align, media_url, media_type, storage_key, thumbnail_url, original_message_content,
	user_reply_content, duration_seconds, view_count, expires_at, is_archived, created_at`

func (r *StoryRepo) Create(ctx context.Context, s *domain.Story) error {
	f := domain.Flatten(s.Content)
	query := `
		INSERT INTO stories (` + storyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, string(f.Type), f.TextContent, f.BackgroundColor, f.FontColor, f.FontFamily,
		f.TextAlign, f.MediaURL, f.MediaType, f.StorageKey, f.ThumbnailURL, f.OriginalMessageContent,
		f.UserReplyContent, s.DurationSeconds, s.ViewCount, s.ExpiresAt, s.IsArchived, s.CreatedAt,
	)
	return err
}

func scanStory(row interface{ Scan(...any) error }) (*domain.Story, error) {
	var (
		s domain.Story
		f domain.StoryFields
		t string
	)
	err := row.Scan(
		&s.ID, &s.UserID, &t, &f.TextContent, &f.BackgroundColor, &f.FontColor, &f.FontFamily,
		&f.TextAlign, &f.MediaURL, &f.MediaType, &f.StorageKey, &f.ThumbnailURL, &f.OriginalMessageContent,
		&f.UserReplyContent, &s.DurationSeconds, &s.ViewCount, &s.ExpiresAt, &s.IsArchived, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Type = domain.StoryType(t)
	if s.Content, err = f.Content(); err != nil {
		return nil, fmt.Errorf("story %s: %w", s.ID, err)
	}
	return &s, nil
}

func (r *StoryRepo) GetOwned(ctx context.Context, id, userID uuid.UUID) (*domain.Story, error) {
	s, err := scanStory(r.db.QueryRowContext(ctx,
		`SELECT `+storyColumns+` FROM stories WHERE id = $1 AND user_id = $2`, id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *StoryRepo) ListLive(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.Story, error) {
	return r.list(ctx, `
		SELECT `+storyColumns+` FROM stories
		WHERE user_id = $1 AND is_archived = FALSE AND expires_at > $2
		ORDER BY created_at ASC`,
		userID, now,
	)
}

func (r *StoryRepo) ListByOwner(ctx context.Context, userID uuid.UUID, archived bool) ([]domain.Story, error) {
	return r.list(ctx, `
		SELECT `+storyColumns+` FROM stories
		WHERE user_id = $1 AND is_archived = $2
		ORDER BY created_at DESC`,
		userID, archived,
	)
}

func (r *StoryRepo) list(ctx context.Context, query string, args ...any) ([]domain.Story, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stories := []domain.Story{}
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *s)
	}
	return stories, rows.Err()
}

func (r *StoryRepo) SaveArchiveState(ctx context.Context, story *domain.Story) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stories SET is_archived = $1, expires_at = $2
		WHERE id = $3 AND user_id = $4 AND is_archived = NOT $1`,
		story.IsArchived, story.ExpiresAt, story.ID, story.UserID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *StoryRepo) IncrementViews(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE stories SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *StoryRepo) DeleteOwned(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
