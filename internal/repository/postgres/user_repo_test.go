package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/repository"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var userCols = []string{
	"id", "username", "email", "password_hash", "prompt", "avatar_url", "avatar_key",
	"reset_token_hash", "reset_token_expires", "created_at", "updated_at",
}

func TestUserRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	u := &domain.User{ID: uuid.New(), Username: "alice", PasswordHash: "hash", Prompt: domain.DefaultPrompt, CreatedAt: time.Now(), UpdatedAt: time.Now()}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(u.ID, "alice", nil, "hash", domain.DefaultPrompt, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_Duplicates(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"users_username_key", repository.ErrDuplicateUsername},
		{"users_email_key", repository.ErrDuplicateEmail},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewUserRepo(db)

			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			err := repo.Create(context.Background(), &domain.User{ID: uuid.New(), Username: "alice"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserRepo_GetByUsername(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(id.String(), "alice", "alice@example.com", "hash", "ask me", nil, nil, nil, nil, now, now))

	u, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, id, u.ID)
	require.NotNil(t, u.Email)
	assert.Equal(t, "alice@example.com", *u.Email)
	assert.Nil(t, u.AvatarURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByUsername_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := repo.GetByUsername(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepo_GetByResetToken_ChecksExpiry(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE reset_token_hash = $1 AND reset_token_expires > $2")).
		WithArgs("tokenhash", now).
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := repo.GetByResetToken(context.Background(), "tokenhash", now)
	assert.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdatePassword_ClearsToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("SET password_hash = $1, reset_token_hash = NULL, reset_token_expires = NULL")).
		WithArgs("newhash", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), id, "newhash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
