package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/repository"
)

func TestPollRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPollRepo(db)

	p := &domain.Poll{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		Question:  "tea or coffee?",
		Options:   []domain.PollOption{{ID: uuid.New(), Text: "tea"}, {ID: uuid.New(), Text: "coffee"}},
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO polls")).
		WithArgs(p.ID, p.CreatorID, p.Question, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO poll_options")).
		WithArgs(p.Options[0].ID, p.ID, 0, "tea", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO poll_options")).
		WithArgs(p.Options[1].ID, p.ID, 1, "coffee", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPollRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPollRepo(db)
	id, creator, optA, optB := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM polls p WHERE p.id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "question", "is_active", "created_at", "count"}).
			AddRow(id.String(), creator.String(), "q?", true, time.Now(), 3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM poll_options WHERE poll_id = $1 ORDER BY position")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "votes"}).
			AddRow(optA.String(), "A", 2).
			AddRow(optB.String(), "B", 1))

	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 3, p.VoterCount)
	require.Len(t, p.Options, 2)
	assert.Equal(t, optA, p.Options[0].ID)
	assert.Equal(t, p.VoterCount, p.TotalVotes())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPollRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPollRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM polls p WHERE p.id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "question", "is_active", "created_at", "count"}))

	p, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestPollRepo_RecordVote_Accepted(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPollRepo(db)
	pollID, optID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_active FROM polls WHERE id = $1 FOR SHARE")).
		WithArgs(pollID).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (poll_id, voter_id) DO NOTHING")).
		WithArgs(pollID, "voter-x", optID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE poll_options SET votes = votes + 1 WHERE id = $1 AND poll_id = $2")).
		WithArgs(optID, pollID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.RecordVote(context.Background(), pollID, optID, "voter-x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPollRepo_RecordVote_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPollRepo(db)
	pollID, optID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_active FROM polls WHERE id = $1 FOR SHARE")).
		WithArgs(pollID).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO poll_voters")).
		WithArgs(pollID, "voter-x", optID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ok, err := repo.RecordVote(context.Background(), pollID, optID, "voter-x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPollRepo_RecordVote_ForeignOption(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPollRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR SHARE")).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO poll_voters")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE poll_options")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.RecordVote(context.Background(), uuid.New(), uuid.New(), "voter-x")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPollRepo_RecordVote_Closed(t *testing.T) {
	tests := []struct {
		name string
		rows *sqlmock.Rows
	}{
		{"inactive", sqlmock.NewRows([]string{"is_active"}).AddRow(false)},
		{"deleted", sqlmock.NewRows([]string{"is_active"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewPollRepo(db)
			pollID := uuid.New()

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta("SELECT is_active FROM polls WHERE id = $1 FOR SHARE")).
				WithArgs(pollID).
				WillReturnRows(tt.rows)
			mock.ExpectRollback()

			ok, err := repo.RecordVote(context.Background(), pollID, uuid.New(), "voter-x")
			assert.ErrorIs(t, err, repository.ErrPollClosed)
			assert.False(t, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPollRepo_DeleteOwned(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPollRepo(db)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM polls WHERE id = $1 AND creator_id = $2")).
		WithArgs(id, owner).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DeleteOwned(context.Background(), id, owner)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPollRepo_Toggle_NotOwned(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPollRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE polls SET is_active = NOT is_active")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	p, err := repo.Toggle(context.Background(), uuid.New(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}
