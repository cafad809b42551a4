package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/repository"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

func (r *PollRepo) Create(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO polls (id, creator_id, question, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		poll.ID, poll.CreatorID, poll.Question, poll.IsActive, poll.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert poll: %w", err)
	}

	for i, opt := range poll.Options {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO poll_options (id, poll_id, position, text, votes)
			VALUES ($1, $2, $3, $4, $5)`,
			opt.ID, poll.ID, i, opt.Text, opt.Votes,
		)
		if err != nil {
			return fmt.Errorf("insert poll option: %w", err)
		}
	}

	return tx.Commit()
}

const pollColumns = `p.id, p.creator_id, p.question, p.is_active, p.created_at,
	(SELECT COUNT(*) FROM poll_voters v WHERE v.poll_id = p.id)`

func scanPoll(row interface{ Scan(...any) error }, p *domain.Poll) error {
	return row.Scan(&p.ID, &p.CreatorID, &p.Question, &p.IsActive, &p.CreatedAt, &p.VoterCount)
}

func (r *PollRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	var p domain.Poll
	err := scanPoll(r.db.QueryRowContext(ctx, `SELECT `+pollColumns+` FROM polls p WHERE p.id = $1`, id), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if p.Options, err = r.loadOptions(ctx, p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PollRepo) ListByCreator(ctx context.Context, creatorID uuid.UUID, activeOnly bool) ([]domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls p WHERE p.creator_id = $1`
	if activeOnly {
		query += ` AND p.is_active = TRUE`
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	polls := []domain.Poll{}
	for rows.Next() {
		var p domain.Poll
		if err := scanPoll(rows, &p); err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range polls {
		if polls[i].Options, err = r.loadOptions(ctx, polls[i].ID); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

func (r *PollRepo) loadOptions(ctx context.Context, pollID uuid.UUID) ([]domain.PollOption, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, votes FROM poll_options WHERE poll_id = $1 ORDER BY position`,
		pollID,
	)
	if err != nil {
		return nil, fmt.Errorf("load poll options: %w", err)
	}
	defer rows.Close()

	opts := []domain.PollOption{}
	for rows.Next() {
		var o domain.PollOption
		if err := rows.Scan(&o.ID, &o.Text, &o.Votes); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

func (r *PollRepo) RecordVote(ctx context.Context, pollID, optionID uuid.UUID, voterID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// FOR SHARE holds off a concurrent deactivation until commit.
	var active bool
	err = tx.QueryRowContext(ctx, `SELECT is_active FROM polls WHERE id = $1 FOR SHARE`, pollID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, repository.ErrPollClosed
	}
	if err != nil {
		return false, fmt.Errorf("lock poll: %w", err)
	}
	if !active {
		return false, repository.ErrPollClosed
	}

	// The primary key on (poll_id, voter_id) makes the duplicate check and
	// the ledger insert one statement.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO poll_voters (poll_id, voter_id, option_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (poll_id, voter_id) DO NOTHING`,
		pollID, voterID, optionID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("insert voter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE poll_options SET votes = votes + 1 WHERE id = $1 AND poll_id = $2`,
		optionID, pollID,
	)
	if err != nil {
		return false, fmt.Errorf("increment option: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return false, err
	}
	if n == 0 {
		return false, fmt.Errorf("option %s not in poll %s", optionID, pollID)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *PollRepo) Toggle(ctx context.Context, id, creatorID uuid.UUID) (*domain.Poll, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE polls SET is_active = NOT is_active WHERE id = $1 AND creator_id = $2`,
		id, creatorID,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *PollRepo) DeleteOwned(ctx context.Context, id, creatorID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1 AND creator_id = $2`, id, creatorID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
