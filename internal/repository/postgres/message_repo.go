package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/anonbox/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, recipient_id, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.RecipientID, msg.Content, msg.IsRead, msg.CreatedAt)
	return err
}

func (r *MessageRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, recipient_id, content, is_read, created_at
		FROM messages
		WHERE recipient_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.RecipientID, &msg.Content, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (r *MessageRepo) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID,
	).Scan(&n)
	return n, err
}

func (r *MessageRepo) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (bool, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_read = TRUE WHERE id = $1 AND recipient_id = $2 AND is_read = FALSE`,
		id, recipientID,
	)
	if err != nil {
		return false, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, false, err
	}
	if n > 0 {
		return true, true, nil
	}

	// Nothing changed: either already read, or not ours.
	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1 AND recipient_id = $2)`,
		id, recipientID,
	).Scan(&exists)
	if err != nil {
		return false, false, fmt.Errorf("check message: %w", err)
	}
	return exists, false, nil
}

func (r *MessageRepo) DeleteAllForRecipient(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE recipient_id = $1`, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
