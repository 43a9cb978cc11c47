package sqlite

import (
	"context"
	"fmt"

	"github.com/Tyrowin/collabhub/internal/domain/chat"
	"github.com/Tyrowin/collabhub/internal/repository"
)

// MessageRepository implements chat.Repository for SQLite
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

var _ chat.Repository = (*MessageRepository)(nil)

// Create persists a chat message. A missing project yields repository.ErrNotFound.
func (r *MessageRepository) Create(ctx context.Context, msg *chat.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, project_id, author_id, author_name, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ProjectID, msg.AuthorID, msg.AuthorName, msg.Text, msg.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByProject returns a project's history oldest first
func (r *MessageRepository) ListByProject(ctx context.Context, projectID string) ([]chat.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, author_id, author_name, text, created_at
		FROM messages
		WHERE project_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []chat.Message{}
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.AuthorID, &m.AuthorName, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
