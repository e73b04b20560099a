package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ConversationRepository stores saved conversations.
type ConversationRepository interface {
	Create(ctx context.Context, conv *Conversation) error

	// ListByUser returns up to limit conversations, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Conversation, error)
}

// conversationRepository is the MariaDB implementation. Messages live in
// a JSON column.
type conversationRepository struct {
	db *sql.DB
}

// NewConversationRepository creates a new MariaDB-backed repository.
func NewConversationRepository(db *sql.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *Conversation) error {
	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("encoding conversation messages: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, messages, created_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.UserID, messages, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, messages, created_at FROM conversations
		WHERE user_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	convs := []Conversation{}
	for rows.Next() {
		var (
			c   Conversation
			raw []byte
		)
		if err := rows.Scan(&c.ID, &c.UserID, &raw, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		if err := json.Unmarshal(raw, &c.Messages); err != nil {
			return nil, fmt.Errorf("decoding conversation %s: %w", c.ID, err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return convs, nil
}
