package chat

import "context"

// Repository provides persistence for chat messages.
type Repository interface {
	Create(ctx context.Context, msg *Message) error
	ListByProject(ctx context.Context, projectID string) ([]Message, error)
}
