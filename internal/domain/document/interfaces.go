package document

import (
	"context"
	"time"
)

// Repository provides persistence for document snapshots.
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	ListByProject(ctx context.Context, projectID string) ([]Document, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) (*Document, error)
}
