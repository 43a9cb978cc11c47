package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Tyrowin/collabhub/internal/domain/document"
	"github.com/Tyrowin/collabhub/internal/repository"
)

// DocumentRepository implements document.Repository for SQLite
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var _ document.Repository = (*DocumentRepository)(nil)

// Create creates a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, project_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.ProjectID, doc.Title, doc.Content, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID
func (r *DocumentRepository) Get(ctx context.Context, id string) (*document.Document, error) {
	var doc document.Document
	err := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, content, created_at, updated_at
		FROM documents
		WHERE id = ?
	`, id).Scan(&doc.ID, &doc.ProjectID, &doc.Title, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// ListByProject lists a project's documents, newest first
func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string) ([]document.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, title, content, created_at, updated_at
		FROM documents
		WHERE project_id = ?
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []document.Document{}
	for rows.Next() {
		var doc document.Document
		if err := rows.Scan(&doc.ID, &doc.ProjectID, &doc.Title, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateContent overwrites the document content. There is no version check:
// the last write persisted wins.
func (r *DocumentRepository) UpdateContent(ctx context.Context, id, content string, at time.Time) (*document.Document, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents SET content = ?, updated_at = ? WHERE id = ?
	`, content, at, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	ok, err := changed(res)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.Get(ctx, id)
}
