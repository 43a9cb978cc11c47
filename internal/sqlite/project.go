package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Tyrowin/collabhub/internal/domain/project"
	"github.com/Tyrowin/collabhub/internal/repository"
)

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

var _ project.Repository = (*ProjectRepository)(nil)

// Create creates a new project and records its creator as the first member
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, creator_id, invite_code, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, proj.ID, proj.Name, proj.CreatorID, proj.InviteCode, proj.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, joined_at) VALUES (?, ?, ?)
	`, proj.ID, proj.CreatorID, proj.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add creator as member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project: %w", err)
	}
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	return r.getOne(ctx, `
		SELECT id, name, creator_id, invite_code, created_at
		FROM projects
		WHERE id = ?
	`, id)
}

// GetByInviteCode retrieves a project by its invite code
func (r *ProjectRepository) GetByInviteCode(ctx context.Context, code string) (*project.Project, error) {
	return r.getOne(ctx, `
		SELECT id, name, creator_id, invite_code, created_at
		FROM projects
		WHERE invite_code = ?
	`, code)
}

func (r *ProjectRepository) getOne(ctx context.Context, query string, arg any) (*project.Project, error) {
	var proj project.Project
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&proj.ID,
		&proj.Name,
		&proj.CreatorID,
		&proj.InviteCode,
		&proj.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &proj, nil
}

// ListForUser lists the projects a user belongs to, newest first
func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]project.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.creator_id, p.invite_code, p.created_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []project.Project{}
	for rows.Next() {
		var proj project.Project
		if err := rows.Scan(&proj.ID, &proj.Name, &proj.CreatorID, &proj.InviteCode, &proj.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, proj)
	}
	return projects, rows.Err()
}

// ProjectIDsForUser lists the IDs of the projects a user belongs to
func (r *ProjectRepository) ProjectIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id FROM project_members WHERE user_id = ? ORDER BY joined_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a project; members, requests, messages and documents cascade
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IsMember reports whether the user belongs to the project
func (r *ProjectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = ? AND user_id = ?)
	`, projectID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists == 1, nil
}

// AddMember adds a member; it reports false if the user already was one
func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO project_members (project_id, user_id, joined_at) VALUES (?, ?, ?)
	`, projectID, userID, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, repository.ErrNotFound
		}
		return false, fmt.Errorf("failed to add member: %w", err)
	}
	return changed(res)
}

// RemoveMember removes a member; it reports false if the user was not one
func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM project_members WHERE project_id = ? AND user_id = ?
	`, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove member: %w", err)
	}
	return changed(res)
}

// ListMembers lists project members in join order
func (r *ProjectRepository) ListMembers(ctx context.Context, projectID string) ([]project.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.user_id, COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM project_members m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.project_id = ?
		ORDER BY m.joined_at, m.rowid
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []project.Member{}
	for rows.Next() {
		var m project.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddPendingRequest records a join request; it reports false for duplicates
func (r *ProjectRepository) AddPendingRequest(ctx context.Context, projectID string, req project.PendingRequest) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO pending_requests (project_id, user_id, name, email, requested_at)
		VALUES (?, ?, ?, ?, ?)
	`, projectID, req.UserID, req.Name, req.Email, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, repository.ErrNotFound
		}
		return false, fmt.Errorf("failed to add join request: %w", err)
	}
	return changed(res)
}

// RemovePendingRequest deletes a join request; it reports false if none existed
func (r *ProjectRepository) RemovePendingRequest(ctx context.Context, projectID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM pending_requests WHERE project_id = ? AND user_id = ?
	`, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove join request: %w", err)
	}
	return changed(res)
}

// ListPendingRequests lists join requests in arrival order
func (r *ProjectRepository) ListPendingRequests(ctx context.Context, projectID string) ([]project.PendingRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, name, email FROM pending_requests
		WHERE project_id = ?
		ORDER BY requested_at, rowid
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	requests := []project.PendingRequest{}
	for rows.Next() {
		var req project.PendingRequest
		if err := rows.Scan(&req.UserID, &req.Name, &req.Email); err != nil {
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func changed(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
