package mocks

import (
	"context"
	"time"

	"github.com/Tyrowin/collabhub/internal/domain/chat"
	"github.com/Tyrowin/collabhub/internal/domain/document"
	"github.com/Tyrowin/collabhub/internal/domain/project"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) GetByInviteCode(ctx context.Context, code string) (*project.Project, error) {
	args := m.Called(ctx, code)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]project.Project, error) {
	args := m.Called(ctx, userID)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) ProjectIDsForUser(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProjectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ProjectRepository) AddMember(ctx context.Context, projectID, userID string) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ProjectRepository) ListMembers(ctx context.Context, projectID string) ([]project.Member, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]project.Member); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) AddPendingRequest(ctx context.Context, projectID string, req project.PendingRequest) (bool, error) {
	args := m.Called(ctx, projectID, req)
	return args.Bool(0), args.Error(1)
}

func (m *ProjectRepository) RemovePendingRequest(ctx context.Context, projectID, userID string) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ProjectRepository) ListPendingRequests(ctx context.Context, projectID string) ([]project.PendingRequest, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]project.PendingRequest); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// MessageRepository is a mock for chat.Repository.
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Create(ctx context.Context, msg *chat.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) ListByProject(ctx context.Context, projectID string) ([]chat.Message, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]chat.Message); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// DocumentRepository is a mock for document.Repository.
type DocumentRepository struct {
	mock.Mock
}

func (m *DocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *DocumentRepository) Get(ctx context.Context, id string) (*document.Document, error) {
	args := m.Called(ctx, id)
	if doc, ok := args.Get(0).(*document.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentRepository) ListByProject(ctx context.Context, projectID string) ([]document.Document, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]document.Document); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentRepository) UpdateContent(ctx context.Context, id, content string, at time.Time) (*document.Document, error) {
	args := m.Called(ctx, id, content, at)
	if doc, ok := args.Get(0).(*document.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

// LiveUpdates is a mock for project.LiveUpdates.
type LiveUpdates struct {
	mock.Mock
}

func (m *LiveUpdates) MembershipChanged(ctx context.Context, userID, projectID string, change project.MembershipChange) error {
	args := m.Called(ctx, userID, projectID, change)
	return args.Error(0)
}

func (m *LiveUpdates) ProjectDeleted(ctx context.Context, projectID string) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

func (m *LiveUpdates) NotifyJoinRequest(ctx context.Context, creatorID string, notice project.JoinRequestNotice) error {
	args := m.Called(ctx, creatorID, notice)
	return args.Error(0)
}

func (m *LiveUpdates) NotifyApproved(ctx context.Context, userID string, notice project.ApprovalNotice) error {
	args := m.Called(ctx, userID, notice)
	return args.Error(0)
}
