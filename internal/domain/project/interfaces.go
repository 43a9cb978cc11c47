package project

import "context"

// Repository provides persistence for projects, memberships and join requests.
type Repository interface {
	// Create stores the project and makes its creator the sole member.
	Create(ctx context.Context, proj *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	GetByInviteCode(ctx context.Context, code string) (*Project, error)
	ListForUser(ctx context.Context, userID string) ([]Project, error)
	ProjectIDsForUser(ctx context.Context, userID string) ([]string, error)
	// Delete removes the project with its members, requests, messages and documents.
	Delete(ctx context.Context, id string) error

	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	// AddMember and RemoveMember report whether the membership actually changed.
	AddMember(ctx context.Context, projectID, userID string) (bool, error)
	RemoveMember(ctx context.Context, projectID, userID string) (bool, error)
	ListMembers(ctx context.Context, projectID string) ([]Member, error)

	// AddPendingRequest reports false when the user already has a pending request.
	AddPendingRequest(ctx context.Context, projectID string, req PendingRequest) (bool, error)
	RemovePendingRequest(ctx context.Context, projectID, userID string) (bool, error)
	ListPendingRequests(ctx context.Context, projectID string) ([]PendingRequest, error)
}

// LiveUpdates pushes durable membership changes to connected clients. It is
// implemented by the realtime hub; every call returns once live room state
// reflects the change.
type LiveUpdates interface {
	MembershipChanged(ctx context.Context, userID, projectID string, change MembershipChange) error
	ProjectDeleted(ctx context.Context, projectID string) error
	NotifyJoinRequest(ctx context.Context, creatorID string, notice JoinRequestNotice) error
	NotifyApproved(ctx context.Context, userID string, notice ApprovalNotice) error
}
