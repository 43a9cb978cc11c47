package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Tyrowin/collabhub/internal/repository"
	"github.com/google/uuid"
)

// Service implements the membership workflow behind the REST surface: project
// creation, invite-code join requests, approval, leave, kick and deletion.
// Durable state is written first; live connections are updated afterwards.
type Service struct {
	repo   Repository
	live   LiveUpdates
	logger *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, live LiveUpdates, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		live:   live,
		logger: logger.With(slog.String("component", "project_service")),
	}
}

// Requester identifies the user asking to join a project.
type Requester struct {
	ID    string
	Name  string
	Email string
}

// Details is a project together with its member list. PendingRequests is only
// filled for the creator.
type Details struct {
	Project         *Project         `json:"project"`
	Members         []Member         `json:"members"`
	PendingRequests []PendingRequest `json:"pendingRequests,omitempty"`
}

// Create creates a project whose creator is its sole member.
func (s *Service) Create(ctx context.Context, creatorID, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" || creatorID == "" {
		return nil, ErrInvalidInput
	}

	proj := &Project{
		ID:         uuid.NewString(),
		Name:       name,
		CreatorID:  creatorID,
		InviteCode: newInviteCode(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, proj); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.pushMembership(ctx, creatorID, proj.ID, Joined)
	return proj, nil
}

// List returns the projects the user belongs to.
func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	projects, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// RequireMember fetches a project and checks that userID belongs to it.
func (s *Service) RequireMember(ctx context.Context, userID, projectID string) (*Project, error) {
	proj, err := s.get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.IsMember(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking membership: %w", err)
	}
	if !ok && proj.CreatorID != userID {
		return nil, ErrForbidden
	}
	return proj, nil
}

// Get returns a project with its members, visible to members only.
func (s *Service) Get(ctx context.Context, userID, projectID string) (*Details, error) {
	proj, err := s.RequireMember(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	details := &Details{Project: proj, Members: members}
	if proj.CreatorID == userID {
		pending, err := s.repo.ListPendingRequests(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("listing join requests: %w", err)
		}
		details.PendingRequests = pending
	}
	return details, nil
}

// RequestJoin records a join request for the project behind inviteCode and
// alerts its creator. It returns false when a request was already pending.
func (s *Service) RequestJoin(ctx context.Context, req Requester, inviteCode string) (bool, error) {
	if strings.TrimSpace(inviteCode) == "" || req.ID == "" {
		return false, ErrInvalidInput
	}

	proj, err := s.repo.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrProjectNotFound
		}
		return false, fmt.Errorf("finding project by invite code: %w", err)
	}

	member, err := s.repo.IsMember(ctx, proj.ID, req.ID)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	if member {
		return false, ErrAlreadyMember
	}

	added, err := s.repo.AddPendingRequest(ctx, proj.ID, PendingRequest{
		UserID: req.ID,
		Name:   req.Name,
		Email:  req.Email,
	})
	if err != nil {
		return false, fmt.Errorf("adding join request: %w", err)
	}
	if !added {
		return false, nil
	}

	if s.live != nil {
		notice := JoinRequestNotice{
			ProjectID:     proj.ID,
			ProjectName:   proj.Name,
			RequesterID:   req.ID,
			RequesterName: req.Name,
		}
		if err := s.live.NotifyJoinRequest(ctx, proj.CreatorID, notice); err != nil {
			s.logger.Warn("join request notice not delivered", slog.String("projectID", proj.ID), slog.Any("error", err))
		}
	}
	return true, nil
}

// HandleRequest approves or denies a pending join request. Only the creator
// may decide.
func (s *Service) HandleRequest(ctx context.Context, actorID, projectID, userID string, approve bool) error {
	proj, err := s.requireCreator(ctx, actorID, projectID)
	if err != nil {
		return err
	}

	removed, err := s.repo.RemovePendingRequest(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("removing join request: %w", err)
	}
	if !removed {
		return ErrRequestNotFound
	}
	if !approve {
		return nil
	}

	added, err := s.repo.AddMember(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	if !added {
		return nil
	}

	s.pushMembership(ctx, userID, projectID, Joined)
	if s.live != nil {
		notice := ApprovalNotice{ProjectID: proj.ID, ProjectName: proj.Name}
		if err := s.live.NotifyApproved(ctx, userID, notice); err != nil {
			s.logger.Warn("approval notice not delivered", slog.String("projectID", projectID), slog.Any("error", err))
		}
	}
	return nil
}

// Leave removes the caller from a project. The creator must delete instead.
func (s *Service) Leave(ctx context.Context, userID, projectID string) error {
	proj, err := s.get(ctx, projectID)
	if err != nil {
		return err
	}
	if proj.CreatorID == userID {
		return ErrCreatorCannotLeave
	}

	removed, err := s.repo.RemoveMember(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if removed {
		s.pushMembership(ctx, userID, projectID, Left)
	}
	return nil
}

// Kick removes another member. Kicking a user who is no longer a member is a
// no-op and emits nothing.
func (s *Service) Kick(ctx context.Context, actorID, projectID, userID string) error {
	proj, err := s.requireCreator(ctx, actorID, projectID)
	if err != nil {
		return err
	}
	if userID == "" || userID == proj.CreatorID {
		return ErrInvalidInput
	}

	removed, err := s.repo.RemoveMember(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if removed {
		s.pushMembership(ctx, userID, projectID, Kicked)
	}
	return nil
}

// Delete removes a project and everything attached to it. Creator only.
func (s *Service) Delete(ctx context.Context, actorID, projectID string) error {
	if _, err := s.requireCreator(ctx, actorID, projectID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if s.live != nil {
		if err := s.live.ProjectDeleted(ctx, projectID); err != nil {
			s.logger.Warn("project deletion not pushed to live rooms", slog.String("projectID", projectID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) get(ctx context.Context, projectID string) (*Project, error) {
	proj, err := s.repo.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

func (s *Service) requireCreator(ctx context.Context, actorID, projectID string) (*Project, error) {
	proj, err := s.get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if proj.CreatorID != actorID {
		return nil, ErrForbidden
	}
	return proj, nil
}

// pushMembership forwards a committed membership change to live connections.
// Failures are logged only: the durable change stands and clients catch up on
// their next connect.
func (s *Service) pushMembership(ctx context.Context, userID, projectID string, change MembershipChange) {
	if s.live == nil {
		return
	}
	if err := s.live.MembershipChanged(ctx, userID, projectID, change); err != nil {
		s.logger.Warn("membership change not pushed to live rooms",
			slog.String("userID", userID),
			slog.String("projectID", projectID),
			slog.String("change", change.String()),
			slog.Any("error", err),
		)
	}
}

func newInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
