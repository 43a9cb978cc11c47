package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Tyrowin/collabhub/internal/domain/project"
)

// ProjectStore is the durable membership view the synchronizer reads.
type ProjectStore interface {
	ProjectIDsForUser(ctx context.Context, userID string) ([]string, error)
	ListMembers(ctx context.Context, projectID string) ([]project.Member, error)
}

// Synchronizer keeps project-room subscriptions equal to durable membership for
// every identified connection.
type Synchronizer struct {
	registry  *Registry
	projects  ProjectStore
	documents DocumentStore
	out       *fanout
	notifier  *Notifier
	logger    *slog.Logger
}

// Identify binds the connection to userID and subscribes it to the room of
// every project the user belongs to.
func (s *Synchronizer) Identify(ctx context.Context, id ConnID, userID string) error {
	if err := s.registry.Identify(id, userID); err != nil {
		return err
	}

	projectIDs, err := s.projects.ProjectIDsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: load projects for %s: %v", ErrTransientStore, userID, err)
	}
	for _, projectID := range projectIDs {
		if err := s.registry.Subscribe(id, ProjectRoom(projectID)); err != nil {
			return err
		}
	}

	s.logger.Debug("connection identified", "conn_id", id, "user_id", userID, "projects", len(projectIDs))
	return nil
}

// MembershipChanged applies a durable membership change to the user's live
// connections and pushes the refreshed member list to the project room.
func (s *Synchronizer) MembershipChanged(ctx context.Context, userID, projectID string, change project.MembershipChange) {
	room := ProjectRoom(projectID)
	conns := s.registry.ConnectionsOf(userID)

	switch change {
	case project.Joined:
		for _, id := range conns {
			if err := s.registry.Subscribe(id, room); err != nil {
				s.logger.Debug("subscribe skipped", "conn_id", id, "error", err)
			}
		}
	case project.Left, project.Kicked:
		for _, id := range conns {
			s.registry.Unsubscribe(id, room)
		}
		s.leaveDocuments(ctx, conns, projectID)
	}

	s.broadcastMembers(ctx, projectID)

	if change == project.Kicked {
		s.notifier.Notify(userID, EventYouWereKicked, ProjectPayload{ProjectID: projectID})
	}

	s.logger.Info("membership synchronized",
		"user_id", userID,
		"project_id", projectID,
		"change", change.String(),
		"connections", len(conns))
}

// ProjectDeleted tells the project room the project is gone and then empties it.
func (s *Synchronizer) ProjectDeleted(projectID string) {
	room := ProjectRoom(projectID)
	frame, err := EncodeFrame(EventProjectDeleted, ProjectPayload{ProjectID: projectID})
	if err == nil {
		s.out.room(room, frame, "")
	} else {
		s.logger.Error("failed to encode project deletion", "project_id", projectID, "error", err)
	}

	cleared := s.registry.ClearRoom(room)
	s.logger.Info("project room closed", "project_id", projectID, "connections", len(cleared))
}

// leaveDocuments drops the connections from the document rooms of a project
// the user no longer belongs to.
func (s *Synchronizer) leaveDocuments(ctx context.Context, conns []ConnID, projectID string) {
	if s.documents == nil || len(conns) == 0 {
		return
	}
	docs, err := s.documents.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("failed to load project documents", "project_id", projectID, "error", err)
		return
	}
	for _, doc := range docs {
		for _, id := range conns {
			s.registry.Unsubscribe(id, DocumentRoom(doc.ID))
		}
	}
}

func (s *Synchronizer) broadcastMembers(ctx context.Context, projectID string) {
	members, err := s.projects.ListMembers(ctx, projectID)
	if err != nil {
		s.logger.Error("failed to load members", "project_id", projectID, "error", err)
		return
	}

	frame, err := EncodeFrame(EventMemberUpdated, MemberUpdatedPayload{ProjectID: projectID, Members: members})
	if err != nil {
		s.logger.Error("failed to encode member list", "project_id", projectID, "error", err)
		return
	}
	s.out.room(ProjectRoom(projectID), frame, "")
}
