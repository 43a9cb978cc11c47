package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tyrowin/collabhub/internal/domain/chat"
	"github.com/Tyrowin/collabhub/internal/domain/document"
	"github.com/Tyrowin/collabhub/internal/repository"
	"github.com/google/uuid"
)

// MessageStore persists chat messages.
type MessageStore interface {
	Create(ctx context.Context, msg *chat.Message) error
}

// DocumentStore persists document snapshots.
type DocumentStore interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	ListByProject(ctx context.Context, projectID string) ([]document.Document, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) (*document.Document, error)
}

// EventRouter validates inbound events against the sender's identity and
// subscriptions, persists where required, then fans out.
type EventRouter struct {
	registry  *Registry
	sync      *Synchronizer
	calls     *CallRelay
	messages  MessageStore
	documents DocumentStore
	out       *fanout
	logger    *slog.Logger
	now       func() time.Time

	// requireDocumentMembership restricts join-document to members of the
	// document's project.
	requireDocumentMembership bool
}

// Route handles one inbound event. Failures are logged and returned; they
// never terminate the connection.
func (r *EventRouter) Route(ctx context.Context, id ConnID, event Inbound) error {
	var err error
	switch e := event.(type) {
	case *JoinRooms:
		err = r.joinRooms(ctx, id, e)
	case *SendChat:
		err = r.sendChat(ctx, id, e)
	case *JoinDocument:
		err = r.joinDocument(ctx, id, e)
	case *LeaveDocument:
		r.registry.Unsubscribe(id, DocumentRoom(e.DocumentID))
	case *EditDocument:
		err = r.editDocument(ctx, id, e)
	case *JoinCall:
		err = r.joinCall(id, e)
	case *LeaveCall:
		err = r.leaveCall(id, e)
	case *SignalRelay:
		err = r.relaySignal(id, e)
	default:
		err = fmt.Errorf("%w: unsupported event %T", ErrMalformedEvent, event)
	}

	if err != nil {
		r.logRejected(id, event, err)
	}
	return err
}

func (r *EventRouter) joinRooms(ctx context.Context, id ConnID, e *JoinRooms) error {
	if verified, _, ok := r.authenticated(id); ok && verified != e.UserID {
		return fmt.Errorf("%w: token subject does not match %s", ErrUnauthenticated, e.UserID)
	}
	return r.sync.Identify(ctx, id, e.UserID)
}

func (r *EventRouter) sendChat(ctx context.Context, id ConnID, e *SendChat) error {
	userID, ok := r.registry.UserOf(id)
	if !ok {
		return ErrUnauthenticated
	}
	room := ProjectRoom(e.ProjectID)
	if !r.registry.IsSubscribed(id, room) {
		return fmt.Errorf("%w: not a member of project %s", ErrUnauthorized, e.ProjectID)
	}

	authorName := e.AuthorName
	if authorName == "" {
		if _, name, ok := r.authenticated(id); ok {
			authorName = name
		}
	}

	msg := &chat.Message{
		ID:         uuid.NewString(),
		ProjectID:  e.ProjectID,
		AuthorID:   userID,
		AuthorName: authorName,
		Text:       e.Text,
		CreatedAt:  r.now().UTC(),
	}
	if err := r.messages.Create(ctx, msg); err != nil {
		return storeError("persist chat message", err)
	}

	frame, err := EncodeFrame(EventChatReceived, msg)
	if err != nil {
		return err
	}
	r.out.room(room, frame, "")
	return nil
}

func (r *EventRouter) joinDocument(ctx context.Context, id ConnID, e *JoinDocument) error {
	if r.requireDocumentMembership {
		doc, err := r.documents.Get(ctx, e.DocumentID)
		if err != nil {
			return storeError("load document", err)
		}
		if !r.registry.IsSubscribed(id, ProjectRoom(doc.ProjectID)) {
			return fmt.Errorf("%w: not a member of project %s", ErrUnauthorized, doc.ProjectID)
		}
	}
	return r.registry.Subscribe(id, DocumentRoom(e.DocumentID))
}

func (r *EventRouter) editDocument(ctx context.Context, id ConnID, e *EditDocument) error {
	room := DocumentRoom(e.DocumentID)
	if !r.registry.IsSubscribed(id, room) {
		return fmt.Errorf("%w: not editing document %s", ErrUnauthorized, e.DocumentID)
	}

	doc, err := r.documents.UpdateContent(ctx, e.DocumentID, e.Content, r.now().UTC())
	if err != nil {
		return storeError("persist document", err)
	}

	frame, err := EncodeFrame(EventDocumentChanged, DocumentChangedPayload{DocumentID: doc.ID, Content: doc.Content})
	if err != nil {
		return err
	}
	r.out.room(room, frame, id)
	return nil
}

func (r *EventRouter) joinCall(id ConnID, e *JoinCall) error {
	userID, err := r.callIdentity(id, e.UserID)
	if err != nil {
		return err
	}
	return r.calls.Join(id, userID, e.RoomID)
}

func (r *EventRouter) leaveCall(id ConnID, e *LeaveCall) error {
	userID, err := r.callIdentity(id, e.UserID)
	if err != nil {
		return err
	}
	r.calls.Leave(id, userID, e.RoomID)
	return nil
}

func (r *EventRouter) relaySignal(id ConnID, e *SignalRelay) error {
	callerID, err := r.callIdentity(id, e.CallerID)
	if err != nil {
		return err
	}
	if r.calls.RelaySignal(callerID, e.TargetUserID, e.Signal) == 0 {
		r.logger.Debug("signal dropped", "caller_id", callerID, "target_user_id", e.TargetUserID)
	}
	return nil
}

// callIdentity returns the connection's user. A claimed user ID in the payload
// must match it.
func (r *EventRouter) callIdentity(id ConnID, claimed string) (string, error) {
	userID, ok := r.registry.UserOf(id)
	if !ok {
		return "", ErrUnauthenticated
	}
	if claimed != "" && claimed != userID {
		return "", fmt.Errorf("%w: payload user %s does not match connection", ErrUnauthenticated, claimed)
	}
	return userID, nil
}

func (r *EventRouter) authenticated(id ConnID) (string, string, bool) {
	conn, ok := r.registry.Conn(id)
	if !ok {
		return "", "", false
	}
	auth, ok := conn.(Authenticated)
	if !ok {
		return "", "", false
	}
	userID, name := auth.AuthenticatedUser()
	return userID, name, userID != ""
}

func (r *EventRouter) logRejected(id ConnID, event Inbound, err error) {
	attrs := []any{"conn_id", id, "event", event.EventName(), "error", err}
	if errors.Is(err, ErrTransientStore) {
		r.logger.Error("event failed", attrs...)
		return
	}
	r.logger.Warn("event rejected", attrs...)
}

// storeError classifies a repository failure as not-found or transient.
func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s: %v", ErrNotFound, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrTransientStore, op, err)
}
