package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/Tyrowin/collabhub/internal/domain/project"
	"github.com/tidwall/gjson"
)

// Inbound event names.
const (
	EventJoinRooms     = "join-rooms"
	EventSendChat      = "send-chat"
	EventJoinDocument  = "join-document"
	EventLeaveDocument = "leave-document"
	EventEditDocument  = "edit-document"
	EventJoinCall      = "join-call"
	EventLeaveCall     = "leave-call"
	EventSignalRelay   = "signal-relay"
)

// Outbound event names.
const (
	EventChatReceived     = "chat-received"
	EventDocumentChanged  = "document-changed"
	EventMemberUpdated    = "member-updated"
	EventYouWereKicked    = "you-were-kicked"
	EventJoinRequest      = "join-request"
	EventRequestApproved  = "request-approved"
	EventProjectDeleted   = "project-deleted"
	EventUserConnected    = "user-connected"
	EventUserDisconnected = "user-disconnected"
	EventPeerSignal       = "peer-signal"
)

// Frame is the wire envelope for every WebSocket message in both directions.
type Frame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Inbound is one of the closed set of client events.
type Inbound interface {
	EventName() string
	validate(payload gjson.Result) error
}

// JoinRooms identifies the connection and subscribes it to its project rooms.
type JoinRooms struct {
	UserID string `json:"userId"`
}

// SendChat posts a chat message to a project.
type SendChat struct {
	ProjectID  string `json:"projectId"`
	Text       string `json:"text"`
	AuthorName string `json:"authorName"`
}

// JoinDocument subscribes the connection to a document room.
type JoinDocument struct {
	DocumentID string `json:"documentId"`
}

// LeaveDocument unsubscribes the connection from a document room.
type LeaveDocument struct {
	DocumentID string `json:"documentId"`
}

// EditDocument replaces a document's content. Content may be empty but must be present.
type EditDocument struct {
	DocumentID string `json:"documentId"`
	Content    string `json:"content"`
}

// JoinCall enters a call room.
type JoinCall struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// LeaveCall exits a call room.
type LeaveCall struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// SignalRelay forwards an opaque signaling blob to another user's connections.
type SignalRelay struct {
	TargetUserID string          `json:"targetUserId"`
	Signal       json.RawMessage `json:"signal"`
	CallerID     string          `json:"callerId"`
}

func (*JoinRooms) EventName() string     { return EventJoinRooms }
func (*SendChat) EventName() string      { return EventSendChat }
func (*JoinDocument) EventName() string  { return EventJoinDocument }
func (*LeaveDocument) EventName() string { return EventLeaveDocument }
func (*EditDocument) EventName() string  { return EventEditDocument }
func (*JoinCall) EventName() string      { return EventJoinCall }
func (*LeaveCall) EventName() string     { return EventLeaveCall }
func (*SignalRelay) EventName() string   { return EventSignalRelay }

func (e *JoinRooms) validate(gjson.Result) error {
	return required("userId", e.UserID)
}

func (e *SendChat) validate(gjson.Result) error {
	if err := required("projectId", e.ProjectID); err != nil {
		return err
	}
	return required("text", e.Text)
}

func (e *JoinDocument) validate(gjson.Result) error {
	return required("documentId", e.DocumentID)
}

func (e *LeaveDocument) validate(gjson.Result) error {
	return required("documentId", e.DocumentID)
}

func (e *EditDocument) validate(payload gjson.Result) error {
	if err := required("documentId", e.DocumentID); err != nil {
		return err
	}
	if content := payload.Get("content"); content.Type != gjson.String {
		return fmt.Errorf("%w: content must be a string", ErrMalformedEvent)
	}
	return nil
}

func (e *JoinCall) validate(gjson.Result) error {
	return required("roomId", e.RoomID)
}

func (e *LeaveCall) validate(gjson.Result) error {
	return required("roomId", e.RoomID)
}

func (e *SignalRelay) validate(payload gjson.Result) error {
	if err := required("targetUserId", e.TargetUserID); err != nil {
		return err
	}
	if signal := payload.Get("signal"); !signal.Exists() || signal.Type == gjson.Null {
		return fmt.Errorf("%w: signal is required", ErrMalformedEvent)
	}
	return nil
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrMalformedEvent, field)
	}
	return nil
}

var inboundEvents = map[string]func() Inbound{
	EventJoinRooms:     func() Inbound { return &JoinRooms{} },
	EventSendChat:      func() Inbound { return &SendChat{} },
	EventJoinDocument:  func() Inbound { return &JoinDocument{} },
	EventLeaveDocument: func() Inbound { return &LeaveDocument{} },
	EventEditDocument:  func() Inbound { return &EditDocument{} },
	EventJoinCall:      func() Inbound { return &JoinCall{} },
	EventLeaveCall:     func() Inbound { return &LeaveCall{} },
	EventSignalRelay:   func() Inbound { return &SignalRelay{} },
}

// DecodeInbound parses a raw client frame into its typed event. Every failure
// wraps ErrMalformedEvent.
func DecodeInbound(raw []byte) (Inbound, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedEvent)
	}

	name := gjson.GetBytes(raw, "event")
	if name.Type != gjson.String {
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedEvent)
	}
	newEvent, ok := inboundEvents[name.Str]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event %q", ErrMalformedEvent, name.Str)
	}

	payload := gjson.GetBytes(raw, "payload")
	if !payload.IsObject() {
		return nil, fmt.Errorf("%w: payload must be an object", ErrMalformedEvent)
	}

	event := newEvent()
	if err := json.Unmarshal([]byte(payload.Raw), event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := event.validate(payload); err != nil {
		return nil, err
	}
	return event, nil
}

// EncodeFrame renders an outbound event.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(Frame{Event: event, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return data, nil
}

// DocumentChangedPayload carries the new snapshot of a document.
type DocumentChangedPayload struct {
	DocumentID string `json:"documentId"`
	Content    string `json:"content"`
}

// MemberUpdatedPayload carries a project's authoritative member list.
type MemberUpdatedPayload struct {
	ProjectID string           `json:"projectId"`
	Members   []project.Member `json:"members"`
}

// ProjectPayload names the project an event is about.
type ProjectPayload struct {
	ProjectID string `json:"projectId"`
}

// PresencePayload announces a user entering or leaving a call room.
type PresencePayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// PeerSignalPayload is delivered to the target of a signal relay.
type PeerSignalPayload struct {
	Signal   json.RawMessage `json:"signal"`
	CallerID string          `json:"callerId"`
}
