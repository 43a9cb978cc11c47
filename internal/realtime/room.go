package realtime

// RoomKind scopes room identifiers so that a document or call token can never
// alias a project room.
type RoomKind string

const (
	ProjectRoomKind  RoomKind = "project"
	DocumentRoomKind RoomKind = "document"
	CallRoomKind     RoomKind = "call"
)

// Room is a live broadcast scope. It has no lifecycle of its own: it exists
// while at least one connection subscribes to it.
type Room struct {
	Kind RoomKind
	ID   string
}

// ProjectRoom returns the room for a project's members.
func ProjectRoom(projectID string) Room { return Room{Kind: ProjectRoomKind, ID: projectID} }

// DocumentRoom returns the room for a document's editors.
func DocumentRoom(documentID string) Room { return Room{Kind: DocumentRoomKind, ID: documentID} }

// CallRoom returns the room for a voice or video call.
func CallRoom(roomID string) Room { return Room{Kind: CallRoomKind, ID: roomID} }

func (r Room) String() string {
	return string(r.Kind) + ":" + r.ID
}
