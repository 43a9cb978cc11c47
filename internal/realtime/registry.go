package realtime

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ConnID identifies a live connection for its whole lifetime.
type ConnID string

// Conn is the registry's view of a live connection: an outbound frame buffer.
type Conn interface {
	// Send enqueues a frame without blocking. It returns false when the buffer
	// is full or the connection has been closed.
	Send(frame []byte) bool
	// Close releases the outbound buffer. It is called at most once, after the
	// connection has been deregistered.
	Close()
}

// Authenticated is implemented by connections whose transport already
// verified a user identity during the handshake.
type Authenticated interface {
	AuthenticatedUser() (userID, name string)
}

type connEntry struct {
	conn   Conn
	userID string
	rooms  map[Room]struct{}
}

// Departure describes a connection removed from the registry.
type Departure struct {
	Conn   Conn
	UserID string
	Rooms  []Room
}

// Registry is the in-memory index of live connections, their identities and
// room subscriptions. Empty rooms and users without connections are dropped
// eagerly, so the registry never holds entries for departed connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnID]*connEntry
	users map[string]map[ConnID]struct{}
	rooms map[Room]map[ConnID]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[ConnID]*connEntry),
		users: make(map[string]map[ConnID]struct{}),
		rooms: make(map[Room]map[ConnID]struct{}),
	}
}

// Register adds an unidentified connection with no subscriptions.
func (r *Registry) Register(conn Conn) ConnID {
	id := ConnID(uuid.NewString())

	r.mu.Lock()
	r.conns[id] = &connEntry{conn: conn, rooms: make(map[Room]struct{})}
	r.mu.Unlock()

	return id
}

// Identify binds a connection to a user. Repeating the call with the same user
// is a no-op; a different user fails with ErrUnauthenticated.
func (r *Registry) Identify(id ConnID, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[id]
	if !ok {
		return ErrUnknownConnection
	}
	if entry.userID == userID {
		return nil
	}
	if entry.userID != "" {
		return ErrUnauthenticated
	}

	entry.userID = userID
	set, ok := r.users[userID]
	if !ok {
		set = make(map[ConnID]struct{})
		r.users[userID] = set
	}
	set[id] = struct{}{}
	return nil
}

// UserOf returns the identified user of a connection.
func (r *Registry) UserOf(id ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[id]
	if !ok || entry.userID == "" {
		return "", false
	}
	return entry.userID, true
}

// Conn returns the transport handle of a connection.
func (r *Registry) Conn(id ConnID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}

// Subscribe adds the connection to a room. It is idempotent.
func (r *Registry) Subscribe(id ConnID, room Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[id]
	if !ok {
		return ErrUnknownConnection
	}

	entry.rooms[room] = struct{}{}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[ConnID]struct{})
		r.rooms[room] = members
	}
	members[id] = struct{}{}
	return nil
}

// Unsubscribe removes the connection from a room and reports whether it was
// subscribed. Unsubscribing from a room never joined is a no-op.
func (r *Registry) Unsubscribe(id ConnID, room Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[id]
	if !ok {
		return false
	}
	if _, ok := entry.rooms[room]; !ok {
		return false
	}
	delete(entry.rooms, room)
	r.leaveRoomLocked(id, room)
	return true
}

// IsSubscribed reports whether the connection is in the room.
func (r *Registry) IsSubscribed(id ConnID, room Room) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[room][id]
	return ok
}

// ConnectionsOf returns the live connections of a user.
func (r *Registry) ConnectionsOf(userID string) []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedIDs(r.users[userID])
}

// Members returns the connections subscribed to a room.
func (r *Registry) Members(room Room) []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedIDs(r.rooms[room])
}

// UsersIn returns the distinct identified users with a connection in the room.
func (r *Registry) UsersIn(room Room) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for id := range r.rooms[room] {
		if entry, ok := r.conns[id]; ok && entry.userID != "" {
			seen[entry.userID] = struct{}{}
		}
	}
	users := make([]string, 0, len(seen))
	for userID := range seen {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

// UserInRoom reports whether any connection of the user is subscribed to the room.
func (r *Registry) UserInRoom(userID string, room Room) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := range r.users[userID] {
		if _, ok := r.rooms[room][id]; ok {
			return true
		}
	}
	return false
}

// ClearRoom unsubscribes every connection from the room and returns them.
func (r *Registry) ClearRoom(room Room) []ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := sortedIDs(r.rooms[room])
	for _, id := range ids {
		if entry, ok := r.conns[id]; ok {
			delete(entry.rooms, room)
		}
	}
	delete(r.rooms, room)
	return ids
}

// Deregister removes the connection, all of its subscriptions and, when it was
// the last one, the user's entry. It reports false for unknown connections.
func (r *Registry) Deregister(id ConnID) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[id]
	if !ok {
		return Departure{}, false
	}

	rooms := make([]Room, 0, len(entry.rooms))
	for room := range entry.rooms {
		rooms = append(rooms, room)
		r.leaveRoomLocked(id, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].String() < rooms[j].String() })

	if entry.userID != "" {
		if set, ok := r.users[entry.userID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(r.users, entry.userID)
			}
		}
	}
	delete(r.conns, id)

	return Departure{Conn: entry.conn, UserID: entry.userID, Rooms: rooms}, true
}

// Stats is a point-in-time view of registry sizes.
type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Rooms       int `json:"rooms"`
}

// Stats returns the current registry sizes.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{Connections: len(r.conns), Users: len(r.users), Rooms: len(r.rooms)}
}

func (r *Registry) allConnections() []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ConnID, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) leaveRoomLocked(id ConnID, room Room) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

func sortedIDs(set map[ConnID]struct{}) []ConnID {
	ids := make([]ConnID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
