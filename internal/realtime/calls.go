package realtime

import (
	"encoding/json"
	"log/slog"
)

// CallRelay tracks call-room presence and forwards peer signaling. Presence is
// per user: a user with two connections in a call is announced once and
// leaves only when the last of them goes.
type CallRelay struct {
	registry *Registry
	out      *fanout
	notifier *Notifier
	logger   *slog.Logger
}

// Join subscribes the connection to the call room and announces the user to
// the other participants if this is their first connection in it.
func (c *CallRelay) Join(id ConnID, userID, roomID string) error {
	room := CallRoom(roomID)
	alreadyPresent := c.registry.UserInRoom(userID, room)

	if err := c.registry.Subscribe(id, room); err != nil {
		return err
	}
	if alreadyPresent {
		return nil
	}

	c.announce(room, EventUserConnected, userID, id)
	c.logger.Debug("user joined call", "room_id", roomID, "user_id", userID)
	return nil
}

// Leave unsubscribes the connection and announces the user's departure once
// none of their connections remain in the room.
func (c *CallRelay) Leave(id ConnID, userID, roomID string) {
	room := CallRoom(roomID)
	if !c.registry.Unsubscribe(id, room) {
		return
	}
	c.departed(room, userID)
}

// Departed announces call departures for a connection that was deregistered
// while subscribed to rooms.
func (c *CallRelay) Departed(userID string, rooms []Room) {
	if userID == "" {
		return
	}
	for _, room := range rooms {
		if room.Kind == CallRoomKind {
			c.departed(room, userID)
		}
	}
}

// Participants lists the users present in a call room.
func (c *CallRelay) Participants(roomID string) []string {
	return c.registry.UsersIn(CallRoom(roomID))
}

// RelaySignal forwards the signal verbatim to every connection of the target
// user. The caller ID is always the sender's verified identity. An offline
// target drops the signal.
func (c *CallRelay) RelaySignal(callerID, targetUserID string, signal json.RawMessage) int {
	return c.notifier.Notify(targetUserID, EventPeerSignal, PeerSignalPayload{
		Signal:   signal,
		CallerID: callerID,
	})
}

func (c *CallRelay) departed(room Room, userID string) {
	if c.registry.UserInRoom(userID, room) {
		return
	}
	c.announce(room, EventUserDisconnected, userID, "")
	c.logger.Debug("user left call", "room_id", room.ID, "user_id", userID)
}

func (c *CallRelay) announce(room Room, event, userID string, except ConnID) {
	frame, err := EncodeFrame(event, PresencePayload{RoomID: room.ID, UserID: userID})
	if err != nil {
		c.logger.Error("failed to encode presence", "event", event, "error", err)
		return
	}
	c.out.room(room, frame, except)
}
