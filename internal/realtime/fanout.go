package realtime

import (
	"log/slog"
)

// fanout delivers encoded frames to registry connections. Connections whose
// buffer rejects a frame are handed to evict after the delivery pass; the
// caller decides how to tear them down.
type fanout struct {
	registry *Registry
	evict    func(ConnID)
	logger   *slog.Logger
}

// room sends the frame to every connection in the room except one (pass "" to
// include everyone) and returns the number of successful deliveries.
func (f *fanout) room(room Room, frame []byte, except ConnID) int {
	members := f.registry.Members(room)
	targets := members[:0]
	for _, id := range members {
		if id != except {
			targets = append(targets, id)
		}
	}
	return f.conns(targets, frame)
}

// conns sends the frame to each listed connection.
func (f *fanout) conns(ids []ConnID, frame []byte) int {
	var failed []ConnID
	delivered := 0
	for _, id := range ids {
		conn, ok := f.registry.Conn(id)
		if !ok {
			continue
		}
		if conn.Send(frame) {
			delivered++
			continue
		}
		failed = append(failed, id)
	}

	for _, id := range failed {
		f.logger.Warn("dropping slow connection", "conn_id", id)
		if f.evict != nil {
			f.evict(id)
		}
	}
	return delivered
}

// Notifier is the targeted notification channel: it addresses every live
// connection of one user regardless of room subscriptions.
type Notifier struct {
	registry *Registry
	out      *fanout
	logger   *slog.Logger
}

// Notify encodes and delivers one event to all of the user's connections. A
// user with no connections drops the notification; it returns the number of
// connections reached.
func (n *Notifier) Notify(userID, event string, payload any) int {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		n.logger.Error("failed to encode notification", "event", event, "error", err)
		return 0
	}

	ids := n.registry.ConnectionsOf(userID)
	if len(ids) == 0 {
		n.logger.Debug("notification dropped, user offline", "user_id", userID, "event", event)
		return 0
	}
	return n.out.conns(ids, frame)
}
