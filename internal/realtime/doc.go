// Package realtime implements the live collaboration fabric: a registry of
// WebSocket connections and the rooms they subscribe to, the synchronizer that
// keeps project rooms aligned with durable membership, the event router for
// chat and document edits, targeted per-user notifications, and the call
// signaling relay.
//
// All state mutations run on the single Hub loop, so every compound operation
// ("persist then broadcast", "unsubscribe then announce") is atomic with
// respect to other events in the process.
package realtime
