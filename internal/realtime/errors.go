package realtime

import "errors"

var (
	// ErrUnauthenticated is returned when a connection has no valid identity for
	// the operation, or tries to rebind to a different user.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized is returned when an event targets a room the connection
	// is not subscribed to.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when an event references a deleted document or project.
	ErrNotFound = errors.New("not found")

	// ErrTransientStore is returned when persistence fails; nothing is broadcast.
	ErrTransientStore = errors.New("transient store failure")

	// ErrMalformedEvent is returned for frames that do not decode to a known event.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrUnknownConnection is returned for operations on a deregistered connection.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrHubClosed is returned when the hub loop has stopped.
	ErrHubClosed = errors.New("hub closed")
)
