// Package server exposes the HTTP surface of the collaboration hub: the
// authenticated WebSocket endpoint, the JSON REST API for projects, messages
// and documents, and health checks.
package server
