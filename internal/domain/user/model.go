package user

import "time"

// User is an account known to the collaboration backend. Identity is issued by
// the external authentication subsystem; the name and email are refreshed from
// verified token claims.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
