package chat

import "time"

// Message is a persisted chat message. Messages are immutable once created and
// only disappear when their project is deleted.
type Message struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}
