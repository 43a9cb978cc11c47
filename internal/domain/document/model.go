package document

import "time"

// Document is the latest snapshot of a shared document. Every edit overwrites
// Content in full; the last persisted write wins.
type Document struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
