package project

import "time"

// Project is a collaboration space. Its durable member list is the source of
// truth for project-room subscriptions.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatorID  string    `json:"creatorId"`
	InviteCode string    `json:"inviteCode"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Member is a project member as shown in member lists.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// PendingRequest is a join request awaiting the creator's decision. At most one
// exists per user and project.
type PendingRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// MembershipChange describes a durable membership mutation that live
// connections must follow.
type MembershipChange int

const (
	Joined MembershipChange = iota
	Left
	Kicked
)

func (c MembershipChange) String() string {
	switch c {
	case Joined:
		return "joined"
	case Left:
		return "left"
	case Kicked:
		return "kicked"
	default:
		return "unknown"
	}
}

// JoinRequestNotice is delivered to a project creator when someone asks to join.
type JoinRequestNotice struct {
	ProjectID     string `json:"projectId"`
	ProjectName   string `json:"projectName"`
	RequesterID   string `json:"requesterId"`
	RequesterName string `json:"requesterName"`
}

// ApprovalNotice is delivered to a requester once the creator approves them.
type ApprovalNotice struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
}
