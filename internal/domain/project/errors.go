package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrForbidden indicates the caller may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyMember indicates the user already belongs to the project.
	ErrAlreadyMember = errors.New("already a member")
	// ErrCreatorCannotLeave indicates the creator tried to leave instead of deleting.
	ErrCreatorCannotLeave = errors.New("creators cannot leave; delete the project instead")
)

// ErrRequestNotFound indicates there is no pending join request to act on.
var ErrRequestNotFound = errors.New("join request not found")
