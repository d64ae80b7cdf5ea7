package models

import "errors"

// Domain errors surfaced by the task aggregate and the services around it.
// Handlers translate these into HTTP status codes.
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrSubtaskNotFound    = errors.New("subtask not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrDepartmentNotFound = errors.New("department not found")

	ErrNotAssigned        = errors.New("user is not assigned to this task")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrNotPendingApproval = errors.New("task is not pending approval")
	ErrMissingFields      = errors.New("required fields are missing")
	ErrEmptyComment       = errors.New("comment text or attachments required")
	ErrAccessDenied       = errors.New("access denied")

	ErrDuplicateUserID     = errors.New("userid already exists")
	ErrDuplicateDepartment = errors.New("department already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)
