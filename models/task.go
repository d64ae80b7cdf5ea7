package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusPending         TaskStatus = "Pending"
	StatusInProgress      TaskStatus = "In Progress"
	StatusCompleted       TaskStatus = "Completed"
	StatusBlocked         TaskStatus = "Blocked"
	StatusPendingApproval TaskStatus = "Pending Approval"
)

// AllowedStatuses lists every legal status wire value for tasks,
// assignments and subtasks.
var AllowedStatuses = []TaskStatus{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusBlocked,
	StatusPendingApproval,
}

func (s TaskStatus) IsValid() bool {
	for _, allowed := range AllowedStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

// CreatedByModel discriminates the collection a comment author id resolves
// against.
type CreatedByModel string

const (
	CreatedByAdmin CreatedByModel = "Admin"
	CreatedByUser  CreatedByModel = "User"
)

// AttachmentSentinelText is stored as comment text when a comment carries
// only attachments. Comments are never persisted with an empty text field.
const AttachmentSentinelText = "[Attachment]"

// Assignment is a single user's participation record on a task. It carries
// its own status; the task's overall status is derived from the full set.
type Assignment struct {
	User     primitive.ObjectID `json:"user" bson:"user"`
	Status   TaskStatus         `json:"status" bson:"status"`
	UserName string             `json:"userName,omitempty" bson:"-"`
}

type Subtask struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	DueDate     *time.Time         `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	AssignedTo  primitive.ObjectID `json:"assignedTo" bson:"assignedTo"`
	Status      TaskStatus         `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UserName    string             `json:"userName,omitempty" bson:"-"`
}

// Attachment holds file metadata only; the bytes live in the blob store
// addressed by FileName.
type Attachment struct {
	FileName     string    `json:"fileName" bson:"fileName"`
	OriginalName string    `json:"originalName" bson:"originalName"`
	MimeType     string    `json:"mimeType" bson:"mimeType"`
	Size         int64     `json:"size" bson:"size"`
	Path         string    `json:"path" bson:"path"`
	UploadedAt   time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

// Comment is an append-only discussion entry. CreatedBy is polymorphic over
// admins and users; CreatedByModel names the collection it resolves against.
type Comment struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	Text           string             `json:"text" bson:"text"`
	Attachments    []Attachment       `json:"attachments,omitempty" bson:"attachments,omitempty"`
	CreatedBy      primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedByModel CreatedByModel     `json:"createdByModel" bson:"createdByModel"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	AuthorName     string             `json:"authorName,omitempty" bson:"-"`
}

// Task is the aggregate root. Assignments, subtasks, comments and messages
// are embedded and only ever mutated through the task they belong to.
type Task struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	DueDate     *time.Time         `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	Department  primitive.ObjectID `json:"department" bson:"department"`
	Status      TaskStatus         `json:"status" bson:"status"`
	AssignedTo  []Assignment       `json:"assignedTo" bson:"assignedTo"`
	Subtasks    []Subtask          `json:"subtasks,omitempty" bson:"subtasks,omitempty"`
	Comments    []Comment          `json:"comments,omitempty" bson:"comments,omitempty"`
	Messages    []Comment          `json:"messages,omitempty" bson:"messages,omitempty"`
	CreatedBy   primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
	CreatorName string             `json:"creatorName,omitempty" bson:"-"`
}

// DeriveOverallStatus computes the overall task status from the per-user
// assignment statuses. Blocked assignments are not inspected and fall
// through to Pending unless another assignment is In Progress; Blocked at
// the task level is an out-of-band admin override set via direct update.
func DeriveOverallStatus(assignments []Assignment) TaskStatus {
	allCompleted := len(assignments) > 0
	anyPendingApproval := false
	anyInProgress := false

	for _, a := range assignments {
		if a.Status != StatusCompleted {
			allCompleted = false
		}
		if a.Status == StatusPendingApproval {
			anyPendingApproval = true
		}
		if a.Status == StatusInProgress {
			anyInProgress = true
		}
	}

	switch {
	case allCompleted:
		return StatusCompleted
	case anyPendingApproval:
		return StatusPendingApproval
	case anyInProgress:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// FindAssignment returns the assignment record for the given user, or nil.
func (t *Task) FindAssignment(userID primitive.ObjectID) *Assignment {
	for i := range t.AssignedTo {
		if t.AssignedTo[i].User == userID {
			return &t.AssignedTo[i]
		}
	}
	return nil
}

// IsParticipant reports whether the user is a top-level assignee or a
// subtask assignee on this task.
func (t *Task) IsParticipant(userID primitive.ObjectID) bool {
	if t.FindAssignment(userID) != nil {
		return true
	}
	for i := range t.Subtasks {
		if t.Subtasks[i].AssignedTo == userID {
			return true
		}
	}
	return false
}

// ApplyUserStatus records an employee's self-reported status on their
// assignment. Self-reported completion is not authoritative: a requested
// Completed is rewritten to Pending Approval and waits for admin sign-off.
// The overall status is re-derived afterwards.
func (t *Task) ApplyUserStatus(userID primitive.ObjectID, requested TaskStatus) error {
	if !requested.IsValid() {
		return ErrInvalidStatus
	}
	assignment := t.FindAssignment(userID)
	if assignment == nil {
		return ErrNotAssigned
	}

	if requested == StatusCompleted {
		requested = StatusPendingApproval
	}
	assignment.Status = requested

	t.Status = DeriveOverallStatus(t.AssignedTo)
	return nil
}

// ApproveOrReject resolves a Pending Approval task. Completed confirms every
// pending-approval assignment; Pending sends them all back. The decision is
// all-or-nothing across the task, and the overall status is forced to the
// decision rather than re-derived: the bulk rewrite leaves no
// pending-approval assignment behind, so the forced value is consistent.
func (t *Task) ApproveOrReject(decision TaskStatus) error {
	if decision != StatusCompleted && decision != StatusPending {
		return ErrInvalidStatus
	}
	if t.Status != StatusPendingApproval {
		return ErrNotPendingApproval
	}

	for i := range t.AssignedTo {
		if t.AssignedTo[i].Status == StatusPendingApproval {
			t.AssignedTo[i].Status = decision
		}
	}
	t.Status = decision
	return nil
}

// AddSubtask appends a subtask and heals the assignment roster: a subtask
// may not reference a user absent from AssignedTo, so a missing assignee is
// inserted as a Pending assignment first. The overall status is left as-is.
func (t *Task) AddSubtask(title, description string, dueDate *time.Time, assigneeID primitive.ObjectID) (*Subtask, error) {
	if strings.TrimSpace(title) == "" || assigneeID.IsZero() {
		return nil, ErrMissingFields
	}

	if t.FindAssignment(assigneeID) == nil {
		t.AssignedTo = append(t.AssignedTo, Assignment{
			User:   assigneeID,
			Status: StatusPending,
		})
	}

	subtask := Subtask{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(title),
		Description: description,
		DueDate:     dueDate,
		AssignedTo:  assigneeID,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
	t.Subtasks = append(t.Subtasks, subtask)
	return &t.Subtasks[len(t.Subtasks)-1], nil
}

// SetSubtaskStatus updates a subtask's own status. Only the subtask's
// assignee may report on it, and the parent task status is untouched:
// subtasks are tracked but never folded into the derivation.
func (t *Task) SetSubtaskStatus(subtaskID, userID primitive.ObjectID, status TaskStatus) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == subtaskID {
			if t.Subtasks[i].AssignedTo != userID {
				return ErrAccessDenied
			}
			t.Subtasks[i].Status = status
			return nil
		}
	}
	return ErrSubtaskNotFound
}

// FindSubtask returns the subtask with the given id, or nil.
func (t *Task) FindSubtask(subtaskID primitive.ObjectID) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == subtaskID {
			return &t.Subtasks[i]
		}
	}
	return nil
}

func newComment(authorID primitive.ObjectID, kind CreatedByModel, text string, attachments []Attachment) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(attachments) == 0 {
		return Comment{}, ErrEmptyComment
	}
	if text == "" {
		text = AttachmentSentinelText
	}
	return Comment{
		ID:             primitive.NewObjectID(),
		Text:           text,
		Attachments:    attachments,
		CreatedBy:      authorID,
		CreatedByModel: kind,
		CreatedAt:      time.Now(),
	}, nil
}

// AddComment appends to the task's comment trail. Admins may always
// comment; users must hold an assignment on the task. Comments are
// immutable once stored.
func (t *Task) AddComment(authorID primitive.ObjectID, kind CreatedByModel, text string, attachments []Attachment) (*Comment, error) {
	if kind == CreatedByUser && t.FindAssignment(authorID) == nil {
		return nil, ErrAccessDenied
	}
	comment, err := newComment(authorID, kind, text, attachments)
	if err != nil {
		return nil, err
	}
	t.Comments = append(t.Comments, comment)
	return &t.Comments[len(t.Comments)-1], nil
}

// AddMessage appends to the task chat. Messages share the comment shape and
// rules but live in a separate channel.
func (t *Task) AddMessage(authorID primitive.ObjectID, kind CreatedByModel, text string, attachments []Attachment) (*Comment, error) {
	if kind == CreatedByUser && t.FindAssignment(authorID) == nil {
		return nil, ErrAccessDenied
	}
	message, err := newComment(authorID, kind, text, attachments)
	if err != nil {
		return nil, err
	}
	t.Messages = append(t.Messages, message)
	return &t.Messages[len(t.Messages)-1], nil
}

// FindComment searches both the comment trail and the chat for a comment id.
func (t *Task) FindComment(commentID primitive.ObjectID) *Comment {
	for i := range t.Comments {
		if t.Comments[i].ID == commentID {
			return &t.Comments[i]
		}
	}
	for i := range t.Messages {
		if t.Messages[i].ID == commentID {
			return &t.Messages[i]
		}
	}
	return nil
}
