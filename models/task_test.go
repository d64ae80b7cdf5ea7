package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestTask(statuses ...TaskStatus) (*Task, []primitive.ObjectID) {
	users := make([]primitive.ObjectID, len(statuses))
	assignments := make([]Assignment, len(statuses))
	for i, status := range statuses {
		users[i] = primitive.NewObjectID()
		assignments[i] = Assignment{User: users[i], Status: status}
	}
	task := &Task{
		ID:         primitive.NewObjectID(),
		Title:      "Quarterly report",
		Department: primitive.NewObjectID(),
		AssignedTo: assignments,
		Status:     DeriveOverallStatus(assignments),
		CreatedBy:  primitive.NewObjectID(),
	}
	return task, users
}

func TestDeriveOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []TaskStatus
		want     TaskStatus
	}{
		{"all completed", []TaskStatus{StatusCompleted, StatusCompleted}, StatusCompleted},
		{"single completed", []TaskStatus{StatusCompleted}, StatusCompleted},
		{"pending approval wins over in progress", []TaskStatus{StatusPendingApproval, StatusInProgress}, StatusPendingApproval},
		{"pending approval wins over completed subset", []TaskStatus{StatusPendingApproval, StatusCompleted}, StatusPendingApproval},
		{"in progress", []TaskStatus{StatusInProgress, StatusPending}, StatusInProgress},
		{"all pending", []TaskStatus{StatusPending, StatusPending}, StatusPending},
		// Blocked is not inspected: a blocked assignment falls through to
		// Pending unless someone else is In Progress.
		{"blocked alone falls through to pending", []TaskStatus{StatusBlocked}, StatusPending},
		{"blocked with in progress", []TaskStatus{StatusBlocked, StatusInProgress}, StatusInProgress},
		{"blocked with completed is not completed", []TaskStatus{StatusBlocked, StatusCompleted}, StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assignments := make([]Assignment, len(tt.statuses))
			for i, s := range tt.statuses {
				assignments[i] = Assignment{User: primitive.NewObjectID(), Status: s}
			}
			assert.Equal(t, tt.want, DeriveOverallStatus(assignments))
		})
	}
}

func TestDeriveOverallStatus_Idempotent(t *testing.T) {
	assignments := []Assignment{
		{User: primitive.NewObjectID(), Status: StatusInProgress},
		{User: primitive.NewObjectID(), Status: StatusPendingApproval},
		{User: primitive.NewObjectID(), Status: StatusBlocked},
	}
	first := DeriveOverallStatus(assignments)
	second := DeriveOverallStatus(assignments)
	assert.Equal(t, first, second)
}

func TestApplyUserStatus_RewritesCompletedToPendingApproval(t *testing.T) {
	task, users := newTestTask(StatusPending, StatusPending)

	require.NoError(t, task.ApplyUserStatus(users[0], StatusCompleted))

	assert.Equal(t, StatusPendingApproval, task.AssignedTo[0].Status)
	assert.Equal(t, StatusPending, task.AssignedTo[1].Status)
	assert.Equal(t, StatusPendingApproval, task.Status)
}

func TestApplyUserStatus_StoresOtherStatusesVerbatim(t *testing.T) {
	task, users := newTestTask(StatusPending)

	require.NoError(t, task.ApplyUserStatus(users[0], StatusInProgress))
	assert.Equal(t, StatusInProgress, task.AssignedTo[0].Status)
	assert.Equal(t, StatusInProgress, task.Status)

	require.NoError(t, task.ApplyUserStatus(users[0], StatusBlocked))
	assert.Equal(t, StatusBlocked, task.AssignedTo[0].Status)
	assert.Equal(t, StatusPending, task.Status)
}

func TestApplyUserStatus_Errors(t *testing.T) {
	task, users := newTestTask(StatusPending)

	err := task.ApplyUserStatus(primitive.NewObjectID(), StatusInProgress)
	assert.ErrorIs(t, err, ErrNotAssigned)

	err = task.ApplyUserStatus(users[0], TaskStatus("Done"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, StatusPending, task.AssignedTo[0].Status)
}

func TestApproveOrReject_Completed(t *testing.T) {
	task, users := newTestTask(StatusPending, StatusPending)
	require.NoError(t, task.ApplyUserStatus(users[0], StatusCompleted))
	require.Equal(t, StatusPendingApproval, task.Status)

	require.NoError(t, task.ApproveOrReject(StatusCompleted))

	// No assignment remains Pending Approval, and the overall status is the
	// forced decision even though the other assignee is still Pending.
	for _, a := range task.AssignedTo {
		assert.NotEqual(t, StatusPendingApproval, a.Status)
	}
	assert.Equal(t, StatusCompleted, task.AssignedTo[0].Status)
	assert.Equal(t, StatusPending, task.AssignedTo[1].Status)
	assert.Equal(t, StatusCompleted, task.Status)
}

func TestApproveOrReject_Reverted(t *testing.T) {
	task, users := newTestTask(StatusPending, StatusInProgress)
	require.NoError(t, task.ApplyUserStatus(users[0], StatusCompleted))

	require.NoError(t, task.ApproveOrReject(StatusPending))

	assert.Equal(t, StatusPending, task.AssignedTo[0].Status)
	assert.Equal(t, StatusInProgress, task.AssignedTo[1].Status)
	assert.Equal(t, StatusPending, task.Status)
}

func TestApproveOrReject_BulkAcrossAllPendingApproval(t *testing.T) {
	task, users := newTestTask(StatusPending, StatusPending, StatusCompleted)
	require.NoError(t, task.ApplyUserStatus(users[0], StatusCompleted))
	require.NoError(t, task.ApplyUserStatus(users[1], StatusCompleted))

	require.NoError(t, task.ApproveOrReject(StatusCompleted))

	for _, a := range task.AssignedTo {
		assert.Equal(t, StatusCompleted, a.Status)
	}
	assert.Equal(t, StatusCompleted, task.Status)
}

func TestApproveOrReject_Errors(t *testing.T) {
	task, _ := newTestTask(StatusPending)

	err := task.ApproveOrReject(StatusCompleted)
	assert.ErrorIs(t, err, ErrNotPendingApproval)

	task.Status = StatusPendingApproval
	err = task.ApproveOrReject(StatusInProgress)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSelfReportThenApprovalScenario(t *testing.T) {
	task, users := newTestTask(StatusPending, StatusPending)

	// Employee A reports completion.
	require.NoError(t, task.ApplyUserStatus(users[0], StatusCompleted))
	assert.Equal(t, StatusPendingApproval, task.AssignedTo[0].Status)
	assert.Equal(t, StatusPendingApproval, task.Status)

	// Admin approves: overall is forced Completed although B is Pending.
	require.NoError(t, task.ApproveOrReject(StatusCompleted))
	assert.Equal(t, StatusCompleted, task.AssignedTo[0].Status)
	assert.Equal(t, StatusPending, task.AssignedTo[1].Status)
	assert.Equal(t, StatusCompleted, task.Status)

	// Employee B reports completion: this path re-derives normally.
	require.NoError(t, task.ApplyUserStatus(users[1], StatusCompleted))
	assert.Equal(t, StatusPendingApproval, task.AssignedTo[1].Status)
	assert.Equal(t, StatusPendingApproval, task.Status)

	// Second approval completes everyone.
	require.NoError(t, task.ApproveOrReject(StatusCompleted))
	assert.Equal(t, StatusCompleted, task.Status)
	for _, a := range task.AssignedTo {
		assert.Equal(t, StatusCompleted, a.Status)
	}
}

func TestAddSubtask_AutoHealsRoster(t *testing.T) {
	task, _ := newTestTask(StatusCompleted)
	require.Equal(t, StatusCompleted, task.Status)
	newcomer := primitive.NewObjectID()

	subtask, err := task.AddSubtask("Collect figures", "", nil, newcomer)
	require.NoError(t, err)

	require.Len(t, task.AssignedTo, 2)
	assert.Equal(t, newcomer, task.AssignedTo[1].User)
	assert.Equal(t, StatusPending, task.AssignedTo[1].Status)
	assert.Equal(t, StatusPending, subtask.Status)
	assert.Equal(t, newcomer, subtask.AssignedTo)

	// The overall status is deliberately not re-derived here, so a completed
	// task stays Completed even with a fresh Pending assignment.
	assert.Equal(t, StatusCompleted, task.Status)
}

func TestAddSubtask_ExistingAssigneeAddsNoAssignment(t *testing.T) {
	task, users := newTestTask(StatusInProgress)

	_, err := task.AddSubtask("Draft summary", "", nil, users[0])
	require.NoError(t, err)

	assert.Len(t, task.AssignedTo, 1)
	assert.Len(t, task.Subtasks, 1)
}

func TestAddSubtask_MissingFields(t *testing.T) {
	task, users := newTestTask(StatusPending)

	_, err := task.AddSubtask("", "", nil, users[0])
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = task.AddSubtask("Draft summary", "", nil, primitive.NilObjectID)
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Empty(t, task.Subtasks)
}

func TestSetSubtaskStatus(t *testing.T) {
	task, users := newTestTask(StatusPending)
	subtask, err := task.AddSubtask("Draft summary", "", nil, users[0])
	require.NoError(t, err)

	require.NoError(t, task.SetSubtaskStatus(subtask.ID, users[0], StatusCompleted))
	assert.Equal(t, StatusCompleted, task.Subtasks[0].Status)
	// Subtask completion does not fold into the parent derivation.
	assert.Equal(t, StatusPending, task.Status)

	err = task.SetSubtaskStatus(subtask.ID, primitive.NewObjectID(), StatusInProgress)
	assert.ErrorIs(t, err, ErrAccessDenied)

	err = task.SetSubtaskStatus(primitive.NewObjectID(), users[0], StatusInProgress)
	assert.ErrorIs(t, err, ErrSubtaskNotFound)

	err = task.SetSubtaskStatus(subtask.ID, users[0], TaskStatus("Done"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAddComment_AccessAndEmptiness(t *testing.T) {
	task, users := newTestTask(StatusPending)
	admin := primitive.NewObjectID()

	_, err := task.AddComment(primitive.NewObjectID(), CreatedByUser, "hello", nil)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = task.AddComment(users[0], CreatedByUser, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyComment)
	assert.Empty(t, task.Comments)

	comment, err := task.AddComment(admin, CreatedByAdmin, "please review", nil)
	require.NoError(t, err)
	assert.Equal(t, "please review", comment.Text)
	assert.Equal(t, CreatedByAdmin, comment.CreatedByModel)
	assert.Equal(t, admin, comment.CreatedBy)
	assert.False(t, comment.CreatedAt.IsZero())
}

func TestAddComment_AttachmentOnlyGetsSentinelText(t *testing.T) {
	task, users := newTestTask(StatusPending)
	attachment := Attachment{FileName: "abc.pdf", OriginalName: "report.pdf", Size: 42}

	comment, err := task.AddComment(users[0], CreatedByUser, "", []Attachment{attachment})
	require.NoError(t, err)

	assert.Equal(t, AttachmentSentinelText, comment.Text)
	require.Len(t, comment.Attachments, 1)
	assert.Equal(t, "report.pdf", comment.Attachments[0].OriginalName)
}

func TestAddMessage_SeparateChannel(t *testing.T) {
	task, users := newTestTask(StatusPending)

	_, err := task.AddMessage(users[0], CreatedByUser, "on it", nil)
	require.NoError(t, err)

	assert.Len(t, task.Messages, 1)
	assert.Empty(t, task.Comments)

	_, err = task.AddMessage(primitive.NewObjectID(), CreatedByUser, "hi", nil)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestFindComment_SearchesBothChannels(t *testing.T) {
	task, users := newTestTask(StatusPending)
	comment, err := task.AddComment(users[0], CreatedByUser, "note", nil)
	require.NoError(t, err)
	message, err := task.AddMessage(users[0], CreatedByUser, "ping", nil)
	require.NoError(t, err)

	assert.Equal(t, comment.ID, task.FindComment(comment.ID).ID)
	assert.Equal(t, message.ID, task.FindComment(message.ID).ID)
	assert.Nil(t, task.FindComment(primitive.NewObjectID()))
}

func TestIsParticipant(t *testing.T) {
	task, users := newTestTask(StatusPending)
	subtaskOnly := primitive.NewObjectID()
	_, err := task.AddSubtask("Edge case", "", nil, subtaskOnly)
	require.NoError(t, err)
	// Auto-heal makes subtask assignees full assignees, so participation via
	// subtask alone only holds for rosters built outside AddSubtask.
	task.AssignedTo = task.AssignedTo[:1]

	assert.True(t, task.IsParticipant(users[0]))
	assert.True(t, task.IsParticipant(subtaskOnly))
	assert.False(t, task.IsParticipant(primitive.NewObjectID()))
}

func TestStatusValidation(t *testing.T) {
	for _, status := range AllowedStatuses {
		assert.True(t, status.IsValid(), string(status))
	}
	assert.False(t, TaskStatus("Done").IsValid())
	assert.False(t, TaskStatus("").IsValid())
	assert.False(t, TaskStatus("pending").IsValid())
}
