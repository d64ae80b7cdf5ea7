package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/middleware"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/models"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/services"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeLifecycle lets handler tests script the service layer.
type fakeLifecycle struct {
	updateUserStatus func(taskID, userID primitive.ObjectID, status models.TaskStatus) (*models.Task, error)
	approve          func(taskID primitive.ObjectID, decision models.TaskStatus) (*models.Task, error)
	addComment       func(taskID, authorID primitive.ObjectID, kind models.CreatedByModel, text string, attachments []models.Attachment) (*models.Task, error)
	addSubtask       func(taskID primitive.ObjectID, title string, assignee primitive.ObjectID) (*models.Task, error)
	getAttachment    func(commentID primitive.ObjectID, fileName string, userID *primitive.ObjectID) (*models.Attachment, error)
	listForUser      func(userID primitive.ObjectID, status *models.TaskStatus) ([]*models.Task, error)
}

func (f *fakeLifecycle) CreateTask(ctx context.Context, title, description string, department primitive.ObjectID, assignedTo []primitive.ObjectID, dueDate *time.Time, status models.TaskStatus, initialComments []string, createdBy primitive.ObjectID) (*models.Task, error) {
	return &models.Task{Title: title}, nil
}
func (f *fakeLifecycle) UpdateTask(ctx context.Context, taskID primitive.ObjectID, update services.TaskUpdate) (*models.Task, error) {
	return &models.Task{ID: taskID}, nil
}
func (f *fakeLifecycle) ListTasks(ctx context.Context, assignedTo *primitive.ObjectID, status *models.TaskStatus) ([]*models.Task, error) {
	return nil, nil
}
func (f *fakeLifecycle) ListTasksForUser(ctx context.Context, userID primitive.ObjectID, status *models.TaskStatus) ([]*models.Task, error) {
	if f.listForUser != nil {
		return f.listForUser(userID, status)
	}
	return nil, nil
}
func (f *fakeLifecycle) GetTaskByID(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error) {
	return &models.Task{ID: taskID}, nil
}
func (f *fakeLifecycle) GetTaskForUser(ctx context.Context, taskID, userID primitive.ObjectID) (*models.Task, error) {
	return &models.Task{ID: taskID}, nil
}
func (f *fakeLifecycle) DeleteTask(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error) {
	return &models.Task{ID: taskID}, nil
}
func (f *fakeLifecycle) UpdateUserTaskStatus(ctx context.Context, taskID, userID primitive.ObjectID, status models.TaskStatus) (*models.Task, error) {
	return f.updateUserStatus(taskID, userID, status)
}
func (f *fakeLifecycle) ApproveTask(ctx context.Context, taskID primitive.ObjectID, decision models.TaskStatus) (*models.Task, error) {
	return f.approve(taskID, decision)
}
func (f *fakeLifecycle) AddSubtask(ctx context.Context, taskID primitive.ObjectID, title, description string, dueDate *time.Time, assigneeID primitive.ObjectID) (*models.Task, error) {
	return f.addSubtask(taskID, title, assigneeID)
}
func (f *fakeLifecycle) UpdateSubtaskStatus(ctx context.Context, subtaskID, userID primitive.ObjectID, status models.TaskStatus) (*models.Task, error) {
	return &models.Task{}, nil
}
func (f *fakeLifecycle) AddComment(ctx context.Context, taskID, authorID primitive.ObjectID, kind models.CreatedByModel, text string, attachments []models.Attachment) (*models.Task, error) {
	return f.addComment(taskID, authorID, kind, text, attachments)
}
func (f *fakeLifecycle) AddMessage(ctx context.Context, taskID, authorID primitive.ObjectID, kind models.CreatedByModel, text string, attachments []models.Attachment) (*models.Task, error) {
	return f.addComment(taskID, authorID, kind, text, attachments)
}
func (f *fakeLifecycle) GetAttachment(ctx context.Context, commentID primitive.ObjectID, fileName string, userID *primitive.ObjectID) (*models.Attachment, error) {
	return f.getAttachment(commentID, fileName, userID)
}

func newTestHandler(t *testing.T, service TaskLifecycle) *TaskHandler {
	store, err := storage.NewAttachmentStore(t.TempDir())
	require.NoError(t, err)
	return NewTaskHandler(service, store, validator.New())
}

func requestWithIdentity(r *http.Request, role string, id primitive.ObjectID) *http.Request {
	ctx := middleware.WithIdentity(r.Context(), middleware.Identity{ID: id, Role: role})
	return r.WithContext(ctx)
}

func TestUpdateUserTaskStatus_MapsDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not assigned", models.ErrNotAssigned, http.StatusForbidden},
		{"invalid status", models.ErrInvalidStatus, http.StatusBadRequest},
		{"task missing", models.ErrTaskNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &fakeLifecycle{
				updateUserStatus: func(taskID, userID primitive.ObjectID, status models.TaskStatus) (*models.Task, error) {
					return nil, tt.err
				},
			}
			handler := newTestHandler(t, service)

			body := strings.NewReader(`{"status":"Completed"}`)
			req := httptest.NewRequest(http.MethodPatch, "/user/task/status/"+primitive.NewObjectID().Hex(), body)
			req = mux.SetURLVars(req, map[string]string{"id": primitive.NewObjectID().Hex()})
			req = requestWithIdentity(req, "employee", primitive.NewObjectID())
			rr := httptest.NewRecorder()

			handler.UpdateUserTaskStatus(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestUpdateUserTaskStatus_Success(t *testing.T) {
	userID := primitive.NewObjectID()
	service := &fakeLifecycle{
		updateUserStatus: func(taskID, callerID primitive.ObjectID, status models.TaskStatus) (*models.Task, error) {
			assert.Equal(t, userID, callerID)
			assert.Equal(t, models.TaskStatus("In Progress"), status)
			return &models.Task{ID: taskID, Status: models.StatusInProgress}, nil
		},
	}
	handler := newTestHandler(t, service)

	req := httptest.NewRequest(http.MethodPatch, "/user/task/status/x", strings.NewReader(`{"status":"In Progress"}`))
	req = mux.SetURLVars(req, map[string]string{"id": primitive.NewObjectID().Hex()})
	req = requestWithIdentity(req, "employee", userID)
	rr := httptest.NewRecorder()

	handler.UpdateUserTaskStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Message string      `json:"message"`
		Task    models.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Status updated", resp.Message)
	assert.Equal(t, models.StatusInProgress, resp.Task.Status)
}

func TestUpdateUserTaskStatus_RequiresStatus(t *testing.T) {
	handler := newTestHandler(t, &fakeLifecycle{})

	req := httptest.NewRequest(http.MethodPatch, "/user/task/status/x", strings.NewReader(`{}`))
	req = mux.SetURLVars(req, map[string]string{"id": primitive.NewObjectID().Hex()})
	req = requestWithIdentity(req, "employee", primitive.NewObjectID())
	rr := httptest.NewRecorder()

	handler.UpdateUserTaskStatus(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestApproveTask_NotPendingApproval(t *testing.T) {
	service := &fakeLifecycle{
		approve: func(taskID primitive.ObjectID, decision models.TaskStatus) (*models.Task, error) {
			return nil, models.ErrNotPendingApproval
		},
	}
	handler := newTestHandler(t, service)

	req := httptest.NewRequest(http.MethodPatch, "/admin/task/approve/x", strings.NewReader(`{"status":"Completed"}`))
	req = mux.SetURLVars(req, map[string]string{"id": primitive.NewObjectID().Hex()})
	req = requestWithIdentity(req, "admin", primitive.NewObjectID())
	rr := httptest.NewRecorder()

	handler.ApproveTask(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddComment_MultipartWithAttachment(t *testing.T) {
	adminID := primitive.NewObjectID()
	var gotText string
	var gotKind models.CreatedByModel
	var gotAttachments []models.Attachment

	service := &fakeLifecycle{
		addComment: func(taskID, authorID primitive.ObjectID, kind models.CreatedByModel, text string, attachments []models.Attachment) (*models.Task, error) {
			gotText = text
			gotKind = kind
			gotAttachments = attachments
			return &models.Task{ID: taskID}, nil
		},
	}
	handler := newTestHandler(t, service)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("text", "see attached"))
	part, err := writer.CreateFormFile("attachments", "notes.txt")
	require.NoError(t, err)
	_, err = io.WriteString(part, "meeting notes")
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/task/comment/x", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = mux.SetURLVars(req, map[string]string{"id": primitive.NewObjectID().Hex()})
	req = requestWithIdentity(req, "admin", adminID)
	rr := httptest.NewRecorder()

	handler.AddComment(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "see attached", gotText)
	assert.Equal(t, models.CreatedByAdmin, gotKind)
	require.Len(t, gotAttachments, 1)
	assert.Equal(t, "notes.txt", gotAttachments[0].OriginalName)
	assert.Equal(t, int64(len("meeting notes")), gotAttachments[0].Size)
}

func TestAddComment_EmptyRejected(t *testing.T) {
	service := &fakeLifecycle{
		addComment: func(taskID, authorID primitive.ObjectID, kind models.CreatedByModel, text string, attachments []models.Attachment) (*models.Task, error) {
			_, err := (&models.Task{}).AddComment(authorID, models.CreatedByAdmin, text, attachments)
			return nil, err
		},
	}
	handler := newTestHandler(t, service)

	req := httptest.NewRequest(http.MethodPost, "/admin/task/comment/x", strings.NewReader(`{"text":""}`))
	req.Header.Set("Content-Type", "application/json")
	req = mux.SetURLVars(req, map[string]string{"id": primitive.NewObjectID().Hex()})
	req = requestWithIdentity(req, "admin", primitive.NewObjectID())
	rr := httptest.NewRecorder()

	handler.AddComment(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddSubtask_ValidatesPayload(t *testing.T) {
	handler := newTestHandler(t, &fakeLifecycle{})

	req := httptest.NewRequest(http.MethodPost, "/admin/task/subtask/x", strings.NewReader(`{"title":""}`))
	req = mux.SetURLVars(req, map[string]string{"id": primitive.NewObjectID().Hex()})
	req = requestWithIdentity(req, "admin", primitive.NewObjectID())
	rr := httptest.NewRecorder()

	handler.AddSubtask(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListUserTasks_InvalidStatusFilter(t *testing.T) {
	handler := newTestHandler(t, &fakeLifecycle{})

	req := httptest.NewRequest(http.MethodGet, "/user/task?status=Done", nil)
	req = requestWithIdentity(req, "employee", primitive.NewObjectID())
	rr := httptest.NewRecorder()

	handler.ListUserTasks(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDownloadAttachment_UserAccessDenied(t *testing.T) {
	service := &fakeLifecycle{
		getAttachment: func(commentID primitive.ObjectID, fileName string, userID *primitive.ObjectID) (*models.Attachment, error) {
			// The employee id must be forwarded for the participation check.
			require.NotNil(t, userID)
			return nil, models.ErrAccessDenied
		},
	}
	handler := newTestHandler(t, service)

	req := httptest.NewRequest(http.MethodGet, "/user/task/comment/attachment/x/y", nil)
	req = mux.SetURLVars(req, map[string]string{
		"commentId": primitive.NewObjectID().Hex(),
		"fileName":  "abc.pdf",
	})
	req = requestWithIdentity(req, "employee", primitive.NewObjectID())
	rr := httptest.NewRecorder()

	handler.DownloadAttachment(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDownloadAttachment_AdminSkipsParticipationCheck(t *testing.T) {
	attachment := models.Attachment{FileName: "gone.bin", OriginalName: "gone.bin", MimeType: "application/octet-stream"}
	service := &fakeLifecycle{
		getAttachment: func(commentID primitive.ObjectID, fileName string, userID *primitive.ObjectID) (*models.Attachment, error) {
			assert.Nil(t, userID)
			return &attachment, nil
		},
	}
	handler := newTestHandler(t, service)

	req := httptest.NewRequest(http.MethodGet, "/admin/task/comment/attachment/x/y", nil)
	req = mux.SetURLVars(req, map[string]string{
		"commentId": primitive.NewObjectID().Hex(),
		"fileName":  "gone.bin",
	})
	req = requestWithIdentity(req, "admin", primitive.NewObjectID())
	rr := httptest.NewRecorder()

	handler.DownloadAttachment(rr, req)
	// Metadata resolved but the blob is absent from the store.
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTask_RequiresAssignees(t *testing.T) {
	handler := newTestHandler(t, &fakeLifecycle{})

	body := `{"title":"T","department":"` + primitive.NewObjectID().Hex() + `","assignedTo":[]}`
	req := httptest.NewRequest(http.MethodPost, "/admin/task/create", strings.NewReader(body))
	req = requestWithIdentity(req, "admin", primitive.NewObjectID())
	rr := httptest.NewRecorder()

	handler.CreateTask(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
