package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/logging"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/middleware"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/models"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/services"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskLifecycle is the slice of the task service the HTTP layer depends on.
type TaskLifecycle interface {
	CreateTask(ctx context.Context, title, description string, department primitive.ObjectID, assignedTo []primitive.ObjectID, dueDate *time.Time, status models.TaskStatus, initialComments []string, createdBy primitive.ObjectID) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID primitive.ObjectID, update services.TaskUpdate) (*models.Task, error)
	ListTasks(ctx context.Context, assignedTo *primitive.ObjectID, status *models.TaskStatus) ([]*models.Task, error)
	ListTasksForUser(ctx context.Context, userID primitive.ObjectID, status *models.TaskStatus) ([]*models.Task, error)
	GetTaskByID(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error)
	GetTaskForUser(ctx context.Context, taskID, userID primitive.ObjectID) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error)
	UpdateUserTaskStatus(ctx context.Context, taskID, userID primitive.ObjectID, status models.TaskStatus) (*models.Task, error)
	ApproveTask(ctx context.Context, taskID primitive.ObjectID, decision models.TaskStatus) (*models.Task, error)
	AddSubtask(ctx context.Context, taskID primitive.ObjectID, title, description string, dueDate *time.Time, assigneeID primitive.ObjectID) (*models.Task, error)
	UpdateSubtaskStatus(ctx context.Context, subtaskID, userID primitive.ObjectID, status models.TaskStatus) (*models.Task, error)
	AddComment(ctx context.Context, taskID, authorID primitive.ObjectID, kind models.CreatedByModel, text string, attachments []models.Attachment) (*models.Task, error)
	AddMessage(ctx context.Context, taskID, authorID primitive.ObjectID, kind models.CreatedByModel, text string, attachments []models.Attachment) (*models.Task, error)
	GetAttachment(ctx context.Context, commentID primitive.ObjectID, fileName string, userID *primitive.ObjectID) (*models.Attachment, error)
}

// AttachmentBlobs is the blob-store surface used for comment uploads and
// downloads.
type AttachmentBlobs interface {
	Save(originalName, mimeType string, declaredSize int64, r io.Reader) (models.Attachment, error)
	Open(fileName string) (*os.File, error)
	Remove(fileName string) error
}

type TaskHandler struct {
	service  TaskLifecycle
	store    AttachmentBlobs
	validate *validator.Validate
}

func NewTaskHandler(service TaskLifecycle, store AttachmentBlobs, validate *validator.Validate) *TaskHandler {
	return &TaskHandler{service: service, store: store, validate: validate}
}

type createTaskRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Department  string   `json:"department" validate:"required"`
	AssignedTo  []string `json:"assignedTo" validate:"required,min=1"`
	DueDate     string   `json:"dueDate"`
	Status      string   `json:"status"`
	Comments    []struct {
		Text string `json:"text"`
	} `json:"comments"`
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	department, err := primitive.ObjectIDFromHex(req.Department)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid department ID format")
		return
	}
	assignedTo, err := parseObjectIDs(req.AssignedTo)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid user ID in assignedTo")
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid due date format")
		return
	}

	var initialComments []string
	for _, c := range req.Comments {
		initialComments = append(initialComments, c.Text)
	}

	task, err := h.service.CreateTask(r.Context(), req.Title, req.Description, department, assignedTo, dueDate, models.TaskStatus(req.Status), initialComments, identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created by admin %s", task.ID.Hex(), identity.ID.Hex())
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "Task created", "task": task})
}

type updateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	AssignedTo  *[]string `json:"assignedTo"`
	DueDate     *string   `json:"dueDate"`
	Status      *string   `json:"status"`
}

// UpdateTask is the admin direct patch; a status here is force-set rather
// than derived.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	update := services.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		update.Status = &status
	}
	if req.DueDate != nil {
		dueDate, err := parseDate(*req.DueDate)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid due date format")
			return
		}
		update.DueDate = dueDate
	}
	if req.AssignedTo != nil {
		assignedTo, err := parseObjectIDs(*req.AssignedTo)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid user ID in assignedTo")
			return
		}
		update.AssignedTo = assignedTo
	}

	task, err := h.service.UpdateTask(r.Context(), taskID, update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Task updated", "task": task})
}

// ListTasks serves the admin read with optional assignee and status
// filters.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var assignedTo *primitive.ObjectID
	if raw := r.URL.Query().Get("assignedTo"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid assignedTo ID format")
			return
		}
		assignedTo = &id
	}
	status, ok := queryStatus(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), assignedTo, status)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	task, err := h.service.DeleteTask(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	// Blob cleanup is best-effort; the document is already gone.
	for _, c := range task.Comments {
		h.removeAttachments(c.Attachments)
	}
	for _, m := range task.Messages {
		h.removeAttachments(m.Attachments)
	}

	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted", taskID.Hex())
	writeMessage(w, http.StatusOK, "Task deleted")
}

func (h *TaskHandler) removeAttachments(attachments []models.Attachment) {
	for _, a := range attachments {
		if err := h.store.Remove(a.FileName); err != nil {
			logging.Logger.Warnf("Event ID: ATTACHMENT_CLEANUP_FAILED, Description: Failed to remove %s: %v", a.FileName, err)
		}
	}
}

// GetTask serves the admin single-task fetch.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid task ID format")
		return
	}
	task, err := h.service.GetTaskByID(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": task})
}

// GetUserTask serves the employee single-task fetch with the participation
// check.
func (h *TaskHandler) GetUserTask(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	taskID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid task ID format")
		return
	}
	task, err := h.service.GetTaskForUser(r.Context(), taskID, identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": task})
}

// ListUserTasks lists tasks where the caller is an assignee or a subtask
// assignee.
func (h *TaskHandler) ListUserTasks(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	status, ok := queryStatus(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.ListTasksForUser(r.Context(), identity.ID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateUserTaskStatus records the employee's self-reported status; a
// reported Completed lands as Pending Approval.
func (h *TaskHandler) UpdateUserTaskStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	taskID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Status is required")
		return
	}

	task, err := h.service.UpdateUserTaskStatus(r.Context(), taskID, identity.ID, models.TaskStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Status updated", "task": task})
}

// ApproveTask resolves a pending-approval task with Completed or Pending.
func (h *TaskHandler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	taskID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.service.ApproveTask(r.Context(), taskID, models.TaskStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_APPROVAL, Description: Task %s resolved to %s by admin %s", taskID.Hex(), task.Status, identity.ID.Hex())
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Task approval processed", "task": task})
}

type createSubtaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	AssignedTo  string `json:"assignedTo" validate:"required"`
}

// AddSubtask creates a subtask; a missing assignee is auto-inserted into
// the task's assignment roster as Pending.
func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	var req createSubtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Title and assignedTo are required")
		return
	}

	assignee, err := primitive.ObjectIDFromHex(req.AssignedTo)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid assignedTo ID format")
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid due date format")
		return
	}

	task, err := h.service.AddSubtask(r.Context(), taskID, req.Title, req.Description, dueDate, assignee)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "Subtask created", "task": task})
}

// UpdateSubtaskStatus updates an employee's own subtask, located by the
// subtask id alone.
func (h *TaskHandler) UpdateSubtaskStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	subtaskID, err := pathObjectID(r, "subtaskId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid subtask ID format")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Status is required")
		return
	}

	task, err := h.service.UpdateSubtaskStatus(r.Context(), subtaskID, identity.ID, models.TaskStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Subtask status updated", "task": task})
}

// AddComment handles the multipart comment append for both admins and
// users; the authenticated role picks the author collection.
func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	h.appendEntry(w, r, h.service.AddComment, "Comment added")
}

// AddMessage appends to the task chat channel with the same rules.
func (h *TaskHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	h.appendEntry(w, r, h.service.AddMessage, "Message added")
}

type appendFunc func(ctx context.Context, taskID, authorID primitive.ObjectID, kind models.CreatedByModel, text string, attachments []models.Attachment) (*models.Task, error)

func (h *TaskHandler) appendEntry(w http.ResponseWriter, r *http.Request, appendTo appendFunc, successMessage string) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	taskID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	text, files, err := parseCommentForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	attachments, rejected, err := h.saveAttachments(files)
	if err != nil {
		writeError(w, err)
		return
	}

	kind := models.CreatedByUser
	if identity.Role == "admin" {
		kind = models.CreatedByAdmin
	}

	task, err := appendTo(r.Context(), taskID, identity.ID, kind, text, attachments)
	if err != nil {
		h.removeAttachments(attachments)
		writeError(w, err)
		return
	}

	body := map[string]interface{}{"message": successMessage, "task": task}
	if len(rejected) > 0 {
		body["rejectedAttachments"] = rejected
	}
	writeJSON(w, http.StatusCreated, body)
}

// parseCommentForm accepts multipart (text + attachments) or a plain JSON
// body with a text field.
func parseCommentForm(r *http.Request) (string, []*multipart.FileHeader, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return "", nil, err
		}
		var files []*multipart.FileHeader
		if r.MultipartForm != nil {
			files = r.MultipartForm.File["attachments"]
		}
		return r.FormValue("text"), files, nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", nil, err
	}
	return req.Text, nil, nil
}

// saveAttachments stores each file, rejecting oversized files individually
// rather than failing the whole request.
func (h *TaskHandler) saveAttachments(files []*multipart.FileHeader) ([]models.Attachment, []string, error) {
	var attachments []models.Attachment
	var rejected []string
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			h.removeAttachments(attachments)
			return nil, nil, fmt.Errorf("failed to read attachment %s: %v", header.Filename, err)
		}
		attachment, err := h.store.Save(header.Filename, header.Header.Get("Content-Type"), header.Size, file)
		file.Close()
		if err != nil {
			if errors.Is(err, storage.ErrFileTooLarge) {
				logging.Logger.Warnf("Event ID: ATTACHMENT_REJECTED, Description: %s exceeds size limit", header.Filename)
				rejected = append(rejected, header.Filename)
				continue
			}
			h.removeAttachments(attachments)
			return nil, nil, err
		}
		attachments = append(attachments, attachment)
	}
	return attachments, rejected, nil
}

// DownloadAttachment streams a stored attachment. Admins may fetch any; a
// user must participate in the owning task.
func (h *TaskHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	commentID, err := pathObjectID(r, "commentId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid comment ID format")
		return
	}
	fileName := mux.Vars(r)["fileName"]

	var userID *primitive.ObjectID
	if identity.Role != "admin" {
		userID = &identity.ID
	}

	attachment, err := h.service.GetAttachment(r.Context(), commentID, fileName, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	file, err := h.store.Open(attachment.FileName)
	if err != nil {
		if os.IsNotExist(err) {
			writeMessage(w, http.StatusNotFound, "Attachment not found")
			return
		}
		writeError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", attachment.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.OriginalName))
	io.Copy(w, file)
}

func pathObjectID(r *http.Request, name string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(mux.Vars(r)[name])
}

func parseObjectIDs(raw []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, value := range raw {
		id, err := primitive.ObjectIDFromHex(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// queryStatus reads the optional status query filter; an unknown value is a
// 400 and the caller should return.
func queryStatus(w http.ResponseWriter, r *http.Request) (*models.TaskStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, true
	}
	status := models.TaskStatus(raw)
	if !status.IsValid() {
		writeMessage(w, http.StatusBadRequest, "Invalid status filter")
		return nil, false
	}
	return &status, true
}
