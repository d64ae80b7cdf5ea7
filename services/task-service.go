package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskService owns the task aggregate: every mutation loads the document,
// applies the aggregate rules, and saves it back in a single replace.
// Concurrent saves to the same task are last-write-wins.
type TaskService struct {
	tasksCollection  *mongo.Collection
	usersCollection  *mongo.Collection
	adminsCollection *mongo.Collection
}

func NewTaskService(tasks, users, admins *mongo.Collection) *TaskService {
	return &TaskService{
		tasksCollection:  tasks,
		usersCollection:  users,
		adminsCollection: admins,
	}
}

// TaskUpdate is the admin direct-patch payload. Status here is the forced
// write path into Task.Status, distinct from derivation.
type TaskUpdate struct {
	Title       *string
	Description *string
	AssignedTo  []primitive.ObjectID
	DueDate     *time.Time
	Status      *models.TaskStatus
}

// CreateTask builds a new aggregate with every assignee starting Pending.
func (s *TaskService) CreateTask(ctx context.Context, title, description string, department primitive.ObjectID, assignedTo []primitive.ObjectID, dueDate *time.Time, status models.TaskStatus, initialComments []string, createdBy primitive.ObjectID) (*models.Task, error) {
	if strings.TrimSpace(title) == "" || department.IsZero() {
		return nil, models.ErrMissingFields
	}
	if len(assignedTo) == 0 {
		return nil, fmt.Errorf("%w: assignedTo must be a non-empty array of user IDs", models.ErrMissingFields)
	}
	if status == "" {
		status = models.StatusPending
	}
	if !status.IsValid() {
		return nil, models.ErrInvalidStatus
	}

	// One assignment per distinct user.
	seen := make(map[primitive.ObjectID]bool, len(assignedTo))
	assignments := make([]models.Assignment, 0, len(assignedTo))
	for _, userID := range assignedTo {
		if userID.IsZero() || seen[userID] {
			continue
		}
		seen[userID] = true
		assignments = append(assignments, models.Assignment{User: userID, Status: models.StatusPending})
	}
	if len(assignments) == 0 {
		return nil, fmt.Errorf("%w: assignedTo must be a non-empty array of user IDs", models.ErrMissingFields)
	}

	now := time.Now()
	task := &models.Task{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(title),
		Description: description,
		DueDate:     dueDate,
		Department:  department,
		Status:      status,
		AssignedTo:  assignments,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, text := range initialComments {
		if _, err := task.AddComment(createdBy, models.CreatedByAdmin, text, nil); err != nil {
			return nil, err
		}
	}

	if _, err := s.tasksCollection.InsertOne(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %v", err)
	}
	return task, nil
}

// UpdateTask is the admin field patch. A status supplied here is force-set,
// bypassing derivation; a new assignee list keeps the statuses of users who
// were already assigned.
func (s *TaskService) UpdateTask(ctx context.Context, taskID primitive.ObjectID, update TaskUpdate) (*models.Task, error) {
	task, err := s.loadTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		if strings.TrimSpace(*update.Title) == "" {
			return nil, models.ErrMissingFields
		}
		task.Title = strings.TrimSpace(*update.Title)
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.DueDate != nil {
		task.DueDate = update.DueDate
	}
	if update.Status != nil {
		if !update.Status.IsValid() {
			return nil, models.ErrInvalidStatus
		}
		task.Status = *update.Status
	}
	if update.AssignedTo != nil {
		if len(update.AssignedTo) == 0 {
			return nil, fmt.Errorf("%w: assignedTo must be a non-empty array of user IDs", models.ErrMissingFields)
		}
		previous := make(map[primitive.ObjectID]models.TaskStatus, len(task.AssignedTo))
		for _, a := range task.AssignedTo {
			previous[a.User] = a.Status
		}
		seen := make(map[primitive.ObjectID]bool, len(update.AssignedTo))
		assignments := make([]models.Assignment, 0, len(update.AssignedTo))
		for _, userID := range update.AssignedTo {
			if userID.IsZero() || seen[userID] {
				continue
			}
			seen[userID] = true
			status := models.StatusPending
			if prior, ok := previous[userID]; ok {
				status = prior
			}
			assignments = append(assignments, models.Assignment{User: userID, Status: status})
		}
		task.AssignedTo = assignments
	}

	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return s.populateTask(ctx, task), nil
}

// ListTasks returns all tasks for the admin view, optionally filtered by
// assignee or overall status, newest first.
func (s *TaskService) ListTasks(ctx context.Context, assignedTo *primitive.ObjectID, status *models.TaskStatus) ([]*models.Task, error) {
	filter := bson.M{}
	if assignedTo != nil {
		filter["assignedTo.user"] = *assignedTo
	}
	if status != nil {
		filter["status"] = *status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.findTasks(ctx, filter, opts)
}

// ListTasksForUser returns tasks where the user is a top-level assignee or
// a subtask assignee, due soonest first.
func (s *TaskService) ListTasksForUser(ctx context.Context, userID primitive.ObjectID, status *models.TaskStatus) ([]*models.Task, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"assignedTo.user": userID},
		bson.M{"subtasks.assignedTo": userID},
	}}
	if status != nil {
		filter["status"] = *status
	}
	opts := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}, {Key: "createdAt", Value: -1}})
	return s.findTasks(ctx, filter, opts)
}

func (s *TaskService) GetTaskByID(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error) {
	task, err := s.loadTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		return nil, err
	}
	return s.populateTask(ctx, task), nil
}

// GetTaskForUser fetches a single task with the employee access check: the
// caller must participate in the task as assignee or subtask assignee.
func (s *TaskService) GetTaskForUser(ctx context.Context, taskID, userID primitive.ObjectID) (*models.Task, error) {
	task, err := s.loadTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		return nil, err
	}
	if !task.IsParticipant(userID) {
		return nil, models.ErrAccessDenied
	}
	return s.populateTask(ctx, task), nil
}

// DeleteTask hard-deletes the aggregate and returns it so the caller can
// clean up attachment blobs.
func (s *TaskService) DeleteTask(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error) {
	task, err := s.loadTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		return nil, err
	}
	if _, err := s.tasksCollection.DeleteOne(ctx, bson.M{"_id": taskID}); err != nil {
		return nil, fmt.Errorf("failed to delete task: %v", err)
	}
	return task, nil
}

// UpdateUserTaskStatus records an employee's self-reported status and
// persists the assignment change together with the re-derived overall
// status in one save.
func (s *TaskService) UpdateUserTaskStatus(ctx context.Context, taskID, userID primitive.ObjectID, status models.TaskStatus) (*models.Task, error) {
	task, err := s.loadTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		return nil, err
	}
	if err := task.ApplyUserStatus(userID, status); err != nil {
		return nil, err
	}
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return s.populateTask(ctx, task), nil
}

// ApproveTask resolves a pending-approval task with the admin's decision.
func (s *TaskService) ApproveTask(ctx context.Context, taskID primitive.ObjectID, decision models.TaskStatus) (*models.Task, error) {
	task, err := s.loadTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		return nil, err
	}
	if err := task.ApproveOrReject(decision); err != nil {
		return nil, err
	}
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return s.populateTask(ctx, task), nil
}

// AddSubtask appends a subtask after checking the assignee exists; the
// aggregate heals the assignment roster itself.
func (s *TaskService) AddSubtask(ctx context.Context, taskID primitive.ObjectID, title, description string, dueDate *time.Time, assigneeID primitive.ObjectID) (*models.Task, error) {
	if assigneeID.IsZero() {
		return nil, models.ErrMissingFields
	}
	count, err := s.usersCollection.CountDocuments(ctx, bson.M{"_id": assigneeID})
	if err != nil {
		return nil, fmt.Errorf("failed to verify assignee: %v", err)
	}
	if count == 0 {
		return nil, models.ErrUserNotFound
	}

	task, err := s.loadTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		return nil, err
	}
	if _, err := task.AddSubtask(title, description, dueDate, assigneeID); err != nil {
		return nil, err
	}
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return s.populateTask(ctx, task), nil
}

// UpdateSubtaskStatus locates the task containing the subtask and applies
// the assignee's status update.
func (s *TaskService) UpdateSubtaskStatus(ctx context.Context, subtaskID, userID primitive.ObjectID, status models.TaskStatus) (*models.Task, error) {
	task, err := s.loadTask(ctx, bson.M{"subtasks._id": subtaskID})
	if err != nil {
		return nil, err
	}
	if err := task.SetSubtaskStatus(subtaskID, userID, status); err != nil {
		return nil, err
	}
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return s.populateTask(ctx, task), nil
}

// AddComment appends to the task's comment trail. Attachment bytes are
// already in the blob store; only metadata enters the document.
func (s *TaskService) AddComment(ctx context.Context, taskID, authorID primitive.ObjectID, kind models.CreatedByModel, text string, attachments []models.Attachment) (*models.Task, error) {
	task, err := s.loadTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		return nil, err
	}
	if _, err := task.AddComment(authorID, kind, text, attachments); err != nil {
		return nil, err
	}
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return s.populateTask(ctx, task), nil
}

// AddMessage appends to the task chat channel.
func (s *TaskService) AddMessage(ctx context.Context, taskID, authorID primitive.ObjectID, kind models.CreatedByModel, text string, attachments []models.Attachment) (*models.Task, error) {
	task, err := s.loadTask(ctx, bson.M{"_id": taskID})
	if err != nil {
		return nil, err
	}
	if _, err := task.AddMessage(authorID, kind, text, attachments); err != nil {
		return nil, err
	}
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return s.populateTask(ctx, task), nil
}

// GetAttachment resolves a comment attachment for download. Admins may
// fetch any attachment; users must participate in the owning task.
func (s *TaskService) GetAttachment(ctx context.Context, commentID primitive.ObjectID, fileName string, userID *primitive.ObjectID) (*models.Attachment, error) {
	task, err := s.loadTask(ctx, bson.M{"$or": bson.A{
		bson.M{"comments._id": commentID},
		bson.M{"messages._id": commentID},
	}})
	if err != nil {
		return nil, err
	}
	if userID != nil && !task.IsParticipant(*userID) {
		return nil, models.ErrAccessDenied
	}

	comment := task.FindComment(commentID)
	if comment == nil {
		return nil, models.ErrTaskNotFound
	}
	for i := range comment.Attachments {
		if comment.Attachments[i].FileName == fileName {
			return &comment.Attachments[i], nil
		}
	}
	return nil, models.ErrTaskNotFound
}

func (s *TaskService) loadTask(ctx context.Context, filter bson.M) (*models.Task, error) {
	var task models.Task
	if err := s.tasksCollection.FindOne(ctx, filter).Decode(&task); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to load task: %v", err)
	}
	return &task, nil
}

func (s *TaskService) saveTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	result, err := s.tasksCollection.ReplaceOne(ctx, bson.M{"_id": task.ID}, task)
	if err != nil {
		return fmt.Errorf("failed to save task: %v", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrTaskNotFound
	}
	return nil
}

func (s *TaskService) findTasks(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Task, error) {
	cursor, err := s.tasksCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %v", err)
	}
	defer cursor.Close(ctx)

	var tasks []*models.Task
	for cursor.Next(ctx) {
		var task models.Task
		if err := cursor.Decode(&task); err != nil {
			return nil, fmt.Errorf("failed to decode task: %v", err)
		}
		tasks = append(tasks, &task)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}

	s.populateTasks(ctx, tasks)
	return tasks, nil
}

// populateTasks resolves referenced admin/user names onto the response-only
// name fields, the aggregate equivalent of the old populate calls.
func (s *TaskService) populateTasks(ctx context.Context, tasks []*models.Task) {
	userIDs := make(map[primitive.ObjectID]bool)
	adminIDs := make(map[primitive.ObjectID]bool)
	for _, task := range tasks {
		adminIDs[task.CreatedBy] = true
		for _, a := range task.AssignedTo {
			userIDs[a.User] = true
		}
		for _, st := range task.Subtasks {
			userIDs[st.AssignedTo] = true
		}
		for _, c := range task.Comments {
			collectAuthor(c, userIDs, adminIDs)
		}
		for _, m := range task.Messages {
			collectAuthor(m, userIDs, adminIDs)
		}
	}

	userNames := s.lookupNames(ctx, s.usersCollection, userIDs)
	adminNames := s.lookupNames(ctx, s.adminsCollection, adminIDs)

	for _, task := range tasks {
		task.CreatorName = adminNames[task.CreatedBy]
		for i := range task.AssignedTo {
			task.AssignedTo[i].UserName = userNames[task.AssignedTo[i].User]
		}
		for i := range task.Subtasks {
			task.Subtasks[i].UserName = userNames[task.Subtasks[i].AssignedTo]
		}
		for i := range task.Comments {
			setAuthorName(&task.Comments[i], userNames, adminNames)
		}
		for i := range task.Messages {
			setAuthorName(&task.Messages[i], userNames, adminNames)
		}
	}
}

func (s *TaskService) populateTask(ctx context.Context, task *models.Task) *models.Task {
	s.populateTasks(ctx, []*models.Task{task})
	return task
}

func collectAuthor(c models.Comment, userIDs, adminIDs map[primitive.ObjectID]bool) {
	if c.CreatedByModel == models.CreatedByAdmin {
		adminIDs[c.CreatedBy] = true
	} else {
		userIDs[c.CreatedBy] = true
	}
}

func setAuthorName(c *models.Comment, userNames, adminNames map[primitive.ObjectID]string) {
	if c.CreatedByModel == models.CreatedByAdmin {
		c.AuthorName = adminNames[c.CreatedBy]
	} else {
		c.AuthorName = userNames[c.CreatedBy]
	}
}

// lookupNames is best-effort: a failed lookup leaves names blank rather
// than failing the read.
func (s *TaskService) lookupNames(ctx context.Context, collection *mongo.Collection, ids map[primitive.ObjectID]bool) map[primitive.ObjectID]string {
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names
	}
	list := make([]primitive.ObjectID, 0, len(ids))
	for id := range ids {
		if !id.IsZero() {
			list = append(list, id)
		}
	}

	cursor, err := collection.Find(ctx, bson.M{"_id": bson.M{"$in": list}},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return names
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cursor.Decode(&doc); err == nil {
			names[doc.ID] = doc.Name
		}
	}
	return names
}
