package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/logging"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/middleware"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/models"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/services"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminHandler serves admin identity and user-management endpoints.
type AdminHandler struct {
	service  *services.AdminService
	tasks    TaskLifecycle
	validate *validator.Validate
}

func NewAdminHandler(service *services.AdminService, tasks TaskLifecycle, validate *validator.Validate) *AdminHandler {
	return &AdminHandler{service: service, tasks: tasks, validate: validate}
}

type createAdminRequest struct {
	Name       string `json:"name" validate:"required"`
	UserID     string `json:"userid" validate:"required"`
	Password   string `json:"password" validate:"required,min=6"`
	Department string `json:"department"`
}

func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var department *primitive.ObjectID
	if req.Department != "" {
		id, err := primitive.ObjectIDFromHex(req.Department)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid department ID format")
			return
		}
		department = &id
	}

	admin, token, err := h.service.CreateAdmin(r.Context(), req.Name, req.UserID, req.Password, department)
	if err != nil {
		writeError(w, err)
		return
	}

	setTokenCookie(w, token)
	logging.Logger.Infof("Event ID: ADMIN_CREATED, Description: Admin %s created", admin.ID.Hex())
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "Admin created successfully", "admin": admin, "token": token})
}

type loginRequest struct {
	UserID   string `json:"userid"`
	Password string `json:"password"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.UserID == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Userid and password required")
		return
	}

	admin, token, err := h.service.LoginAdmin(r.Context(), req.UserID, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setTokenCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Login successful", "admin": admin, "token": token})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearTokenCookie(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *AdminHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	admin, err := h.service.GetAdminByID(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"admin": admin})
}

func (h *AdminHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())

	var req struct {
		Name   string `json:"name"`
		UserID string `json:"userid"`
		Email  string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	admin, err := h.service.UpdateProfile(r.Context(), identity.ID, req.Name, req.UserID, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Profile updated successfully", "admin": admin})
}

func (h *AdminHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())

	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.service.UpdatePassword(r.Context(), identity.ID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated successfully")
}

// ListUsers lists employees, optionally filtered by department.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var department *primitive.ObjectID
	if raw := r.URL.Query().Get("department"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid department ID format")
			return
		}
		department = &id
	}

	users, err := h.service.ListUsers(r.Context(), department)
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// GetUserDetails returns a user together with the tasks assigned to them.
func (h *AdminHandler) GetUserDetails(w http.ResponseWriter, r *http.Request) {
	userID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), &userID, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user, "tasks": tasks})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

type createAccountRequest struct {
	Name        string   `json:"name" validate:"required"`
	Email       string   `json:"email"`
	UserID      string   `json:"userid" validate:"required"`
	Password    string   `json:"password" validate:"required,min=6"`
	Role        string   `json:"role" validate:"omitempty,oneof=admin employee"`
	Departments []string `json:"departments"`
}

// CreateAccount creates an admin or employee on an admin's behalf,
// dispatched on role.
func (h *AdminHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	departments, err := parseObjectIDs(req.Departments)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid department ID format")
		return
	}

	account, err := h.service.CreateAccount(r.Context(), req.Name, req.Email, req.UserID, req.Password, req.Role, departments)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "User created successfully"
	if req.Role == "admin" {
		message = "Admin created successfully"
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": message, "user": account})
}
