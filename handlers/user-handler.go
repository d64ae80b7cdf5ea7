package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/logging"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/middleware"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/services"
	"github.com/go-playground/validator/v10"
)

// UserHandler serves employee identity endpoints.
type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
}

func NewUserHandler(service *services.UserService, validate *validator.Validate) *UserHandler {
	return &UserHandler{service: service, validate: validate}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	user, token, err := h.service.RegisterUser(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setTokenCookie(w, token)
	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: User %s registered", user.ID.Hex())
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "User created", "user": user, "token": token})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password required")
		return
	}

	user, token, err := h.service.LoginUser(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setTokenCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Login successful", "user": user, "token": token})
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearTokenCookie(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	user, err := h.service.GetUserByID(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
