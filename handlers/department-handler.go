package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/models"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/services"
	"github.com/go-playground/validator/v10"
)

// DepartmentHandler serves the admin department registry endpoints.
type DepartmentHandler struct {
	service  *services.DepartmentService
	validate *validator.Validate
}

func NewDepartmentHandler(service *services.DepartmentService, validate *validator.Validate) *DepartmentHandler {
	return &DepartmentHandler{service: service, validate: validate}
}

type createDepartmentRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *DepartmentHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req createDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Name is required")
		return
	}

	department, err := h.service.CreateDepartment(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "Department created successfully", "department": department})
}

func (h *DepartmentHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.ListDepartments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if departments == nil {
		departments = []*models.Department{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"departments": departments})
}

func (h *DepartmentHandler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	departmentID, err := pathObjectID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid department ID format")
		return
	}
	department, err := h.service.GetDepartmentByID(r.Context(), departmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"department": department})
}
