package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/orderengine/internal/auth"
	"github.com/kiwari-pos/orderengine/internal/database"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/middleware"
	"go.uber.org/zap"
)

// StaffStore defines the database methods needed by staff handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StaffStore interface {
	ListStaff(ctx context.Context) ([]database.Staff, error)
	CreateStaff(ctx context.Context, arg database.CreateStaffParams) (database.Staff, error)
	UpdateStaff(ctx context.Context, arg database.UpdateStaffParams) (database.Staff, error)
	DeactivateStaff(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// StaffHandler manages the staff roster that PIN login and cancellation
// authorization read from.
type StaffHandler struct {
	store  StaffStore
	logger *zap.Logger
}

func NewStaffHandler(store StaffStore, logger *zap.Logger) *StaffHandler {
	return &StaffHandler{store: store, logger: logger}
}

// RegisterRoutes registers staff endpoints.
// Expected to be mounted at /staff behind RequireRole(MANAGER).
func (h *StaffHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type staffRequest struct {
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Pin      string `json:"pin"`
}

func toStaffResponse(s database.Staff) staffResponse {
	return staffResponse{ID: s.ID, FullName: s.FullName, Role: s.Role}
}

// validate checks the body. A PIN is required on create and optional on
// update, where an empty PIN keeps the current one.
func (req staffRequest) validate(requirePin bool) string {
	if req.FullName == "" || req.Role == "" {
		return "full_name and role are required"
	}
	if !isValidRole(req.Role) {
		return "invalid role"
	}
	if req.Pin == "" {
		if requirePin {
			return "pin is required"
		}
		return ""
	}
	if len(req.Pin) < 4 || len(req.Pin) > 6 {
		return "PIN must be 4-6 digits"
	}
	for _, c := range req.Pin {
		if c < '0' || c > '9' {
			return "PIN must be 4-6 digits"
		}
	}
	return ""
}

// --- Handlers ---

// List returns the active staff.
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	staff, err := h.store.ListStaff(r.Context())
	if err != nil {
		h.logger.Error("list staff", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]staffResponse, len(staff))
	for i, s := range staff {
		resp[i] = toStaffResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a staff member with a hashed PIN.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(true); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	hash, err := auth.HashPIN(req.Pin)
	if err != nil {
		h.logger.Error("create staff: hash pin", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	staff, err := h.store.CreateStaff(r.Context(), database.CreateStaffParams{
		FullName: req.FullName,
		Role:     req.Role,
		PinHash:  hash,
	})
	if err != nil {
		h.logger.Error("create staff", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.logger.Info("staff created", zap.String("staff_id", staff.ID.String()), zap.String("role", staff.Role))
	writeJSON(w, http.StatusCreated, toStaffResponse(staff))
}

// Update renames a staff member, changes their role, or resets their PIN.
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff ID"})
		return
	}

	var req staffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(false); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if isSelf(r, id) && req.Role != enum.StaffRoleManager {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot demote yourself"})
		return
	}

	var hash string
	if req.Pin != "" {
		if hash, err = auth.HashPIN(req.Pin); err != nil {
			h.logger.Error("update staff: hash pin", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	staff, err := h.store.UpdateStaff(r.Context(), database.UpdateStaffParams{
		ID:       id,
		FullName: req.FullName,
		Role:     req.Role,
		PinHash:  hash,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "staff not found"})
			return
		}
		h.logger.Error("update staff", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStaffResponse(staff))
}

// Delete deactivates a staff member. Their name stays on the orders they
// cancelled.
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff ID"})
		return
	}
	if isSelf(r, id) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot deactivate yourself"})
		return
	}

	if _, err := h.store.DeactivateStaff(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "staff not found"})
			return
		}
		h.logger.Error("deactivate staff", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func isValidRole(role string) bool {
	return role == enum.StaffRoleManager || role == enum.StaffRoleCashier
}

func isSelf(r *http.Request, id uuid.UUID) bool {
	claims := middleware.ClaimsFromContext(r.Context())
	return claims != nil && claims.StaffID == id
}
