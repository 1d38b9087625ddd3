package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/composer"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/middleware"
	"github.com/kiwari-pos/orderengine/internal/reconcile"
	"github.com/kiwari-pos/orderengine/internal/service"
	"go.uber.org/zap"
)

// OrderServicer defines the order service methods used by the handler.
// Satisfied by *service.OrderService.
type OrderServicer interface {
	Get(ctx context.Context, id uuid.UUID) (reconcile.SavedOrder, error)
	List(ctx context.Context, status string, limit, offset int32) ([]reconcile.SavedOrder, error)
	LoadForEdit(ctx context.Context, id, staffID uuid.UUID) (*composer.Session, []reconcile.Gap, error)
	Complete(ctx context.Context, id uuid.UUID) (reconcile.SavedOrder, error)
	Cancel(ctx context.Context, id uuid.UUID, req service.CancelRequest) (reconcile.SavedOrder, error)
}

// OrderHandler serves saved orders and their lifecycle.
type OrderHandler struct {
	svc      OrderServicer
	sessions *composer.Registry
	logger   *zap.Logger
}

func NewOrderHandler(svc OrderServicer, sessions *composer.Registry, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, sessions: sessions, logger: logger}
}

// RegisterRoutes expects to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/edit", h.Edit)
	r.Post("/{id}/complete", h.Complete)
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type cancelRequest struct {
	Reason      string `json:"reason"`
	PIN         string `json:"pin"`
	ConfirmVoid bool   `json:"confirm_void"`
}

type editResponse struct {
	Session composer.Snapshot `json:"session"`
	Gaps    []reconcile.Gap   `json:"gaps"`
}

type orderListResponse struct {
	Orders []reconcile.SavedOrder `json:"orders"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// --- Handlers ---

// List handles GET /orders?status=&limit=&offset=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", enum.OrderStatusPending, enum.OrderStatusCompleted, enum.OrderStatusCancelled:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	orders, err := h.svc.List(r.Context(), status, int32(limit), int32(offset))
	if err != nil {
		writeError(w, h.logger, "list orders", err)
		return
	}
	if orders == nil {
		orders = []reconcile.SavedOrder{}
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: orders, Limit: limit, Offset: offset})
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "order ID")
	if !ok {
		return
	}
	order, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Edit rebuilds a pending order into a new edit-mode session. Gaps list what
// could not be restored against the current catalog.
func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "order ID")
	if !ok {
		return
	}
	var staffID uuid.UUID
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		staffID = claims.StaffID
	}

	sess, gaps, err := h.svc.LoadForEdit(r.Context(), id, staffID)
	if err != nil {
		writeError(w, h.logger, "load order for edit", err)
		return
	}
	if len(gaps) > 0 {
		h.logger.Warn("order rebuilt with gaps", zap.String("order_id", id.String()), zap.Int("gaps", len(gaps)))
	} else {
		gaps = []reconcile.Gap{}
	}
	h.sessions.Add(sess)
	writeJSON(w, http.StatusCreated, editResponse{Session: sess.Snapshot(), Gaps: gaps})
}

func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "order ID")
	if !ok {
		return
	}
	order, err := h.svc.Complete(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "complete order", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Cancel requires a reason and a manager PIN. Completed orders additionally
// need confirm_void.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "order ID")
	if !ok {
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.svc.Cancel(r.Context(), id, service.CancelRequest{
		Reason:      req.Reason,
		PIN:         req.PIN,
		ConfirmVoid: req.ConfirmVoid,
	})
	if err != nil {
		writeError(w, h.logger, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
