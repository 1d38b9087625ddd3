package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/composer"
	"github.com/kiwari-pos/orderengine/internal/enum"
	"github.com/kiwari-pos/orderengine/internal/middleware"
	"github.com/kiwari-pos/orderengine/internal/reconcile"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Finalizer persists a session's order. Satisfied by *service.OrderService.
type Finalizer interface {
	Finalize(ctx context.Context, sess *composer.Session, paid *decimal.Decimal) (composer.Snapshot, reconcile.SavedOrder, error)
}

// SessionHandler exposes the composition state machine. Every mutating
// route answers with the session snapshot after the action.
type SessionHandler struct {
	comp     *composer.Composer
	sessions *composer.Registry
	orders   Finalizer
	logger   *zap.Logger
}

func NewSessionHandler(comp *composer.Composer, sessions *composer.Registry, orders Finalizer, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{comp: comp, sessions: sessions, orders: orders, logger: logger}
}

// RegisterRoutes expects to be mounted at /sessions.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Route("/{sid}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/categories/{cid}", h.OpenCategory)
		r.Post("/back", h.Back)
		r.Post("/configure", h.Configure)
		r.Put("/instances", h.SetInstanceCount)
		r.Put("/instances/active", h.SetActiveInstance)
		r.Post("/instances/apply-all", h.ApplyAll)
		r.Post("/instances/{n}/toggle", h.Toggle)
		r.Patch("/instances/{n}/modifiers", h.EditInstanceModifier)
		r.Post("/commit", h.Commit)
		r.Post("/cancel-configuration", h.CancelConfiguration)
		r.Patch("/items/{idx}", h.SetItemQuantity)
		r.Delete("/items/{idx}", h.RemoveItem)
		r.Patch("/items/{idx}/modifiers", h.EditItemModifier)
		r.Put("/customer", h.SetCustomer)
		r.Post("/finalize", h.Finalize)
	})
}

// --- Request / Response types ---

type configureRequest struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type instanceCountRequest struct {
	Count int `json:"count"`
}

type activeInstanceRequest struct {
	Index int `json:"index"`
}

type modifierRequest struct {
	PackageItemID string           `json:"package_item_id"`
	SlotID        string           `json:"slot_id"`
	ProductID     string           `json:"product_id"`
	ServingStyle  *string          `json:"serving_style"`
	ExtraCost     *decimal.Decimal `json:"extra_cost"`
}

type itemQuantityRequest struct {
	Quantity int32 `json:"quantity"`
}

type customerRequest struct {
	CustomerName  string `json:"customer_name"`
	PaymentMethod string `json:"payment_method"`
}

type finalizeRequest struct {
	PaidAmount *decimal.Decimal `json:"paid_amount"`
}

type finalizeResponse struct {
	Session composer.Snapshot    `json:"session"`
	Order   reconcile.SavedOrder `json:"order"`
}

// ref parses the slot address of a modifier request. package_item_id is
// optional and empty for simple products.
func (req modifierRequest) ref() (composer.ModifierRef, string) {
	var ref composer.ModifierRef
	if req.PackageItemID != "" {
		id, err := uuid.Parse(req.PackageItemID)
		if err != nil {
			return ref, "invalid package_item_id"
		}
		ref.PackageItemID = id
	}
	slotID, err := uuid.Parse(req.SlotID)
	if err != nil {
		return ref, "invalid slot_id"
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return ref, "invalid product_id"
	}
	ref.SlotID, ref.ProductID = slotID, productID
	return ref, ""
}

// --- Helpers ---

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*composer.Session, bool) {
	id, ok := urlID(w, r, "sid", "session ID")
	if !ok {
		return nil, false
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, h.logger, "get session", err)
		return nil, false
	}
	return s, true
}

func urlIndex(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || n < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + param})
		return 0, false
	}
	return n, true
}

// respond writes the snapshot, or the mapped error for a rejected action.
func (h *SessionHandler) respond(w http.ResponseWriter, op string, snap composer.Snapshot, err error) {
	if err != nil {
		writeError(w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// --- Handlers ---

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var staffID uuid.UUID
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		staffID = claims.StaffID
	}
	s := composer.NewSession(staffID)
	h.sessions.Add(s)
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Delete abandons the session. Nothing was persisted, so nothing is undone.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.sessions.Delete(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) OpenCategory(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	categoryID, ok := urlID(w, r, "cid", "category ID")
	if !ok {
		return
	}
	snap, err := h.comp.OpenCategory(s, categoryID)
	h.respond(w, "open category", snap, err)
}

func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := h.comp.Back(s)
	h.respond(w, "back", snap, err)
}

// Configure starts configuring a product or package line.
func (h *SessionHandler) Configure(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req configureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	var snap composer.Snapshot
	switch req.Kind {
	case enum.ItemKindProduct:
		snap, err = h.comp.BeginProduct(r.Context(), s, id, req.Quantity)
	case enum.ItemKindPackage:
		snap, err = h.comp.BeginPackage(r.Context(), s, id, req.Quantity)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be product or package"})
		return
	}
	h.respond(w, "configure", snap, err)
}

func (h *SessionHandler) SetInstanceCount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req instanceCountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.comp.SetInstanceCount(s, req.Count)
	h.respond(w, "set instance count", snap, err)
}

func (h *SessionHandler) SetActiveInstance(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req activeInstanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.comp.SetActiveInstance(s, req.Index)
	h.respond(w, "set active instance", snap, err)
}

func (h *SessionHandler) ApplyAll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := h.comp.ApplyCurrentToAll(s)
	h.respond(w, "apply to all", snap, err)
}

// Toggle selects or deselects an option on one instance.
func (h *SessionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	n, ok := urlIndex(w, r, "n")
	if !ok {
		return
	}
	var req modifierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ref, msg := req.ref()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	slot := composer.SlotRef{PackageItemID: ref.PackageItemID, SlotID: ref.SlotID}
	snap, err := h.comp.Toggle(r.Context(), s, n, slot, ref.ProductID)
	h.respond(w, "toggle", snap, err)
}

func (h *SessionHandler) EditInstanceModifier(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	n, ok := urlIndex(w, r, "n")
	if !ok {
		return
	}
	h.editModifier(w, r, "edit instance modifier",
		func(ref composer.ModifierRef, style string) (composer.Snapshot, error) {
			return h.comp.SetInstanceServingStyle(s, n, ref, style)
		},
		func(ref composer.ModifierRef, cost decimal.Decimal) (composer.Snapshot, error) {
			return h.comp.SetInstanceExtraCost(s, n, ref, cost)
		})
}

func (h *SessionHandler) EditItemModifier(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	h.editModifier(w, r, "edit item modifier",
		func(ref composer.ModifierRef, style string) (composer.Snapshot, error) {
			return h.comp.SetServingStyle(s, idx, ref, style)
		},
		func(ref composer.ModifierRef, cost decimal.Decimal) (composer.Snapshot, error) {
			return h.comp.SetExtraCost(s, idx, ref, cost)
		})
}

// editModifier applies serving_style then extra_cost, whichever is present.
func (h *SessionHandler) editModifier(
	w http.ResponseWriter, r *http.Request, op string,
	setStyle func(composer.ModifierRef, string) (composer.Snapshot, error),
	setCost func(composer.ModifierRef, decimal.Decimal) (composer.Snapshot, error),
) {
	var req modifierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ref, msg := req.ref()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if req.ServingStyle == nil && req.ExtraCost == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "serving_style or extra_cost is required"})
		return
	}

	var snap composer.Snapshot
	var err error
	if req.ServingStyle != nil {
		if snap, err = setStyle(ref, *req.ServingStyle); err != nil {
			writeError(w, h.logger, op, err)
			return
		}
	}
	if req.ExtraCost != nil {
		if snap, err = setCost(ref, *req.ExtraCost); err != nil {
			writeError(w, h.logger, op, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := h.comp.CommitConfiguration(r.Context(), s)
	h.respond(w, "commit configuration", snap, err)
}

func (h *SessionHandler) CancelConfiguration(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := h.comp.CancelConfiguration(s)
	h.respond(w, "cancel configuration", snap, err)
}

func (h *SessionHandler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	var req itemQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.comp.SetItemQuantity(r.Context(), s, idx, req.Quantity)
	h.respond(w, "set item quantity", snap, err)
}

func (h *SessionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	idx, ok := urlIndex(w, r, "idx")
	if !ok {
		return
	}
	snap, err := h.comp.RemoveItem(s, idx)
	h.respond(w, "remove item", snap, err)
}

func (h *SessionHandler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req customerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.comp.SetCustomer(s, req.CustomerName, req.PaymentMethod)
	h.respond(w, "set customer", snap, err)
}

// Finalize persists the order and retires the session.
func (h *SessionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	// The body is optional: no paid_amount means exact payment.
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	snap, saved, err := h.orders.Finalize(r.Context(), s, req.PaidAmount)
	if err != nil {
		writeError(w, h.logger, "finalize", err)
		return
	}
	h.sessions.Delete(s.ID)
	writeJSON(w, http.StatusCreated, finalizeResponse{Session: snap, Order: saved})
}
