package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiwari-pos/orderengine/internal/catalog"
	"github.com/kiwari-pos/orderengine/internal/composer"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/kiwari-pos/orderengine/internal/service"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// errorResponse carries the message plus structured detail for blocks an
// operator can act on.
type errorResponse struct {
	Error  string      `json:"error"`
	Detail interface{} `json:"detail,omitempty"`
}

type stockDetail struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Item            string    `json:"item"`
	Unit            string    `json:"unit"`
	Required        string    `json:"required"`
	Available       string    `json:"available"`
	MaxUnits        int64     `json:"max_units"`
}

type slotDetail struct {
	Slot     string `json:"slot"`
	Item     string `json:"item,omitempty"`
	Instance int    `json:"instance"`
	Selected int    `json:"selected"`
	Min      int32  `json:"min"`
	Max      int32  `json:"max"`
}

// statusFor maps domain errors to HTTP statuses. Zero means unexpected.
func statusFor(err error) int {
	switch {
	case errors.Is(err, composer.ErrSlotFull),
		errors.Is(err, composer.ErrSlotBounds),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, service.ErrInsufficientPayment):
		return http.StatusUnprocessableEntity

	case errors.Is(err, composer.ErrUnknownSlot),
		errors.Is(err, composer.ErrUnknownOption),
		errors.Is(err, composer.ErrModifierNotSelected),
		errors.Is(err, composer.ErrInstanceOutOfRange),
		errors.Is(err, composer.ErrItemOutOfRange),
		errors.Is(err, composer.ErrInvalidQuantity),
		errors.Is(err, composer.ErrInvalidExtraCost),
		errors.Is(err, composer.ErrEmptyOrder),
		errors.Is(err, composer.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidPaidAmount),
		errors.Is(err, service.ErrReasonRequired):
		return http.StatusBadRequest

	case errors.Is(err, composer.ErrSessionNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrPackageNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidManagerPIN):
		return http.StatusForbidden

	case errors.Is(err, composer.ErrIllegalTransition),
		errors.Is(err, catalog.ErrDuplicateOverride),
		errors.Is(err, inventory.ErrItemNotFound),
		errors.Is(err, inventory.ErrStockUnderflow),
		errors.Is(err, service.ErrOrderNotEditable),
		errors.Is(err, service.ErrOrderNotPending),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrVoidNotConfirmed):
		return http.StatusConflict
	}
	return 0
}

// writeError answers with the mapped status, or logs and answers 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status == 0 {
		logger.Error(op, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := errorResponse{Error: err.Error()}
	var stock *inventory.InsufficientStockError
	var bounds *composer.SlotBoundsError
	switch {
	case errors.As(err, &stock):
		resp.Detail = stockDetail{
			InventoryItemID: stock.ItemID,
			Item:            stock.ItemName,
			Unit:            stock.Unit,
			Required:        stock.Required.String(),
			Available:       stock.Available.String(),
			MaxUnits:        stock.MaxUnits,
		}
	case errors.As(err, &bounds):
		resp.Detail = slotDetail{
			Slot:     bounds.Slot,
			Item:     bounds.Item,
			Instance: bounds.Instance,
			Selected: bounds.Selected,
			Min:      bounds.Min,
			Max:      bounds.Max,
		}
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// urlID parses a uuid path parameter, answering 400 when it is malformed.
func urlID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + label})
		return uuid.Nil, false
	}
	return id, true
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
