package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/orderengine/internal/catalog"
	"github.com/kiwari-pos/orderengine/internal/composer"
	"github.com/kiwari-pos/orderengine/internal/handler"
	"github.com/kiwari-pos/orderengine/internal/inventory"
	"github.com/kiwari-pos/orderengine/internal/reconcile"
	"github.com/kiwari-pos/orderengine/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Fakes ---

// fakeFinalizer runs the real composer finalize and records what would have
// been persisted.
type fakeFinalizer struct {
	comp  *composer.Composer
	saved []composer.Order
	paid  []*decimal.Decimal
	err   error
}

func (f *fakeFinalizer) Finalize(ctx context.Context, sess *composer.Session, paid *decimal.Decimal) (composer.Snapshot, reconcile.SavedOrder, error) {
	var saved reconcile.SavedOrder
	snap, err := f.comp.Finalize(ctx, sess, func(_ context.Context, order composer.Order, _ *composer.EditContext) error {
		if f.err != nil {
			return f.err
		}
		f.saved = append(f.saved, order)
		f.paid = append(f.paid, paid)
		saved = reconcile.SavedOrder{ID: uuid.New(), OrderNumber: int32(len(f.saved)), Status: "pending", Total: order.Total()}
		return nil
	})
	return snap, saved, err
}

// --- Helpers ---

type sessionFixture struct {
	router   http.Handler
	registry *composer.Registry
	final    *fakeFinalizer
	mainCat  uuid.UUID
	wings    uuid.UUID
	sauceA   uuid.UUID
	slot     uuid.UUID
}

func newSessionFixture(wingsStock int64) *sessionFixture {
	f := &sessionFixture{mainCat: uuid.New(), wings: uuid.New(), sauceA: uuid.New(), slot: uuid.New()}
	sauceCat, rawWings := uuid.New(), uuid.New()

	cat := catalog.NewMemory()
	cat.PutProduct(catalog.Product{
		ID: f.wings, CategoryID: f.mainCat, Name: "Wings-6", Price: decimal.NewFromInt(95),
		InventoryItemID: uuid.NullUUID{UUID: rawWings, Valid: true}, ConsumedPerUnit: decimal.NewFromInt(6),
	})
	cat.PutProduct(catalog.Product{ID: f.sauceA, CategoryID: sauceCat, Name: "Sauce-A"})
	cat.PutSlot(catalog.ModifierSlot{
		ID: f.slot, ProductID: f.wings, Label: "Sauces", ModifierCategoryID: sauceCat,
		MinQuantity: 1, MaxQuantity: 2,
		Options: []catalog.SlotOption{{ID: uuid.New(), ProductID: f.sauceA, SortOrder: 1}},
	})

	stock := inventory.NewStock(inventory.NewMemory(
		inventory.Item{ID: rawWings, Name: "RawWings", Unit: "pc", CurrentStock: decimal.NewFromInt(wingsStock)},
	))
	comp := composer.New(cat, inventory.NewValidator(stock), zap.NewNop())
	f.registry = composer.NewRegistry()
	f.final = &fakeFinalizer{comp: comp}

	r := chi.NewRouter()
	r.Route("/sessions", handler.NewSessionHandler(comp, f.registry, f.final, zap.NewNop()).RegisterRoutes)
	f.router = r
	return f
}

// open creates a session positioned on the main category.
func (f *sessionFixture) open(t *testing.T) string {
	t.Helper()
	rr := postJSON(t, f.router, "/sessions", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d; body: %s", rr.Code, rr.Body.String())
	}
	id, _ := decodeResponse(t, rr)["session_id"].(string)
	rr = postJSON(t, f.router, "/sessions/"+id+"/categories/"+f.mainCat.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("open category: got %d; body: %s", rr.Code, rr.Body.String())
	}
	return id
}

func (f *sessionFixture) configureWings(t *testing.T, id string, qty int) {
	t.Helper()
	rr := postJSON(t, f.router, "/sessions/"+id+"/configure", map[string]interface{}{
		"kind": "product", "id": f.wings.String(), "quantity": qty,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("configure: got %d; body: %s", rr.Code, rr.Body.String())
	}
}

func (f *sessionFixture) toggleSauce(t *testing.T, id, instance string) {
	t.Helper()
	rr := postJSON(t, f.router, "/sessions/"+id+"/instances/"+instance+"/toggle", map[string]string{
		"slot_id": f.slot.String(), "product_id": f.sauceA.String(),
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle: got %d; body: %s", rr.Code, rr.Body.String())
	}
}

// --- Tests ---

func TestSession_ComposeAndFinalize(t *testing.T) {
	f := newSessionFixture(1000)
	id := f.open(t)
	f.configureWings(t, id, 2)

	rr := postJSON(t, f.router, "/sessions/"+id+"/commit", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("commit without sauce: got %d, want 422", rr.Code)
	}
	detail, _ := decodeResponse(t, rr)["detail"].(map[string]interface{})
	if detail["slot"] != "Sauces" || detail["min"] != float64(1) {
		t.Errorf("bounds detail: %v", detail)
	}

	f.toggleSauce(t, id, "0")
	rr = postJSON(t, f.router, "/sessions/"+id+"/instances/apply-all", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("apply-all: got %d", rr.Code)
	}
	rr = postJSON(t, f.router, "/sessions/"+id+"/commit", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("commit: got %d; body: %s", rr.Code, rr.Body.String())
	}
	snap := decodeResponse(t, rr)
	if snap["state"] != "products" || snap["total"] != "190" {
		t.Errorf("after commit: state=%v total=%v", snap["state"], snap["total"])
	}

	rr = sendJSON(t, f.router, "PUT", "/sessions/"+id+"/customer", map[string]string{
		"customer_name": "Ana", "payment_method": "CARD",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("customer: got %d", rr.Code)
	}

	rr = postJSON(t, f.router, "/sessions/"+id+"/finalize", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("finalize: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if len(f.final.saved) != 1 || f.final.saved[0].CustomerName != "Ana" || f.final.paid[0] != nil {
		t.Errorf("saved: %+v paid: %v", f.final.saved, f.final.paid)
	}

	rr = sendJSON(t, f.router, "GET", "/sessions/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("finalized session still served: %d", rr.Code)
	}
}

func TestSession_InsufficientStockDetail(t *testing.T) {
	f := newSessionFixture(12)
	id := f.open(t)
	f.configureWings(t, id, 3)
	for _, n := range []string{"0", "1", "2"} {
		f.toggleSauce(t, id, n)
	}

	rr := postJSON(t, f.router, "/sessions/"+id+"/commit", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("commit: got %d, want 422; body: %s", rr.Code, rr.Body.String())
	}
	detail, _ := decodeResponse(t, rr)["detail"].(map[string]interface{})
	if detail["item"] != "RawWings" || detail["max_units"] != float64(2) {
		t.Errorf("stock detail: %v", detail)
	}
}

func TestSession_ItemEdits(t *testing.T) {
	f := newSessionFixture(1000)
	id := f.open(t)
	f.configureWings(t, id, 1)
	f.toggleSauce(t, id, "0")
	if rr := postJSON(t, f.router, "/sessions/"+id+"/commit", nil); rr.Code != http.StatusOK {
		t.Fatalf("commit: got %d", rr.Code)
	}

	rr := sendJSON(t, f.router, "PATCH", "/sessions/"+id+"/items/0", map[string]int{"quantity": 3})
	if rr.Code != http.StatusOK {
		t.Fatalf("quantity: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if got := decodeResponse(t, rr)["total"]; got != "285" {
		t.Errorf("total after quantity: %v", got)
	}

	rr = sendJSON(t, f.router, "PATCH", "/sessions/"+id+"/items/0/modifiers", map[string]string{
		"slot_id": f.slot.String(), "product_id": f.sauceA.String(), "extra_cost": "5",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("extra cost: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if got := decodeResponse(t, rr)["total"]; got != "300" {
		t.Errorf("total after extra cost: %v", got)
	}

	rr = sendJSON(t, f.router, "PATCH", "/sessions/"+id+"/items/0/modifiers", map[string]string{
		"slot_id": f.slot.String(), "product_id": f.sauceA.String(),
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty modifier edit: got %d, want 400", rr.Code)
	}

	rr = sendJSON(t, f.router, "DELETE", "/sessions/"+id+"/items/0", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("remove: got %d", rr.Code)
	}
	rr = postJSON(t, f.router, "/sessions/"+id+"/finalize", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("finalize empty order: got %d, want 400", rr.Code)
	}
}

func TestSession_Rejections(t *testing.T) {
	f := newSessionFixture(1000)
	id := f.open(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"unknown session", "GET", "/sessions/" + uuid.New().String(), nil, http.StatusNotFound},
		{"bad session id", "GET", "/sessions/abc", nil, http.StatusBadRequest},
		{"bad kind", "POST", "/sessions/" + id + "/configure", map[string]string{"kind": "combo", "id": f.wings.String()}, http.StatusBadRequest},
		{"unknown product", "POST", "/sessions/" + id + "/configure", map[string]string{"kind": "product", "id": uuid.New().String()}, http.StatusNotFound},
		{"quantity too large", "POST", "/sessions/" + id + "/configure", map[string]interface{}{"kind": "product", "id": f.wings.String(), "quantity": 3000000}, http.StatusBadRequest},
		{"toggle while browsing", "POST", "/sessions/" + id + "/instances/0/toggle", map[string]string{"slot_id": f.slot.String(), "product_id": f.sauceA.String()}, http.StatusConflict},
		{"bad instance index", "POST", "/sessions/" + id + "/instances/x/toggle", map[string]string{}, http.StatusBadRequest},
		{"item out of range", "DELETE", "/sessions/" + id + "/items/4", nil, http.StatusBadRequest},
		{"bad payment method", "PUT", "/sessions/" + id + "/customer", map[string]string{"payment_method": "BARTER"}, http.StatusBadRequest},
		{"bad paid amount body", "POST", "/sessions/" + id + "/finalize", "nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := sendJSON(t, f.router, tt.method, tt.path, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tt.status, rr.Body.String())
			}
		})
	}
}

func TestSession_FinalizeServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"underpaid", service.ErrInsufficientPayment, http.StatusUnprocessableEntity},
		{"edited order gone", service.ErrOrderNotEditable, http.StatusConflict},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(1000)
			f.final.err = tt.err
			id := f.open(t)
			f.configureWings(t, id, 1)
			f.toggleSauce(t, id, "0")
			if rr := postJSON(t, f.router, "/sessions/"+id+"/commit", nil); rr.Code != http.StatusOK {
				t.Fatalf("commit: got %d", rr.Code)
			}

			rr := postJSON(t, f.router, "/sessions/"+id+"/finalize", map[string]string{"paid_amount": "50"})
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tt.status, rr.Body.String())
			}
			if rr := sendJSON(t, f.router, "GET", "/sessions/"+id, nil); rr.Code != http.StatusOK {
				t.Errorf("session dropped after failed finalize: %d", rr.Code)
			}
		})
	}
}

func TestSession_Delete(t *testing.T) {
	f := newSessionFixture(1000)
	id := f.open(t)
	if rr := sendJSON(t, f.router, "DELETE", "/sessions/"+id, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}
	if rr := sendJSON(t, f.router, "GET", "/sessions/"+id, nil); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete: got %d", rr.Code)
	}
}
