package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/inventory"
	"github.com/goldenhour/backoffice/internal/server/handlers"
	"github.com/goldenhour/backoffice/internal/service/reconcile"
	"github.com/goldenhour/backoffice/internal/service/reporting"
	"github.com/goldenhour/backoffice/internal/service/transfer"
)

type failingSink struct {
	fail bool
}

func (s *failingSink) PersistModel(context.Context, models.Model) error {
	if s.fail {
		return errors.New("database is locked")
	}
	return nil
}

type testServer struct {
	engine *gin.Engine
	ledger *inventory.Ledger
	sink   *failingSink
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger, err := inventory.New(
		[]models.Location{{Code: "C60", Name: "Mid Valley"}, {Code: "C61", Name: "Sunway"}},
		[]models.Model{
			{Code: "M-001", Price: decimal.NewFromInt(120), Stock: map[string]int{"HQ": 100}},
			{Code: "M-002", Price: decimal.NewFromInt(85), Stock: map[string]int{"C60": 5}},
		},
	)
	if err != nil {
		t.Fatalf("Failed to build ledger: %v", err)
	}

	sink := &failingSink{}
	transferSvc := transfer.NewService(ledger, transfer.NewExecutor(ledger, sink, nil, nil), nil)
	engine := New(Handlers{
		Stock:  handlers.NewStockHandler(ledger, reporting.NewService(ledger, nil, 5, nil)),
		Carts:  handlers.NewCartHandler(transferSvc, nil),
		Counts: handlers.NewCountHandler(reconcile.NewReconciler(ledger, nil, nil)),
	}, nil)
	return &testServer{engine: engine, ledger: ledger, sink: sink}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, decoded
}

func TestStockInFlow(t *testing.T) {
	s := newTestServer(t)

	code, cart := s.do(t, http.MethodPost, "/carts", map[string]any{"kind": "in", "destination": "C60", "actor": "Aina"})
	if code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %v", code, cart)
	}
	id := cart["id"].(string)
	if cart["source"] != models.HQ {
		t.Errorf("Expected HQ source, got %v", cart["source"])
	}

	code, body := s.do(t, http.MethodPost, "/carts/"+id+"/items", map[string]any{"model": "m-001", "quantity": 30})
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", code, body)
	}

	code, body = s.do(t, http.MethodPost, "/carts/"+id+"/commit", nil)
	if code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %v", code, body)
	}
	receipt := body["receipt"].(map[string]any)
	if receipt["total_quantity"].(float64) != 30 {
		t.Errorf("Expected total 30, got %v", receipt["total_quantity"])
	}
	if s.ledger.GetStock("M-001", "C60") != 30 || s.ledger.GetStock("M-001", models.HQ) != 100 {
		t.Errorf("Unexpected ledger state after stock in")
	}

	code, _ = s.do(t, http.MethodGet, "/carts/"+id, nil)
	if code != http.StatusNotFound {
		t.Errorf("Expected the committed cart to be gone, got %d", code)
	}
}

func TestCartErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/carts", map[string]any{"kind": "out", "source": "C60", "destination": "C60"})
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for same location, got %d", code)
	}
	code, _ = s.do(t, http.MethodPost, "/carts", map[string]any{"kind": "out", "source": "C99", "destination": "C60"})
	if code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown location, got %d", code)
	}

	code, cart := s.do(t, http.MethodPost, "/carts", map[string]any{"kind": "STOCK_OUT", "source": "C60", "destination": "C61"})
	if code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", code)
	}
	id := cart["id"].(string)

	code, _ = s.do(t, http.MethodPost, "/carts", map[string]any{"kind": "STOCK_OUT", "source": "C60", "destination": "C61"})
	if code != http.StatusConflict {
		t.Errorf("Expected 409 for a busy route, got %d", code)
	}

	code, _ = s.do(t, http.MethodPost, "/carts/"+id+"/commit", nil)
	if code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for an empty batch, got %d", code)
	}

	code, body := s.do(t, http.MethodPost, "/carts/"+id+"/items", map[string]any{"model": "M-002", "quantity": 6})
	if code != http.StatusConflict {
		t.Fatalf("Expected 409 for insufficient stock, got %d", code)
	}
	if body["available"].(float64) != 5 || body["requested"].(float64) != 6 || body["model"] != "M-002" {
		t.Errorf("Expected the failure details in the body, got %v", body)
	}

	code, _ = s.do(t, http.MethodPost, "/carts/"+id+"/items", map[string]any{"model": "M-002", "quantity": 0})
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a zero quantity, got %d", code)
	}
	code, _ = s.do(t, http.MethodPost, "/carts/"+id+"/items", map[string]any{"model": "M-404", "quantity": 1})
	if code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown model, got %d", code)
	}
	code, _ = s.do(t, http.MethodDelete, "/carts/"+id+"/items/3", nil)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an out of range index, got %d", code)
	}

	code, _ = s.do(t, http.MethodPost, "/carts/"+id+"/items", map[string]any{"model": "M-002", "quantity": 2})
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	s.sink.fail = true
	code, body = s.do(t, http.MethodPost, "/carts/"+id+"/commit", nil)
	if code != http.StatusBadGateway {
		t.Errorf("Expected 502 for a persistence failure, got %d: %v", code, body)
	}
	if s.ledger.GetStock("M-002", "C60") != 5 {
		t.Errorf("Expected the ledger untouched after a persistence failure")
	}

	code, _ = s.do(t, http.MethodDelete, "/carts/"+id, nil)
	if code != http.StatusNoContent {
		t.Errorf("Expected 204 on discard, got %d", code)
	}
}

func TestCountFlow(t *testing.T) {
	s := newTestServer(t)

	code, session := s.do(t, http.MethodPost, "/counts", map[string]any{"location": "C60", "type": "night"})
	if code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %v", code, session)
	}
	id := session["id"].(string)
	if session["state"] != "INPUT" || session["type"] != "NIGHT" {
		t.Errorf("Unexpected session %v", session)
	}

	code, _ = s.do(t, http.MethodPut, "/counts/"+id+"/entries/M-002", map[string]any{"quantity": 4})
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	code, report := s.do(t, http.MethodPost, "/counts/"+id+"/report", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if report["mismatches"].(float64) != 1 || report["matches"].(float64) != 1 || report["uncounted"].(float64) != 1 {
		t.Errorf("Unexpected report totals %v", report)
	}

	code, _ = s.do(t, http.MethodDelete, "/counts/"+id, nil)
	if code != http.StatusConflict {
		t.Errorf("Expected 409 when abandoning a reported count, got %d", code)
	}
	code, _ = s.do(t, http.MethodPost, "/counts/"+id+"/finish", nil)
	if code != http.StatusNoContent {
		t.Errorf("Expected 204 on finish, got %d", code)
	}
	code, _ = s.do(t, http.MethodPost, "/counts/"+id+"/report", nil)
	if code != http.StatusNotFound {
		t.Errorf("Expected 404 for a finished session, got %d", code)
	}
}

func TestStockViewsAndSales(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/locations/C60/stock?q=002", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	lines := body["lines"].([]any)
	if len(lines) != 1 {
		t.Fatalf("Expected one filtered line, got %d", len(lines))
	}
	if lines[0].(map[string]any)["status"] != string(models.StatusInStock) {
		t.Errorf("Unexpected line %v", lines[0])
	}

	code, _ = s.do(t, http.MethodGet, "/locations/C99/stock", nil)
	if code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", code)
	}

	code, body = s.do(t, http.MethodPost, "/sales", map[string]any{"location": "C60", "model": "M-002", "quantity": 2})
	if code != http.StatusOK || body["remaining"].(float64) != 3 {
		t.Errorf("Expected 3 remaining, got %d %v", code, body)
	}

	code, body = s.do(t, http.MethodGet, "/locations", nil)
	if code != http.StatusOK || len(body["locations"].([]any)) != 3 {
		t.Errorf("Expected HQ and two outlets, got %v", body)
	}

	code, _ = s.do(t, http.MethodGet, "/healthz", nil)
	if code != http.StatusOK {
		t.Errorf("Expected 200 from healthz, got %d", code)
	}
}
