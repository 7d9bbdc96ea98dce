package ordersync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/YassinSalah100/Goha-System-sub001/models"
)

func newTestSource(t *testing.T, handler http.Handler) *RemoteOrderSource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("POS_API_BASE_URL", server.URL)
	t.Setenv("POS_RATE_LIMIT_PER_MIN", "600000")

	source, err := NewRemoteOrderSource("test-key")
	if err != nil {
		t.Fatal(err)
	}
	return source
}

func listBody(rows ...any) []byte {
	payload, _ := json.Marshal(map[string]any{"data": rows})
	return payload
}

func TestFetchOrders_ShiftScopedEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/shifts/shift-1/orders", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		w.Write(listBody(map[string]any{
			"order_id":      "X1",
			"customer_name": "walk-in",
			"order_type":    "dine-in",
			"total_price":   120.5,
			"status":        "active",
			"created_at":    "2026-08-30T18:00:00Z",
		}))
	})
	mux.HandleFunc("/v1/orders/X1/items", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listBody(map[string]any{
			"item_id":      "i1",
			"product_name": "shawarma",
			"unit_price":   60.25,
			"quantity":     2,
		}))
	})

	source := newTestSource(t, mux)
	orders, err := source.FetchOrders(context.Background(), "shift-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	order := orders[0]
	if order.OrderId != "X1" || order.Status != models.OrderStatusActive {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.TotalPrice.String() != "120.5" {
		t.Fatalf("price lost precision: %s", order.TotalPrice)
	}
	if len(order.Items) != 1 || order.Items[0].ProductName != "shawarma" {
		t.Fatalf("items not attached: %+v", order.Items)
	}
}

func TestFetchOrders_FallsBackToUnscopedList(t *testing.T) {
	var unscopedHit bool
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/shifts/shift-1/orders", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		unscopedHit = true
		w.Write(listBody(
			map[string]any{"order_id": "mine", "shift_id": "shift-1", "status": "active"},
			map[string]any{"order_id": "other", "shift_id": "shift-9", "status": "active"},
		))
	})
	mux.HandleFunc("/v1/orders/", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listBody())
	})

	source := newTestSource(t, mux)
	orders, err := source.FetchOrders(context.Background(), "shift-1")
	if err != nil {
		t.Fatal(err)
	}
	if !unscopedHit {
		t.Fatal("expected fallback to the unscoped list")
	}
	if len(orders) != 1 || orders[0].OrderId != "mine" {
		t.Fatalf("client-side shift filter failed: %+v", orders)
	}
}

// A raw "cancelled" from the backend is a request awaiting the manager,
// never a void.
func TestFetchOrders_RawCancelledMapsToPending(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/shifts/shift-1/orders", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listBody(map[string]any{"order_id": "X1", "status": "cancelled"}))
	})
	mux.HandleFunc("/v1/orders/X1/items", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listBody())
	})

	source := newTestSource(t, mux)
	orders, err := source.FetchOrders(context.Background(), "shift-1")
	if err != nil {
		t.Fatal(err)
	}
	if orders[0].Status != models.OrderStatusPendingCancellation {
		t.Fatalf("expected pending_cancellation, got %s", orders[0].Status)
	}
	if orders[0].IsApprovedCancellation {
		t.Fatal("approval flag must stay false")
	}
}

func TestFetchOrders_ServerErrorPropagates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	source := newTestSource(t, mux)
	if _, err := source.FetchOrders(context.Background(), "shift-1"); err == nil {
		t.Fatal("expected error from 502 backend")
	}
}

func TestFetchCancellationRecords_MissingEndpointIsNotAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	source := newTestSource(t, mux)
	records, err := source.FetchCancellationRecords(context.Background(), "shift-1")
	if err != nil {
		t.Fatalf("missing feed must degrade silently, got %v", err)
	}
	if records != nil {
		t.Fatalf("expected nil records, got %+v", records)
	}
}

func TestFetchCancellationRecords_ParsesDecisions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/shifts/shift-1/cancellation-requests", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listBody(
			map[string]any{"order_id": "X1", "status": "accepted", "reason": "cold food"},
			map[string]any{"order_id": "X2", "status": "declined"},
			map[string]any{"order_id": "X3", "status": "something-new"},
		))
	})

	source := newTestSource(t, mux)
	records, err := source.FetchCancellationRecords(context.Background(), "shift-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	want := []models.CancellationStatus{
		models.CancellationStatusApproved,
		models.CancellationStatusRejected,
		models.CancellationStatusPending,
	}
	for i, status := range want {
		if records[i].Status != status {
			t.Fatalf("record %d: expected %s, got %s", i, status, records[i].Status)
		}
	}
}

func TestRequestCancellation_DeclineCarriesServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/cancellation-requests", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "order already closed"})
	})

	source := newTestSource(t, mux)
	err := source.RequestCancellation(context.Background(), validRequest())
	var rejected *RequestRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RequestRejectedError, got %v", err)
	}
	if rejected.Message != "order already closed" {
		t.Fatalf("server message lost: %q", rejected.Message)
	}
}

func TestRequestCancellation_ServerErrorIsNotADecline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/cancellation-requests", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	source := newTestSource(t, mux)
	err := source.RequestCancellation(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	var rejected *RequestRejectedError
	if errors.As(err, &rejected) {
		t.Fatal("a 500 must not look like a manager decline")
	}
}

func TestFetchShift_ClosedShift(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/shifts/shift-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"shift_id":   "shift-1",
			"status":     "closed",
			"start_time": "2026-08-30T08:00:00Z",
		})
	})

	source := newTestSource(t, mux)
	shift, err := source.FetchShift(context.Background(), "shift-1")
	if err != nil {
		t.Fatal(err)
	}
	if shift.IsOpen() {
		t.Fatalf("expected closed shift, got %+v", shift)
	}
}

func TestFetchShift_MissingEndpointReadsAsOpen(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	source := newTestSource(t, mux)
	shift, err := source.FetchShift(context.Background(), "shift-1")
	if err != nil {
		t.Fatal(err)
	}
	if !shift.IsOpen() {
		t.Fatal("a backend without the shift endpoint must not close shifts")
	}
}
