package ordersync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/YassinSalah100/Goha-System-sub001/models"
)

type fakeRequester struct {
	calls []CancellationRequest
	err   error
}

func (f *fakeRequester) RequestCancellation(ctx context.Context, req CancellationRequest) error {
	f.calls = append(f.calls, req)
	return f.err
}

type scheduledRefresh struct {
	shiftId string
	delay   time.Duration
	force   bool
}

type appliedStatus struct {
	shiftId string
	orderId string
	status  models.OrderStatus
}

type fakeView struct {
	refreshes []scheduledRefresh
	statuses  []appliedStatus
}

func (f *fakeView) ScheduleRefresh(shiftId string, delay time.Duration, force bool) {
	f.refreshes = append(f.refreshes, scheduledRefresh{shiftId, delay, force})
}

func (f *fakeView) ApplyLocalStatus(shiftId string, orderId string, status models.OrderStatus) {
	f.statuses = append(f.statuses, appliedStatus{shiftId, orderId, status})
}

func newTestWorkflow(requester *fakeRequester) (*CancellationWorkflow, *LocalLedger, *fakeView) {
	ledger := testLedger()
	view := &fakeView{}
	w := NewCancellationWorkflow(requester, ledger, view)
	w.reconcileDelay = 3 * time.Second
	return w, ledger, view
}

func validRequest() CancellationRequest {
	return CancellationRequest{
		OrderId:     "X1",
		ShiftId:     "shift-1",
		RequestedBy: "cashier-7",
		Reason:      "wrong table",
	}
}

func TestRequest_SuccessMarksPendingAndReconciles(t *testing.T) {
	requester := &fakeRequester{}
	w, ledger, view := newTestWorkflow(requester)

	if err := w.Request(context.Background(), validRequest()); err != nil {
		t.Fatal(err)
	}
	if len(requester.calls) != 1 {
		t.Fatalf("expected 1 submit, got %d", len(requester.calls))
	}
	if !ledger.IsPending("X1") {
		t.Fatal("order not marked pending in ledger")
	}
	if len(view.statuses) != 1 || view.statuses[0].status != models.OrderStatusPendingCancellation {
		t.Fatalf("expected optimistic pending status, got %+v", view.statuses)
	}
	if len(view.refreshes) != 1 || !view.refreshes[0].force {
		t.Fatalf("expected one forced reconcile refresh, got %+v", view.refreshes)
	}
	if view.refreshes[0].delay != 3*time.Second {
		t.Fatalf("unexpected reconcile delay %s", view.refreshes[0].delay)
	}
}

func TestRequest_ValidationFailsBeforeNetwork(t *testing.T) {
	requester := &fakeRequester{}
	w, ledger, view := newTestWorkflow(requester)

	err := w.Request(context.Background(), CancellationRequest{OrderId: "X1"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(requester.calls) != 0 {
		t.Fatal("invalid request must not reach the backend")
	}
	if ledger.IsPending("X1") || len(view.statuses) != 0 {
		t.Fatal("invalid request must not touch local state")
	}
}

func TestRequest_RemoteFailureLeavesStateUntouched(t *testing.T) {
	requester := &fakeRequester{err: errors.New("backend down")}
	w, ledger, view := newTestWorkflow(requester)

	if err := w.Request(context.Background(), validRequest()); err == nil {
		t.Fatal("expected error")
	}
	if ledger.IsPending("X1") {
		t.Fatal("failed submit must not mark the order pending")
	}
	if len(view.statuses) != 0 || len(view.refreshes) != 0 {
		t.Fatalf("failed submit must not touch the view: %+v %+v", view.statuses, view.refreshes)
	}
}

func TestHandleApproval_TransitionsAndReconciles(t *testing.T) {
	w, ledger, view := newTestWorkflow(&fakeRequester{})
	if err := ledger.WritePendingCancellation("X1"); err != nil {
		t.Fatal(err)
	}

	w.HandleApproval("X1", "shift-1")

	if !ledger.IsApproved("X1") {
		t.Fatal("approval not recorded")
	}
	if ledger.IsPending("X1") {
		t.Fatal("pending mark must be cleared on approval")
	}
	if len(view.statuses) != 1 || view.statuses[0].status != models.OrderStatusCancelledApproved {
		t.Fatalf("expected approved status applied, got %+v", view.statuses)
	}
}

func TestHandleApproval_Idempotent(t *testing.T) {
	w, ledger, view := newTestWorkflow(&fakeRequester{})
	if err := ledger.WriteApprovedCancellation("X1"); err != nil {
		t.Fatal(err)
	}

	w.HandleApproval("X1", "shift-1")
	w.HandleApproval("X1", "shift-1")

	if len(view.statuses) != 0 || len(view.refreshes) != 0 {
		t.Fatalf("repeated approval must be a no-op, got %+v %+v", view.statuses, view.refreshes)
	}
}

func TestHandleRejection_ClearsPendingOnly(t *testing.T) {
	w, ledger, view := newTestWorkflow(&fakeRequester{})
	if err := ledger.WritePendingCancellation("X1"); err != nil {
		t.Fatal(err)
	}

	w.HandleRejection("X1", "shift-1")

	if ledger.IsPending("X1") {
		t.Fatal("pending mark not cleared")
	}
	if ledger.IsApproved("X1") {
		t.Fatal("rejection must never approve")
	}
	// The order's status comes back from the next fetch, not locally.
	if len(view.statuses) != 0 {
		t.Fatalf("rejection must not rewrite status locally, got %+v", view.statuses)
	}
	if len(view.refreshes) != 1 || !view.refreshes[0].force {
		t.Fatalf("expected one forced reconcile refresh, got %+v", view.refreshes)
	}
}

func TestHandleRejection_UnknownOrderIsNoOp(t *testing.T) {
	w, _, view := newTestWorkflow(&fakeRequester{})

	w.HandleRejection("never-requested", "shift-1")

	if len(view.refreshes) != 0 {
		t.Fatalf("rejection of unknown order must be a no-op, got %+v", view.refreshes)
	}
}

func TestBindBus_RoutesDecisions(t *testing.T) {
	w, ledger, view := newTestWorkflow(&fakeRequester{})
	if err := ledger.WritePendingCancellation("X1"); err != nil {
		t.Fatal(err)
	}

	bus := NewBus()
	w.BindBus(bus)

	bus.Publish(OrderEvent{Kind: EventCancellationApproved, OrderId: "X1", ShiftId: "shift-1"})
	if !ledger.IsApproved("X1") {
		t.Fatal("approval event not handled")
	}

	bus.Publish(OrderEvent{Kind: EventOrderAdded, OrderId: "X2", ShiftId: "shift-1"})
	last := view.refreshes[len(view.refreshes)-1]
	if last.delay != 0 || !last.force {
		t.Fatalf("order-added event should force an immediate refresh, got %+v", last)
	}
}
