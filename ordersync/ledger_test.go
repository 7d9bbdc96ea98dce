package ordersync

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/YassinSalah100/Goha-System-sub001/models"
)

func TestLedger_PendingAndApprovedAreExclusive(t *testing.T) {
	ledger := testLedger()

	if err := ledger.WritePendingCancellation("X1"); err != nil {
		t.Fatal(err)
	}
	if !ledger.IsPending("X1") {
		t.Fatal("expected pending")
	}

	if err := ledger.WriteApprovedCancellation("X1"); err != nil {
		t.Fatal(err)
	}
	if ledger.IsPending("X1") {
		t.Fatal("approval must clear the pending mark")
	}
	if !ledger.IsApproved("X1") {
		t.Fatal("expected approved")
	}
}

func TestLedger_ApprovedIsTerminal(t *testing.T) {
	ledger := testLedger()
	if err := ledger.WriteApprovedCancellation("X1"); err != nil {
		t.Fatal(err)
	}

	// A late pending write for an already-approved order is dropped.
	if err := ledger.WritePendingCancellation("X1"); err != nil {
		t.Fatal(err)
	}
	if ledger.IsPending("X1") {
		t.Fatal("approved order must not go back to pending")
	}
	if !ledger.IsApproved("X1") {
		t.Fatal("approval lost")
	}
}

func TestLedger_RemovePendingDoesNotTouchApproved(t *testing.T) {
	ledger := testLedger()
	if err := ledger.WritePendingCancellation("X1"); err != nil {
		t.Fatal(err)
	}
	if err := ledger.WriteApprovedCancellation("X2"); err != nil {
		t.Fatal(err)
	}

	if err := ledger.RemovePendingCancellation("X1"); err != nil {
		t.Fatal(err)
	}
	if err := ledger.RemovePendingCancellation("X2"); err != nil {
		t.Fatal(err)
	}

	if ledger.IsPending("X1") {
		t.Fatal("pending not removed")
	}
	if !ledger.IsApproved("X2") {
		t.Fatal("approved set must be untouched")
	}
}

func TestLedger_CachedOrdersRoundTrip(t *testing.T) {
	ledger := testLedger()
	order := testOrder("X1", time.Now())
	order.CustomerName = "walk-in"

	if err := ledger.WriteCachedOrder(order); err != nil {
		t.Fatal(err)
	}

	got := ledger.ReadCachedOrders("shift-1")
	if len(got) != 1 || got[0].OrderId != "X1" || got[0].CustomerName != "walk-in" {
		t.Fatalf("round trip failed: %+v", got)
	}
}

func TestLedger_WriteCachedOrderUpserts(t *testing.T) {
	ledger := testLedger()
	order := testOrder("X1", time.Now())
	if err := ledger.WriteCachedOrder(order); err != nil {
		t.Fatal(err)
	}

	order.Status = models.OrderStatusPendingCancellation
	if err := ledger.WriteCachedOrder(order); err != nil {
		t.Fatal(err)
	}

	got := ledger.ReadCachedOrders("shift-1")
	if len(got) != 1 {
		t.Fatalf("upsert duplicated the order: %d entries", len(got))
	}
	if got[0].Status != models.OrderStatusPendingCancellation {
		t.Fatalf("upsert did not replace: %s", got[0].Status)
	}
}

func TestLedger_CorruptCacheReadsAsEmpty(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Set(cachedOrdersKeyPrefix+"shift-1", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	ledger := NewLocalLedger(store)

	if got := ledger.ReadCachedOrders("shift-1"); got != nil {
		t.Fatalf("corrupt payload must read as empty, got %+v", got)
	}
}

func TestLedger_ClearCachedOrders(t *testing.T) {
	ledger := testLedger()
	if err := ledger.WriteCachedOrder(testOrder("X1", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := ledger.ClearCachedOrders("shift-1"); err != nil {
		t.Fatal(err)
	}
	if got := ledger.ReadCachedOrders("shift-1"); len(got) != 0 {
		t.Fatalf("clear left %d orders", len(got))
	}
}

func TestLedger_ConcurrentCachedWrites(t *testing.T) {
	ledger := testLedger()

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			order := testOrder(fmt.Sprintf("o-%02d", i), time.Now())
			if err := ledger.WriteCachedOrder(order); err != nil {
				t.Error(err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if got := ledger.ReadCachedOrders("shift-1"); len(got) != 20 {
		t.Fatalf("lost updates: %d of 20 orders cached", len(got))
	}
}
