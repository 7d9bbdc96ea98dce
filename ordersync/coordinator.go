package ordersync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/YassinSalah100/Goha-System-sub001/config"
	"github.com/YassinSalah100/Goha-System-sub001/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// OrderFetcher is the remote side the coordinator drives.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, shiftId string) ([]models.Order, error)
	FetchCancellationRecords(ctx context.Context, shiftId string) ([]models.CancellationRecord, error)
}

// Snapshot is one merged view of a shift. The coordinator keeps the
// last good snapshot per shift so a failed refresh never blanks the
// cashier's list.
type Snapshot struct {
	ShiftId   string         `json:"shift_id"`
	Orders    []models.Order `json:"orders"`
	Stats     ShiftStats     `json:"stats"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// FetchCoordinator funnels every refresh trigger (manual button,
// background poll, order-added events, cancellation decisions) into at
// most one in-flight fetch per shift. Non-forced refreshes inside the
// debounce window are answered from the last snapshot.
type FetchCoordinator struct {
	remote   OrderFetcher
	ledger   *LocalLedger
	debounce time.Duration
	logger   *logrus.Logger

	group singleflight.Group

	mu            sync.Mutex
	lastCompleted map[string]time.Time
	lastGood      map[string]*Snapshot

	now func() time.Time
}

func NewFetchCoordinator(remote OrderFetcher, ledger *LocalLedger) *FetchCoordinator {
	return &FetchCoordinator{
		remote:        remote,
		ledger:        ledger,
		debounce:      config.SyncDebounceWindow(),
		logger:        config.GetLogger(),
		lastCompleted: map[string]time.Time{},
		lastGood:      map[string]*Snapshot{},
		now:           time.Now,
	}
}

// Refresh returns the current merged view of the shift. Concurrent
// callers for the same shift share one network round-trip; non-forced
// calls within the debounce window never reach the network, answered
// from the last snapshot or with ErrDebounced when none exists yet. On
// failure the last good snapshot is returned alongside the error.
func (c *FetchCoordinator) Refresh(ctx context.Context, shiftId string, force bool) (*Snapshot, error) {
	if !force {
		c.mu.Lock()
		last, completed := c.lastCompleted[shiftId]
		snap := c.lastGood[shiftId]
		c.mu.Unlock()
		if completed && c.now().Sub(last) < c.debounce {
			if snap != nil {
				return snap, nil
			}
			return nil, ErrDebounced
		}
	}

	v, err, _ := c.group.Do(shiftId, func() (any, error) {
		// The flight is shared by every waiter, so it must not die
		// with the winning caller's request context.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
		defer cancel()
		snap, ferr := c.fetch(fctx, shiftId)

		// Completion timestamp moves on both outcomes so a failing
		// backend is not hammered by every timer in the app.
		c.mu.Lock()
		c.lastCompleted[shiftId] = c.now()
		if ferr == nil {
			c.lastGood[shiftId] = snap
		}
		c.mu.Unlock()
		return snap, ferr
	})

	if err != nil {
		return c.LastSnapshot(shiftId), err
	}
	return v.(*Snapshot), nil
}

func (c *FetchCoordinator) fetch(ctx context.Context, shiftId string) (*Snapshot, error) {
	orders, err := c.remote.FetchOrders(ctx, shiftId)
	if err != nil {
		return nil, err
	}

	records, err := c.remote.FetchCancellationRecords(ctx, shiftId)
	if err != nil {
		// The order payload's own status flags cover this feed.
		config.LogError(c.logger, "ordersync", "fetch", shiftId, nil, err)
		records = nil
	}

	local := c.ledger.ReadCachedOrders(shiftId)
	merged := MergeOrders(orders, local, records, c.ledger)

	return &Snapshot{
		ShiftId:   shiftId,
		Orders:    merged,
		Stats:     ComputeStats(merged),
		FetchedAt: c.now(),
	}, nil
}

// LastSnapshot returns the last known-good view, or nil before the
// first successful fetch.
func (c *FetchCoordinator) LastSnapshot(shiftId string) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastGood[shiftId]
}

// ScheduleRefresh fires a refresh after the given delay. Used for the
// reconcile fetch that follows a cancellation request or decision.
func (c *FetchCoordinator) ScheduleRefresh(shiftId string, delay time.Duration, force bool) {
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := c.Refresh(ctx, shiftId, force); err != nil {
			config.LogError(c.logger, "ordersync", "ScheduleRefresh", shiftId, nil, err)
		}
	})
}

// ApplyLocalStatus optimistically rewrites one order's status in the
// cached view. The next successful fetch supersedes it. Snapshots
// already handed out by Refresh are read by handlers without the lock,
// so the update goes into a fresh snapshot, never in place.
func (c *FetchCoordinator) ApplyLocalStatus(shiftId string, orderId string, status models.OrderStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.lastGood[shiftId]
	if snap == nil {
		return
	}
	next := &Snapshot{
		ShiftId:   snap.ShiftId,
		Orders:    make([]models.Order, len(snap.Orders)),
		FetchedAt: snap.FetchedAt,
	}
	copy(next.Orders, snap.Orders)
	for i := range next.Orders {
		if next.Orders[i].OrderId == orderId {
			next.Orders[i].Status = status
			next.Orders[i].IsApprovedCancellation = status == models.OrderStatusCancelledApproved
			break
		}
	}
	next.Stats = ComputeStats(next.Orders)
	c.lastGood[shiftId] = next
}

// ForgetShift drops a shift from the tracked set; the poll loop calls
// this once the shift is closed on the backend.
func (c *FetchCoordinator) ForgetShift(shiftId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lastGood, shiftId)
	delete(c.lastCompleted, shiftId)
	c.group.Forget(shiftId)
}

// TrackedShifts lists every shift this coordinator has served, for the
// background poller.
func (c *FetchCoordinator) TrackedShifts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	shifts := make([]string, 0, len(c.lastGood))
	for shiftId := range c.lastGood {
		shifts = append(shifts, shiftId)
	}
	sort.Strings(shifts)
	return shifts
}
