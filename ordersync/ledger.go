package ordersync

import (
	"encoding/json"
	"sync"

	"github.com/YassinSalah100/Goha-System-sub001/config"
	"github.com/YassinSalah100/Goha-System-sub001/models"
	"github.com/sirupsen/logrus"
)

const (
	cachedOrdersKeyPrefix    = "orders:cache:"
	pendingCancellationsKey  = "orders:cancel:pending"
	approvedCancellationsKey = "orders:cancel:approved"
)

// LocalLedger is the durable local side of the order view: offline-first
// order snapshots plus the pending/approved cancellation id sets.
// Storage failures degrade to empty reads; the remote fetch is the
// source of truth and the next cycle repairs the view.
type LocalLedger struct {
	store  KVStore
	logger *logrus.Logger

	// Guards the read-modify-write on the per-shift order arrays;
	// individual store commands are atomic but the sequence is not.
	cacheMu sync.Mutex
}

func NewLocalLedger(store KVStore) *LocalLedger {
	return &LocalLedger{store: store, logger: config.GetLogger()}
}

func (l *LocalLedger) ReadCachedOrders(shiftId string) []models.Order {
	raw, ok, err := l.store.Get(cachedOrdersKeyPrefix + shiftId)
	if err != nil {
		config.LogError(l.logger, "ordersync", "ReadCachedOrders", shiftId, nil, err)
		return nil
	}
	if !ok {
		return nil
	}
	var orders []models.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		// Corrupt cache reads as empty; it is rebuilt on the next write.
		config.LogError(l.logger, "ordersync", "ReadCachedOrders", shiftId, nil, err)
		return nil
	}
	return orders
}

// WriteCachedOrder upserts one order snapshot into the shift cache.
// Last write wins.
func (l *LocalLedger) WriteCachedOrder(order models.Order) error {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()

	orders := l.ReadCachedOrders(order.ShiftId)
	replaced := false
	for i := range orders {
		if orders[i].OrderId == order.OrderId {
			orders[i] = order
			replaced = true
			break
		}
	}
	if !replaced {
		orders = append(orders, order)
	}
	raw, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	return l.store.Set(cachedOrdersKeyPrefix+order.ShiftId, raw)
}

func (l *LocalLedger) ClearCachedOrders(shiftId string) error {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	return l.store.Remove(cachedOrdersKeyPrefix + shiftId)
}

// WritePendingCancellation records a requested-but-undecided
// cancellation. A no-op once the order is approved: approval is
// terminal and an id lives in at most one of the two sets.
func (l *LocalLedger) WritePendingCancellation(orderId string) error {
	if l.IsApproved(orderId) {
		return nil
	}
	return l.store.SetAdd(pendingCancellationsKey, orderId)
}

func (l *LocalLedger) RemovePendingCancellation(orderId string) error {
	return l.store.SetRemove(pendingCancellationsKey, orderId)
}

// WriteApprovedCancellation moves the id into the terminal set.
func (l *LocalLedger) WriteApprovedCancellation(orderId string) error {
	if err := l.store.SetRemove(pendingCancellationsKey, orderId); err != nil {
		config.LogError(l.logger, "ordersync", "WriteApprovedCancellation", orderId, nil, err)
	}
	return l.store.SetAdd(approvedCancellationsKey, orderId)
}

func (l *LocalLedger) IsPending(orderId string) bool {
	ok, err := l.store.SetHas(pendingCancellationsKey, orderId)
	if err != nil {
		config.LogError(l.logger, "ordersync", "IsPending", orderId, nil, err)
		return false
	}
	return ok
}

func (l *LocalLedger) IsApproved(orderId string) bool {
	ok, err := l.store.SetHas(approvedCancellationsKey, orderId)
	if err != nil {
		config.LogError(l.logger, "ordersync", "IsApproved", orderId, nil, err)
		return false
	}
	return ok
}
