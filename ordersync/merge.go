package ordersync

import (
	"sort"

	"github.com/YassinSalah100/Goha-System-sub001/models"
)

// MergeOrders combines the remote fetch, the local offline cache and the
// cancellation feed into one deduplicated, newest-first view. Remote
// wins ties on order_id; the cancellation feed updates matching entries
// in place and contributes orders the primary fetch missed. Each id
// appears exactly once and CANCELLED_APPROVED never regresses.
func MergeOrders(remote []models.Order, local []models.Order, records []models.CancellationRecord, ledger *LocalLedger) []models.Order {
	seen := make(map[string]int, len(remote)+len(local))
	merged := make([]models.Order, 0, len(remote)+len(local))

	for _, order := range remote {
		if _, ok := seen[order.OrderId]; ok {
			continue
		}
		seen[order.OrderId] = len(merged)
		merged = append(merged, order)
	}
	for _, order := range local {
		if _, ok := seen[order.OrderId]; ok {
			continue
		}
		seen[order.OrderId] = len(merged)
		merged = append(merged, order)
	}

	for i := range merged {
		applyStatus(&merged[i], ledger.IsPending(merged[i].OrderId), ledger.IsApproved(merged[i].OrderId))
	}

	for _, rec := range records {
		if idx, ok := seen[rec.OrderId]; ok {
			applyRecord(&merged[idx], rec)
			continue
		}
		order := recordToOrder(rec)
		applyStatus(&order, ledger.IsPending(order.OrderId), ledger.IsApproved(order.OrderId))
		applyRecord(&order, rec)
		seen[rec.OrderId] = len(merged)
		merged = append(merged, order)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

// applyRecord folds one cancellation-feed row into an order already in
// the view. A pending record never downgrades an approved order; a
// rejected record only contributes metadata, the status comes from the
// normal fetch path.
func applyRecord(o *models.Order, rec models.CancellationRecord) {
	if rec.Reason != "" {
		o.CancellationReason = rec.Reason
	}
	if rec.RequestedBy != "" && o.CancelledBy == "" {
		o.CancelledBy = rec.RequestedBy
	}
	if o.CancelledAt == nil {
		if rec.DecidedAt != nil {
			o.CancelledAt = rec.DecidedAt
		} else if !rec.CreatedAt.IsZero() {
			createdAt := rec.CreatedAt
			o.CancelledAt = &createdAt
		}
	}

	switch rec.Status {
	case models.CancellationStatusApproved:
		o.Status = models.OrderStatusCancelledApproved
		o.IsApprovedCancellation = true
	case models.CancellationStatusPending:
		if o.Status != models.OrderStatusCancelledApproved {
			o.Status = models.OrderStatusPendingCancellation
			o.IsApprovedCancellation = false
		}
	}
}

func recordToOrder(rec models.CancellationRecord) models.Order {
	order := models.Order{
		OrderId:            rec.OrderId,
		ShiftId:            rec.ShiftId,
		CustomerName:       rec.CustomerName,
		OrderType:          rec.OrderType,
		TotalPrice:         rec.TotalPrice,
		Status:             models.OrderStatusActive,
		CancellationReason: rec.Reason,
		CancelledBy:        rec.RequestedBy,
		CreatedAt:          rec.CreatedAt,
	}
	if rec.DecidedAt != nil {
		order.CancelledAt = rec.DecidedAt
	}
	return order
}
