package ordersync

import (
	"strings"

	"github.com/YassinSalah100/Goha-System-sub001/models"
)

// The backend has shipped at least three status vocabularies over time.
// Everything cancellation-related funnels through these two tables; any
// string in neither table is an ordinary lifecycle status and reads as
// active. In particular "pending", "active" and "completed" are NOT
// cancellation states.
var approvedStatuses = map[string]bool{
	"cancelled_approved":     true,
	"canceled_approved":      true,
	"cancellation_approved":  true,
	"approved_cancellation":  true,
	"cancellation_completed": true,
}

var pendingCancellationStatuses = map[string]bool{
	"cancelled":              true,
	"canceled":               true,
	"cancellation_pending":   true,
	"pending_cancellation":   true,
	"cancel_requested":       true,
	"cancellation_requested": true,
}

// NormalizeStatus maps a raw backend/local status plus the ledger's
// pending/approved membership to the canonical lifecycle. Precedence:
// approved set, approved status string, pending (string or set), active.
// Pure: safe to run once per order per merge cycle.
func NormalizeStatus(raw string, pending bool, approved bool) models.OrderStatus {
	if approved {
		return models.OrderStatusCancelledApproved
	}
	key := statusKey(raw)
	if approvedStatuses[key] {
		return models.OrderStatusCancelledApproved
	}
	if pending || pendingCancellationStatuses[key] {
		return models.OrderStatusPendingCancellation
	}
	return models.OrderStatusActive
}

func statusKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	return key
}

// applyStatus stamps the canonical status onto an order, keeping the
// is_approved_cancellation flag in lockstep.
func applyStatus(o *models.Order, pending bool, approved bool) {
	o.Status = NormalizeStatus(string(o.Status), pending, approved)
	o.IsApprovedCancellation = o.Status == models.OrderStatusCancelledApproved
}
