package ordersync

import (
	"testing"

	"github.com/YassinSalah100/Goha-System-sub001/models"
)

func TestNormalizeStatus_MappingTable(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		pending  bool
		approved bool
		expected models.OrderStatus
	}{
		// Backend lifecycle statuses are NOT cancellation states.
		{"backend pending is active", "pending", false, false, models.OrderStatusActive},
		{"backend active is active", "active", false, false, models.OrderStatusActive},
		{"backend completed is active", "completed", false, false, models.OrderStatusActive},
		{"empty status is active", "", false, false, models.OrderStatusActive},
		{"unknown status is active", "preparing", false, false, models.OrderStatusActive},

		// A bare "cancelled" from the backend means a request exists,
		// not that a manager approved it.
		{"cancelled means pending approval", "cancelled", false, false, models.OrderStatusPendingCancellation},
		{"canceled spelling", "canceled", false, false, models.OrderStatusPendingCancellation},
		{"cancellation_pending", "cancellation_pending", false, false, models.OrderStatusPendingCancellation},
		{"dashed vocabulary", "pending-cancellation", false, false, models.OrderStatusPendingCancellation},
		{"spaced vocabulary", "Cancel Requested", false, false, models.OrderStatusPendingCancellation},

		{"approved string", "cancelled_approved", false, false, models.OrderStatusCancelledApproved},
		{"cancellation_approved", "cancellation_approved", false, false, models.OrderStatusCancelledApproved},

		// Ledger membership precedence.
		{"pending set marks active order", "active", true, false, models.OrderStatusPendingCancellation},
		{"approved set wins over raw", "active", false, true, models.OrderStatusCancelledApproved},
		{"approved set wins over pending set", "cancelled", true, true, models.OrderStatusCancelledApproved},
		{"approved string wins over pending set", "cancelled_approved", true, false, models.OrderStatusCancelledApproved},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeStatus(tc.raw, tc.pending, tc.approved)
			if got != tc.expected {
				t.Fatalf("NormalizeStatus(%q, %v, %v) = %s, expected %s", tc.raw, tc.pending, tc.approved, got, tc.expected)
			}
		})
	}
}

func TestNormalizeStatus_IdempotentOnCanonical(t *testing.T) {
	for _, status := range []models.OrderStatus{
		models.OrderStatusActive,
		models.OrderStatusPendingCancellation,
		models.OrderStatusCancelledApproved,
	} {
		if got := NormalizeStatus(string(status), false, false); got != status {
			t.Fatalf("canonical %s renormalized to %s", status, got)
		}
	}
}
