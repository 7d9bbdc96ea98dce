package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

// OrderStatus is the canonical lifecycle the whole service works in.
// The backend speaks several status vocabularies; ordersync.NormalizeStatus
// is the only place raw strings are interpreted.
type OrderStatus string

const (
	OrderStatusActive              OrderStatus = "active"
	OrderStatusPendingCancellation OrderStatus = "pending_cancellation"
	OrderStatusCancelledApproved   OrderStatus = "cancelled_approved"

	// OrderStatusCompleted is an alias: an order that is simply not
	// cancelled reads as active/completed interchangeably.
	OrderStatusCompleted = OrderStatusActive
)

type Order struct {
	OrderId                string          `json:"order_id"`
	ShiftId                string          `json:"shift_id"`
	CustomerName           string          `json:"customer_name"`
	OrderType              OrderType       `json:"order_type"`
	Items                  []OrderItem     `json:"items"`
	TotalPrice             decimal.Decimal `json:"total_price"`
	Status                 OrderStatus     `json:"status"`
	IsApprovedCancellation bool            `json:"is_approved_cancellation"`
	CancellationReason     string          `json:"cancellation_reason,omitempty"`
	CancelledAt            *time.Time      `json:"cancelled_at,omitempty"`
	CancelledBy            string          `json:"cancelled_by,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}

type OrderItem struct {
	ItemId      string           `json:"item_id"`
	ProductName string           `json:"product_name"`
	SizeName    string           `json:"size_name"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Quantity    int              `json:"quantity"`
	Extras      []OrderItemExtra `json:"extras,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}

type OrderItemExtra struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type CancellationStatus string

const (
	CancellationStatusPending  CancellationStatus = "pending"
	CancellationStatusApproved CancellationStatus = "approved"
	CancellationStatusRejected CancellationStatus = "rejected"
)

// CancellationRecord is one manager-decision row from the cancellation
// feed. The feed embeds an order summary so a record can stand in for an
// order the primary fetch missed.
type CancellationRecord struct {
	OrderId      string             `json:"order_id"`
	ShiftId      string             `json:"shift_id"`
	CustomerName string             `json:"customer_name"`
	OrderType    OrderType          `json:"order_type"`
	TotalPrice   decimal.Decimal    `json:"total_price"`
	Reason       string             `json:"reason"`
	RequestedBy  string             `json:"requested_by"`
	Status       CancellationStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	DecidedAt    *time.Time         `json:"decided_at,omitempty"`
	DecidedBy    string             `json:"decided_by,omitempty"`
}

func (r CancellationRecord) IsApproved() bool {
	return r.Status == CancellationStatusApproved
}
