package models

import "time"

type ShiftStatus string

const (
	ShiftStatusActive       ShiftStatus = "active"
	ShiftStatusPendingClose ShiftStatus = "pending-close"
	ShiftStatusClosed       ShiftStatus = "closed"
)

// Shift scopes every fetch and merge; orders outside the current shift
// never enter the merged view.
type Shift struct {
	ShiftId   string      `json:"shift_id"`
	Status    ShiftStatus `json:"status"`
	StartTime time.Time   `json:"start_time"`
}

func (s Shift) IsOpen() bool {
	return s.Status == ShiftStatusActive || s.Status == ShiftStatusPendingClose
}
