package domain

import "time"

type MovementKind string

const (
	MovementReserve    MovementKind = "reserve"
	MovementRelease    MovementKind = "release"
	MovementClear      MovementKind = "clear"
	MovementRestock    MovementKind = "restock"
	MovementCorrection MovementKind = "correction"
)

// Movement is one audit entry for a stock counter change. OrderID is zero for
// administrative moves (restock, correction).
type Movement struct {
	ID        string       `json:"id"`
	ProductID int64        `json:"productId"`
	OrderID   int64        `json:"orderId,omitempty"`
	Kind      MovementKind `json:"kind"`
	Quantity  int          `json:"quantity"`
	At        time.Time    `json:"at"`
}
