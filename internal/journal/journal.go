package journal

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"magazyn/internal/domain"
)

// Journal is an append-only audit trail of stock counter changes. One entry
// is recorded per product per movement.
type Journal struct {
	mu      sync.RWMutex
	entries []domain.Movement
	now     func() time.Time
}

func New() *Journal {
	return &Journal{now: time.Now}
}

// Record appends a single movement.
func (j *Journal) Record(kind domain.MovementKind, productID, orderID int64, qty int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, domain.Movement{
		ID:        uuid.New().String(),
		ProductID: productID,
		OrderID:   orderID,
		Kind:      kind,
		Quantity:  qty,
		At:        j.now(),
	})
}

// RecordItems appends one movement per order item.
func (j *Journal) RecordItems(kind domain.MovementKind, orderID int64, items []domain.OrderItem) {
	for _, it := range items {
		j.Record(kind, it.ProductID, orderID, it.Quantity)
	}
}

// Entries returns a copy of the full trail, oldest first.
func (j *Journal) Entries() []domain.Movement {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]domain.Movement, len(j.entries))
	copy(out, j.entries)
	return out
}

// ByProduct filters the trail down to one product.
func (j *Journal) ByProduct(productID int64) []domain.Movement {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []domain.Movement
	for _, m := range j.entries {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

// ByOrder filters the trail down to one order.
func (j *Journal) ByOrder(orderID int64) []domain.Movement {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []domain.Movement
	for _, m := range j.entries {
		if m.OrderID == orderID {
			out = append(out, m)
		}
	}
	return out
}
