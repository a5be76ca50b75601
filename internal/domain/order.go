package domain

import "time"

type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// statusTransitions is the full state machine. Completed and cancelled have
// no outgoing edges. An order may be completed straight from new.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:       {OrderStatusAccepted, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusAccepted:  {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem references a product by id; ProductName is a snapshot taken at
// order time so renaming a product never rewrites order history.
type OrderItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
}

// Order holds the reservation against its items' products for as long as its
// status is new or accepted. Terminal orders hold no reservation.
type Order struct {
	ID        int64       `json:"id"`
	Items     []OrderItem `json:"items" validate:"min=1,dive"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	Notes     string      `json:"notes,omitempty"`
}

// CloneItems returns an independent copy of the item list so stored orders
// never alias caller slices.
func (o Order) CloneItems() []OrderItem {
	items := make([]OrderItem, len(o.Items))
	copy(items, o.Items)
	return items
}
