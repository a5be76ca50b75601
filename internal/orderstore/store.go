package orderstore

import (
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"magazyn/internal/domain"
)

// Store owns every order record, assigns ids and runs the status state
// machine. It never touches product counters; that is the coordinator's job.
type Store struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	logger *zap.Logger
	now    func() time.Time
}

func New(logger *zap.Logger) *Store {
	return &Store{
		orders: make(map[int64]*domain.Order),
		logger: logger,
		now:    time.Now,
	}
}

// Create stores a new order. The id and creation time are assigned here and
// the status is forced to new regardless of input.
func (s *Store) Create(o domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.ID = s.newID()
	o.CreatedAt = s.now()
	o.Status = domain.OrderStatusNew
	o.Items = o.CloneItems()
	s.orders[o.ID] = &o

	s.logger.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.Int("items", len(o.Items)),
	)
	return copyOrder(&o), nil
}

// Replace overwrites the items and notes of an order that is still new,
// preserving its id, creation time and status. Any other status rejects the
// edit.
func (s *Store) Replace(o domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[o.ID]
	if !ok {
		return domain.Order{}, fmt.Errorf("replace order %d: %w", o.ID, domain.ErrOrderNotFound)
	}
	if stored.Status != domain.OrderStatusNew {
		return domain.Order{}, fmt.Errorf("replace order %d in status %q: %w",
			o.ID, stored.Status, domain.ErrInvalidTransition)
	}

	stored.Items = o.CloneItems()
	stored.Notes = o.Notes
	return copyOrder(stored), nil
}

// SetStatus moves an order through the state machine.
func (s *Store) SetStatus(id int64, next domain.OrderStatus) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("set status of order %d: %w", id, domain.ErrOrderNotFound)
	}
	if !next.Valid() || !stored.Status.CanTransitionTo(next) {
		return domain.Order{}, fmt.Errorf("order %d: %q -> %q: %w",
			id, stored.Status, next, domain.ErrInvalidTransition)
	}

	s.logger.Info("order status changed",
		zap.Int64("order_id", id),
		zap.String("from", string(stored.Status)),
		zap.String("to", string(next)),
	)
	stored.Status = next
	return copyOrder(stored), nil
}

func (s *Store) Get(id int64) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("get order %d: %w", id, domain.ErrOrderNotFound)
	}
	return copyOrder(stored), nil
}

// All returns a restartable sequence of every order, newest first. Ties on
// the creation time go to the higher id. Every listing surface uses this one
// ordering. The snapshot is taken when iteration starts, so a retained
// sequence can be walked again after mutations and will see fresh state.
func (s *Store) All() iter.Seq[domain.Order] {
	return func(yield func(domain.Order) bool) {
		for _, o := range s.snapshot() {
			if !yield(o) {
				return
			}
		}
	}
}

// ReplaceAll swaps in a loaded snapshot, used at startup and on refresh.
func (s *Store) ReplaceAll(orders []domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make(map[int64]*domain.Order, len(orders))
	for _, o := range orders {
		o.Items = o.CloneItems()
		s.orders[o.ID] = &o
	}
}

func (s *Store) snapshot() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, copyOrder(o))
	}
	slices.SortFunc(out, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out
}

// newID builds ids from the creation timestamp plus a random tail, re-rolled
// on the rare collision. Caller holds the write lock.
func (s *Store) newID() int64 {
	for {
		id := s.now().UnixMilli()*1000 + rand.Int64N(1000)
		if _, taken := s.orders[id]; !taken {
			return id
		}
	}
}

func copyOrder(o *domain.Order) domain.Order {
	out := *o
	out.Items = o.CloneItems()
	return out
}
