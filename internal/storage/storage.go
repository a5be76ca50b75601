package storage

import (
	"context"
	"errors"

	"magazyn/internal/domain"
)

// ErrNotFound reports an absent snapshot. Callers treat it as "start from an
// empty catalog", never as a failure.
var ErrNotFound = errors.New("no stored snapshot")

// Store is the persistence collaborator: whole-list snapshots loaded at
// startup or refresh and saved after every mutating operation. The in-memory
// state is the source of truth between saves.
type Store interface {
	LoadProducts(ctx context.Context) ([]domain.Product, error)
	SaveProducts(ctx context.Context, products []domain.Product) error
	LoadOrders(ctx context.Context) ([]domain.Order, error)
	SaveOrders(ctx context.Context, orders []domain.Order) error
}
