package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"magazyn/internal/domain"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	return New(zap.NewNop())
}

func items(pairs ...int64) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, domain.OrderItem{ProductID: pairs[i], Quantity: int(pairs[i+1])})
	}
	return out
}

func TestAddAssignsIDAndZeroesReserved(t *testing.T) {
	c := newCatalog(t)

	p, err := c.Add(domain.Product{Name: "Laptop Dell XPS", Quantity: 10, Reserved: 7})
	require.NoError(t, err)
	require.Equal(t, int64(1), p.ID)
	require.Equal(t, 0, p.Reserved)

	p2, err := c.Add(domain.Product{Name: "iPhone 15 Pro", Quantity: 15})
	require.NoError(t, err)
	require.Equal(t, int64(2), p2.ID)
}

func TestAddRejectsBadInput(t *testing.T) {
	c := newCatalog(t)

	_, err := c.Add(domain.Product{Name: "   ", Quantity: 5})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "name")

	_, err = c.Add(domain.Product{Name: "Monitor", Quantity: -1})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "quantity")
}

func TestEditQuantityLeavesReservedAlone(t *testing.T) {
	c := newCatalog(t)
	p, err := c.Add(domain.Product{Name: "Monitor Samsung", Quantity: 8})
	require.NoError(t, err)
	require.NoError(t, c.Reserve(items(p.ID, 3)))

	qty := 20
	edited, err := c.Edit(p.ID, domain.ProductUpdate{Quantity: &qty})
	require.NoError(t, err)
	require.Equal(t, 20, edited.Quantity)
	require.Equal(t, 3, edited.Reserved)
}

func TestEditUnknownProduct(t *testing.T) {
	c := newCatalog(t)
	name := "x"
	_, err := c.Edit(404, domain.ProductUpdate{Name: &name})
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestEditRejectsBadInput(t *testing.T) {
	c := newCatalog(t)
	p, err := c.Add(domain.Product{Name: "Klawiatura Logitech", Quantity: 20})
	require.NoError(t, err)

	blank := "  "
	_, err = c.Edit(p.ID, domain.ProductUpdate{Name: &blank})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	negative := -5
	_, err = c.Edit(p.ID, domain.ProductUpdate{Quantity: &negative})
	require.ErrorAs(t, err, &verr)
}

func TestRemoveBlockedByOpenReservation(t *testing.T) {
	c := newCatalog(t)
	p, err := c.Add(domain.Product{Name: "Laptop", Quantity: 10})
	require.NoError(t, err)
	require.NoError(t, c.Reserve(items(p.ID, 2)))

	err = c.Remove(p.ID)
	require.ErrorIs(t, err, domain.ErrProductReserved)

	c.Release(items(p.ID, 2))
	require.NoError(t, c.Remove(p.ID))

	_, err = c.Get(p.ID)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestReserveDebitsQuantityImmediately(t *testing.T) {
	c := newCatalog(t)
	p, err := c.Add(domain.Product{Name: "Laptop", Quantity: 10})
	require.NoError(t, err)

	require.NoError(t, c.Reserve(items(p.ID, 3)))

	got, err := c.Get(p.ID)
	require.NoError(t, err)
	require.Equal(t, 7, got.Quantity)
	require.Equal(t, 3, got.Reserved)

	avail, err := c.Availability(p.ID)
	require.NoError(t, err)
	require.Equal(t, 7, avail)
}

func TestReserveAllOrNothing(t *testing.T) {
	c := newCatalog(t)
	a, err := c.Add(domain.Product{Name: "Laptop", Quantity: 10})
	require.NoError(t, err)
	b, err := c.Add(domain.Product{Name: "Monitor", Quantity: 2})
	require.NoError(t, err)

	err = c.Reserve(items(a.ID, 5, b.ID, 3))
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 1)
	require.Equal(t, b.ID, stockErr.Shortages[0].ProductID)
	require.Equal(t, 3, stockErr.Shortages[0].Requested)
	require.Equal(t, 2, stockErr.Shortages[0].Available)

	// Neither product moved.
	gotA, _ := c.Get(a.ID)
	require.Equal(t, 10, gotA.Quantity)
	require.Equal(t, 0, gotA.Reserved)
	gotB, _ := c.Get(b.ID)
	require.Equal(t, 2, gotB.Quantity)
	require.Equal(t, 0, gotB.Reserved)
}

func TestReserveAggregatesDuplicateLines(t *testing.T) {
	c := newCatalog(t)
	p, err := c.Add(domain.Product{Name: "Laptop", Quantity: 5})
	require.NoError(t, err)

	// Two lines of 3 sum to 6 > 5; each alone would pass.
	err = c.Reserve(items(p.ID, 3, p.ID, 3))
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 6, stockErr.Shortages[0].Requested)

	got, _ := c.Get(p.ID)
	require.Equal(t, 5, got.Quantity)
}

func TestReserveUnknownProduct(t *testing.T) {
	c := newCatalog(t)
	err := c.Reserve(items(99, 1))
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestReleaseClampsAtZero(t *testing.T) {
	c := newCatalog(t)
	p, err := c.Add(domain.Product{Name: "Laptop", Quantity: 10})
	require.NoError(t, err)
	require.NoError(t, c.Reserve(items(p.ID, 3)))

	c.Release(items(p.ID, 3))
	c.Release(items(p.ID, 3)) // second release is a no-op on reserved

	got, _ := c.Get(p.ID)
	require.Equal(t, 13, got.Quantity)
	require.Equal(t, 0, got.Reserved)
}

func TestClearReservationKeepsQuantityConsumed(t *testing.T) {
	c := newCatalog(t)
	p, err := c.Add(domain.Product{Name: "Laptop", Quantity: 10})
	require.NoError(t, err)
	require.NoError(t, c.Reserve(items(p.ID, 4)))

	c.ClearReservation(items(p.ID, 4))

	got, _ := c.Get(p.ID)
	require.Equal(t, 6, got.Quantity)
	require.Equal(t, 0, got.Reserved)
}

func TestListSortedByID(t *testing.T) {
	c := newCatalog(t)
	for _, name := range []string{"c", "a", "b"} {
		_, err := c.Add(domain.Product{Name: name, Quantity: 1})
		require.NoError(t, err)
	}

	list := c.List()
	require.Len(t, list, 3)
	require.Equal(t, []string{"c", "a", "b"}, []string{list[0].Name, list[1].Name, list[2].Name})
}

func TestReplaceAllContinuesIDSequence(t *testing.T) {
	c := newCatalog(t)
	c.ReplaceAll([]domain.Product{
		{ID: 3, Name: "Laptop", Quantity: 10},
		{ID: 7, Name: "Monitor", Quantity: 8, Reserved: 1},
	})

	got, err := c.Get(7)
	require.NoError(t, err)
	require.Equal(t, 1, got.Reserved)

	p, err := c.Add(domain.Product{Name: "Klawiatura", Quantity: 20})
	require.NoError(t, err)
	require.Equal(t, int64(8), p.ID)
}

func TestNonNegativeCountersInvariant(t *testing.T) {
	c := newCatalog(t)
	p, err := c.Add(domain.Product{Name: "Laptop", Quantity: 2})
	require.NoError(t, err)

	// Over-release and over-clear never drive counters negative.
	c.Release(items(p.ID, 100))
	c.ClearReservation(items(p.ID, 100))
	err = c.Reserve(items(p.ID, 1000))
	require.True(t, errors.As(err, new(*domain.InsufficientStockError)))

	got, _ := c.Get(p.ID)
	require.GreaterOrEqual(t, got.Quantity, 0)
	require.GreaterOrEqual(t, got.Reserved, 0)
}
