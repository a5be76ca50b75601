package orderstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"magazyn/internal/domain"
)

func newStore() *Store {
	return New(zap.NewNop())
}

func testItems() []domain.OrderItem {
	return []domain.OrderItem{{ProductID: 1, ProductName: "Laptop Dell XPS", Quantity: 3}}
}

func TestCreateForcesNewStatusAndAssignsID(t *testing.T) {
	s := newStore()

	o, err := s.Create(domain.Order{
		Items:  testItems(),
		Status: domain.OrderStatusCompleted, // must be ignored
		Notes:  "pilne",
	})
	require.NoError(t, err)
	require.NotZero(t, o.ID)
	require.Equal(t, domain.OrderStatusNew, o.Status)
	require.False(t, o.CreatedAt.IsZero())
	require.Equal(t, "pilne", o.Notes)
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	s := newStore()
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	seen := make(map[int64]bool)
	for range 50 {
		o, err := s.Create(domain.Order{Items: testItems()})
		require.NoError(t, err)
		require.False(t, seen[o.ID], "id %d assigned twice", o.ID)
		seen[o.ID] = true
	}
}

func TestReplaceOnlyWhileNew(t *testing.T) {
	s := newStore()
	o, err := s.Create(domain.Order{Items: testItems(), Notes: "before"})
	require.NoError(t, err)

	newItems := []domain.OrderItem{{ProductID: 2, ProductName: "Monitor", Quantity: 1}}
	updated, err := s.Replace(domain.Order{ID: o.ID, Items: newItems, Notes: "after"})
	require.NoError(t, err)
	require.Equal(t, o.ID, updated.ID)
	require.Equal(t, o.CreatedAt, updated.CreatedAt)
	require.Equal(t, newItems, updated.Items)
	require.Equal(t, "after", updated.Notes)

	_, err = s.SetStatus(o.ID, domain.OrderStatusAccepted)
	require.NoError(t, err)

	_, err = s.Replace(domain.Order{ID: o.ID, Items: testItems()})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReplaceUnknownOrder(t *testing.T) {
	s := newStore()
	_, err := s.Replace(domain.Order{ID: 404, Items: testItems()})
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from    domain.OrderStatus
		to      domain.OrderStatus
		allowed bool
	}{
		{domain.OrderStatusNew, domain.OrderStatusAccepted, true},
		{domain.OrderStatusNew, domain.OrderStatusCompleted, true},
		{domain.OrderStatusNew, domain.OrderStatusCancelled, true},
		{domain.OrderStatusAccepted, domain.OrderStatusCompleted, true},
		{domain.OrderStatusAccepted, domain.OrderStatusCancelled, true},
		{domain.OrderStatusAccepted, domain.OrderStatusNew, false},
		{domain.OrderStatusCompleted, domain.OrderStatusAccepted, false},
		{domain.OrderStatusCompleted, domain.OrderStatusCancelled, false},
		{domain.OrderStatusCancelled, domain.OrderStatusNew, false},
		{domain.OrderStatusCancelled, domain.OrderStatusCompleted, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			s := newStore()
			o, err := s.Create(domain.Order{Items: testItems()})
			require.NoError(t, err)

			// Walk the order into the starting state.
			if tc.from != domain.OrderStatusNew {
				_, err = s.SetStatus(o.ID, tc.from)
				require.NoError(t, err)
			}

			_, err = s.SetStatus(o.ID, tc.to)
			if tc.allowed {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, domain.ErrInvalidTransition)
			}
		})
	}
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	s := newStore()
	o, err := s.Create(domain.Order{Items: testItems()})
	require.NoError(t, err)

	_, err = s.SetStatus(o.ID, domain.OrderStatus("shipped"))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSetStatusUnknownOrder(t *testing.T) {
	s := newStore()
	_, err := s.SetStatus(404, domain.OrderStatusAccepted)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestAllNewestFirst(t *testing.T) {
	s := newStore()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	ts := base
	s.now = func() time.Time { return ts }

	var ids []int64
	for i := range 3 {
		ts = base.Add(time.Duration(i) * time.Minute)
		o, err := s.Create(domain.Order{Items: testItems()})
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}

	var got []int64
	for o := range s.All() {
		got = append(got, o.ID)
	}
	require.Equal(t, []int64{ids[2], ids[1], ids[0]}, got)
}

func TestAllIsRestartable(t *testing.T) {
	s := newStore()
	for range 3 {
		_, err := s.Create(domain.Order{Items: testItems()})
		require.NoError(t, err)
	}

	seq := s.All()

	count := 0
	for range seq {
		count++
		break // abandon mid-way
	}
	require.Equal(t, 1, count)

	count = 0
	for range seq {
		count++
	}
	require.Equal(t, 3, count)
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	s := newStore()
	o, err := s.Create(domain.Order{Items: testItems()})
	require.NoError(t, err)

	got, err := s.Get(o.ID)
	require.NoError(t, err)
	got.Items[0].Quantity = 999

	again, err := s.Get(o.ID)
	require.NoError(t, err)
	require.Equal(t, 3, again.Items[0].Quantity)
}

func TestReplaceAllRestoresSnapshot(t *testing.T) {
	s := newStore()
	created := time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC)
	s.ReplaceAll([]domain.Order{
		{ID: 42, Items: testItems(), Status: domain.OrderStatusAccepted, CreatedAt: created},
	})

	got, err := s.Get(42)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusAccepted, got.Status)
	require.True(t, got.CreatedAt.Equal(created))
}
