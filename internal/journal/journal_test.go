package journal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"magazyn/internal/domain"
)

func TestRecordItemsOneEntryPerItem(t *testing.T) {
	j := New()

	j.RecordItems(domain.MovementReserve, 100, []domain.OrderItem{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 1},
	})
	j.Record(domain.MovementRestock, 1, 0, 5)

	entries := j.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, domain.MovementReserve, entries[0].Kind)
	require.NotEmpty(t, entries[0].ID)
	require.NotEqual(t, entries[0].ID, entries[1].ID)
	require.False(t, entries[0].At.IsZero())
}

func TestFilters(t *testing.T) {
	j := New()
	j.Record(domain.MovementReserve, 1, 100, 3)
	j.Record(domain.MovementReserve, 2, 100, 1)
	j.Record(domain.MovementRelease, 1, 200, 3)

	require.Len(t, j.ByProduct(1), 2)
	require.Len(t, j.ByOrder(100), 2)
	require.Empty(t, j.ByOrder(999))
}

func TestEntriesReturnsCopy(t *testing.T) {
	j := New()
	j.Record(domain.MovementReserve, 1, 100, 3)

	entries := j.Entries()
	entries[0].Quantity = 999

	require.Equal(t, 3, j.Entries()[0].Quantity)
}
