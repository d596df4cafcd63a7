package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"relstore/types"
)

func TestInsertFindDelete(t *testing.T) {
	idx := New()
	r1 := types.Rid{PageNo: 1, SlotNo: 0}
	r2 := types.Rid{PageNo: 1, SlotNo: 1}

	idx.InsertEntry(types.IntValue(5), r1)
	idx.InsertEntry(types.IntValue(5), r2)
	idx.InsertEntry(types.IntValue(7), types.Rid{PageNo: 2, SlotNo: 0})

	got := idx.Find(types.IntValue(5))
	require.ElementsMatch(t, []types.Rid{r1, r2}, got)
	require.Equal(t, 3, idx.Len())

	idx.DeleteEntry(types.IntValue(5), r1)
	got = idx.Find(types.IntValue(5))
	require.Equal(t, []types.Rid{r2}, got)
	require.Equal(t, 2, idx.Len())
}

func TestFindMissingKeyReturnsEmpty(t *testing.T) {
	idx := New()
	idx.InsertEntry(types.IntValue(1), types.Rid{PageNo: 1, SlotNo: 0})
	require.Empty(t, idx.Find(types.IntValue(99)))
}
