package page

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalIDEncodesFileAndPage(t *testing.T) {
	id := GlobalID(3, 7)
	require.Equal(t, int64(3)<<32|7, id)
}

func TestPinUnpinTracksCountAndDirty(t *testing.T) {
	pg := New(1, 0)
	pg.Pin()
	pg.Pin()
	require.Equal(t, int32(2), pg.PinCount)

	pg.Unpin(true)
	require.Equal(t, int32(1), pg.PinCount)
	require.True(t, pg.IsDirty)

	pg.Unpin(false)
	require.Equal(t, int32(0), pg.PinCount)
}

func TestUnpinNeverGoesNegative(t *testing.T) {
	pg := New(1, 0)
	pg.Unpin(false)
	require.Equal(t, int32(0), pg.PinCount)
}

func TestInitHeapPageAndSlotRoundTrip(t *testing.T) {
	pg := New(1, 1)
	InitHeapPage(pg, 1)
	require.Equal(t, int32(0), GetNumRecords(pg))

	bm := Bitmap(pg, 1)
	require.False(t, BitmapIsSet(bm, 0))

	slot := Slot(pg, 0, 1, 4)
	copy(slot, []byte("abcd"))
	require.Equal(t, []byte("abcd"), Slot(pg, 0, 1, 4))

	SetNextFreePageNo(pg, 5)
	require.Equal(t, int32(5), GetNextFreePageNo(pg))
}
