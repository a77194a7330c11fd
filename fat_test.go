package fatfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFAT(numData int) *fatTable {
	return &fatTable{entries: make([]uint16, numData)}
}

func TestFATExtendEmptyFile(t *testing.T) {
	fat := newTestFAT(8)
	first, n, err := fat.extend(EOC, 3)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.Equal(t, uint32(3), fat.chainLength(first))

	b1, err := fat.walk(first, 1)
	require.NoError(t, err)
	b2, err := fat.walk(first, 2)
	require.NoError(t, err)
	require.NotEqual(t, first, b1)
	require.NotEqual(t, b1, b2)
	_, err = fat.walk(first, 3)
	require.Error(t, err)
}

func TestFATExtendGrowsExisting(t *testing.T) {
	fat := newTestFAT(8)
	first, _, err := fat.extend(EOC, 2)
	require.NoError(t, err)
	first, n, err := fat.extend(first, 5)
	require.NoError(t, err)
	require.EqualValues(t, 5, n)
	require.Equal(t, uint32(5), fat.chainLength(first))
}

func TestFATExtendNoSpaceIsBestEffort(t *testing.T) {
	fat := newTestFAT(3) // entry 0 reserved, only 1 and 2 allocatable.
	first, n, err := fat.extend(EOC, 5)
	require.Error(t, err)
	kind, ok := Code(err)
	require.True(t, ok)
	require.Equal(t, KindNoSpace, kind)
	require.EqualValues(t, 2, n)
	require.Equal(t, uint32(2), fat.chainLength(first))
}

func TestFATFreeChainReleasesEntries(t *testing.T) {
	fat := newTestFAT(8)
	first, _, err := fat.extend(EOC, 4)
	require.NoError(t, err)
	require.Equal(t, 3, fat.freeCount()) // 7 allocatable (idx 1..7), 4 used.

	fat.freeChain(first)
	require.Equal(t, 7, fat.freeCount())
	require.Equal(t, uint32(0), fat.chainLength(EOC))
}

func TestFATFreeChainOnEOCIsNoop(t *testing.T) {
	fat := newTestFAT(4)
	fat.freeChain(EOC) // must not panic or mutate anything.
	require.Equal(t, 3, fat.freeCount())
}

func TestFATFirstFitAllocatesLowestIndex(t *testing.T) {
	fat := newTestFAT(5)
	first, _, err := fat.extend(EOC, 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, first)
}

func TestFATNoCyclesAcrossRepeatedExtend(t *testing.T) {
	fat := newTestFAT(16)
	first := uint16(EOC)
	var err error
	for target := uint32(1); target <= 10; target++ {
		first, _, err = fat.extend(first, target)
		require.NoError(t, err)
	}
	seen := map[uint16]bool{}
	cur := first
	for cur != EOC {
		require.False(t, seen[cur], "cycle detected at %d", cur)
		seen[cur] = true
		cur = fat.entries[cur]
	}
	require.Len(t, seen, 10)
}
