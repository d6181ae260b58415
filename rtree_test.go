package big

import "testing"

import "github.com/stretchr/testify/require"

func TestRTreeFindOverlappingBlocks(t *testing.T) {
	entries := []RTreeEntry{
		{Interval: GenomicInterval{StartChromIx: 0, StartBase: 0, EndChromIx: 0, EndBase: 100}, Offset: 1000, Size: 10},
		{Interval: GenomicInterval{StartChromIx: 0, StartBase: 100, EndChromIx: 0, EndBase: 200}, Offset: 2000, Size: 10},
		{Interval: GenomicInterval{StartChromIx: 1, StartBase: 0, EndChromIx: 1, EndBase: 50}, Offset: 3000, Size: 10},
	}
	path := writeTempFile(t, func(out *OrderedDataOutput) error {
		return WriteRTree(out, entries, 4, 1, 10000)
	})
	buf := openFileBuffer(t, path)
	tree, err := OpenRTree(buf, 0)
	require.NoError(t, err)

	got, err := tree.Query(GenomicInterval{StartChromIx: 0, StartBase: 50, EndChromIx: 0, EndBase: 150})
	require.NoError(t, err)
	offsets := make(map[int64]bool)
	for _, e := range got {
		offsets[e.Offset] = true
	}
	require.True(t, offsets[1000])
	require.True(t, offsets[2000])
	require.False(t, offsets[3000])
}

func TestRTreeEveryWrittenLeafIsFindable(t *testing.T) {
	var entries []RTreeEntry
	for i := 0; i < 40; i++ {
		start := int32(i * 100)
		entries = append(entries, RTreeEntry{
			Interval: GenomicInterval{StartChromIx: 0, StartBase: start, EndChromIx: 0, EndBase: start + 50},
			Offset:   int64(i) * 1000,
			Size:     500,
		})
	}
	path := writeTempFile(t, func(out *OrderedDataOutput) error {
		return WriteRTree(out, entries, 4, 1, 100000)
	})
	buf := openFileBuffer(t, path)
	tree, err := OpenRTree(buf, 0)
	require.NoError(t, err)

	for _, want := range entries {
		got, err := tree.Query(want.Interval)
		require.NoError(t, err)
		found := false
		for _, g := range got {
			if g.Offset == want.Offset {
				found = true
			}
		}
		require.True(t, found, "leaf at offset %d not found for interval %+v", want.Offset, want.Interval)
	}
}

func TestGenomicIntervalOverlapsMultiChromSpan(t *testing.T) {
	a := GenomicInterval{StartChromIx: 0, StartBase: 500, EndChromIx: 2, EndBase: 10}
	b := GenomicInterval{StartChromIx: 1, StartBase: 0, EndChromIx: 1, EndBase: 100}
	require.True(t, a.Overlaps(b))

	c := GenomicInterval{StartChromIx: 3, StartBase: 0, EndChromIx: 3, EndBase: 100}
	require.False(t, a.Overlaps(c))
}
