package big

import "os"
import "testing"

import "github.com/stretchr/testify/require"

func TestFilterBedBlockOverlapAndContainment(t *testing.T) {
	entries := []BedEntry{
		{ChromIx: 0, Start: 0, End: 50, Rest: "a"},
		{ChromIx: 0, Start: 40, End: 100, Rest: "b"},
		{ChromIx: 0, Start: 200, End: 250, Rest: "c"},
	}
	query := Interval{ChromIx: 0, Start: 30, End: 90}

	overlapping := filterBedBlock(entries, query, true)
	require.Len(t, overlapping, 2)
	require.Equal(t, "a", overlapping[0].Rest)
	require.Equal(t, "b", overlapping[1].Rest)

	contained := filterBedBlock(entries, query, false)
	require.Empty(t, contained)

	wideQuery := Interval{ChromIx: 0, Start: 0, End: 100}
	containedWide := filterBedBlock(entries, wideQuery, false)
	require.Len(t, containedWide, 2)
}

func TestBedBlockEncodeDecodeRoundTrip(t *testing.T) {
	entries := []BedEntry{
		{ChromIx: 1, Start: 10, End: 20, Rest: "geneA\t0.5\t+"},
		{ChromIx: 1, Start: 30, End: 45, Rest: ""},
		{ChromIx: 1, Start: 50, End: 70, Rest: "geneB\t1.2\t-"},
	}
	path := writeTempFile(t, func(out *OrderedDataOutput) error {
		_, err := WriteBedBlock(out, entries, CompressionSnappy)
		return err
	})
	buf := openFileBuffer(t, path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	decompressed, err := buf.Decompress(0, info.Size(), CompressionSnappy)
	require.NoError(t, err)

	// Recompute the exact uncompressed byte length the same way
	// WriteBedBlock lays it out, so the decoder's `buf.Tell() < size`
	// loop bound matches what was actually written.
	uncompressedSize := int64(0)
	for _, e := range entries {
		uncompressedSize += 4 + 4 + 4 + int64(len(e.Rest)) + 1
	}

	decoded, err := decodeBedBlock(decompressed, uncompressedSize)
	require.NoError(t, err)
	require.Equal(t, entries, decoded)
}
