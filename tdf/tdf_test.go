package tdf

import "encoding/binary"
import "os"
import "path/filepath"
import "testing"

import "github.com/stretchr/testify/require"

import big "github.com/superbobry/big"

// buildFixture writes a small hand-assembled TDF file: one dataset
// "/chr1/raw" holding two tiles, the second of which is absent (offset <
// 0), exercising spec §8 scenario 6 ("TDF with a single absent tile:
// query returns empty list, not error") alongside the present tile.
func buildFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.tdf")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	out := big.NewOrderedDataOutput(f, binary.LittleEndian)

	require.NoError(t, out.WriteBytes([]byte("TDF4")))
	require.NoError(t, out.WriteInt(4))      // version
	indexOffsetPos, err := out.Tell()
	require.NoError(t, err)
	require.NoError(t, out.WriteLong(0)) // indexOffset placeholder
	require.NoError(t, out.WriteInt(0))  // indexSize placeholder
	require.NoError(t, out.WriteInt(0))  // headerSize placeholder

	require.NoError(t, out.WriteInt(1))
	require.NoError(t, out.WriteCString("mean"))
	require.NoError(t, out.WriteCString("bar"))
	require.NoError(t, out.WriteCString(""))
	require.NoError(t, out.WriteInt(1))
	require.NoError(t, out.WriteCString("track1"))
	require.NoError(t, out.WriteCString("hg19"))
	require.NoError(t, out.WriteInt(0)) // flags: uncompressed

	// Tile 0: fixedStep, 10 bins of span 10 starting at 0.
	tile0Offset, err := out.Tell()
	require.NoError(t, err)
	require.NoError(t, out.WriteCString("fixedStep"))
	require.NoError(t, out.WriteInt(0))    // start
	require.NoError(t, out.WriteFloat(10)) // span
	require.NoError(t, out.WriteInt(10))   // nBins
	require.NoError(t, out.WriteInt(1))    // nTracks
	for i := 0; i < 10; i++ {
		require.NoError(t, out.WriteFloat(float32(i)))
	}
	tile0End, err := out.Tell()
	require.NoError(t, err)

	indexOffset, err := out.Tell()
	require.NoError(t, err)

	require.NoError(t, out.WriteInt(1)) // nDatasets
	require.NoError(t, out.WriteCString("/chr1/raw"))
	datasetOffsetPos, err := out.Tell()
	require.NoError(t, err)
	require.NoError(t, out.WriteLong(0)) // dataset offset placeholder
	require.NoError(t, out.WriteInt(0))  // dataset size placeholder
	require.NoError(t, out.WriteInt(0))  // nGroups

	datasetOffset, err := out.Tell()
	require.NoError(t, err)
	require.NoError(t, out.WriteInt(0))              // nAttributes
	require.NoError(t, out.WriteCString("float"))    // dataType
	require.NoError(t, out.WriteFloat(10))           // tileWidth
	require.NoError(t, out.WriteInt(2))               // tileCount
	require.NoError(t, out.WriteLong(tile0Offset))    // tile 0 offset
	require.NoError(t, out.WriteInt(int32(tile0End-tile0Offset)))
	require.NoError(t, out.WriteLong(-1)) // tile 1: absent
	require.NoError(t, out.WriteInt(0))
	datasetEnd, err := out.Tell()
	require.NoError(t, err)

	require.NoError(t, out.WriteAt(indexOffsetPos, leLong(indexOffset)))
	require.NoError(t, out.WriteAt(datasetOffsetPos, leLong(datasetOffset)))
	require.NoError(t, out.WriteAt(datasetOffsetPos+8, leInt(int32(datasetEnd-datasetOffset))))

	return path
}

func leLong(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func leInt(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func TestReadHeader(t *testing.T) {
	path := buildFixture(t)
	r, err := Open(path, big.FactoryPerCursor)
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	require.Equal(t, "TDF4", h.Magic)
	require.Equal(t, []string{"mean"}, h.WindowFunctions)
	require.Equal(t, "bar", h.TrackType)
	require.Equal(t, []string{"track1"}, h.TrackNames)
	require.Equal(t, "hg19", h.Build)
	require.False(t, h.Compressed())
}

func TestQuerySkipsAbsentTile(t *testing.T) {
	path := buildFixture(t)
	r, err := Open(path, big.FactoryPerCursor)
	require.NoError(t, err)
	defer r.Close()

	tiles, err := r.Query("/chr1/raw", 0, 100)
	require.NoError(t, err)
	require.Len(t, tiles, 1)
	fixed, ok := tiles[0].(*FixedTile)
	require.True(t, ok)
	require.Equal(t, 1, fixed.NumTracks())
	require.Equal(t, 10, fixed.Len())
	require.Equal(t, float32(3), fixed.Value(0, 3))

	// Scenario 6: querying past the only present tile (offset 10..20, the
	// tile at index 1 which is absent) must return an empty list, not an
	// error.
	empty, err := r.Query("/chr1/raw", 10, 20)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestQueryUnknownDatasetIsNoSuchElement(t *testing.T) {
	path := buildFixture(t)
	r, err := Open(path, big.FactoryPerCursor)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Query("/chr2/raw", 0, 10)
	var missing *big.NoSuchElement
	require.ErrorAs(t, err, &missing)
}

func TestSummarizeFallsBackToRaw(t *testing.T) {
	path := buildFixture(t)
	r, err := Open(path, big.FactoryPerCursor)
	require.NoError(t, err)
	defer r.Close()

	tracks, err := r.Summarize("chr1", 0, 100, 5)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	require.Len(t, tracks[0], 10)
	require.Equal(t, float32(0), tracks[0][0].Value)
	require.Equal(t, int32(0), tracks[0][0].Start)
	require.Equal(t, int32(10), tracks[0][0].End)
}
