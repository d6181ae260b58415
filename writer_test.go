package big

import "encoding/binary"
import "path/filepath"
import "testing"

import "github.com/stretchr/testify/require"

func bigWigFixtureSizes() []ChromSize {
	return []ChromSize{{Name: "chr1", Length: 248956422}}
}

// TestWriteBigWigQueryRoundTrip covers spec §8 scenario 1/2 end to end
// through the real writer + reader pipeline, with SNAPPY compression as
// the scenario specifies.
func TestWriteBigWigQueryRoundTrip(t *testing.T) {
	sec := &WigSection{
		Type: WigFixedStep, Start: 100, End: 140, Step: 10, Span: 5,
		Values: []float32{1.0, 2.0, 3.0, 4.0},
	}
	path := filepath.Join(t.TempDir(), "test.bw")
	err := WriteBigWig(path, bigWigFixtureSizes(), []WigInput{{ChromName: "chr1", Sections: []*WigSection{sec}}}, WriteOptions{Compression: CompressionSnappy})
	require.NoError(t, err)

	r, err := OpenBigWigReader(path, FactoryPerCursor)
	require.NoError(t, err)
	defer r.Close()

	overlaps, err := r.Query("chr1", 105, 125, true)
	require.NoError(t, err)
	require.Len(t, overlaps, 1)
	require.Equal(t, int32(100), overlaps[0].Start)
	require.Equal(t, []float32{1.0, 2.0, 3.0}, overlaps[0].Values)

	contained, err := r.Query("chr1", 105, 125, false)
	require.NoError(t, err)
	require.Len(t, contained, 1)
	require.Equal(t, int32(110), contained[0].Start)
	require.Equal(t, []float32{2.0}, contained[0].Values)
}

// TestWriteBigWigSummarizeConstant is spec §8 scenario 5: 1000bp of
// constant value 2.0 summarized into 4 bins, each with sum=500, count=250.
func TestWriteBigWigSummarizeConstant(t *testing.T) {
	values := make([]float32, 1000)
	for i := range values {
		values[i] = 2.0
	}
	sec := &WigSection{Type: WigFixedStep, Start: 0, End: 1000, Step: 1, Span: 1, Values: values}
	path := filepath.Join(t.TempDir(), "constant.bw")
	sizes := []ChromSize{{Name: "chr1", Length: 2000}}
	err := WriteBigWig(path, sizes, []WigInput{{ChromName: "chr1", Sections: []*WigSection{sec}}}, WriteOptions{Compression: CompressionDeflate})
	require.NoError(t, err)

	r, err := OpenBigWigReader(path, FactoryPerCursor)
	require.NoError(t, err)
	defer r.Close()

	bins, err := r.Summarize("chr1", 0, 1000, 4)
	require.NoError(t, err)
	require.Len(t, bins, 4)
	for _, b := range bins {
		require.Equal(t, int64(250), b.Count)
		require.InDelta(t, 500.0, b.Sum, 1e-6)
		require.InDelta(t, 2.0, b.MinValue, 1e-6)
		require.InDelta(t, 2.0, b.MaxValue, 1e-6)
	}
}

func TestWriteBigWigTotalSummary(t *testing.T) {
	sec := &WigSection{Type: WigFixedStep, Start: 0, End: 10, Step: 1, Span: 1, Values: []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	path := filepath.Join(t.TempDir(), "total.bw")
	err := WriteBigWig(path, bigWigFixtureSizes(), []WigInput{{ChromName: "chr1", Sections: []*WigSection{sec}}}, WriteOptions{})
	require.NoError(t, err)

	r, err := OpenBigWigReader(path, FactoryPerCursor)
	require.NoError(t, err)
	defer r.Close()

	total := r.TotalSummary()
	require.Equal(t, int64(10), total.Count)
	require.InDelta(t, 1.0, total.MinValue, 1e-9)
	require.InDelta(t, 10.0, total.MaxValue, 1e-9)
	require.InDelta(t, 55.0, total.Sum, 1e-9)
}

// TestWriteBigWigByteOrderInvariance is spec §8's "byte-order invariance"
// property: a file written big-endian and one written little-endian from
// identical input must read back identical record sequences.
func TestWriteBigWigByteOrderInvariance(t *testing.T) {
	sec := &WigSection{
		Type: WigVariableStep, Span: 5,
		Positions: []int32{10, 30, 60},
		Values:    []float32{0.5, 1.5, 2.5},
	}
	sizes := []ChromSize{{Name: "chr1", Length: 1000}}

	lePath := filepath.Join(t.TempDir(), "le.bw")
	bePath := filepath.Join(t.TempDir(), "be.bw")
	require.NoError(t, WriteBigWig(lePath, sizes, []WigInput{{ChromName: "chr1", Sections: []*WigSection{sec}}}, WriteOptions{ByteOrder: binary.LittleEndian}))
	require.NoError(t, WriteBigWig(bePath, sizes, []WigInput{{ChromName: "chr1", Sections: []*WigSection{sec}}}, WriteOptions{ByteOrder: binary.BigEndian}))

	leReader, err := OpenBigWigReader(lePath, FactoryPerCursor)
	require.NoError(t, err)
	defer leReader.Close()
	beReader, err := OpenBigWigReader(bePath, FactoryPerCursor)
	require.NoError(t, err)
	defer beReader.Close()

	leResult, err := leReader.Query("chr1", 0, 1000, true)
	require.NoError(t, err)
	beResult, err := beReader.Query("chr1", 0, 1000, true)
	require.NoError(t, err)
	require.Equal(t, leResult, beResult)
}

// TestWriteBigWigFactoryEquivalence is spec §8's "factory equivalence"
// property: all four RomBuffer factories must yield identical records.
func TestWriteBigWigFactoryEquivalence(t *testing.T) {
	sec := &WigSection{Type: WigFixedStep, Start: 0, End: 100, Step: 1, Span: 1, Values: make([]float32, 100)}
	for i := range sec.Values {
		sec.Values[i] = float32(i)
	}
	sizes := []ChromSize{{Name: "chr1", Length: 1000}}
	path := filepath.Join(t.TempDir(), "factories.bw")
	require.NoError(t, WriteBigWig(path, sizes, []WigInput{{ChromName: "chr1", Sections: []*WigSection{sec}}}, WriteOptions{}))

	var results [][]*WigSection
	for _, kind := range []FactoryKind{FactoryPerCursor, FactoryShared, FactoryThreadSafe, FactoryMmap} {
		r, err := OpenBigWigReader(path, kind)
		if err != nil {
			continue // mmap may be unsupported on this platform
		}
		got, err := r.Query("chr1", 0, 100, true)
		require.NoError(t, err)
		results = append(results, got)
		require.NoError(t, r.Close())
	}
	require.NotEmpty(t, results)
	for _, got := range results[1:] {
		require.Equal(t, results[0], got)
	}
}

func TestWriteBigBedQueryRoundTrip(t *testing.T) {
	entries := []BedEntry{
		{Start: 0, End: 50, Rest: "geneA\t0.1\t+"},
		{Start: 60, End: 120, Rest: "geneB\t0.2\t-"},
		{Start: 200, End: 260, Rest: ""},
	}
	sizes := []ChromSize{{Name: "chr1", Length: 1000}}
	path := filepath.Join(t.TempDir(), "test.bb")
	require.NoError(t, WriteBigBed(path, sizes, []BedInput{{ChromName: "chr1", Entries: entries}}, WriteOptions{Compression: CompressionDeflate}))

	r, err := OpenBigBedReader(path, FactoryPerCursor)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Query("chr1", 40, 100, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "geneA\t0.1\t+", got[0].Rest)
	require.Equal(t, "geneB\t0.2\t-", got[1].Rest)

	miss, err := r.Query("chr1", 130, 190, true)
	require.NoError(t, err)
	require.Empty(t, miss)
}

func TestWriteBigWigSortOrderRejected(t *testing.T) {
	a := &WigSection{Type: WigFixedStep, Start: 100, End: 110, Step: 10, Span: 10, Values: []float32{1}}
	b := &WigSection{Type: WigFixedStep, Start: 50, End: 60, Step: 10, Span: 10, Values: []float32{2}}
	path := filepath.Join(t.TempDir(), "unsorted.bw")
	err := WriteBigWig(path, bigWigFixtureSizes(), []WigInput{{ChromName: "chr1", Sections: []*WigSection{a, b}}}, WriteOptions{})
	var sortErr *SortOrderError
	require.ErrorAs(t, err, &sortErr)
}

func TestWriteBigWigUnknownChromosomeRejected(t *testing.T) {
	sec := &WigSection{Type: WigFixedStep, Start: 0, End: 10, Step: 1, Span: 1, Values: []float32{1}}
	path := filepath.Join(t.TempDir(), "unknown.bw")
	err := WriteBigWig(path, bigWigFixtureSizes(), []WigInput{{ChromName: "chrZZZ", Sections: []*WigSection{sec}}}, WriteOptions{})
	var missing *NoSuchElement
	require.ErrorAs(t, err, &missing)
}
