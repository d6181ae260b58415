package big

import "os"
import "testing"

import "github.com/stretchr/testify/require"

// TestFilterWigSectionFixedStepOverlaps is spec §8 scenario 1: fixedStep
// values [1,2,3,4] at start=100, step=10, span=5; querying [105,125) with
// overlaps=true returns the three records whose span intersects the query.
func TestFilterWigSectionFixedStepOverlaps(t *testing.T) {
	block := &WigSection{
		ChromIx: 0, Type: WigFixedStep, Start: 100, End: 140, Step: 10, Span: 5,
		Values: []float32{1, 2, 3, 4},
	}
	query := Interval{ChromIx: 0, Start: 105, End: 125}
	got := filterWigSection(block, query, true)
	require.Equal(t, int32(100), got.Start)
	require.Equal(t, []float32{1, 2, 3}, got.Values)
}

// TestFilterWigSectionFixedStepContained is spec §8 scenario 2: the same
// input with overlaps=false keeps only the fully-contained record at 110.
func TestFilterWigSectionFixedStepContained(t *testing.T) {
	block := &WigSection{
		ChromIx: 0, Type: WigFixedStep, Start: 100, End: 140, Step: 10, Span: 5,
		Values: []float32{1, 2, 3, 4},
	}
	query := Interval{ChromIx: 0, Start: 105, End: 125}
	got := filterWigSection(block, query, false)
	require.Equal(t, int32(110), got.Start)
	require.Equal(t, []float32{2}, got.Values)
}

func TestFilterWigSectionVariableStep(t *testing.T) {
	block := &WigSection{
		ChromIx: 0, Type: WigVariableStep, Span: 5,
		Positions: []int32{10, 20, 30, 40},
		Values:    []float32{1, 2, 3, 4},
	}
	got := filterWigSection(block, Interval{ChromIx: 0, Start: 15, End: 35}, true)
	require.Equal(t, []int32{20, 30}, got.Positions)
	require.Equal(t, []float32{2, 3}, got.Values)
}

func TestFilterWigSectionBedGraphShortCircuits(t *testing.T) {
	block := &WigSection{
		ChromIx: 0, Type: WigBedGraph,
		StartOffsets: []int32{0, 100, 300},
		EndOffsets:   []int32{50, 150, 350},
		Values:       []float32{1, 2, 3},
	}
	// [60,160) intersects the middle record only; the third record at 300
	// does not overlap but comes after a match so must not resume.
	got := filterWigSection(block, Interval{ChromIx: 0, Start: 60, End: 160}, true)
	require.Equal(t, []float32{2}, got.Values)
}

func TestWigSectionEncodeDecodeRoundTrip(t *testing.T) {
	sec := &WigSection{
		ChromIx: 2, Type: WigFixedStep, Start: 1000, End: 1050, Step: 10, Span: 5,
		Values: []float32{1.5, 2.5, 3.5, 4.5, 5.5},
	}
	path := writeTempFile(t, func(out *OrderedDataOutput) error {
		_, err := WriteWigSection(out, sec, CompressionDeflate)
		return err
	})
	buf := openFileBuffer(t, path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	decompressed, err := buf.Decompress(0, info.Size(), CompressionDeflate)
	require.NoError(t, err)
	decoded, err := decodeWigBlock(decompressed)
	require.NoError(t, err)
	require.Equal(t, sec.ChromIx, decoded.ChromIx)
	require.Equal(t, sec.Values, decoded.Values)
}
