package big

import "math"
import "testing"

import "github.com/stretchr/testify/require"

func TestEmptySummaryIsIdentity(t *testing.T) {
	s := Summary{Count: 3, MinValue: 1, MaxValue: 5, Sum: 9, SumSquares: 29}
	require.Equal(t, s, s.Plus(EmptySummary()))
	require.Equal(t, s, EmptySummary().Plus(s))
}

func TestSummaryPlusCommutativeAndAssociative(t *testing.T) {
	a := EmptySummary().AddValue(2, 3)
	b := EmptySummary().AddValue(5, 1)
	c := EmptySummary().AddValue(-1, 4)

	require.Equal(t, a.Plus(b), b.Plus(a))
	require.Equal(t, a.Plus(b).Plus(c), a.Plus(b.Plus(c)))
}

func TestSummaryAddValueSkipsNaN(t *testing.T) {
	s := EmptySummary().AddValue(math.NaN(), 10)
	require.Equal(t, int64(0), s.Count)
}

func TestSummaryMean(t *testing.T) {
	s := EmptySummary().AddValue(2, 250).AddValue(2, 250)
	require.Equal(t, int64(500), s.Count)
	require.InDelta(t, 2.0, s.Mean(), 1e-9)
	require.InDelta(t, 1000.0, s.Sum, 1e-9)
}
