package big

import "testing"

import "github.com/stretchr/testify/require"

func TestIntervalIntersectsAndContainedIn(t *testing.T) {
	a := Interval{ChromIx: 0, Start: 10, End: 20}
	b := Interval{ChromIx: 0, Start: 15, End: 25}
	require.True(t, a.intersects(b))
	require.False(t, a.containedIn(b))

	c := Interval{ChromIx: 0, Start: 12, End: 18}
	require.True(t, c.containedIn(a))

	d := Interval{ChromIx: 1, Start: 10, End: 20}
	require.False(t, a.intersects(d))
}

func TestConsistent(t *testing.T) {
	query := Interval{ChromIx: 0, Start: 100, End: 200}
	inside := Interval{ChromIx: 0, Start: 110, End: 150}
	straddling := Interval{ChromIx: 0, Start: 190, End: 250}

	require.True(t, consistent(inside, query, true))
	require.True(t, consistent(inside, query, false))
	require.True(t, consistent(straddling, query, true))
	require.False(t, consistent(straddling, query, false))
}
