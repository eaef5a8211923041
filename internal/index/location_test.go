package index

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Text codec
// =============================================================================

func TestParseLocation_Interesting(t *testing.T) {
	t.Parallel()
	l, err := ParseLocation("*3:10:5")
	require.NoError(t, err)
	assert.True(t, l.Interesting)
	assert.Equal(t, 3, l.File.Raw())
	assert.Equal(t, 10, l.Line)
	assert.Equal(t, 5, l.Column)
	assert.Equal(t, "*3:10:5", l.String())
}

func TestParseLocation_Plain(t *testing.T) {
	t.Parallel()
	l, err := ParseLocation("3:10:5")
	require.NoError(t, err)
	assert.False(t, l.Interesting)
	assert.Equal(t, 3, l.File.Raw())
	assert.Equal(t, 10, l.Line)
	assert.Equal(t, 5, l.Column)
	assert.Equal(t, "3:10:5", l.String())
}

func TestLocation_UnknownEncodes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "-1:-1:-1", UnknownLocation.String())
	assert.Equal(t, "*-1:-1:-1", UnknownLocation.WithInteresting(true).String())

	l, err := ParseLocation("-1:-1:-1")
	require.NoError(t, err)
	assert.True(t, l.IsUnknown())
	assert.True(t, l.Equal(UnknownLocation))
}

func TestParseLocation_Malformed(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "*", "1:2", "1:2:3:4", "a:2:3", "1:b:3", "**1:2:3", "1:2:"} {
		_, err := ParseLocation(s)
		assert.ErrorIs(t, err, ErrBadLocation, "input %q", s)
	}
}

func TestParseLocation_OutOfRange(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"4294967297:1:1", "2147483648:1:1", "1:4294967297:1", "1:1:-2", "-2:1:1"} {
		l, err := ParseLocation(s)
		assert.ErrorIs(t, err, ErrBadLocation, "input %q", s)
		assert.Equal(t, Location{}, l)
	}

	l, err := ParseLocation("2147483647:1:1")
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, l.File.Raw())
}

func TestRawID_OutOfRangePanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { RawFileID(math.MaxInt32 + 1) })
	assert.Panics(t, func() { RawTypeID(-2) })
	assert.NotPanics(t, func() { RawVarID(-1) })
}

func TestLocation_TextMarshal(t *testing.T) {
	t.Parallel()
	in := NewLocation(true, RawFileID(7), 42, 9)
	text, err := in.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "*7:42:9", string(text))

	var out Location
	require.NoError(t, out.UnmarshalText(text))
	assert.Equal(t, in, out)

	assert.Error(t, out.UnmarshalText([]byte("nope")))
}

// =============================================================================
// Equality and ordering
// =============================================================================

func TestLocation_EqualIgnoresInteresting(t *testing.T) {
	t.Parallel()
	a := NewLocation(true, RawFileID(1), 2, 3)
	b := NewLocation(false, RawFileID(1), 2, 3)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewLocation(true, RawFileID(1), 2, 4)))
	assert.False(t, a.Equal(NewLocation(true, RawFileID(2), 2, 3)))
}

func TestLocation_CompareIsLexicographic(t *testing.T) {
	t.Parallel()
	locs := []Location{
		NewLocation(true, RawFileID(2), 1, 1),
		NewLocation(false, RawFileID(1), 5, 1),
		NewLocation(true, RawFileID(1), 5, 1),
		NewLocation(false, RawFileID(1), 1, 9),
		NewLocation(false, RawFileID(1), 1, 2),
	}
	slices.SortFunc(locs, Location.Compare)

	got := make([]string, len(locs))
	for i, l := range locs {
		got[i] = l.String()
	}
	assert.Equal(t, []string{"1:1:2", "1:1:9", "1:5:1", "*1:5:1", "*2:1:1"}, got)
}

func TestLocation_CompareTotal(t *testing.T) {
	t.Parallel()
	a := NewLocation(true, RawFileID(0), 3, 1)
	b := NewLocation(false, RawFileID(0), 1, 8)
	assert.Equal(t, 1, a.Compare(b))
	assert.Equal(t, -1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestRef_Compare(t *testing.T) {
	t.Parallel()
	loc1 := NewLocation(false, RawFileID(0), 1, 1)
	loc2 := NewLocation(false, RawFileID(0), 2, 1)
	a := FuncRef{ID: RawFuncID(0), Loc: loc2}
	b := FuncRef{ID: RawFuncID(1), Loc: loc1}
	c := FuncRef{ID: RawFuncID(0), Loc: loc1}

	refs := []FuncRef{a, b, c}
	slices.SortFunc(refs, FuncRef.Compare)
	assert.Equal(t, []FuncRef{c, a, b}, refs)

	assert.True(t, c.Equal(FuncRef{ID: RawFuncID(0), Loc: loc1.WithInteresting(true)}))
	assert.False(t, a.Equal(c))
}

// =============================================================================
// Packed representation
// =============================================================================

func TestPack_RoundTrip(t *testing.T) {
	t.Parallel()
	for _, l := range []Location{
		NewLocation(true, RawFileID(3), 10, 5),
		NewLocation(false, RawFileID(0), 1, 1),
		UnknownLocation,
		NewLocation(false, RawFileID(1<<29-2), 1<<20-2, 1<<14-2),
	} {
		p, err := Pack(l)
		require.NoError(t, err, "pack %s", l)
		assert.Equal(t, l, p.Unpack())
		assert.Equal(t, l.String(), p.String())
	}
}

func TestPack_UnknownIsZeroExceptInterest(t *testing.T) {
	t.Parallel()
	p, err := Pack(UnknownLocation)
	require.NoError(t, err)
	assert.Equal(t, PackedLocation(0), p)

	p, err = Pack(UnknownLocation.WithInteresting(true))
	require.NoError(t, err)
	assert.Equal(t, PackedLocation(1), p)
}

func TestPack_Overflow(t *testing.T) {
	t.Parallel()
	for _, l := range []Location{
		NewLocation(false, RawFileID(1<<29-1), 1, 1),
		NewLocation(false, RawFileID(0), 1<<20-1, 1),
		NewLocation(false, RawFileID(0), 1, 1<<14-1),
		NewLocation(false, RawFileID(0), -2, 1),
	} {
		_, err := Pack(l)
		assert.ErrorIs(t, err, ErrLocationOverflow, "location %s", l)
	}
}

func TestPacked_EqualIgnoresInteresting(t *testing.T) {
	t.Parallel()
	a, err := Pack(NewLocation(true, RawFileID(4), 8, 2))
	require.NoError(t, err)
	b, err := Pack(NewLocation(false, RawFileID(4), 8, 2))
	require.NoError(t, err)
	c, err := Pack(NewLocation(false, RawFileID(4), 8, 3))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
