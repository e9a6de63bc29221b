package dice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotation(t *testing.T) {
	tcs := []struct {
		in   string
		want Notation
	}{
		{"1d8", Notation{Count: 1, Sides: 8}},
		{"2d6+3", Notation{Count: 2, Sides: 6, Modifier: 3}},
		{"1d8-2", Notation{Count: 1, Sides: 8, Modifier: -2}},
		{"d20", Notation{Count: 1, Sides: 20}},
		{" 3D4 + 1 ", Notation{Count: 3, Sides: 4, Modifier: 1}},
	}

	for _, tc := range tcs {
		got, err := ParseNotation(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseNotationRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "abc", "d", "2d", "2d0", "0d6", "-1d6", "2d6+", "2d6+x", "2x6", "2d6x", "2d6+-1", "dd6", "+2d6", "2d+6", "100000000000d6", "101d6", "1d1001", "1d6+1001", "1d6-1001"} {
		_, err := ParseNotation(in)
		if !errors.Is(err, ErrMalformedDiceNotation) {
			t.Fatalf("ParseNotation(%q) error = %v, want %v", in, err, ErrMalformedDiceNotation)
		}
	}
}

func TestParseNotationAcceptsLimits(t *testing.T) {
	n, err := ParseNotation("100d1000+1000")
	require.NoError(t, err)
	assert.Equal(t, Notation{Count: MaxCount, Sides: MaxSides, Modifier: MaxModifier}, n)
}

func TestNotationString(t *testing.T) {
	assert.Equal(t, "2d6+3", Notation{Count: 2, Sides: 6, Modifier: 3}.String())
	assert.Equal(t, "1d8-2", Notation{Count: 1, Sides: 8, Modifier: -2}.String())
	assert.Equal(t, "1d20", Notation{Count: 1, Sides: 20}.String())
}

func TestNotationMean(t *testing.T) {
	assert.InDelta(t, 7.0, Notation{Count: 2, Sides: 6}.Mean(), 1e-9)
	assert.InDelta(t, 3.5, Notation{Count: 1, Sides: 4, Modifier: 1}.Mean(), 1e-9)
	assert.InDelta(t, -2.0, Notation{Count: 2, Sides: 4, Modifier: -7}.Mean(), 1e-9)
}

func TestRollDieRange(t *testing.T) {
	roller := NewRoller(NewSource(42))
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		v, err := roller.RollDie(6)
		require.NoError(t, err)
		if v < 1 || v > 6 {
			t.Fatalf("RollDie(6) = %d, out of range", v)
		}
		seen[v] = true
	}
	assert.Len(t, seen, 6, "every face should appear over 2000 rolls")
}

func TestRollDieRejectsNonPositiveSides(t *testing.T) {
	roller := NewRoller(NewSource(1))
	_, err := roller.RollDie(0)
	require.ErrorIs(t, err, ErrMalformedDiceNotation)
	_, err = roller.RollDie(-4)
	require.ErrorIs(t, err, ErrMalformedDiceNotation)
}

func TestRollNotationSumsFacesAndModifier(t *testing.T) {
	roller := NewRoller(NewScriptedSource(8))
	roll, err := roller.RollNotation("1d8+3")
	require.NoError(t, err)
	assert.Equal(t, []int{8}, roll.Faces)
	assert.Equal(t, 11, roll.Total)

	roller = NewRoller(NewScriptedSource(1, 1))
	roll, err = roller.RollNotation("2d4-5")
	require.NoError(t, err)
	assert.Equal(t, -3, roll.Total, "the roller does not clamp; callers do")
}

func TestRollNotationIsDeterministicForSeed(t *testing.T) {
	a, err := NewRoller(NewSource(7)).RollNotation("4d6")
	require.NoError(t, err)
	b, err := NewRoller(NewSource(7)).RollNotation("4d6")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestScriptedSourcePanicsOnBadScript(t *testing.T) {
	src := NewScriptedSource(7)
	assert.Panics(t, func() { src.Intn(6) })

	src = NewScriptedSource()
	assert.Panics(t, func() { src.Intn(20) })
}

func TestNewSeed(t *testing.T) {
	_, err := NewSeed()
	require.NoError(t, err)
}
