// Package dice implements dice-notation parsing and rolling for the battle engine.
package dice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedDiceNotation indicates a notation string or die size that cannot be rolled.
// It always points at bad ability or combatant data and must not be swallowed.
var ErrMalformedDiceNotation = errors.New("malformed dice notation")

// Limits on a single notation. Larger values are treated as bad data.
const (
	MaxCount    = 100
	MaxSides    = 1000
	MaxModifier = 1000
)

// Notation is a parsed dice expression such as "2d6+3".
type Notation struct {
	Count    int
	Sides    int
	Modifier int
}

// String renders the notation in canonical NdM[+/-K] form.
func (n Notation) String() string {
	switch {
	case n.Modifier > 0:
		return fmt.Sprintf("%dd%d+%d", n.Count, n.Sides, n.Modifier)
	case n.Modifier < 0:
		return fmt.Sprintf("%dd%d-%d", n.Count, n.Sides, -n.Modifier)
	default:
		return fmt.Sprintf("%dd%d", n.Count, n.Sides)
	}
}

// Mean returns the expected total of one roll.
func (n Notation) Mean() float64 {
	return float64(n.Count)*float64(n.Sides+1)/2 + float64(n.Modifier)
}

// Roll captures the audit trail of a single notation roll.
//
// Total == sum(Faces) + Modifier. Total may be negative; callers clamp
// where the value is applied.
type Roll struct {
	Notation Notation
	Faces    []int
	Modifier int
	Total    int
}

// String returns "2d6+3 -> [4 5] +3 = 12".
func (r Roll) String() string {
	return fmt.Sprintf("%s -> %v %+d = %d", r.Notation, r.Faces, r.Modifier, r.Total)
}

// ParseNotation parses NdM, NdM+K or NdM-K. The count defaults to 1 when
// omitted ("d20") and the modifier defaults to 0. Case and surrounding
// whitespace are ignored.
func ParseNotation(s string) (Notation, error) {
	raw := strings.ToLower(strings.Join(strings.Fields(s), ""))
	if raw == "" {
		return Notation{}, fmt.Errorf("%w: empty expression", ErrMalformedDiceNotation)
	}

	dIdx := strings.IndexByte(raw, 'd')
	if dIdx < 0 {
		return Notation{}, fmt.Errorf("%w: %q has no die separator", ErrMalformedDiceNotation, s)
	}

	count := 1
	if countPart := raw[:dIdx]; countPart != "" {
		n, err := strconv.Atoi(countPart)
		if err != nil || !isDigits(countPart) {
			return Notation{}, fmt.Errorf("%w: %q has invalid count", ErrMalformedDiceNotation, s)
		}
		count = n
	}

	rest := raw[dIdx+1:]
	modifier := 0
	sidesPart := rest
	if opIdx := strings.IndexAny(rest, "+-"); opIdx >= 0 {
		sidesPart = rest[:opIdx]
		modPart := rest[opIdx+1:]
		mod, err := strconv.Atoi(modPart)
		if err != nil || !isDigits(modPart) {
			return Notation{}, fmt.Errorf("%w: %q has invalid modifier", ErrMalformedDiceNotation, s)
		}
		if rest[opIdx] == '-' {
			mod = -mod
		}
		modifier = mod
	}

	sides, err := strconv.Atoi(sidesPart)
	if err != nil || !isDigits(sidesPart) {
		return Notation{}, fmt.Errorf("%w: %q has invalid sides", ErrMalformedDiceNotation, s)
	}
	if sides <= 0 {
		return Notation{}, fmt.Errorf("%w: %q must have positive sides", ErrMalformedDiceNotation, s)
	}
	if count <= 0 {
		return Notation{}, fmt.Errorf("%w: %q must roll at least one die", ErrMalformedDiceNotation, s)
	}
	if count > MaxCount || sides > MaxSides || modifier > MaxModifier || modifier < -MaxModifier {
		return Notation{}, fmt.Errorf("%w: %q exceeds %dd%d%+d", ErrMalformedDiceNotation, s, MaxCount, MaxSides, MaxModifier)
	}

	return Notation{Count: count, Sides: sides, Modifier: modifier}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Roller rolls dice against a Source. It holds no mutable state of its own,
// so it is safe for concurrent use whenever its Source is.
type Roller struct {
	src Source
}

// NewRoller wraps the provided source.
func NewRoller(src Source) Roller {
	return Roller{src: src}
}

// RollDie returns a uniform integer in [1, sides].
func (r Roller) RollDie(sides int) (int, error) {
	if sides <= 0 {
		return 0, fmt.Errorf("%w: die must have positive sides, got %d", ErrMalformedDiceNotation, sides)
	}
	return r.src.Intn(sides) + 1, nil
}

// RollNotation parses and rolls the expression.
func (r Roller) RollNotation(s string) (Roll, error) {
	n, err := ParseNotation(s)
	if err != nil {
		return Roll{}, err
	}
	return r.Roll(n), nil
}

// Roll rolls an already parsed notation.
func (r Roller) Roll(n Notation) Roll {
	faces := make([]int, n.Count)
	total := n.Modifier
	for i := range faces {
		faces[i] = r.src.Intn(n.Sides) + 1
		total += faces[i]
	}
	return Roll{
		Notation: n,
		Faces:    faces,
		Modifier: n.Modifier,
		Total:    total,
	}
}

// D20 rolls a single twenty-sided die.
func (r Roller) D20() int {
	return r.src.Intn(20) + 1
}
