package game

import (
	"fmt"
	"strings"

	"github.com/pixelarena/arena-server-go/internal/game/combat"
)

// describeOutcome renders the raw event text handed to the narrator.
// Heals report the hit points actually restored by change.
func describeOutcome(actor, target string, outcome combat.Outcome, change HPChange, victor string) string {
	var b strings.Builder
	switch o := outcome.(type) {
	case *combat.AttackOutcome:
		name := "attacks"
		if o.Ability != "" {
			name = "uses " + o.Ability + " on"
		}
		switch {
		case len(o.Swings) == 1 && o.Swings[0].Hit:
			fmt.Fprintf(&b, "%s %s %s and hits for %d damage.", actor, name, target, o.TotalDamage)
		case len(o.Swings) == 1:
			fmt.Fprintf(&b, "%s %s %s and misses (%d to hit).", actor, name, target, o.Swings[0].ToHitTotal)
		default:
			fmt.Fprintf(&b, "%s %s %s: %d of %d strikes land for %d damage.", actor, name, target, o.Hits(), len(o.Swings), o.TotalDamage)
		}
	case *combat.HealOutcome:
		fmt.Fprintf(&b, "%s casts %s on %s, restoring %d hit points.", actor, o.Ability, target, change.Delta())
	}
	if change.Downed {
		fmt.Fprintf(&b, " %s falls.", target)
	}
	if victor != "" {
		fmt.Fprintf(&b, " %s is victorious!", victor)
	}
	return b.String()
}
