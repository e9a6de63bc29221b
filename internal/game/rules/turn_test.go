package rules

import "testing"

func TestTurnManagerRotatesAlternatingSides(t *testing.T) {
	tm := NewTurnManager([]Role{RoleSupport2, RolePrimary2, RolePrimary1, RoleSupport1})
	if tm.Current() != RolePrimary1 {
		t.Fatalf("expected primary1 to start, got %s", tm.Current())
	}

	want := []Role{RolePrimary2, RoleSupport1, RoleSupport2, RolePrimary1, RolePrimary2}
	acting := tm.Current()
	for i, w := range want {
		next, ok := tm.Advance(acting)
		if !ok {
			t.Fatalf("advance %d: expected turn to switch", i)
		}
		if next != w {
			t.Fatalf("advance %d: expected %s, got %s", i, w, next)
		}
		acting = next
	}
	if tm.TurnNumber() != 6 {
		t.Fatalf("expected turn number 6, got %d", tm.TurnNumber())
	}
}

func TestTurnManagerSkipsRemovedRoles(t *testing.T) {
	tm := NewTurnManager(RotationOrder)
	tm.Remove(RoleSupport1)

	next, ok := tm.Advance(RolePrimary2)
	if !ok || next != RoleSupport2 {
		t.Fatalf("expected support2 after primary2 with support1 removed, got %s (%v)", next, ok)
	}
	for _, r := range tm.Order() {
		if r == RoleSupport1 {
			t.Fatal("support1 should be out of rotation")
		}
	}
}

func TestTurnManagerTwoCombatants(t *testing.T) {
	tm := NewTurnManager([]Role{RolePrimary1, RolePrimary2})
	next, _ := tm.Advance(RolePrimary1)
	if next != RolePrimary2 {
		t.Fatalf("expected primary2, got %s", next)
	}
	next, _ = tm.Advance(RolePrimary2)
	if next != RolePrimary1 {
		t.Fatalf("expected primary1, got %s", next)
	}
}

func TestTurnManagerStopsWhenOneSideLeft(t *testing.T) {
	tm := NewTurnManager([]Role{RolePrimary1, RolePrimary2, RoleSupport1})
	tm.Remove(RolePrimary2)

	cur := tm.Current()
	if _, ok := tm.Advance(RolePrimary1); ok {
		t.Fatal("expected no switch with a single side in rotation")
	}
	if tm.Current() != cur {
		t.Fatalf("turn must not move, got %s", tm.Current())
	}
}

func TestRoleRelations(t *testing.T) {
	if RoleSupport1.Opponent() != RolePrimary2 || RolePrimary2.Opponent() != RolePrimary1 {
		t.Fatal("unexpected opponent mapping")
	}
	if !RolePrimary1.Allies(RoleSupport1) || RolePrimary1.Allies(RoleSupport2) {
		t.Fatal("unexpected ally mapping")
	}
	if _, err := ParseRole(" Support2 "); err != nil {
		t.Fatalf("ParseRole: %v", err)
	}
	if _, err := ParseRole("bench"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
