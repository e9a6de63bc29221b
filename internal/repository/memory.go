package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pixelarena/arena-server-go/internal/game/character"
)

// MemoryStore serves characters seeded from configuration.
type MemoryStore struct {
	mu         sync.RWMutex
	characters map[string]*character.Combatant
}

// NewMemoryStore validates and indexes the given sheets by name.
func NewMemoryStore(sheets []character.Sheet) (*MemoryStore, error) {
	s := &MemoryStore{characters: make(map[string]*character.Combatant, len(sheets))}
	for _, sheet := range sheets {
		c, err := character.FromSheet(sheet)
		if err != nil {
			return nil, fmt.Errorf("seed character store: %w", err)
		}
		key := normalizeName(c.Name)
		if _, dup := s.characters[key]; dup {
			return nil, fmt.Errorf("seed character store: duplicate character %q", c.Name)
		}
		s.characters[key] = c
	}
	return s, nil
}

// GetCharacter returns a copy of the named character.
func (s *MemoryStore) GetCharacter(ctx context.Context, name string) (*character.Combatant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.characters[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCharacterNotFound, name)
	}
	return c.AtFullHealth(), nil
}

// ListCharacters returns copies of every character sorted by name.
func (s *MemoryStore) ListCharacters(ctx context.Context) ([]*character.Combatant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*character.Combatant, 0, len(s.characters))
	for _, c := range s.characters {
		out = append(out, c.AtFullHealth())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
