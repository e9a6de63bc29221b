package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/pixelarena/arena-server-go/internal/game/character"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS characters (
	name            TEXT PRIMARY KEY COLLATE NOCASE,
	max_hit_points  INTEGER NOT NULL,
	armor_class     INTEGER NOT NULL,
	attack_bonus    INTEGER NOT NULL,
	base_damage_die TEXT NOT NULL,
	melee_die       TEXT NOT NULL DEFAULT '',
	ranged_die      TEXT NOT NULL DEFAULT '',
	abilities       TEXT NOT NULL DEFAULT '[]'
)`

const selectColumns = `name, max_hit_points, armor_class, attack_bonus, base_damage_die, melee_die, ranged_die, abilities`

// SQLiteStore reads characters from a local SQLite file, for development.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the character database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// An in-memory database lives only as long as its single connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Seed inserts or replaces characters. It exists for development setup;
// battles never call it.
func (s *SQLiteStore) Seed(ctx context.Context, characters ...*character.Combatant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range characters {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		r, err := rowFromCombatant(c)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO characters (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.name, r.maxHitPoints, r.armorClass, r.attackBonus, r.baseDamageDie, r.meleeDie, r.rangedDie, r.abilities,
		)
		if err != nil {
			return fmt.Errorf("seed %q: %w", c.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// GetCharacter loads one character by name, case-insensitively.
func (s *SQLiteStore) GetCharacter(ctx context.Context, name string) (*character.Combatant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var r row
	err := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM characters WHERE name = ?`, strings.TrimSpace(name),
	).Scan(&r.name, &r.maxHitPoints, &r.armorClass, &r.attackBonus, &r.baseDamageDie, &r.meleeDie, &r.rangedDie, &r.abilities)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrCharacterNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get character %q: %w", name, err)
	}
	return r.combatant()
}

// ListCharacters loads every character sorted by name.
func (s *SQLiteStore) ListCharacters(ctx context.Context) ([]*character.Combatant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM characters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var out []*character.Combatant
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.name, &r.maxHitPoints, &r.armorClass, &r.attackBonus, &r.baseDamageDie, &r.meleeDie, &r.rangedDie, &r.abilities); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		c, err := r.combatant()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	return out, nil
}
