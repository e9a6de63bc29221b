package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pixelarena/arena-server-go/internal/game/character"
)

// abilities is JSONB in Postgres; it is read back as text.
const pgSelectColumns = `name, max_hit_points, armor_class, attack_bonus, base_damage_die, melee_die, ranged_die, abilities::text`

// PostgresStore reads characters from the shared Postgres database. The
// table is loaded out of band by scripts/import_characters.go.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects and pings the database.
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("character store connected", zap.String("driver", "postgres"))
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// GetCharacter loads one character by name, case-insensitively.
func (s *PostgresStore) GetCharacter(ctx context.Context, name string) (*character.Combatant, error) {
	var r row
	err := s.pool.QueryRow(ctx,
		`SELECT `+pgSelectColumns+` FROM characters WHERE lower(name) = $1`, normalizeName(name),
	).Scan(&r.name, &r.maxHitPoints, &r.armorClass, &r.attackBonus, &r.baseDamageDie, &r.meleeDie, &r.rangedDie, &r.abilities)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrCharacterNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get character %q: %w", strings.TrimSpace(name), err)
	}
	return r.combatant()
}

// ListCharacters loads every character sorted by name. Rows that fail
// validation are logged and skipped.
func (s *PostgresStore) ListCharacters(ctx context.Context) ([]*character.Combatant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgSelectColumns+` FROM characters ORDER BY name`)
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
			s.logger.Warn("skipping invalid character", zap.String("name", r.name), zap.Error(err))
			continue
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	return out, nil
}
