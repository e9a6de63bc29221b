// Package config loads server configuration from a YAML file and ARENA_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
)

// EnvPrefix prefixes every environment override, e.g. ARENA_SERVER_ADDRESS.
const EnvPrefix = "ARENA"

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Match     MatchConfig     `mapstructure:"match"`
	Narration NarrationConfig `mapstructure:"narration"`
	Store     StoreConfig     `mapstructure:"store"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig configures the HTTP/websocket listener.
type ServerConfig struct {
	Address           string        `mapstructure:"address"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	MaxMatches        int           `mapstructure:"max_matches"`
}

// MatchConfig configures the default match a client starts.
type MatchConfig struct {
	// Roster maps a role to a character name in the store.
	Roster map[string]string `mapstructure:"roster"`
	// AttackModes maps a role to melee, ranged or base.
	AttackModes map[string]string `mapstructure:"attack_modes"`
	// AIRoles lists the roles the planner controls.
	AIRoles  []string `mapstructure:"ai_roles"`
	LogLimit int      `mapstructure:"log_limit"`
	// Seed fixes the dice source; 0 seeds from crypto/rand.
	Seed int64 `mapstructure:"seed"`
}

// NarrationConfig configures the OpenAI-compatible narration endpoint.
type NarrationConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// StoreConfig selects the character store.
type StoreConfig struct {
	Driver     string            `mapstructure:"driver"`
	Path       string            `mapstructure:"path"`
	DSN        string            `mapstructure:"dsn"`
	Characters []character.Sheet `mapstructure:"characters"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.max_matches", 100)

	v.SetDefault("match.roster", map[string]string{})
	v.SetDefault("match.attack_modes", map[string]string{})
	v.SetDefault("match.ai_roles", []string{})
	v.SetDefault("match.log_limit", 200)
	v.SetDefault("match.seed", 0)

	v.SetDefault("narration.enabled", false)
	v.SetDefault("narration.base_url", "")
	v.SetDefault("narration.api_key", "")
	v.SetDefault("narration.model", "")
	v.SetDefault("narration.system_prompt", "")
	v.SetDefault("narration.timeout", 8*time.Second)
	v.SetDefault("narration.max_retries", 1)

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.path", "")
	v.SetDefault("store.dsn", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arena-server")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads path (skipped when empty), applies ARENA_* overrides and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Address) == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.MaxMatches <= 0 {
		errs = append(errs, errors.New("server.max_matches must be positive"))
	}

	if len(c.Match.Roster) > 0 {
		if _, err := c.Match.RosterRoles(); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := c.Match.Modes(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Match.AIControlled(); err != nil {
		errs = append(errs, err)
	}
	if c.Match.LogLimit < 0 {
		errs = append(errs, errors.New("match.log_limit must not be negative"))
	}

	if c.Narration.Enabled {
		if strings.TrimSpace(c.Narration.BaseURL) == "" {
			errs = append(errs, errors.New("narration.base_url is required when narration is enabled"))
		}
		if strings.TrimSpace(c.Narration.Model) == "" {
			errs = append(errs, errors.New("narration.model is required when narration is enabled"))
		}
		if c.Narration.Timeout <= 0 {
			errs = append(errs, errors.New("narration.timeout must be positive"))
		}
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			errs = append(errs, errors.New("store.path is required for sqlite"))
		}
	case StorePostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			errs = append(errs, errors.New("store.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		errs = append(errs, errors.New("telemetry.service_name is required when telemetry is enabled"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry.sample_ratio must be within 0..1"))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.format %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RosterRoles parses the configured roster. Both primaries are required.
func (m MatchConfig) RosterRoles() (map[rules.Role]string, error) {
	out := make(map[rules.Role]string, len(m.Roster))
	for key, name := range m.Roster {
		role, err := rules.ParseRole(key)
		if err != nil {
			return nil, fmt.Errorf("match.roster: %w", err)
		}
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("match.roster.%s: character name is required", role)
		}
		out[role] = name
	}
	for _, r := range []rules.Role{rules.RolePrimary1, rules.RolePrimary2} {
		if _, ok := out[r]; !ok {
			return nil, fmt.Errorf("match.roster: %s is required", r)
		}
	}
	return out, nil
}

// Modes parses the per-role basic attack modes.
func (m MatchConfig) Modes() (map[rules.Role]character.AttackMode, error) {
	out := make(map[rules.Role]character.AttackMode, len(m.AttackModes))
	for key, raw := range m.AttackModes {
		role, err := rules.ParseRole(key)
		if err != nil {
			return nil, fmt.Errorf("match.attack_modes: %w", err)
		}
		mode, err := character.ParseAttackMode(raw)
		if err != nil {
			return nil, fmt.Errorf("match.attack_modes.%s: %w", role, err)
		}
		out[role] = mode
	}
	return out, nil
}

// AIControlled parses the planner-controlled roles.
func (m MatchConfig) AIControlled() (map[rules.Role]bool, error) {
	out := make(map[rules.Role]bool, len(m.AIRoles))
	for _, raw := range m.AIRoles {
		role, err := rules.ParseRole(raw)
		if err != nil {
			return nil, fmt.Errorf("match.ai_roles: %w", err)
		}
		out[role] = true
	}
	return out, nil
}
