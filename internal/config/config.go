// Package config provides Viper-based configuration loading for the
// survivors simulation server and tools.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/survivors/internal/game/sim"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig selects where meta profiles are kept.
type StorageConfig struct {
	// Driver is "memory", "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SimulationConfig tunes the simulation loop.
type SimulationConfig struct {
	// TickRate is the number of fixed ticks per second the host runs.
	TickRate    int           `mapstructure:"tick_rate"`
	MaxDelta    time.Duration `mapstructure:"max_delta"`
	ViewWidth   float64       `mapstructure:"view_width"`
	ViewHeight  float64       `mapstructure:"view_height"`
	FieldMargin float64       `mapstructure:"field_margin"`
	// Seed fixes every random draw when non-zero.
	Seed            uint64 `mapstructure:"seed"`
	WeaponSlots     int    `mapstructure:"weapon_slots"`
	PassiveSlots    int    `mapstructure:"passive_slots"`
	UpgradeOptions  int    `mapstructure:"upgrade_options"`
	ScriptInstLimit int    `mapstructure:"script_instruction_limit"`
}

// TickInterval returns the wall-clock interval between ticks.
//
// Precondition: TickRate > 0.
func (s SimulationConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(s.TickRate)
}

// SimConfig overlays these settings on sim.DefaultConfig.
func (s SimulationConfig) SimConfig() sim.Config {
	cfg := sim.DefaultConfig()
	if s.MaxDelta > 0 {
		cfg.MaxDelta = s.MaxDelta
	}
	if s.ViewWidth > 0 {
		cfg.ViewWidth = s.ViewWidth
	}
	if s.ViewHeight > 0 {
		cfg.ViewHeight = s.ViewHeight
	}
	if s.FieldMargin > 0 {
		cfg.FieldMargin = s.FieldMargin
	}
	if s.WeaponSlots > 0 {
		cfg.Player.WeaponSlots = s.WeaponSlots
	}
	if s.PassiveSlots > 0 {
		cfg.Player.PassiveSlots = s.PassiveSlots
	}
	if s.UpgradeOptions > 0 {
		cfg.Progression.Options = s.UpgradeOptions
	}
	return cfg
}

// ContentConfig locates the content tables and names the run defaults.
type ContentConfig struct {
	// Root holds weapons/, passives/, enemies/, stages/, characters/ and the
	// evolution and shop tables.
	Root string `mapstructure:"root"`
	// ScriptsDir holds one directory of Lua hooks per stage.
	ScriptsDir       string `mapstructure:"scripts_dir"`
	DefaultCharacter string `mapstructure:"default_character"`
	DefaultStage     string `mapstructure:"default_stage"`
}

// GameServerConfig holds the network surfaces of the simulation host.
type GameServerConfig struct {
	// GRPCHost and GRPCPort bind the RunService.
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
	// WebHost and WebPort bind the websocket viewer.
	WebHost string `mapstructure:"web_host"`
	WebPort int    `mapstructure:"web_port"`
	// OutboxSize is the per-session buffer of frames awaiting viewers.
	OutboxSize int `mapstructure:"outbox_size"`
	// SnapshotInterval is how often viewers receive a full snapshot.
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	// AllowedOrigins lists the browser origins, besides the viewer's own,
	// that may open a websocket. "*" admits any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the "host:port" gRPC address.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// WebAddr returns the "host:port" websocket address.
func (g GameServerConfig) WebAddr() string {
	return fmt.Sprintf("%s:%d", g.WebHost, g.WebPort)
}

// Config is the top-level application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Content    ContentConfig    `mapstructure:"content"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Driver == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	switch s.Driver {
	case "memory", "postgres":
		return nil
	case "sqlite":
		if s.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path must not be empty for the sqlite driver")
		}
		return nil
	}
	return fmt.Errorf("storage.driver must be one of [memory, sqlite, postgres], got %q", s.Driver)
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.TickRate < 1 || s.TickRate > 1000 {
		errs = append(errs, fmt.Sprintf("simulation.tick_rate must be 1-1000, got %d", s.TickRate))
	}
	if s.MaxDelta < 0 {
		errs = append(errs, "simulation.max_delta must not be negative")
	}
	if s.ViewWidth < 0 || s.ViewHeight < 0 {
		errs = append(errs, "simulation.view_width and view_height must not be negative")
	}
	if s.WeaponSlots < 0 || s.PassiveSlots < 0 {
		errs = append(errs, "simulation slot counts must not be negative")
	}
	if s.UpgradeOptions < 0 {
		errs = append(errs, fmt.Sprintf("simulation.upgrade_options must be >= 0, got %d", s.UpgradeOptions))
	}
	if s.ScriptInstLimit < 0 {
		errs = append(errs, "simulation.script_instruction_limit must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.Root == "" {
		errs = append(errs, "content.root must not be empty")
	}
	if c.DefaultCharacter == "" {
		errs = append(errs, "content.default_character must not be empty")
	}
	if c.DefaultStage == "" {
		errs = append(errs, "content.default_stage must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.WebPort < 0 || g.WebPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.web_port must be 0-65535, got %d", g.WebPort))
	}
	if g.OutboxSize < 1 {
		errs = append(errs, fmt.Sprintf("gameserver.outbox_size must be >= 1, got %d", g.OutboxSize))
	}
	if g.SnapshotInterval <= 0 {
		errs = append(errs, "gameserver.snapshot_interval must be > 0")
	}
	for _, o := range g.AllowedOrigins {
		if o != "*" && !strings.Contains(o, "://") {
			errs = append(errs, fmt.Sprintf("gameserver.allowed_origins entry %q must be \"*\" or scheme://host[:port]", o))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result. An empty path uses
// defaults and the environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SURVIVORS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "survivors")
	v.SetDefault("database.password", "survivors")
	v.SetDefault("database.name", "survivors")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite_path", "survivors.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("simulation.tick_rate", 60)
	v.SetDefault("simulation.max_delta", "100ms")
	v.SetDefault("simulation.view_width", 1280)
	v.SetDefault("simulation.view_height", 720)
	v.SetDefault("simulation.field_margin", 200)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.weapon_slots", 6)
	v.SetDefault("simulation.passive_slots", 6)
	v.SetDefault("simulation.upgrade_options", 3)
	v.SetDefault("simulation.script_instruction_limit", 100000)

	v.SetDefault("content.root", "content")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.default_character", "antonio")
	v.SetDefault("content.default_stage", "mad_forest")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
	v.SetDefault("gameserver.web_host", "127.0.0.1")
	v.SetDefault("gameserver.web_port", 8080)
	v.SetDefault("gameserver.outbox_size", 256)
	v.SetDefault("gameserver.snapshot_interval", "100ms")
	v.SetDefault("gameserver.allowed_origins", []string{})
}
