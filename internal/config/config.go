// Package config loads SQLDraw's configuration: defaults layered under a
// project config file layered under environment variables, the same
// three-tier precedence the teacher's own config package uses.
package config

import "time"

// Config is SQLDraw's complete configuration surface.
type Config struct {
	Sandbox SandboxConfig `yaml:"sandbox" mapstructure:"sandbox"`
	Live    LiveConfig    `yaml:"live" mapstructure:"live"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
}

// SandboxConfig configures the SQLite sandbox's schema inference and seeding.
type SandboxConfig struct {
	Seed            int64    `yaml:"seed" mapstructure:"seed"`
	MaxRowsPerTable int      `yaml:"max_rows_per_table" mapstructure:"max_rows_per_table"`
	IgnoreTables    []string `yaml:"ignore_tables" mapstructure:"ignore_tables"`
}

// LiveConfig configures the live rollback executor.
type LiveConfig struct {
	StatementTimeout time.Duration `yaml:"statement_timeout" mapstructure:"statement_timeout"`
	SystemDatabases  []string      `yaml:"system_databases" mapstructure:"system_databases"`
}

// WatchConfig configures the `watch` subcommand's file-change loop.
type WatchConfig struct {
	Ignore []string `yaml:"ignore" mapstructure:"ignore"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Sandbox: SandboxConfig{
			Seed:            42,
			MaxRowsPerTable: 12,
			IgnoreTables:    []string{"#*"},
		},
		Live: LiveConfig{
			StatementTimeout: 30 * time.Second,
			SystemDatabases:  []string{"master", "model", "msdb", "tempdb"},
		},
		Watch: WatchConfig{
			Ignore: []string{
				".git/**",
				"node_modules/**",
				"*.bak",
				"*.tmp",
			},
		},
	}
}
