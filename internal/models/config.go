// Package models contains the data structures used throughout pgshift.
package models

// MigrationConfig holds the complete configuration for a migration run.
type MigrationConfig struct {
	Remote     ConnectionConfig
	Target     TargetConfig
	BackupDir  string
	Selection  string     // "" = prompt, "all", or comma-separated 1-based indices
	ClientMode ClientMode // how psql/pg_dump are invoked
}

// ConnectionConfig holds the parameters for one PostgreSQL server.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string // initial database to connect to
	Username string
	Password string
}

// ClientMode selects how the PostgreSQL client tools are run.
type ClientMode string

// Client mode values.
const (
	ClientModeAuto      ClientMode = "auto"      // detect at preflight
	ClientModeNative    ClientMode = "native"    // psql/pg_dump on PATH
	ClientModeContainer ClientMode = "container" // tools via docker run
)

// ConflictPolicy decides what to do when the target container already exists.
type ConflictPolicy string

// Conflict policy values. Ask defers the decision to an interactive prompt.
const (
	ConflictAsk     ConflictPolicy = "ask"
	ConflictReplace ConflictPolicy = "replace"
	ConflictReuse   ConflictPolicy = "reuse"
	ConflictAbort   ConflictPolicy = "abort"
)

// TargetConfig holds the local container target configuration.
type TargetConfig struct {
	ContainerName string
	Port          int
	Database      string // initial database created by the image
	Password      string // superuser password
	Image         string
	DataPath      string // optional host path for persistent storage; "" = ephemeral
	OnConflict    ConflictPolicy
}
