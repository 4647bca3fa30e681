package models

import "time"

// BackupRecord describes one successfully dumped database. Its absence for a
// selected database means the restore phase skips that database.
type BackupRecord struct {
	Database  string
	Path      string
	SizeBytes int64
}

// DumpResult holds the result of a single pg_dump invocation.
type DumpResult struct {
	Database   string
	OutputPath string
	SizeBytes  int64
	Duration   time.Duration
	Error      error
}

// RestoreOutcome holds the per-database result of the restore phase.
type RestoreOutcome struct {
	Database string
	Restored bool
	Error    error
}

// MigrationSummary is what the final report is rendered from.
type MigrationSummary struct {
	BackupDir string
	Backups   []BackupRecord
	Restores  []RestoreOutcome
	Target    TargetConfig
	State     ContainerState
	Duration  time.Duration
}
