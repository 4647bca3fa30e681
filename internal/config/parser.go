// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fgeck/pgshift/internal/models"
	"github.com/spf13/viper"
)

// DefaultImage is the container image used when the config does not name one.
const DefaultImage = "postgres:16"

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.MigrationConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.MigrationConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.MigrationConfig, error) {
	cfg := &models.MigrationConfig{}

	// Parse remote connection (required).
	cfg.Remote = models.ConnectionConfig{
		Host:     p.v.GetString("remote.host"),
		Port:     p.v.GetInt("remote.port"),
		Database: p.v.GetString("remote.database"),
		Username: p.v.GetString("remote.username"),
		Password: p.expandEnv(p.v.GetString("remote.password")),
	}

	if cfg.Remote.Host == "" {
		return nil, fmt.Errorf("remote.host is required")
	}
	if cfg.Remote.Port == 0 {
		cfg.Remote.Port = 5432
	}
	if cfg.Remote.Database == "" {
		cfg.Remote.Database = "postgres"
	}
	if cfg.Remote.Username == "" {
		cfg.Remote.Username = "postgres"
	}
	if cfg.Remote.Password == "" {
		return nil, fmt.Errorf("remote.password is required")
	}

	// Parse target container settings (password required).
	cfg.Target = models.TargetConfig{
		ContainerName: p.v.GetString("target.container_name"),
		Port:          p.v.GetInt("target.port"),
		Database:      p.v.GetString("target.database"),
		Password:      p.expandEnv(p.v.GetString("target.password")),
		Image:         p.v.GetString("target.image"),
		DataPath:      p.expandEnv(p.v.GetString("target.data_path")),
		OnConflict:    models.ConflictPolicy(p.v.GetString("target.on_conflict")),
	}

	if cfg.Target.ContainerName == "" {
		cfg.Target.ContainerName = "pgshift-target"
	}
	if cfg.Target.Port == 0 {
		cfg.Target.Port = 5433
	}
	if cfg.Target.Database == "" {
		cfg.Target.Database = "postgres"
	}
	if cfg.Target.Password == "" {
		return nil, fmt.Errorf("target.password is required")
	}
	if cfg.Target.Image == "" {
		cfg.Target.Image = DefaultImage
	}
	if cfg.Target.OnConflict == "" {
		cfg.Target.OnConflict = models.ConflictAsk
	}

	validConflict := map[models.ConflictPolicy]bool{
		models.ConflictAsk:     true,
		models.ConflictReplace: true,
		models.ConflictReuse:   true,
		models.ConflictAbort:   true,
	}
	if !validConflict[cfg.Target.OnConflict] {
		return nil, fmt.Errorf("target.on_conflict must be one of: ask, replace, reuse, abort")
	}

	// Backup directory defaults to a timestamped directory under cwd.
	cfg.BackupDir = p.expandEnv(p.v.GetString("backup_dir"))
	if cfg.BackupDir == "" {
		cfg.BackupDir = DefaultBackupDir()
	}

	cfg.Selection = p.v.GetString("selection")

	cfg.ClientMode = models.ClientMode(p.v.GetString("client_mode"))
	if cfg.ClientMode == "" {
		cfg.ClientMode = models.ClientModeAuto
	}
	validMode := map[models.ClientMode]bool{
		models.ClientModeAuto:      true,
		models.ClientModeNative:    true,
		models.ClientModeContainer: true,
	}
	if !validMode[cfg.ClientMode] {
		return nil, fmt.Errorf("client_mode must be one of: auto, native, container")
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// DefaultBackupDir returns the timestamped default backup directory.
func DefaultBackupDir() string {
	return filepath.Join(".", fmt.Sprintf("pgshift-backup-%s", time.Now().Format("20060102-150405")))
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.MigrationConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Remote.Host == "" {
		return fmt.Errorf("remote.host is required")
	}
	if cfg.Remote.Password == "" {
		return fmt.Errorf("remote.password is required")
	}
	if cfg.Target.Password == "" {
		return fmt.Errorf("target.password is required")
	}
	if cfg.Remote.Host == "localhost" && cfg.Remote.Port == cfg.Target.Port {
		return fmt.Errorf("remote and target cannot share localhost:%d", cfg.Target.Port)
	}

	return nil
}
