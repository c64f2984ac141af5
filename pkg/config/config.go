package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// FileName is the config file inside a profile directory.
	FileName = "config.toml"
	// ManifestFileName lists the channels a running daemon answers.
	ManifestFileName = "channels.json"
)

// IPCConfig defines socket settings.
type IPCConfig struct {
	SocketPath string `toml:"socketPath" env:"TALKLINER_SOCKET" env-default:"ipc.sock" validate:"required"`
}

// HTTPConfig defines the web host serving the embedded UI.
type HTTPConfig struct {
	Enabled     bool   `toml:"enabled" env:"TALKLINER_HTTP_ENABLED" env-default:"false"`
	Listen      string `toml:"listen" env:"TALKLINER_HTTP_LISTEN" env-default:"127.0.0.1:8000" validate:"omitempty,hostname_port"`
	StaticDir   string `toml:"staticDir" env:"TALKLINER_HTTP_STATIC_DIR"`
	AllowOrigin string `toml:"allowOrigin" env:"TALKLINER_HTTP_ALLOW_ORIGIN" env-default:"*"`
}

// JournalConfig defines the call history store.
type JournalConfig struct {
	Enabled bool   `toml:"enabled" env:"TALKLINER_JOURNAL_ENABLED"`
	DBPath  string `toml:"dbPath" env:"TALKLINER_JOURNAL_DB" env-default:"journal.db" validate:"required_if=Enabled true"`
}

// LoggingConfig defines basic logging knobs.
type LoggingConfig struct {
	Level       string `toml:"level" env:"TALKLINER_LOG_LEVEL" env-default:"info" validate:"omitempty,oneof=debug info warn error"`
	FilePath    string `toml:"filePath" env:"TALKLINER_LOG_FILE"`
	FileMaxSize int    `toml:"fileMaxSizeMB" env:"TALKLINER_LOG_MAX_MB" validate:"gte=0"`
}

// ProfileConfig aggregates service configuration for a profile.
type ProfileConfig struct {
	ProfileName string        `toml:"profileName" env:"TALKLINER_PROFILE_NAME" validate:"required"`
	IPC         IPCConfig     `toml:"ipc"`
	HTTP        HTTPConfig    `toml:"http"`
	Journal     JournalConfig `toml:"journal"`
	Logging     LoggingConfig `toml:"logging"`
}

var validate = validator.New()

// DefaultProfile returns a config with the stock settings.
func DefaultProfile(name string) *ProfileConfig {
	return &ProfileConfig{
		ProfileName: name,
		IPC:         IPCConfig{SocketPath: "ipc.sock"},
		HTTP: HTTPConfig{
			Listen:      "127.0.0.1:8000",
			StaticDir:   "www",
			AllowOrigin: "*",
		},
		Journal: JournalConfig{Enabled: true, DBPath: "journal.db"},
		Logging: LoggingConfig{Level: "info", FileMaxSize: 10},
	}
}

// Load reads a config file, applying environment overrides.
func Load(path string) (*ProfileConfig, error) {
	var cfg ProfileConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadProfile reads config.toml from a profile directory.
func LoadProfile(dir string) (*ProfileConfig, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return Load(path)
}

// LoadOrDefault loads config.toml from dir. When the file is missing it
// starts from DefaultProfile(name) and still applies environment overrides.
// found reports whether the file existed.
func LoadOrDefault(dir, name string) (cfg *ProfileConfig, found bool, err error) {
	cfg, err = LoadProfile(dir)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}
	cfg = DefaultProfile(name)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// Save writes cfg as TOML.
func Save(path string, cfg *ProfileConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Validate checks required fields.
func (cfg *ProfileConfig) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ResolvePath makes p absolute relative to the profile directory.
func ResolvePath(profileDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(profileDir, p)
}
