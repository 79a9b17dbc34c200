package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	vgerrors "github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

// EnvPrefix is prepended to every environment variable vaultgit reads.
const EnvPrefix = "VAULTGIT_"

// Settings holds per-process options: where the vault and its record live,
// and how the process reports what it does. The scheduling state itself is
// in Record.
type Settings struct {
	// VaultPath is the root of the tracked tree. Empty means the current
	// working directory, or the vault_path stored in the record.
	VaultPath string

	// ConfigFile is the TOML record. Empty means the per-vault default
	// under $XDG_CONFIG_HOME/vaultgit.
	ConfigFile string

	// Verbose echoes warnings to stdout.
	Verbose bool

	// Debug enables the JSON log file.
	Debug bool

	// LogFile overrides the default log location under $XDG_DATA_HOME.
	LogFile string

	// NonInteractive disables terminal prompts.
	NonInteractive bool

	VersionInfo VersionInfo
}

// VersionInfo contains build-time version metadata.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewSettings returns settings holding the defaults.
func NewSettings() *Settings {
	return &Settings{
		Verbose: true,
		VersionInfo: VersionInfo{
			Version: "dev",
			Commit:  "unknown",
			Date:    "unknown",
		},
	}
}

// LoadFromEnvironment overrides settings from VAULTGIT_* variables.
func (s *Settings) LoadFromEnvironment() {
	s.VaultPath = getEnvString("VAULT", s.VaultPath)
	s.ConfigFile = getEnvString("CONFIG", s.ConfigFile)
	s.Verbose = getEnvBool("VERBOSE", s.Verbose)
	s.Debug = getEnvBool("DEBUG", s.Debug)
	s.LogFile = getEnvString("LOG_FILE", s.LogFile)
	s.NonInteractive = getEnvBool("NON_INTERACTIVE", s.NonInteractive)
}

// BindFlags registers the persistent command-line flags. Flags take
// precedence over the environment, so call LoadFromEnvironment first.
func (s *Settings) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&s.VaultPath, "vault", "C", s.VaultPath, "Path to the vault (default: current directory)")
	fs.StringVar(&s.ConfigFile, "config", s.ConfigFile, "Path to the settings file (default: $XDG_CONFIG_HOME/vaultgit/vault-{hash}.toml)")
	fs.BoolVarP(&s.Verbose, "verbose", "v", s.Verbose, "Show warnings on stdout")
	fs.BoolVar(&s.Debug, "debug", s.Debug, "Write a JSON debug log")
	fs.StringVar(&s.LogFile, "log-file", s.LogFile, "Path to log file (default: $XDG_DATA_HOME/vaultgit/logs/vaultgit-{hash}.log)")
	fs.BoolVar(&s.NonInteractive, "non-interactive", s.NonInteractive, "Never prompt on the terminal")
}

// Finalize resolves the vault path and derives the settings and log
// locations from it.
func (s *Settings) Finalize() error {
	if s.VaultPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return vgerrors.NewConfigError("vault", "", vgerrors.Wrap(err, "failed to get current directory"))
		}
		s.VaultPath = wd
	}

	abs, err := filepath.Abs(s.VaultPath)
	if err != nil {
		return vgerrors.NewConfigError("vault", s.VaultPath, vgerrors.Wrap(err, "failed to resolve absolute path"))
	}
	s.VaultPath = abs

	hash := vaultHash(s.VaultPath)

	if s.ConfigFile == "" {
		s.ConfigFile = filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "vaultgit", fmt.Sprintf("vault-%s.toml", hash))
	}

	if s.Debug && s.LogFile == "" {
		s.LogFile = filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "vaultgit", "logs", fmt.Sprintf("vaultgit-%s.log", hash))
		if err := os.MkdirAll(filepath.Dir(s.LogFile), 0o700); err != nil {
			return vgerrors.NewConfigError("log-file", s.LogFile, vgerrors.Wrap(err, "cannot create log directory"))
		}
	}

	return nil
}

// xdgDir returns $env, or $HOME/fallback, or the temp dir.
func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, fallback)
	}
	return os.TempDir()
}

func vaultHash(path string) string {
	sum := sha256.Sum256([]byte(path))
	return fmt.Sprintf("%x", sum[:8])
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(EnvPrefix + key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(EnvPrefix + key); exists {
		switch strings.ToLower(valueStr) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}
