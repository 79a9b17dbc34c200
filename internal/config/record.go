package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	vgerrors "github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

const (
	// DefaultMajorSaveThreshold is the number of saves that make a major save.
	DefaultMajorSaveThreshold = 2

	// DefaultMinCommitInterval is the minimum spacing between two commit+push runs.
	DefaultMinCommitInterval = 20 * time.Minute

	// DefaultCommitMessage is used for every automatic commit.
	DefaultCommitMessage = "automated commit"

	// DefaultShutdownGrace bounds how long the shutdown flush may take.
	DefaultShutdownGrace = 10 * time.Second
)

// SaveSchema selects when a save event leads to a commit.
type SaveSchema int

const (
	// MajorSave commits once every MajorSaveThreshold saves.
	MajorSave SaveSchema = iota
	// EverySave commits on every save, subject to the minimum interval.
	EverySave
	// CloseOnly never commits from save events; only the shutdown flush commits.
	CloseOnly
)

var saveSchemaNames = []string{"major-save", "every-save", "close-only"}

func (s SaveSchema) String() string {
	if s < 0 || int(s) >= len(saveSchemaNames) {
		return fmt.Sprintf("SaveSchema(%d)", int(s))
	}
	return saveSchemaNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s SaveSchema) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(saveSchemaNames) {
		return nil, fmt.Errorf("unknown save schema %d", int(s))
	}
	return []byte(saveSchemaNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SaveSchema) UnmarshalText(text []byte) error {
	v, err := ParseSaveSchema(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSaveSchema parses the textual form of a SaveSchema.
func ParseSaveSchema(name string) (SaveSchema, error) {
	for i, n := range saveSchemaNames {
		if strings.EqualFold(name, n) {
			return SaveSchema(i), nil
		}
	}
	return 0, fmt.Errorf("unknown save schema %q (want one of %s)", name, strings.Join(saveSchemaNames, ", "))
}

// SaveDepth selects what gets staged for a save event and where git runs.
type SaveDepth int

const (
	// WholeTree stages the entire vault.
	WholeTree SaveDepth = iota
	// FileOnly stages only the changed file.
	FileOnly
	// ParentDirectory stages everything under the changed file's directory.
	ParentDirectory
)

var saveDepthNames = []string{"whole-tree", "file-only", "parent-directory"}

func (d SaveDepth) String() string {
	if d < 0 || int(d) >= len(saveDepthNames) {
		return fmt.Sprintf("SaveDepth(%d)", int(d))
	}
	return saveDepthNames[d]
}

// MarshalText implements encoding.TextMarshaler.
func (d SaveDepth) MarshalText() ([]byte, error) {
	if d < 0 || int(d) >= len(saveDepthNames) {
		return nil, fmt.Errorf("unknown save depth %d", int(d))
	}
	return []byte(saveDepthNames[d]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *SaveDepth) UnmarshalText(text []byte) error {
	v, err := ParseSaveDepth(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseSaveDepth parses the textual form of a SaveDepth.
func ParseSaveDepth(name string) (SaveDepth, error) {
	for i, n := range saveDepthNames {
		if strings.EqualFold(name, n) {
			return SaveDepth(i), nil
		}
	}
	return 0, fmt.Errorf("unknown save depth %q (want one of %s)", name, strings.Join(saveDepthNames, ", "))
}

// Duration is a time.Duration stored as text ("20m0s") in the record.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Record is the persisted state shared by the scheduler, the lifecycle and
// the config command.
type Record struct {
	VaultPath          string     `toml:"vault_path" json:"vault_path"`
	SaveSchema         SaveSchema `toml:"save_schema" json:"save_schema"`
	SaveDepth          SaveDepth  `toml:"save_depth" json:"save_depth"`
	MajorSaveThreshold int        `toml:"major_save_threshold" json:"major_save_threshold"`
	EditCount          int        `toml:"edit_count" json:"edit_count"`
	MinCommitInterval  Duration   `toml:"min_commit_interval" json:"min_commit_interval"`
	LastCommitTime     time.Time  `toml:"last_commit_time" json:"last_commit_time"`
	PendingDeferral    int        `toml:"pending_deferral" json:"pending_deferral"`
	CommitMessage      string     `toml:"commit_message" json:"commit_message"`
	PushOnStartup      bool       `toml:"push_on_startup" json:"push_on_startup"`
	Extensions         []string   `toml:"extensions" json:"extensions"`
	ShutdownGrace      Duration   `toml:"shutdown_grace" json:"shutdown_grace"`
	StrictBookkeeping  bool       `toml:"strict_bookkeeping" json:"strict_bookkeeping"`
}

// Defaults returns a record holding the documented default values.
func Defaults() Record {
	return Record{
		SaveSchema:         MajorSave,
		SaveDepth:          WholeTree,
		MajorSaveThreshold: DefaultMajorSaveThreshold,
		MinCommitInterval:  Duration{DefaultMinCommitInterval},
		CommitMessage:      DefaultCommitMessage,
		PushOnStartup:      true,
		Extensions:         []string{"md"},
		ShutdownGrace:      Duration{DefaultShutdownGrace},
	}
}

// Clone returns a copy of r that shares no slices with it.
func (r Record) Clone() Record {
	c := r
	c.Extensions = append([]string(nil), r.Extensions...)
	return c
}

// Validate reports the first invalid field as a *errors.ConfigError
// wrapping errors.ErrInvalidConfiguration.
func (r Record) Validate() error {
	if err := validateAgainstSchema(r); err != nil {
		return err
	}

	if r.VaultPath == "" {
		return invalid("vault_path", nil, "vault path is not set")
	}
	if !filepath.IsAbs(r.VaultPath) {
		return invalid("vault_path", r.VaultPath, "vault path must be absolute")
	}
	if r.MinCommitInterval.Duration < 0 {
		return invalid("min_commit_interval", r.MinCommitInterval, "must not be negative")
	}
	if r.ShutdownGrace.Duration <= 0 {
		return invalid("shutdown_grace", r.ShutdownGrace, "must be positive")
	}
	return nil
}

// HasExtension reports whether path carries one of the tracked extensions.
func (r Record) HasExtension(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	for _, e := range r.Extensions {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}
	return false
}

func invalid(param string, value interface{}, msg string) error {
	return vgerrors.NewConfigError(param, value,
		vgerrors.Wrap(vgerrors.ErrInvalidConfiguration, msg))
}
