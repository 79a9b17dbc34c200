package config

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sys/unix"

	vgerrors "github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

// Store persists a Record as TOML. All writers go through Update, which holds
// an in-process mutex and an exclusive flock on a sidecar lock file for the
// whole read-modify-write, so the daemon and a concurrent `config set` never
// interleave.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by the TOML file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the record, merging stored values over Defaults. A missing file
// yields the defaults. A file that exists but cannot be read or decoded
// yields the defaults together with a *errors.ConfigLoadError.
func (s *Store) Load() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save writes r atomically.
func (s *Store) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	return s.write(r)
}

// Update re-reads the record under the store lock, applies fn and writes the
// result back. If fn returns an error nothing is written and the error is
// returned. A record that cannot be loaded is replaced by the defaults.
func (s *Store) Update(fn func(r *Record) error) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return Record{}, err
	}
	defer unlock()

	r, err := s.load()
	if err != nil && !vgerrors.Is(err, vgerrors.ErrConfigLoad) {
		return Record{}, err
	}

	if err := fn(&r); err != nil {
		return Record{}, err
	}

	if err := s.write(r); err != nil {
		return Record{}, err
	}
	return r.Clone(), nil
}

func (s *Store) load() (Record, error) {
	r := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return Defaults(), vgerrors.NewConfigLoadError(s.path, err)
	}

	if err := toml.Unmarshal(data, &r); err != nil {
		return Defaults(), vgerrors.NewConfigLoadError(s.path, err)
	}
	return r, nil
}

func (s *Store) write(r Record) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(r); err != nil {
		return vgerrors.Wrapf(err, "encode settings for %s", s.path)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return vgerrors.Wrapf(err, "create settings directory for %s", s.path)
	}
	if err := writeFileAtomic(s.path, buf.Bytes(), 0o600); err != nil {
		return vgerrors.Wrapf(err, "write settings to %s", s.path)
	}
	return nil
}

// lockFile takes an exclusive flock on <path>.lock and returns its release.
func (s *Store) lockFile() (func(), error) {
	lockPath := s.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o700); err != nil {
		return nil, vgerrors.NewLockError(lockPath, 0, err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, vgerrors.NewLockError(lockPath, 0, err)
	}

	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, vgerrors.NewLockError(lockPath, 0,
			vgerrors.Wrap(vgerrors.ErrLockAcquisitionFailure, err.Error()))
	}

	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
