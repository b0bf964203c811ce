// Package version tracks the release version and the published version lock.
package version

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/fsutil"
)

// State holds the version to publish and the last published version
type State struct {
	Current string
	Lock    string
}

// Published reports whether Current has already been published
func (s State) Published() bool {
	return s.Current == s.Lock
}

// Store reads the version tag and reads/writes the lock file
type Store struct {
	versionPath string
	lockPath    string
	override    string
}

// NewStore creates a version store. A non-empty override replaces the
// version file as the source of the current version.
func NewStore(versionPath, lockPath, override string) *Store {
	return &Store{
		versionPath: versionPath,
		lockPath:    lockPath,
		override:    strings.TrimSpace(override),
	}
}

// LockPath returns the lock file location
func (s *Store) LockPath() string {
	return s.lockPath
}

// Load reads the current version and the lock. A missing lock file means
// nothing has been published yet.
func (s *Store) Load() (State, error) {
	current := s.override
	if current == "" {
		if s.versionPath == "" {
			return State{}, builderr.New(builderr.KindConfig, "no version configured")
		}
		tag, err := readTag(s.versionPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return State{}, builderr.Wrap(builderr.KindConfig, err, "version file does not exist at '%s'", s.versionPath)
			}
			return State{}, builderr.Wrap(builderr.KindConfig, err, "failed to read version file at '%s'", s.versionPath)
		}
		current = tag
	}
	if current == "" {
		return State{}, builderr.New(builderr.KindConfig, "version tag at '%s' is empty", s.versionPath)
	}

	lock, err := s.ReadLock()
	if err != nil {
		return State{}, err
	}

	return State{Current: current, Lock: lock}, nil
}

// ReadLock returns the last published version, or "" if none
func (s *Store) ReadLock() (string, error) {
	if s.lockPath == "" {
		return "", nil
	}
	tag, err := readTag(s.lockPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", builderr.Wrap(builderr.KindConfig, err, "failed to read version lock at '%s'", s.lockPath)
	}
	return tag, nil
}

// WriteLock durably records tag as published
func (s *Store) WriteLock(tag string) error {
	if s.lockPath == "" {
		return builderr.New(builderr.KindConfig, "no version lock file configured")
	}
	if err := fsutil.WriteFileAtomic(s.lockPath, []byte(tag+"\n"), 0o644); err != nil {
		return builderr.Wrap(builderr.KindEnvironment, err, "failed to write version lock at '%s'", s.lockPath)
	}
	return nil
}

func readTag(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
