// Package workdir scopes changes of the process working directory.
package workdir

import (
	"fmt"
	"os"
	"sync"
)

// Scope is an entered working directory. Restore returns the process to
// the directory that was current when the scope was entered.
type Scope struct {
	original string
	dir      string
	once     sync.Once
	err      error
}

// Enter changes the working directory to dir
func Enter(dir string) (*Scope, error) {
	original, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to read working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("failed to enter %s: %w", dir, err)
	}
	return &Scope{original: original, dir: dir}, nil
}

// Original returns the directory restored by Restore
func (s *Scope) Original() string {
	return s.original
}

// Restore changes back to the original directory. Only the first call
// has an effect.
func (s *Scope) Restore() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		if err := os.Chdir(s.original); err != nil {
			s.err = fmt.Errorf("failed to restore working directory %s: %w", s.original, err)
		}
	})
	return s.err
}
