package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultMaxDepth bounds how deep CleanDir descends below the channel root.
const DefaultMaxDepth = 8

var (
	// ErrDepthExceeded indicates the directory tree is deeper than allowed
	ErrDepthExceeded = errors.New("cleaning depth exceeded")

	// ErrBrokenEntry indicates an entry that is not a file, symlink or directory
	ErrBrokenEntry = errors.New("broken directory entry")
)

type cleanFrame struct {
	path     string
	depth    int
	expanded bool
}

// CleanDir removes everything below dir except the top-level entry named
// keep. Symlinks are removed, never followed. The whole tree is scanned
// before anything is deleted, so a depth or entry-type violation leaves
// dir untouched. It returns the number of removed entries.
func CleanDir(dir, keep string, maxDepth int) (int, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	plan, err := planClean(dir, keep, maxDepth)
	if err != nil {
		return 0, err
	}

	for i, path := range plan {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return i, fmt.Errorf("failed to remove '%s': %w", path, err)
		}
	}

	return len(plan), nil
}

// planClean walks dir with an explicit stack and returns the paths to
// remove in post-order (children before their parent directory).
func planClean(dir, keep string, maxDepth int) ([]string, error) {
	var plan []string
	stack := []cleanFrame{{path: dir}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.expanded {
			plan = append(plan, top.path)
			continue
		}

		if top.depth >= maxDepth {
			return nil, fmt.Errorf("%w at '%s'", ErrDepthExceeded, top.path)
		}

		entries, err := os.ReadDir(top.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read '%s': %w", top.path, err)
		}

		if top.depth > 0 {
			stack = append(stack, cleanFrame{path: top.path, depth: top.depth, expanded: true})
		}

		for _, entry := range entries {
			if top.depth == 0 && entry.Name() == keep {
				continue
			}

			path := filepath.Join(top.path, entry.Name())
			mode := entry.Type()

			switch {
			// Symlinks are removed, never followed, so only real nesting
			// counts against maxDepth.
			case mode.IsRegular(), mode&fs.ModeSymlink != 0:
				plan = append(plan, path)
			case mode.IsDir():
				stack = append(stack, cleanFrame{path: path, depth: top.depth + 1})
			default:
				return nil, fmt.Errorf("%w at '%s'", ErrBrokenEntry, path)
			}
		}
	}

	return plan, nil
}
