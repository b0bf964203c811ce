package tools

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/fsutil"
	"github.com/releasekit/releasectl/pkg/types"
)

// Handle is a resolved reference to an external tool
type Handle struct {
	Kind types.ToolKind
	Path string
	// Args are fixed leading arguments taken from a configured command line.
	Args []string
}

// Invocation builds an invocation of the tool run from dir
func (h Handle) Invocation(dir string, args ...string) Invocation {
	full := make([]string, 0, len(h.Args)+len(args))
	full = append(full, h.Args...)
	full = append(full, args...)
	return Invocation{
		Tool: h.Kind,
		Path: h.Path,
		Args: full,
		Dir:  dir,
	}
}

// Resolve locates a tool. A configured command line takes precedence over
// the path file, whose whole trimmed content is taken as a single path.
// Commands containing a path separator must exist relative to root; bare
// names are looked up on PATH.
func Resolve(root string, kind types.ToolKind, configured, pathFile string) (Handle, error) {
	var program string
	var args []string

	if fields := strings.Fields(configured); len(fields) > 0 {
		program, args = fields[0], fields[1:]
	} else if pathFile != "" {
		file := types.Resolve(root, pathFile)
		data, err := os.ReadFile(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Handle{}, builderr.Wrap(builderr.KindToolUnavailable, err,
					"%s path file does not exist at '%s'", kind, file)
			}
			return Handle{}, builderr.Wrap(builderr.KindToolUnavailable, err,
				"failed to read %s path file '%s'", kind, file)
		}
		program = strings.TrimSpace(string(data))
	}

	if program == "" {
		return Handle{}, builderr.New(builderr.KindToolUnavailable, "%s path is empty", kind)
	}

	if strings.ContainsRune(program, '/') || strings.ContainsRune(program, filepath.Separator) {
		path := types.Resolve(root, program)
		if !fsutil.IsFile(path) {
			return Handle{}, builderr.New(builderr.KindToolUnavailable,
				"%s was not found at '%s'", kind, path)
		}
		return Handle{Kind: kind, Path: path, Args: args}, nil
	}

	path, err := exec.LookPath(program)
	if err != nil {
		return Handle{}, builderr.Wrap(builderr.KindToolUnavailable, err,
			"%s command '%s' is not on PATH", kind, program)
	}
	return Handle{Kind: kind, Path: path, Args: args}, nil
}
