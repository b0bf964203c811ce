// Package channels implements the ordered, deduplicated channel registry.
package channels

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/releasekit/releasectl/pkg/builderr"
)

// Source yields the raw channel list
type Source interface {
	Load() ([]string, error)
	Describe() string
}

// FileSource reads one channel id per line from a text file
type FileSource struct {
	Path string
}

// Load implements Source
func (s FileSource) Load() ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, builderr.Wrap(builderr.KindConfig, err, "channel list does not exist at '%s'", s.Path)
		}
		return nil, builderr.Wrap(builderr.KindConfig, err, "failed to read channel list at '%s'", s.Path)
	}
	defer f.Close()

	channels, err := Parse(f)
	if err != nil {
		return nil, builderr.Wrap(builderr.KindConfig, err, "failed to read channel list at '%s'", s.Path)
	}
	return channels, nil
}

// Describe implements Source
func (s FileSource) Describe() string {
	return s.Path
}

// StaticSource is a fixed, compiled-in or configured channel list
type StaticSource []string

// Load implements Source
func (s StaticSource) Load() ([]string, error) {
	return dedupe(s), nil
}

// Describe implements Source
func (s StaticSource) Describe() string {
	return "built-in channel list"
}

// Parse reads a line-delimited channel list. Lines are trimmed, blank lines
// skipped and duplicates collapsed keeping first-seen order.
func Parse(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return dedupe(lines), nil
}

func dedupe(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	result := make([]string, 0, len(raw))
	for _, line := range raw {
		channel := strings.TrimSpace(line)
		if channel == "" || seen[channel] {
			continue
		}
		seen[channel] = true
		result = append(result, channel)
	}
	return result
}

// Registry owns the ordered channel set. It is populated on first use and
// immutable afterwards; a failed load is remembered as well.
type Registry struct {
	source   Source
	loaded   bool
	err      error
	channels []string
	index    map[string]struct{}
}

// NewRegistry creates a registry backed by source
func NewRegistry(source Source) *Registry {
	return &Registry{source: source}
}

// Load populates the registry once
func (r *Registry) Load() error {
	if r.loaded {
		return r.err
	}
	r.loaded = true

	channels, err := r.source.Load()
	if err != nil {
		r.err = err
		return err
	}
	if len(channels) == 0 {
		r.err = builderr.New(builderr.KindConfig, "channel list at '%s' is empty", r.source.Describe())
		return r.err
	}

	r.channels = channels
	r.index = make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		r.index[ch] = struct{}{}
	}
	return nil
}

// Channels returns the channels in registry order
func (r *Registry) Channels() ([]string, error) {
	if err := r.Load(); err != nil {
		return nil, err
	}
	out := make([]string, len(r.channels))
	copy(out, r.channels)
	return out, nil
}

// Contains reports whether id is a registered channel. An unloadable
// registry contains nothing.
func (r *Registry) Contains(id string) bool {
	if err := r.Load(); err != nil {
		return false
	}
	_, ok := r.index[id]
	return ok
}

// Describe names the registry's source
func (r *Registry) Describe() string {
	return r.source.Describe()
}
