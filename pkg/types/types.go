// Package types provides core types and configurations for releasectl
package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Fact is a memoised tri-state validation result
type Fact int8

const (
	FactUnknown Fact = iota
	FactFalse
	FactTrue
)

func (f Fact) String() string {
	switch f {
	case FactFalse:
		return "false"
	case FactTrue:
		return "true"
	default:
		return "unknown"
	}
}

// FactID names a checkable precondition
type FactID string

const (
	FactDirectory FactID = "directory-correct"
	FactConfig    FactID = "config-loaded"
	FactChannels  FactID = "channels-loaded"
	FactEngine    FactID = "engine-available"
	FactUploader  FactID = "uploader-available"
	FactVCS       FactID = "vcs-available"
	FactVersion   FactID = "version-loaded"
)

// ToolKind identifies one of the external collaborators
type ToolKind string

const (
	ToolEngine   ToolKind = "engine"
	ToolUploader ToolKind = "uploader"
	ToolVCS      ToolKind = "vcs"
)

// ToolKinds lists every tool kind in probe order
var ToolKinds = []ToolKind{ToolEngine, ToolUploader, ToolVCS}

// ParseToolKind converts an operator token into a ToolKind
func ParseToolKind(s string) (ToolKind, error) {
	for _, kind := range ToolKinds {
		if string(kind) == s {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// Fact returns the availability fact guarding the tool
func (k ToolKind) Fact() FactID {
	switch k {
	case ToolEngine:
		return FactEngine
	case ToolUploader:
		return FactUploader
	default:
		return FactVCS
	}
}

// ChannelStatus represents the last pipeline step recorded for a channel
type ChannelStatus string

const (
	ChannelStatusIdle      ChannelStatus = "idle"
	ChannelStatusCleaned   ChannelStatus = "cleaned"
	ChannelStatusExported  ChannelStatus = "exported"
	ChannelStatusPublished ChannelStatus = "published"
	ChannelStatusFailed    ChannelStatus = "failed"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ToolsConfig names the external tool commands. A command set here takes
// precedence over the matching path file.
type ToolsConfig struct {
	Engine       string `mapstructure:"engine" json:"engine,omitempty" yaml:"engine,omitempty"`
	Uploader     string `mapstructure:"uploader" json:"uploader,omitempty" yaml:"uploader,omitempty"`
	VCS          string `mapstructure:"vcs" json:"vcs,omitempty" yaml:"vcs,omitempty"`
	EngineFile   string `mapstructure:"engineFile" json:"engineFile,omitempty" yaml:"engineFile,omitempty"`
	UploaderFile string `mapstructure:"uploaderFile" json:"uploaderFile,omitempty" yaml:"uploaderFile,omitempty"`
	VCSFile      string `mapstructure:"vcsFile" json:"vcsFile,omitempty" yaml:"vcsFile,omitempty"`
}

// Command returns the configured command for a tool kind
func (t ToolsConfig) Command(kind ToolKind) string {
	switch kind {
	case ToolEngine:
		return t.Engine
	case ToolUploader:
		return t.Uploader
	default:
		return t.VCS
	}
}

// PathFile returns the path file consulted when no command is configured
func (t ToolsConfig) PathFile(kind ToolKind) string {
	switch kind {
	case ToolEngine:
		return t.EngineFile
	case ToolUploader:
		return t.UploaderFile
	default:
		return t.VCSFile
	}
}

// CleanConfig controls channel cleaning
type CleanConfig struct {
	MaxDepth int  `mapstructure:"maxDepth" json:"maxDepth" yaml:"maxDepth"`
	UseVCS   bool `mapstructure:"useVCS" json:"useVCS" yaml:"useVCS"`
}

// NotificationConfig controls desktop notifications
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	// Sound beeps on failure as well.
	Sound bool `mapstructure:"sound" json:"sound" yaml:"sound"`
}

// ProjectConfig is the releasectl project configuration
type ProjectConfig struct {
	// Project is the remote project identifier, e.g. "studio/game".
	Project string `mapstructure:"project" json:"project" yaml:"project"`
	// Version overrides the version file when set.
	Version       string             `mapstructure:"version" json:"version,omitempty" yaml:"version,omitempty"`
	VersionFile   string             `mapstructure:"versionFile" json:"versionFile" yaml:"versionFile"`
	LockFile      string             `mapstructure:"lockFile" json:"lockFile" yaml:"lockFile"`
	Channels      []string           `mapstructure:"channels" json:"channels,omitempty" yaml:"channels,omitempty"`
	ChannelsFile  string             `mapstructure:"channelsFile" json:"channelsFile,omitempty" yaml:"channelsFile,omitempty"`
	OutputDir     string             `mapstructure:"outputDir" json:"outputDir" yaml:"outputDir"`
	Placeholder   string             `mapstructure:"placeholder" json:"placeholder" yaml:"placeholder"`
	License       string             `mapstructure:"license" json:"license" yaml:"license"`
	LicenseTarget string             `mapstructure:"licenseTarget" json:"licenseTarget" yaml:"licenseTarget"`
	EnginePath    string             `mapstructure:"enginePath" json:"enginePath,omitempty" yaml:"enginePath,omitempty"`
	RequiredDirs  []string           `mapstructure:"requiredDirs" json:"requiredDirs,omitempty" yaml:"requiredDirs,omitempty"`
	RequiredFiles []string           `mapstructure:"requiredFiles" json:"requiredFiles,omitempty" yaml:"requiredFiles,omitempty"`
	Tools         ToolsConfig        `mapstructure:"tools" json:"tools" yaml:"tools"`
	Clean         CleanConfig        `mapstructure:"clean" json:"clean" yaml:"clean"`
	Confirm       bool               `mapstructure:"confirm" json:"confirm" yaml:"confirm"`
	ChangeDir     bool               `mapstructure:"changeDir" json:"changeDir" yaml:"changeDir"`
	StateDir      string             `mapstructure:"stateDir" json:"stateDir" yaml:"stateDir"`
	Notifications NotificationConfig `mapstructure:"notifications" json:"notifications" yaml:"notifications"`
}

// ChannelDir returns the output directory of a channel under root
func (c *ProjectConfig) ChannelDir(root, channel string) string {
	return filepath.Join(c.OutputPath(root), channel)
}

// OutputPath returns the absolute-or-root-relative channel output root
func (c *ProjectConfig) OutputPath(root string) string {
	return resolve(root, c.OutputDir)
}

// LicensePath returns the license document copied into exported channels
func (c *ProjectConfig) LicensePath(root string) string {
	return resolve(root, c.License)
}

// VersionPath returns the version tag file
func (c *ProjectConfig) VersionPath(root string) string {
	return resolve(root, c.VersionFile)
}

// LockPath returns the published version lock file
func (c *ProjectConfig) LockPath(root string) string {
	return resolve(root, c.LockFile)
}

// StatePath returns the directory holding channel run records
func (c *ProjectConfig) StatePath(root string) string {
	return resolve(root, c.StateDir)
}

// UploadTarget composes the remote target for a channel
func (c *ProjectConfig) UploadTarget(channel string) string {
	return c.Project + ":" + channel
}

// UsesChannelFile reports whether channels come from a line-delimited file
func (c *ProjectConfig) UsesChannelFile() bool {
	return len(c.Channels) == 0 && strings.TrimSpace(c.ChannelsFile) != ""
}

// Resolve joins a root-relative path, leaving absolute paths untouched
func Resolve(root, path string) string {
	return resolve(root, path)
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
