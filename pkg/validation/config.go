package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/types"
)

// ConfigValidator validates a project configuration
type ConfigValidator struct {
	projectRoot string
}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator(projectRoot string) *ConfigValidator {
	return &ConfigValidator{
		projectRoot: projectRoot,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Section string
	Field   string
	Message string
	Level   ValidationLevel
}

// ValidationLevel represents error severity
type ValidationLevel string

const (
	ValidationLevelError   ValidationLevel = "error"
	ValidationLevelWarning ValidationLevel = "warning"
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Level, e.Section, e.Field, e.Message)
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// AddError adds an error to the validation result
func (r *ValidationResult) AddError(section, field, message string, level ValidationLevel) {
	r.Errors = append(r.Errors, ValidationError{
		Section: section,
		Field:   field,
		Message: message,
		Level:   level,
	})
	if level == ValidationLevelError {
		r.Valid = false
	}
}

// Warnings returns the warning-level entries
func (r *ValidationResult) Warnings() []ValidationError {
	var out []ValidationError
	for _, e := range r.Errors {
		if e.Level == ValidationLevelWarning {
			out = append(out, e)
		}
	}
	return out
}

// Err folds the error-level entries into a single ConfigError
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	var msgs []string
	for _, e := range r.Errors {
		if e.Level == ValidationLevelError {
			msgs = append(msgs, fmt.Sprintf("%s.%s: %s", e.Section, e.Field, e.Message))
		}
	}
	return builderr.New(builderr.KindConfig, "invalid configuration: %s", strings.Join(msgs, "; "))
}

// ValidChannelID reports whether id can name a channel directory
func ValidChannelID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && strings.TrimSpace(id) == id
}

// Validate validates a configuration
func (v *ConfigValidator) Validate(cfg *types.ProjectConfig) *ValidationResult {
	result := &ValidationResult{Valid: true}

	v.validateProject(cfg, result)
	v.validateChannels(cfg, result)
	v.validatePaths(cfg, result)
	v.validateClean(cfg, result)

	return result
}

func (v *ConfigValidator) validateProject(cfg *types.ProjectConfig, result *ValidationResult) {
	if cfg.Project == "" {
		result.AddError("project", "project", "no project identifier configured; publish will fail", ValidationLevelWarning)
		return
	}

	if strings.ContainsAny(cfg.Project, ": \t") {
		result.AddError("project", "project", "project identifier cannot contain spaces or ':'", ValidationLevelError)
	}
}

func (v *ConfigValidator) validateChannels(cfg *types.ProjectConfig, result *ValidationResult) {
	if len(cfg.Channels) == 0 && strings.TrimSpace(cfg.ChannelsFile) == "" {
		result.AddError("channels", "channels", "no channels or channel file configured", ValidationLevelError)
		return
	}

	if len(cfg.Channels) > 0 && cfg.ChannelsFile != "" {
		result.AddError("channels", "channelsFile", "fixed channel list takes precedence over the channel file", ValidationLevelWarning)
	}

	seen := make(map[string]bool)
	for _, ch := range cfg.Channels {
		if !ValidChannelID(ch) {
			result.AddError("channels", "channels", fmt.Sprintf("invalid channel id %q", ch), ValidationLevelError)
			continue
		}
		if seen[ch] {
			result.AddError("channels", "channels", fmt.Sprintf("duplicate channel %q", ch), ValidationLevelWarning)
		}
		seen[ch] = true
	}
}

func (v *ConfigValidator) validatePaths(cfg *types.ProjectConfig, result *ValidationResult) {
	if cfg.OutputDir == "" {
		result.AddError("paths", "outputDir", "output directory is required", ValidationLevelError)
	} else if filepath.IsAbs(cfg.OutputDir) {
		result.AddError("paths", "outputDir", "output directory should be relative to project root", ValidationLevelWarning)
	}

	if cfg.Version == "" && cfg.VersionFile == "" {
		result.AddError("paths", "versionFile", "a version or version file is required", ValidationLevelError)
	}

	if cfg.LockFile == "" {
		result.AddError("paths", "lockFile", "lock file is required", ValidationLevelError)
	} else if cfg.VersionFile != "" && cfg.LockPath(v.projectRoot) == cfg.VersionPath(v.projectRoot) {
		result.AddError("paths", "lockFile", "lock file cannot be the version file", ValidationLevelError)
	}

	if cfg.Placeholder != "" && strings.ContainsAny(cfg.Placeholder, `/\`) {
		result.AddError("paths", "placeholder", "placeholder must be a plain file name", ValidationLevelError)
	}

	if cfg.License == "" {
		result.AddError("paths", "license", "license document is required", ValidationLevelError)
	}
	if cfg.LicenseTarget == "" || strings.ContainsAny(cfg.LicenseTarget, `/\`) {
		result.AddError("paths", "licenseTarget", "license target must be a plain file name", ValidationLevelError)
	}

	for _, dir := range cfg.RequiredDirs {
		if filepath.IsAbs(dir) {
			result.AddError("paths", "requiredDirs", fmt.Sprintf("required directory should be relative: %s", dir), ValidationLevelWarning)
		}
	}
	for _, file := range cfg.RequiredFiles {
		if filepath.IsAbs(file) {
			result.AddError("paths", "requiredFiles", fmt.Sprintf("required file should be relative: %s", file), ValidationLevelWarning)
		}
	}
}

func (v *ConfigValidator) validateClean(cfg *types.ProjectConfig, result *ValidationResult) {
	if cfg.Clean.MaxDepth < 0 {
		result.AddError("clean", "maxDepth", "maximum depth cannot be negative", ValidationLevelError)
	}
}
