package validation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/types"
	"github.com/releasekit/releasectl/pkg/validation"
)

func validConfig() *types.ProjectConfig {
	return &types.ProjectConfig{
		Project:       "studio/game",
		Channels:      []string{"win-demo", "linux-demo"},
		OutputDir:     "builds",
		VersionFile:   "builds/version.txt",
		LockFile:      "builds/version.lock",
		Placeholder:   ".itch",
		License:       "eula.md",
		LicenseTarget: "readme.md",
	}
}

func TestConfigValidator_Valid(t *testing.T) {
	result := validation.NewConfigValidator(t.TempDir()).Validate(validConfig())
	if !result.Valid {
		t.Fatalf("expected valid config, got %v", result.Errors)
	}
	if result.Err() != nil {
		t.Errorf("expected no error, got %v", result.Err())
	}
}

func TestConfigValidator_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.ProjectConfig)
		field  string
	}{
		{"no channels", func(c *types.ProjectConfig) { c.Channels = nil }, "channels"},
		{"channel with separator", func(c *types.ProjectConfig) { c.Channels = []string{"../etc"} }, "channels"},
		{"project with colon", func(c *types.ProjectConfig) { c.Project = "studio:game" }, "project"},
		{"no output dir", func(c *types.ProjectConfig) { c.OutputDir = "" }, "outputDir"},
		{"no version source", func(c *types.ProjectConfig) { c.VersionFile = "" }, "versionFile"},
		{"no lock file", func(c *types.ProjectConfig) { c.LockFile = "" }, "lockFile"},
		{"lock is version file", func(c *types.ProjectConfig) { c.LockFile = c.VersionFile }, "lockFile"},
		{"nested placeholder", func(c *types.ProjectConfig) { c.Placeholder = "keep/.itch" }, "placeholder"},
		{"no license", func(c *types.ProjectConfig) { c.License = "" }, "license"},
		{"nested license target", func(c *types.ProjectConfig) { c.LicenseTarget = "docs/readme.md" }, "licenseTarget"},
		{"negative depth", func(c *types.ProjectConfig) { c.Clean.MaxDepth = -1 }, "maxDepth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			result := validation.NewConfigValidator(t.TempDir()).Validate(cfg)
			if result.Valid {
				t.Fatal("expected invalid config")
			}

			found := false
			for _, e := range result.Errors {
				if e.Field == tt.field && e.Level == validation.ValidationLevelError {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, result.Errors)
			}

			err := result.Err()
			if !errors.Is(err, builderr.ErrConfig) || !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected ConfigError naming %s, got %v", tt.field, err)
			}
		})
	}
}

func TestConfigValidator_Warnings(t *testing.T) {
	cfg := validConfig()
	cfg.Project = ""
	cfg.Channels = []string{"win", "win"}
	cfg.ChannelsFile = "builds/channels.txt"

	result := validation.NewConfigValidator(t.TempDir()).Validate(cfg)
	if !result.Valid {
		t.Fatalf("warnings must not invalidate the config: %v", result.Errors)
	}
	if got := len(result.Warnings()); got != 3 {
		t.Errorf("expected 3 warnings, got %d: %v", got, result.Warnings())
	}
}

func TestValidChannelID(t *testing.T) {
	tests := map[string]bool{
		"win-demo": true,
		"mac":      true,
		"":         false,
		".":        false,
		"..":       false,
		"a/b":      false,
		`a\b`:      false,
		" padded":  false,
	}
	for id, want := range tests {
		if got := validation.ValidChannelID(id); got != want {
			t.Errorf("ValidChannelID(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	e := &validation.ValidationError{Section: "paths", Field: "license", Message: "missing", Level: validation.ValidationLevelError}
	if e.Error() != "[error] paths.license: missing" {
		t.Errorf("unexpected message %q", e.Error())
	}
}
