// Package config handles configuration loading and management
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/fsutil"
	"github.com/releasekit/releasectl/pkg/types"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigName is the base name searched for in the project root
const ConfigName = "releasectl"

// EnvPrefix prefixes environment overrides, e.g. RELEASECTL_PROJECT
const EnvPrefix = "RELEASECTL"

// Manager handles configuration operations
type Manager struct {
	root       string
	configFile string
	used       string
}

// NewManager creates a configuration manager. An empty configFile searches
// the root for releasectl.{yaml,yml,json,toml,ini}.
func NewManager(root, configFile string) *Manager {
	return &Manager{root: root, configFile: configFile}
}

// ConfigFileUsed returns the file read by the last Load, if any
func (m *Manager) ConfigFileUsed() string {
	return m.used
}

// DefaultPath returns where init writes the configuration
func (m *Manager) DefaultPath() string {
	if m.configFile != "" {
		return types.Resolve(m.root, m.configFile)
	}
	return filepath.Join(m.root, ConfigName+".yaml")
}

// Load reads the configuration. A missing file is not an error when no
// explicit file was requested; defaults and environment apply alone.
func (m *Manager) Load() (*types.ProjectConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if m.configFile != "" {
		path := types.Resolve(m.root, m.configFile)
		v.SetConfigFile(path)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".cfg", ".ini":
			v.SetConfigType("ini")
		}
	} else {
		v.AddConfigPath(m.root)
		v.SetConfigName(ConfigName)
	}

	m.used = ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.configFile != "" || !errors.As(err, &notFound) {
			return nil, builderr.Wrap(builderr.KindConfig, err, "failed to read configuration")
		}
	} else {
		m.used = v.ConfigFileUsed()
		promoteDefaultSection(v)
	}

	var cfg types.ProjectConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, builderr.Wrap(builderr.KindConfig, err, "failed to parse configuration")
	}

	applyCommandSection(v, &cfg)
	return &cfg, nil
}

// promoteDefaultSection lifts keys of an INI file's unnamed section to the
// top level. Environment overrides still win.
func promoteDefaultSection(v *viper.Viper) {
	if v.InConfig("project") {
		return
	}
	for k, val := range v.GetStringMap("default") {
		v.SetDefault(k, val)
	}
}

// applyCommandSection maps a [commands] section onto tool commands still
// at their default value
func applyCommandSection(v *viper.Viper, cfg *types.ProjectConfig) {
	d := Default()
	pick := func(keys ...string) string {
		for _, k := range keys {
			if s := strings.TrimSpace(v.GetString("commands." + k)); s != "" {
				return s
			}
		}
		return ""
	}

	if s := pick("engine", "godot"); s != "" && cfg.Tools.Engine == d.Tools.Engine {
		cfg.Tools.Engine = s
	}
	if s := pick("uploader", "butler"); s != "" && cfg.Tools.Uploader == d.Tools.Uploader {
		cfg.Tools.Uploader = s
	}
	if s := pick("vcs", "git"); s != "" && cfg.Tools.VCS == d.Tools.VCS {
		cfg.Tools.VCS = s
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("project", d.Project)
	v.SetDefault("version", d.Version)
	v.SetDefault("versionFile", d.VersionFile)
	v.SetDefault("lockFile", d.LockFile)
	v.SetDefault("channels", d.Channels)
	v.SetDefault("channelsFile", d.ChannelsFile)
	v.SetDefault("outputDir", d.OutputDir)
	v.SetDefault("placeholder", d.Placeholder)
	v.SetDefault("license", d.License)
	v.SetDefault("licenseTarget", d.LicenseTarget)
	v.SetDefault("enginePath", d.EnginePath)
	v.SetDefault("requiredDirs", d.RequiredDirs)
	v.SetDefault("requiredFiles", d.RequiredFiles)
	v.SetDefault("tools.engine", d.Tools.Engine)
	v.SetDefault("tools.uploader", d.Tools.Uploader)
	v.SetDefault("tools.vcs", d.Tools.VCS)
	v.SetDefault("tools.engineFile", d.Tools.EngineFile)
	v.SetDefault("tools.uploaderFile", d.Tools.UploaderFile)
	v.SetDefault("tools.vcsFile", d.Tools.VCSFile)
	v.SetDefault("clean.maxDepth", d.Clean.MaxDepth)
	v.SetDefault("clean.useVCS", d.Clean.UseVCS)
	v.SetDefault("confirm", d.Confirm)
	v.SetDefault("changeDir", d.ChangeDir)
	v.SetDefault("stateDir", d.StateDir)
	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.sound", d.Notifications.Sound)
}

// Default returns the configuration used when a key is not set
func Default() *types.ProjectConfig {
	return &types.ProjectConfig{
		VersionFile:   "version.txt",
		LockFile:      "builds/version.lock",
		ChannelsFile:  "builds/channels.txt",
		OutputDir:     "builds",
		Placeholder:   ".itch",
		License:       "eula.md",
		LicenseTarget: "readme.md",
		Tools: types.ToolsConfig{
			VCS:          "git",
			EngineFile:   "engine_path.txt",
			UploaderFile: "uploader_path.txt",
		},
		Clean: types.CleanConfig{
			MaxDepth: fsutil.DefaultMaxDepth,
		},
		Confirm:  true,
		StateDir: ".releasectl/state",
	}
}

// Save writes cfg as YAML. An existing file is only replaced with force.
func (m *Manager) Save(path string, cfg *types.ProjectConfig, force bool) error {
	if fsutil.Exists(path) && !force {
		return builderr.New(builderr.KindConfig, "configuration already exists at %s; use --force to overwrite", path)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# releasectl project configuration\n")
	if err := fsutil.WriteFileAtomic(path, append(header, data...), 0o644); err != nil {
		return builderr.Wrap(builderr.KindEnvironment, err, "failed to write configuration")
	}
	return nil
}
