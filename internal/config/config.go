package config

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"tagdeploy/internal/logger"
)

const (
	// FileName is looked up in the operator's home directory.
	FileName  = ".tagdeploy"
	EnvPrefix = "TAGDEPLOY"
)

var clog = logger.PackageLogger("config", "🔧 CONFIG")

func setDefaults(v *viper.Viper) {
	v.SetDefault("main_branch", "master")
	v.SetDefault("default_tag", "v1.0.0")
	v.SetDefault("tag_order", "date")
	v.SetDefault("ssh_config", "~/.ssh/config")
	v.SetDefault("known_hosts", "~/.ssh/known_hosts")
	v.SetDefault("archive_tool", "zip")
	v.SetDefault("log_storage", "storage/logs")
	v.SetDefault("ignore_file", ".gitignore")
	v.SetDefault("remote_archive", "project.zip")
	v.SetDefault("env_source", ".env.production")
	v.SetDefault("env_target", ".env")
	v.SetDefault("writable_dirs", []string{"storage/", "bootstrap/"})
	v.SetDefault("log_level", "info")
}

// Load reads ~/.tagdeploy.yaml (if present) from fs and overlays TAGDEPLOY_*
// environment variables on top of the defaults.
func Load(fs afero.Fs, home string) (*Settings, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(home)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "invalid config file")
		}
		clog.Debug("No %s config in %s, using defaults", FileName, home)
	} else {
		clog.Debug("Configuration loaded from %s", v.ConfigFileUsed())
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	s.SSHConfig = ExpandHome(s.SSHConfig, home)
	s.KnownHosts = ExpandHome(s.KnownHosts, home)

	if strings.TrimSpace(s.MainBranch) == "" {
		return nil, errors.New("main_branch must not be empty")
	}
	if strings.TrimSpace(s.RemoteArchive) == "" {
		return nil, errors.New("remote_archive must not be empty")
	}
	return &s, nil
}

// ExpandHome replaces a leading "~" with home.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
