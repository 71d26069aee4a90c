package config

// Settings holds operator preferences. Every field has a default, so a missing
// config file is not an error.
type Settings struct {
	// MainBranch is where release tags are cut when the operator asks to
	// switch away from a feature branch.
	MainBranch string `mapstructure:"main_branch"`
	// DefaultTag is offered when the repository has no tags yet.
	DefaultTag string `mapstructure:"default_tag"`
	// TagOrder picks the latest tag: "date" or "version".
	TagOrder string `mapstructure:"tag_order"`

	SSHConfig  string `mapstructure:"ssh_config"`
	KnownHosts string `mapstructure:"known_hosts"`

	ArchiveTool string `mapstructure:"archive_tool"`
	LogStorage  string `mapstructure:"log_storage"`
	IgnoreFile  string `mapstructure:"ignore_file"`

	RemoteArchive string   `mapstructure:"remote_archive"`
	EnvSource     string   `mapstructure:"env_source"`
	EnvTarget     string   `mapstructure:"env_target"`
	WritableDirs  []string `mapstructure:"writable_dirs"`

	LogLevel string `mapstructure:"log_level"`
}
