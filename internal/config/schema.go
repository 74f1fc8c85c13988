// Package config provides configuration management for revlabel.
package config

// Config is the root configuration for revlabel.
type Config struct {
	// Label configures label computation.
	Label LabelConfig `mapstructure:"label" json:"label" yaml:"label" toml:"label"`
	// Git configures how revision metadata is read.
	Git GitConfig `mapstructure:"git" json:"git" yaml:"git" toml:"git"`
	// State configures the build state store.
	State StateConfig `mapstructure:"state" json:"state" yaml:"state" toml:"state"`
	// Publish configures where label facts are sent.
	Publish PublishConfig `mapstructure:"publish" json:"publish" yaml:"publish" toml:"publish"`
	// Watch configures `revlabel watch`.
	Watch WatchConfig `mapstructure:"watch" json:"watch" yaml:"watch" toml:"watch"`
	// Output configures output settings.
	Output OutputConfig `mapstructure:"output" json:"output" yaml:"output" toml:"output"`
}

// LabelConfig configures label computation.
type LabelConfig struct {
	// Grammar is the label grammar (legacy, dotted).
	Grammar string `mapstructure:"grammar" json:"grammar" yaml:"grammar" toml:"grammar"`
	// Major is the major component of dotted labels.
	Major int `mapstructure:"major" json:"major" yaml:"major" toml:"major"`
	// Minor is the minor component of dotted labels.
	Minor int `mapstructure:"minor" json:"minor" yaml:"minor" toml:"minor"`
	// IncrementOnFailure keeps counting build cycles after a failed build.
	IncrementOnFailure bool `mapstructure:"increment_on_failure" json:"increment_on_failure" yaml:"increment_on_failure" toml:"increment_on_failure"`
	// VersionSource selects where major and minor come from (config, tag).
	VersionSource string `mapstructure:"version_source" json:"version_source" yaml:"version_source" toml:"version_source"`
	// TagPrefix is stripped from tag names when VersionSource is "tag".
	TagPrefix string `mapstructure:"tag_prefix" json:"tag_prefix" yaml:"tag_prefix" toml:"tag_prefix"`
	// FactPrefix is prepended to every published fact name.
	FactPrefix string `mapstructure:"fact_prefix" json:"fact_prefix" yaml:"fact_prefix" toml:"fact_prefix"`
}

// GitConfig configures how revision metadata is read.
type GitConfig struct {
	// Backend is go-git (in-process) or cli (git executable).
	Backend string `mapstructure:"backend" json:"backend" yaml:"backend" toml:"backend"`
	// Executable is the git binary used by the cli backend.
	Executable string `mapstructure:"executable" json:"executable" yaml:"executable" toml:"executable"`
	// WorkingDirectory is the repository checkout.
	WorkingDirectory string `mapstructure:"working_directory" json:"working_directory" yaml:"working_directory" toml:"working_directory"`
	// Ref is the revision that is labelled.
	Ref string `mapstructure:"ref" json:"ref" yaml:"ref" toml:"ref"`
	// Remote is the remote whose location is published.
	Remote string `mapstructure:"remote" json:"remote" yaml:"remote" toml:"remote"`
}

// StateConfig configures the build state store.
type StateConfig struct {
	// Enabled persists build state between runs.
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	// File is the JSON state file.
	File string `mapstructure:"file" json:"file" yaml:"file" toml:"file"`
}

// PublishConfig configures where label facts are sent.
type PublishConfig struct {
	// Log writes every fact to the log.
	Log bool `mapstructure:"log" json:"log" yaml:"log" toml:"log"`
	// Dotenv appends facts to a dotenv file.
	Dotenv DotenvConfig `mapstructure:"dotenv" json:"dotenv" yaml:"dotenv" toml:"dotenv"`
}

// DotenvConfig configures the dotenv publisher.
type DotenvConfig struct {
	// Enabled turns the publisher on.
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	// File is the target file. Defaults to $GITHUB_ENV.
	File string `mapstructure:"file" json:"file" yaml:"file" toml:"file"`
}

// WatchConfig configures `revlabel watch`.
type WatchConfig struct {
	// Debounce is the quiet period before a preview is recomputed.
	Debounce string `mapstructure:"debounce" json:"debounce" yaml:"debounce" toml:"debounce"`
}

// OutputConfig configures output settings.
type OutputConfig struct {
	// Format is the output format (text, json).
	Format string `mapstructure:"format" json:"format" yaml:"format" toml:"format"`
	// Color enables colored output.
	Color bool `mapstructure:"color" json:"color" yaml:"color" toml:"color"`
	// Verbose enables verbose output.
	Verbose bool `mapstructure:"verbose" json:"verbose" yaml:"verbose" toml:"verbose"`
	// Quiet suppresses non-essential output.
	Quiet bool `mapstructure:"quiet" json:"quiet" yaml:"quiet" toml:"quiet"`
	// LogFile is the path to a log file.
	LogFile string `mapstructure:"log_file" json:"log_file,omitempty" yaml:"log_file,omitempty" toml:"log_file,omitempty"`
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" json:"log_level" yaml:"log_level" toml:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Label: LabelConfig{
			Grammar:       "dotted",
			Major:         1,
			Minor:         0,
			VersionSource: "config",
			TagPrefix:     "v",
			FactPrefix:    "CCNet",
		},
		Git: GitConfig{
			Backend:          "go-git",
			Executable:       "git",
			WorkingDirectory: ".",
			Ref:              "HEAD",
			Remote:           "origin",
		},
		State: StateConfig{
			Enabled: true,
			File:    ".revlabel/state.json",
		},
		Publish: PublishConfig{
			Log: true,
			Dotenv: DotenvConfig{
				Enabled: false,
				File:    "${GITHUB_ENV}",
			},
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Output: OutputConfig{
			Format:   "text",
			Color:    true,
			LogLevel: "info",
		},
	}
}

// ConfigFileNames to search for, in order.
var ConfigFileNames = []string{
	"revlabel.config",
	".revlabel",
}

// ConfigFileExtensions supported by Viper.
var ConfigFileExtensions = []string{
	"yaml",
	"yml",
	"json",
	"toml",
}
