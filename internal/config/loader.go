package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
)

// EnvPrefix is the prefix of environment variables overriding configuration,
// e.g. REVLABEL_LABEL_GRAMMAR.
const EnvPrefix = "REVLABEL"

var (
	// envVarPattern matches ${VAR} or ${VAR:-default}.
	envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)
	// simpleEnvVarPattern matches $VAR.
	simpleEnvVarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// Loader handles configuration loading and merging.
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:           v,
		searchPaths: []string{"."},
	}
}

// WithConfigPath sets an explicit config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths adds directories to search for config files.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = append(l.searchPaths, paths...)
	return l
}

// Viper exposes the underlying instance so command flags can be bound.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads the configuration.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()

	if err := l.loadConfigFile(); err != nil {
		return nil, rlerrors.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, rlerrors.ConfigWrap(err, op, "failed to unmarshal config")
	}

	expandEnvVars(cfg)
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even
// without a config file.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("label.grammar", d.Label.Grammar)
	l.v.SetDefault("label.major", d.Label.Major)
	l.v.SetDefault("label.minor", d.Label.Minor)
	l.v.SetDefault("label.increment_on_failure", d.Label.IncrementOnFailure)
	l.v.SetDefault("label.version_source", d.Label.VersionSource)
	l.v.SetDefault("label.tag_prefix", d.Label.TagPrefix)
	l.v.SetDefault("label.fact_prefix", d.Label.FactPrefix)

	l.v.SetDefault("git.backend", d.Git.Backend)
	l.v.SetDefault("git.executable", d.Git.Executable)
	l.v.SetDefault("git.working_directory", d.Git.WorkingDirectory)
	l.v.SetDefault("git.ref", d.Git.Ref)
	l.v.SetDefault("git.remote", d.Git.Remote)

	l.v.SetDefault("state.enabled", d.State.Enabled)
	l.v.SetDefault("state.file", d.State.File)

	l.v.SetDefault("publish.log", d.Publish.Log)
	l.v.SetDefault("publish.dotenv.enabled", d.Publish.Dotenv.Enabled)
	l.v.SetDefault("publish.dotenv.file", d.Publish.Dotenv.File)

	l.v.SetDefault("watch.debounce", d.Watch.Debounce)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.color", d.Output.Color)
	l.v.SetDefault("output.verbose", d.Output.Verbose)
	l.v.SetDefault("output.quiet", d.Output.Quiet)
	l.v.SetDefault("output.log_file", d.Output.LogFile)
	l.v.SetDefault("output.log_level", d.Output.LogLevel)
}

// loadConfigFile reads the explicit config file, or the first one found in
// the search paths. No file at all is fine.
func (l *Loader) loadConfigFile() error {
	path := l.configPath
	if path == "" {
		found, ok := findConfigFile(l.searchPaths)
		if !ok {
			return nil
		}
		path = found
	}

	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

func findConfigFile(searchPaths []string) (string, bool) {
	for _, searchPath := range searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					return configFile, true
				}
			}
		}
	}
	return "", false
}

// expandEnvVars expands environment variables in path-like fields.
func expandEnvVars(cfg *Config) {
	cfg.Git.Executable = expandEnvVar(cfg.Git.Executable)
	cfg.Git.WorkingDirectory = expandEnvVar(cfg.Git.WorkingDirectory)
	cfg.State.File = expandEnvVar(cfg.State.File)
	cfg.Publish.Dotenv.File = expandEnvVar(cfg.Publish.Dotenv.File)
	cfg.Output.LogFile = expandEnvVar(cfg.Output.LogFile)
}

// expandEnvVar expands ${VAR}, ${VAR:-default} and $VAR. Unset $VAR
// references are left as written.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		if value := os.Getenv(sub[1]); value != "" {
			return value
		}
		return sub[2]
	})

	return simpleEnvVarPattern.ReplaceAllStringFunc(result, func(match string) string {
		if value := os.Getenv(match[1:]); value != "" {
			return value
		}
		return match
	})
}

// GetConfigPath returns the path to the loaded config file, if any.
func (l *Loader) GetConfigPath() string {
	return l.v.ConfigFileUsed()
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}

// LoadFromDirectory loads configuration from a directory.
func LoadFromDirectory(dir string) (*Config, error) {
	return NewLoader().WithSearchPaths(dir).Load()
}

// FindConfigFile searches for a config file and returns its path.
func FindConfigFile(searchPaths ...string) (string, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	if path, ok := findConfigFile(searchPaths); ok {
		return path, nil
	}
	return "", rlerrors.NotFound("config.FindConfigFile", "no config file found")
}

// ConfigExists returns true if a config file exists in the given directory.
func ConfigExists(dir string) bool {
	_, err := FindConfigFile(dir)
	return err == nil
}
