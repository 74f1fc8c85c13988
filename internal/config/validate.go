package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/revlabel/internal/domain/label"
	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
)

// factPrefixPattern keeps published names valid environment variables.
var factPrefixPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}
	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: &ValidationError{}}
}

// Warnings returns the warnings collected by the last Validate call.
func (v *Validator) Warnings() []string {
	return v.errors.Warnings
}

// Validate validates the configuration. Warnings never fail validation.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLabel(cfg.Label)
	v.validateGit(cfg.Git)
	v.validateState(cfg.State)
	v.validatePublish(cfg.Publish)
	v.validateWatch(cfg.Watch)
	v.validateOutput(cfg.Output)

	if v.errors.HasErrors() {
		return rlerrors.Validation("config.Validate", v.errors.Error())
	}
	return nil
}

// Validate validates cfg and returns its warnings.
func Validate(cfg *Config) ([]string, error) {
	v := NewValidator()
	err := v.Validate(cfg)
	return v.Warnings(), err
}

func (v *Validator) validateLabel(cfg LabelConfig) {
	if _, err := label.ParseGrammar(cfg.Grammar); err != nil {
		v.errors.Addf("label.grammar: must be one of %v, got %q", label.Grammars, cfg.Grammar)
	}

	if cfg.Major < 0 {
		v.errors.Addf("label.major: must not be negative, got %d", cfg.Major)
	}
	if cfg.Minor < 0 {
		v.errors.Addf("label.minor: must not be negative, got %d", cfg.Minor)
	}

	validSources := []string{"config", "tag"}
	if !slices.Contains(validSources, cfg.VersionSource) {
		v.errors.Addf("label.version_source: must be one of %v, got %q", validSources, cfg.VersionSource)
	}

	if cfg.FactPrefix != "" && !factPrefixPattern.MatchString(cfg.FactPrefix) {
		v.errors.Addf("label.fact_prefix: %q is not usable in environment variable names", cfg.FactPrefix)
	}

	if cfg.Grammar == string(label.GrammarLegacy) && cfg.VersionSource == "tag" {
		v.errors.Warnf("label.version_source: legacy labels carry no version, tag lookup has no effect")
	}
}

func (v *Validator) validateGit(cfg GitConfig) {
	validBackends := []string{"go-git", "cli"}
	if !slices.Contains(validBackends, cfg.Backend) {
		v.errors.Addf("git.backend: must be one of %v, got %q", validBackends, cfg.Backend)
	}

	if cfg.Backend == "cli" && cfg.Executable == "" {
		v.errors.Addf("git.executable: required when backend is 'cli'")
	}

	if strings.TrimSpace(cfg.Ref) == "" {
		v.errors.Addf("git.ref: must not be empty")
	}

	if cfg.Remote == "" {
		v.errors.Warnf("git.remote: empty, the repository path will not be published")
	}
}

func (v *Validator) validateState(cfg StateConfig) {
	if !cfg.Enabled {
		v.errors.Warnf("state.enabled: false, build cycles only increase when --previous-label is given")
		return
	}
	if cfg.File == "" {
		v.errors.Addf("state.file: required when state is enabled")
	}
}

func (v *Validator) validatePublish(cfg PublishConfig) {
	if cfg.Dotenv.Enabled && cfg.Dotenv.File == "" {
		v.errors.Addf("publish.dotenv.file: required when dotenv publishing is enabled (is $GITHUB_ENV set?)")
	}
}

func (v *Validator) validateWatch(cfg WatchConfig) {
	d, err := time.ParseDuration(cfg.Debounce)
	if err != nil {
		v.errors.Addf("watch.debounce: invalid duration %q", cfg.Debounce)
		return
	}
	if d <= 0 {
		v.errors.Addf("watch.debounce: must be positive, got %s", d)
	}
}

func (v *Validator) validateOutput(cfg OutputConfig) {
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, cfg.Format) {
		v.errors.Addf("output.format: must be one of %v, got %q", validFormats, cfg.Format)
	}

	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		v.errors.Addf("output.log_level: must be one of [debug info warn error], got %q", cfg.LogLevel)
	}

	if cfg.Verbose && cfg.Quiet {
		v.errors.Warnf("output: both verbose and quiet are set, verbose wins")
	}
}

// Policy returns the label policy described by cfg.
func (cfg LabelConfig) Policy() (label.Policy, error) {
	grammar, err := label.ParseGrammar(cfg.Grammar)
	if err != nil {
		return label.Policy{}, rlerrors.ConfigWrap(err, "config.Policy", "invalid label.grammar")
	}
	return label.Policy{
		Grammar:            grammar,
		Major:              cfg.Major,
		Minor:              cfg.Minor,
		IncrementOnFailure: cfg.IncrementOnFailure,
	}, nil
}

// DebounceDuration returns the parsed debounce, or 500ms when invalid.
func (cfg WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(cfg.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
