package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
	"github.com/relicta-tech/revlabel/internal/fileutil"
)

// Marshal encodes cfg as yaml, toml or json.
func Marshal(cfg *Config, format string) ([]byte, error) {
	const op = "config.Marshal"

	switch strings.ToLower(format) {
	case "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, rlerrors.ConfigWrap(err, op, "failed to encode yaml")
		}
		if err := enc.Close(); err != nil {
			return nil, rlerrors.ConfigWrap(err, op, "failed to encode yaml")
		}
		return buf.Bytes(), nil
	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return nil, rlerrors.ConfigWrap(err, op, "failed to encode toml")
		}
		return data, nil
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, rlerrors.ConfigWrap(err, op, "failed to encode json")
		}
		return append(data, '\n'), nil
	default:
		return nil, rlerrors.Config(op, fmt.Sprintf("unsupported config format %q", format))
	}
}

// FormatFromPath returns the encoding implied by the extension of path.
func FormatFromPath(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "yaml"
	}
	return strings.ToLower(ext)
}

// WriteConfig writes cfg to path in the format implied by its extension.
func WriteConfig(cfg *Config, path string) error {
	const op = "config.WriteConfig"

	data, err := Marshal(cfg, FormatFromPath(path))
	if err != nil {
		return err
	}
	if err := fileutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return rlerrors.ConfigWrap(err, op, "failed to write config file")
	}
	return nil
}

// WriteDefaultConfig writes the default configuration to path.
func WriteDefaultConfig(path string) error {
	return WriteConfig(DefaultConfig(), path)
}
