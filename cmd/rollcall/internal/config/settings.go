package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces environment overrides, e.g. ROLLCALL_SERVER_URL.
const EnvPrefix = "ROLLCALL_"

// Settings are the user-tunable knobs of the CLI.
type Settings struct {
	ServerURL  string `koanf:"server_url"`
	StorageDir string `koanf:"storage_dir"`
	LogLevel   string `koanf:"log_level"`
	LogFormat  string `koanf:"log_format"`
	ListenAddr string `koanf:"listen_addr"`
	MapToken   string `koanf:"map_token"`

	// CORSAllowedOrigins enables CORS on the kiosk server when non-empty.
	// The environment form is comma-separated.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{
		ServerURL:  "http://localhost:8000",
		LogLevel:   "info",
		LogFormat:  "text",
		ListenAddr: "127.0.0.1:8080",
	}
}

func (s Settings) asMap() map[string]any {
	return map[string]any{
		"server_url":  s.ServerURL,
		"storage_dir": s.StorageDir,
		"log_level":   s.LogLevel,
		"log_format":  s.LogFormat,
		"listen_addr": s.ListenAddr,
		"map_token":   s.MapToken,

		"cors_allowed_origins": s.CORSAllowedOrigins,
	}
}

// Load merges, in increasing priority: Defaults, the YAML file at path, the
// ROLLCALL_ environment and finally overrides (typically flags the user set
// explicitly). A missing file is not an error unless required is set.
func Load(path string, required bool, overrides map[string]any) (Settings, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(Defaults().asMap()), nil); err != nil {
		return Settings{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		_, statErr := os.Stat(path)
		switch {
		case statErr == nil:
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Settings{}, fmt.Errorf("load config file %s: %w", path, err)
			}
		case errors.Is(statErr, os.ErrNotExist) && !required:
		default:
			return Settings{}, fmt.Errorf("load config file %s: %w", path, statErr)
		}
	}

	// ROLLCALL_SERVER_URL -> server_url
	transform := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return Settings{}, fmt.Errorf("load env: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(mapProvider(overrides), nil); err != nil {
			return Settings{}, fmt.Errorf("load overrides: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal config: %w", err)
	}
	s.ServerURL = strings.TrimRight(s.ServerURL, "/")
	s.CORSAllowedOrigins = splitList(s.CORSAllowedOrigins)
	if s.ServerURL == "" {
		return Settings{}, errors.New("server_url must not be empty")
	}
	return s, nil
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// mapProvider feeds a plain map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
