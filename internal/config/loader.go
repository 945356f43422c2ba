package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"mcpfed/pkg/logging"
)

// ConfigDirEnv is the environment variable naming the directory that
// contains config.json.
const ConfigDirEnv = "CONFIG_DIR"

// DefaultConfigDir is used when ConfigDirEnv is unset.
const DefaultConfigDir = "/config"

// ConfigDir returns the configured directory for config.json, falling back
// to DefaultConfigDir.
func ConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	return DefaultConfigDir
}

// ConfigPath returns the full path to config.json under ConfigDir.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LoadAppConfig reads and normalizes the config document at path. It fails
// soft: any read or parse error is logged and an empty, valid AppConfig is
// returned instead of an error, so that a missing or malformed config file
// never prevents the manager from starting.
func LoadAppConfig(path string) AppConfig {
	empty := AppConfig{MCPServers: map[string]ServerConfig{}}

	data, err := os.ReadFile(path)
	if err != nil {
		logging.Error("ConfigLoader", err, "failed to read config at %s", path)
		return empty
	}

	var raw rawAppConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		logging.Error("ConfigLoader", err, "failed to parse config at %s", path)
		return empty
	}

	if raw.MCPServers == nil {
		return empty
	}

	out := AppConfig{MCPServers: make(map[string]ServerConfig, len(raw.MCPServers))}
	for key, rsc := range raw.MCPServers {
		cfg, errs := Normalize(rsc)
		if errs.HasErrors() {
			logging.Warn("ConfigLoader", "server %q failed validation: %v", key, errs)
		}
		out.MCPServers[key] = cfg
	}
	return out
}

// WriteAppConfig serializes cfg as indented JSON and writes it to path,
// replacing any existing file.
func WriteAppConfig(path string, cfg AppConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Normalize canonicalizes a raw, possibly-legacy server configuration into
// a canonical ServerConfig shape. It never returns an
// error by itself; callers inspect the returned ValidationErrors to decide
// whether the resulting ServerConfig is usable (an invalid ServerConfig is
// still returned; a Managed Client built from it fails to open its
// Transport and settles into status=error).
//
// Normalize is idempotent: Normalize(normalized-as-raw) == normalized.
func Normalize(raw rawServerConfig) (ServerConfig, ValidationErrors) {
	var errs ValidationErrors

	cfg := ServerConfig{
		Label:     raw.Label,
		Enabled:   true,
		Schemas:   raw.Schemas,
		Retry:     raw.Retry,
		TimeoutMs: raw.TimeoutMs,
	}

	// disabled:true overrides the enabled default; enabled, if explicitly
	// set, wins over disabled when both are present.
	if raw.Disabled != nil && *raw.Disabled {
		cfg.Enabled = false
	}
	if raw.Enabled != nil {
		cfg.Enabled = *raw.Enabled
	}

	cfg.Transport = resolveTransport(raw)

	switch cfg.Transport.Type {
	case TransportStdio:
		if cfg.Transport.Command == "" {
			errs.Add("", "transport.command", "is required for stdio transport")
		}
	case TransportSSE, TransportStreamableHTTP:
		if cfg.Transport.URL == "" {
			errs.Add("", "transport.url", "is required for sse/streamable-http transport")
		}
	default:
		errs.Add("", "transport.type", "is missing or unrecognized")
	}

	return cfg, errs
}

// resolveTransport implements the legacy field-precedence rules:
// an explicit transport.type/transport wins; otherwise legacy top-level
// command/args/env/cwd imply stdio, top-level url/headers imply sse, and
// the deprecated transportType (+ optional httpSettings) is hoisted in.
func resolveTransport(raw rawServerConfig) Transport {
	if raw.Transport != nil && raw.Transport.Type != "" {
		t := *raw.Transport
		return Transport{
			Type:      TransportType(t.Type),
			Command:   t.Command,
			Args:      t.Args,
			Env:       t.Env,
			Cwd:       t.Cwd,
			Stderr:    t.Stderr,
			URL:       t.URL,
			Headers:   t.Headers,
			SessionID: t.SessionID,
		}
	}

	if raw.TransportType == "sse" || raw.TransportType == "streamable-http" {
		t := Transport{Type: TransportType(raw.TransportType)}
		if raw.HTTPSettings != nil && raw.HTTPSettings.URL != "" {
			t.URL = raw.HTTPSettings.URL
			t.Headers = raw.HTTPSettings.Headers
		} else {
			t.URL = raw.URL
			t.Headers = raw.Headers
		}
		return t
	}
	if raw.TransportType == "stdio" {
		return Transport{Type: TransportStdio, Command: raw.Command, Args: raw.Args, Env: raw.Env, Cwd: raw.Cwd}
	}

	if raw.Command != "" {
		return Transport{Type: TransportStdio, Command: raw.Command, Args: raw.Args, Env: raw.Env, Cwd: raw.Cwd}
	}
	if raw.URL != "" {
		return Transport{Type: TransportSSE, URL: raw.URL, Headers: raw.Headers}
	}

	// No recognizable transport fields at all; return whatever explicit
	// transport block (if any) was supplied so callers see its (invalid)
	// type rather than silently inventing one.
	if raw.Transport != nil {
		t := *raw.Transport
		return Transport{Type: TransportType(t.Type), Command: t.Command, Args: t.Args, Env: t.Env, Cwd: t.Cwd, URL: t.URL, Headers: t.Headers, SessionID: t.SessionID}
	}
	return Transport{}
}
