// Package config loads the TOML configuration shared by the bridge commands.
//
//	[log]
//	level = "debug"
//	format = "json"
//
//	[remote]
//	address = "tcp://127.0.0.1:5570"
//	metrics_address = ":9570"
//
//	[library]
//	working_directory = "/var/lib/flm"
//	filter_list_type = "dns"
//	proxy_mode = "custom"
//	proxy_addr = "127.0.0.1:3128"
//
// Keys absent from the file keep their defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/logging"
)

// Config is the resolved configuration.
type Config struct {
	Log     logging.Config
	Remote  RemoteConfig
	Library flm.Configuration
}

// RemoteConfig configures the remote server and its metrics endpoint.
type RemoteConfig struct {
	Address        string
	MetricsAddress string
	Timeout        time.Duration
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: logging.DefaultConfig(),
		Remote: RemoteConfig{
			Address:        "tcp://127.0.0.1:5570",
			MetricsAddress: ":9570",
			Timeout:        30 * time.Second,
		},
		Library: flm.DefaultConfiguration(),
	}
}

type fileConfig struct {
	Log struct {
		Level   string `toml:"level"`
		Format  string `toml:"format"`
		NoColor bool   `toml:"no_color"`
	} `toml:"log"`
	Remote struct {
		Address        string `toml:"address"`
		MetricsAddress string `toml:"metrics_address"`
		Timeout        string `toml:"timeout"`
	} `toml:"remote"`
	Library struct {
		WorkingDirectory                  string   `toml:"working_directory"`
		FilterListType                    string   `toml:"filter_list_type"`
		Locale                            string   `toml:"locale"`
		DefaultFilterListExpiresPeriodSec int32    `toml:"default_filter_list_expires_period_sec"`
		CompilerConditionalConstants      []string `toml:"compiler_conditional_constants"`
		MetadataURL                       string   `toml:"metadata_url"`
		MetadataLocalesURL                string   `toml:"metadata_locales_url"`
		RequestTimeoutMs                  int32    `toml:"request_timeout_ms"`
		ProxyMode                         string   `toml:"proxy_mode"`
		ProxyAddr                         string   `toml:"proxy_addr"`
		ShouldIgnoreExpiresForLocalURLs   bool     `toml:"should_ignore_expires_for_local_urls"`
		AutoLiftUpDatabase                bool     `toml:"auto_lift_up_database"`
		AppName                           string   `toml:"app_name"`
		Version                           string   `toml:"version"`
	} `toml:"library"`
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %s", undecoded[0])
	}

	if meta.IsDefined("log", "level") {
		lvl, ok := logging.ParseLevel(raw.Log.Level)
		if !ok {
			return Config{}, fmt.Errorf("parse log.level: unknown level %q", raw.Log.Level)
		}
		cfg.Log.Level = lvl
	}
	if meta.IsDefined("log", "format") {
		switch strings.ToLower(strings.TrimSpace(raw.Log.Format)) {
		case "json":
			cfg.Log.JSON = true
		case "console", "text":
			cfg.Log.JSON = false
		default:
			return Config{}, fmt.Errorf("parse log.format: unknown format %q", raw.Log.Format)
		}
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}

	if meta.IsDefined("remote", "address") {
		cfg.Remote.Address = strings.TrimSpace(raw.Remote.Address)
	}
	if meta.IsDefined("remote", "metrics_address") {
		cfg.Remote.MetricsAddress = strings.TrimSpace(raw.Remote.MetricsAddress)
	}
	if meta.IsDefined("remote", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Remote.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse remote.timeout: %w", err)
		}
		cfg.Remote.Timeout = d
	}

	if err := applyLibrary(&cfg.Library, &raw, meta); err != nil {
		return Config{}, err
	}
	if err := cfg.Library.Validate(); err != nil {
		return Config{}, fmt.Errorf("library: %w", err)
	}
	return cfg, nil
}

func applyLibrary(lib *flm.Configuration, raw *fileConfig, meta toml.MetaData) error {
	r := &raw.Library
	defined := func(key string) bool { return meta.IsDefined("library", key) }

	if defined("working_directory") {
		lib.WorkingDirectory = strings.TrimSpace(r.WorkingDirectory)
	}
	if defined("filter_list_type") {
		t, err := ParseFilterListType(r.FilterListType)
		if err != nil {
			return err
		}
		lib.FilterListType = t
	}
	if defined("locale") {
		lib.Locale = strings.TrimSpace(r.Locale)
	}
	if defined("default_filter_list_expires_period_sec") {
		lib.DefaultFilterListExpiresPeriodSec = r.DefaultFilterListExpiresPeriodSec
	}
	if defined("compiler_conditional_constants") {
		lib.CompilerConditionalConstants = r.CompilerConditionalConstants
	}
	if defined("metadata_url") {
		lib.MetadataURL = strings.TrimSpace(r.MetadataURL)
	}
	if defined("metadata_locales_url") {
		lib.MetadataLocalesURL = strings.TrimSpace(r.MetadataLocalesURL)
	}
	if defined("request_timeout_ms") {
		lib.RequestTimeoutMs = r.RequestTimeoutMs
	}
	if defined("proxy_mode") || defined("proxy_addr") {
		mode, err := ParseProxyMode(r.ProxyMode, strings.TrimSpace(r.ProxyAddr))
		if err != nil {
			return err
		}
		lib.RequestProxyMode = mode
	}
	if defined("should_ignore_expires_for_local_urls") {
		lib.ShouldIgnoreExpiresForLocalURLs = r.ShouldIgnoreExpiresForLocalURLs
	}
	if defined("auto_lift_up_database") {
		lib.AutoLiftUpDatabase = r.AutoLiftUpDatabase
	}
	if defined("app_name") {
		lib.AppName = r.AppName
	}
	if defined("version") {
		lib.Version = r.Version
	}
	return nil
}

// ParseFilterListType accepts "standard" and "dns".
func ParseFilterListType(s string) (flm.FilterListType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return flm.Standard, nil
	case "dns":
		return flm.DNS, nil
	default:
		return 0, fmt.Errorf("parse library.filter_list_type: unknown type %q", s)
	}
}

// ParseProxyMode accepts "system", "none" and "custom". An address alone
// implies "custom".
func ParseProxyMode(mode, addr string) (flm.RequestProxyMode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "":
		if addr != "" {
			return flm.RequestProxyMode{Mode: flm.UseCustomProxy, Addr: addr}, nil
		}
		return flm.RequestProxyMode{Mode: flm.UseSystemProxy}, nil
	case "system":
		return flm.RequestProxyMode{Mode: flm.UseSystemProxy}, nil
	case "none", "no_proxy":
		return flm.RequestProxyMode{Mode: flm.NoProxy}, nil
	case "custom":
		return flm.RequestProxyMode{Mode: flm.UseCustomProxy, Addr: addr}, nil
	default:
		return flm.RequestProxyMode{}, fmt.Errorf("parse library.proxy_mode: unknown mode %q", mode)
	}
}

// LibraryConfiguration returns the configuration handed to the bridge.
func (c Config) LibraryConfiguration() flm.Configuration {
	return c.Library
}

// Logger builds the logger for app.
func (c Config) Logger(app string) zerolog.Logger {
	return logging.New(app, c.Log)
}
