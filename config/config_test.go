package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/VanDung-dev/flm-bridge/flm"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flm.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Remote.Address != "tcp://127.0.0.1:5570" {
		t.Errorf("Expected default remote address, got %s", cfg.Remote.Address)
	}
	if cfg.Remote.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", cfg.Remote.Timeout)
	}
	lib := cfg.LibraryConfiguration()
	if lib.Locale != "en" || lib.FilterListType != flm.Standard || !lib.AutoLiftUpDatabase {
		t.Errorf("Unexpected library defaults %+v", lib)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"
format = "json"

[remote]
address = "tcp://0.0.0.0:6000"
timeout = "5s"

[library]
working_directory = " /tmp/flm "
filter_list_type = "dns"
locale = "de-DE"
compiler_conditional_constants = ["windows", "adguard"]
request_timeout_ms = 1500
proxy_mode = "custom"
proxy_addr = "127.0.0.1:3128"
auto_lift_up_database = false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != zerolog.DebugLevel || !cfg.Log.JSON {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
	if cfg.Remote.Address != "tcp://0.0.0.0:6000" || cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("Unexpected remote config %+v", cfg.Remote)
	}
	if cfg.Remote.MetricsAddress != ":9570" {
		t.Errorf("Expected default metrics address, got %q", cfg.Remote.MetricsAddress)
	}

	lib := cfg.LibraryConfiguration()
	if lib.WorkingDirectory != "/tmp/flm" {
		t.Errorf("Expected trimmed working directory, got %q", lib.WorkingDirectory)
	}
	if lib.FilterListType != flm.DNS || lib.Locale != "de-DE" || lib.RequestTimeoutMs != 1500 {
		t.Errorf("Unexpected library config %+v", lib)
	}
	if len(lib.CompilerConditionalConstants) != 2 {
		t.Errorf("Expected 2 constants, got %v", lib.CompilerConditionalConstants)
	}
	if lib.RequestProxyMode != (flm.RequestProxyMode{Mode: flm.UseCustomProxy, Addr: "127.0.0.1:3128"}) {
		t.Errorf("Unexpected proxy mode %+v", lib.RequestProxyMode)
	}
	if lib.AutoLiftUpDatabase {
		t.Error("Expected auto lift up disabled")
	}
	if lib.DefaultFilterListExpiresPeriodSec != flm.DefaultExpiresValue {
		t.Errorf("Expected default expires, got %d", lib.DefaultFilterListExpiresPeriodSec)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[log\n", "load config"},
		{"unknown key", "[library]\nunknown = 1\n", "unknown key"},
		{"level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"format", "[log]\nformat = \"xml\"\n", "log.format"},
		{"timeout", "[remote]\ntimeout = \"soon\"\n", "remote.timeout"},
		{"list type", "[library]\nfilter_list_type = \"video\"\n", "filter_list_type"},
		{"proxy", "[library]\nproxy_mode = \"tor\"\n", "proxy_mode"},
		{"custom proxy without address", "[library]\nproxy_mode = \"custom\"\n", "library"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestParseProxyMode(t *testing.T) {
	tests := []struct {
		mode, addr string
		want       flm.RequestProxyMode
	}{
		{"", "", flm.RequestProxyMode{Mode: flm.UseSystemProxy}},
		{"", "proxy:8080", flm.RequestProxyMode{Mode: flm.UseCustomProxy, Addr: "proxy:8080"}},
		{"None", "", flm.RequestProxyMode{Mode: flm.NoProxy}},
		{"system", "ignored", flm.RequestProxyMode{Mode: flm.UseSystemProxy}},
	}
	for _, tt := range tests {
		got, err := ParseProxyMode(tt.mode, tt.addr)
		if err != nil || got != tt.want {
			t.Errorf("ParseProxyMode(%q, %q) = %+v, %v; want %+v", tt.mode, tt.addr, got, err, tt.want)
		}
	}
}
