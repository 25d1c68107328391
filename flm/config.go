package flm

import "strings"

// FilterListType selects the database a library instance works with.
type FilterListType int32

const (
	Standard FilterListType = iota
	DNS
)

func (t FilterListType) String() string {
	switch t {
	case DNS:
		return "dns"
	default:
		return "standard"
	}
}

// ProxyMode selects how outgoing requests are proxied.
type ProxyMode int32

const (
	UseSystemProxy ProxyMode = iota
	NoProxy
	UseCustomProxy
)

// RequestProxyMode is a proxy mode with its custom address, if any.
type RequestProxyMode struct {
	Mode ProxyMode `cbor:"1,keyasint" json:"mode"`
	Addr string    `cbor:"2,keyasint,omitempty" json:"addr,omitempty"`
}

// ProxyModeFromOrdinal maps a serialized mode to a RequestProxyMode.
// Unknown values fall back to the system proxy.
func ProxyModeFromOrdinal(mode int32, addr string) RequestProxyMode {
	switch ProxyMode(mode) {
	case NoProxy:
		return RequestProxyMode{Mode: NoProxy}
	case UseCustomProxy:
		return RequestProxyMode{Mode: UseCustomProxy, Addr: addr}
	default:
		return RequestProxyMode{Mode: UseSystemProxy}
	}
}

const (
	MinimalExpiresValue     int32 = 3600
	DefaultExpiresValue     int32 = 86400
	DefaultRequestTimeoutMs int32 = 60000

	localeDelimiter = "_"
)

// Configuration describes a library instance.
type Configuration struct {
	FilterListType                    FilterListType   `cbor:"1,keyasint" json:"filter_list_type"`
	WorkingDirectory                  string           `cbor:"2,keyasint,omitempty" json:"working_directory,omitempty"`
	Locale                            string           `cbor:"3,keyasint" json:"locale"`
	DefaultFilterListExpiresPeriodSec int32            `cbor:"4,keyasint" json:"default_filter_list_expires_period_sec"`
	CompilerConditionalConstants      []string         `cbor:"5,keyasint,omitempty" json:"compiler_conditional_constants,omitempty"`
	MetadataURL                       string           `cbor:"6,keyasint" json:"metadata_url"`
	MetadataLocalesURL                string           `cbor:"7,keyasint" json:"metadata_locales_url"`
	RequestTimeoutMs                  int32            `cbor:"8,keyasint" json:"request_timeout_ms"`
	RequestProxyMode                  RequestProxyMode `cbor:"9,keyasint" json:"request_proxy_mode"`
	ShouldIgnoreExpiresForLocalURLs   bool             `cbor:"10,keyasint" json:"should_ignore_expires_for_local_urls"`
	AutoLiftUpDatabase                bool             `cbor:"11,keyasint" json:"auto_lift_up_database"`
	AppName                           string           `cbor:"12,keyasint" json:"app_name"`
	Version                           string           `cbor:"13,keyasint" json:"version"`
}

// DefaultConfiguration returns the configuration a fresh host starts from.
func DefaultConfiguration() Configuration {
	return Configuration{
		FilterListType:                    Standard,
		Locale:                            "en",
		DefaultFilterListExpiresPeriodSec: DefaultExpiresValue,
		RequestTimeoutMs:                  DefaultRequestTimeoutMs,
		RequestProxyMode:                  RequestProxyMode{Mode: UseSystemProxy},
		AutoLiftUpDatabase:                true,
	}
}

// Normalized returns a copy with the locale in storage form.
func (c Configuration) Normalized() Configuration {
	c.Locale = NormalizeLocale(c.Locale)
	return c
}

// NormalizeLocale converts "en-US" into "en_US".
func NormalizeLocale(locale string) string {
	return strings.ReplaceAll(locale, "-", localeDelimiter)
}

// FallbackLocale returns the language part of a normalized locale, or "".
func FallbackLocale(locale string) string {
	if i := strings.Index(locale, localeDelimiter); i >= 0 {
		return locale[:i]
	}
	return ""
}

// ResolveExpires returns the expiry to store for a list that declared
// filterExpires seconds.
func (c Configuration) ResolveExpires(filterExpires int32) int32 {
	if filterExpires < MinimalExpiresValue {
		return max(c.DefaultFilterListExpiresPeriodSec, MinimalExpiresValue)
	}
	return filterExpires
}

// Validate reports configuration values no instance can be built from.
func (c Configuration) Validate() error {
	if c.FilterListType != Standard && c.FilterListType != DNS {
		return Errorf(KindInvalidConfiguration, "unknown filter list type %d", c.FilterListType)
	}
	if c.RequestTimeoutMs < 0 {
		return Errorf(KindInvalidConfiguration, "negative request timeout %d", c.RequestTimeoutMs)
	}
	if c.RequestProxyMode.Mode == UseCustomProxy && c.RequestProxyMode.Addr == "" {
		return Errorf(KindInvalidConfiguration, "custom proxy mode without address")
	}
	return nil
}
