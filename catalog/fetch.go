package catalog

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/VanDung-dev/flm-bridge/flm"
)

// fetch downloads rawURL. http and https go over the network; file URLs and
// bare paths are read from disk.
func (c *Catalog) fetch(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", flm.FieldIsEmpty("url")
	}
	if isLocalURL(rawURL) {
		data, err := os.ReadFile(localPath(rawURL))
		if err != nil {
			return "", fsError(err)
		}
		return string(data), nil
	}

	cfg := c.config()
	client, err := c.httpClient(cfg)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", flm.Errorf(flm.KindHTTPClientNetworkError, "%v", err)
	}
	if cfg.AppName != "" {
		req.Header.Set("User-Agent", cfg.AppName+"/"+cfg.Version)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return "", netError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", flm.Strict200(resp.StatusCode, rawURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", flm.Errorf(flm.KindHTTPClientBodyRecoveryFailed, "%v", err)
	}

	c.log.Debug().
		Str("url", rawURL).
		Int("bytes", len(body)).
		Dur("took", time.Since(start)).
		Msg("fetched")
	return string(body), nil
}

func (c *Catalog) httpClient(cfg flm.Configuration) (*http.Client, error) {
	timeout := time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
	if c.transport != nil {
		return &http.Client{Transport: c.transport, Timeout: timeout}, nil
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	switch cfg.RequestProxyMode.Mode {
	case flm.NoProxy:
		tr.Proxy = nil
	case flm.UseCustomProxy:
		addr := cfg.RequestProxyMode.Addr
		if !strings.Contains(addr, "://") {
			addr = "http://" + addr
		}
		u, err := url.Parse(addr)
		if err != nil {
			return nil, flm.Errorf(flm.KindInvalidConfiguration, "proxy address %q: %v", cfg.RequestProxyMode.Addr, err)
		}
		tr.Proxy = http.ProxyURL(u)
	default:
		tr.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

func isLocalURL(rawURL string) bool {
	if strings.HasPrefix(rawURL, "file://") {
		return true
	}
	return !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://")
}

func localPath(rawURL string) string {
	if p, ok := strings.CutPrefix(rawURL, "file://"); ok {
		return p
	}
	return rawURL
}

// download fetches a list and compiles it for storage.
func (c *Catalog) download(ctx context.Context, rawURL string) (body string, h header, err error) {
	raw, err := c.fetch(ctx, rawURL)
	if err != nil {
		return "", header{}, err
	}
	if err := checkContent(raw); err != nil {
		return "", header{}, err
	}
	if err := verifyChecksum(raw); err != nil {
		return "", header{}, err
	}
	body, err = compile(raw, c.config().CompilerConditionalConstants)
	if err != nil {
		return "", header{}, err
	}
	return body, parseHeader(raw), nil
}
