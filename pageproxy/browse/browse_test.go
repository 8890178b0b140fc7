package browse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-appsec/pageproxy/pageproxy/config"
)

func TestSessionOptions(t *testing.T) {
	t.Parallel()

	newConfig := func() *config.Config {
		cfg := config.DefaultConfig(config.Version)
		cfg.ProxyURL = "http://127.0.0.1:8080"
		cfg.DevToolsURL = "ws://127.0.0.1:9222/devtools/browser/abc"
		cfg.ChromeFlags = []string{"disable-gpu"}
		return cfg
	}

	t.Run("config_only", func(t *testing.T) {
		so := sessionOptions(newConfig(), options{headless: false})

		assert.Equal(t, "http://127.0.0.1:8080", so.ProxyURL)
		assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", so.DevToolsURL)
		assert.True(t, so.Headless)
		assert.Equal(t, []string{"disable-gpu"}, so.Flags)
	})

	t.Run("flags_override", func(t *testing.T) {
		cfg := newConfig()
		so := sessionOptions(cfg, options{
			proxyURL:    "socks5://127.0.0.1:1080",
			devToolsURL: "ws://other:9222/devtools/browser/x",
			headless:    false,
			headlessSet: true,
			chromeFlags: []string{"window-size=1280,800"},
			verbose:     true,
		})

		assert.Equal(t, "socks5://127.0.0.1:1080", so.ProxyURL)
		assert.Equal(t, "ws://other:9222/devtools/browser/x", so.DevToolsURL)
		assert.False(t, so.Headless)
		assert.Equal(t, []string{"disable-gpu", "window-size=1280,800"}, so.Flags)
		assert.True(t, so.Verbose)
		assert.Equal(t, []string{"disable-gpu"}, cfg.ChromeFlags)
	})

	t.Run("no_proxy", func(t *testing.T) {
		so := sessionOptions(newConfig(), options{noProxy: true})
		assert.Empty(t, so.ProxyURL)
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("no_urls", func(t *testing.T) {
		assert.ErrorContains(t, Parse([]string{"--headless=false"}), "at least one url")
	})

	t.Run("proxy_conflict", func(t *testing.T) {
		err := Parse([]string{"--no-proxy", "--proxy", "http://127.0.0.1:8080", "https://example.test/"})
		assert.ErrorContains(t, err, "mutually exclusive")
	})

	t.Run("negative_settle", func(t *testing.T) {
		err := Parse([]string{"--settle", "-1s", "https://example.test/"})
		assert.ErrorContains(t, err, "must not be negative")
	})

	t.Run("unknown_flag", func(t *testing.T) {
		assert.Error(t, Parse([]string{"--bogus", "https://example.test/"}))
	})
}
