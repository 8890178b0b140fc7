package initialize

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-appsec/pageproxy/pageproxy/bridge"
	"github.com/go-appsec/pageproxy/pageproxy/cliutil"
	"github.com/go-appsec/pageproxy/pageproxy/config"
)

func runInit(configPath, proxyURL, devToolsURL string, force bool) error {
	if configPath == "" {
		var err error
		if configPath, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	if err := writeConfig(configPath, proxyURL, devToolsURL, force); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "%s %s\n", cliutil.Success("Wrote"), configPath)
	cliutil.HintCommand(os.Stdout, "To load a page through the proxy", "pageproxy browse <url>")
	return nil
}

// writeConfig saves a default config to path. An existing file is kept
// unless force is set.
func writeConfig(path, proxyURL, devToolsURL string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if _, err := bridge.ParseProxyURL(proxyURL); err != nil {
		return err
	}

	cfg := config.DefaultConfig(config.Version)
	cfg.ProxyURL = proxyURL
	cfg.DevToolsURL = devToolsURL
	return cfg.Save(path)
}

func runShow(configPath string) error {
	cfg, path, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "%s\n", cliutil.Bold(path))
	return writeJSON(os.Stdout, cfg)
}

func writeJSON(w io.Writer, cfg *config.Config) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
