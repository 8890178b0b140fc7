package initialize

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

func Parse(args []string) error {
	fs := pflag.NewFlagSet("init", pflag.ContinueOnError)
	var configPath, proxyURL, devToolsURL string
	var force bool
	fs.StringVar(&configPath, "config", "", "config file (default ~/.pageproxy/config.json)")
	fs.StringVar(&proxyURL, "proxy", "", "forward proxy URL to store")
	fs.StringVar(&devToolsURL, "devtools-url", "", "DevTools websocket URL of a running browser to store")
	fs.BoolVar(&force, "force", false, "overwrite an existing config")

	fs.Usage = func() {
		_, _ = fmt.Fprint(os.Stderr, `Usage: pageproxy init [options]

Write a config file with default settings. Edit it to change timeouts,
body limits, or browser flags.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	} else if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Args()[0])
	}

	return runInit(configPath, proxyURL, devToolsURL, force)
}

func ParseShow(args []string) error {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	var configPath string
	fs.StringVar(&configPath, "config", "", "config file (default ~/.pageproxy/config.json)")

	fs.Usage = func() {
		_, _ = fmt.Fprint(os.Stderr, `Usage: pageproxy config [options]

Print the effective config, with defaults filled in for anything the file
does not set.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	} else if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Args()[0])
	}

	return runShow(configPath)
}
