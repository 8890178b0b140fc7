package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/go-appsec/pageproxy/pageproxy/browse"
	"github.com/go-appsec/pageproxy/pageproxy/cliutil"
	"github.com/go-appsec/pageproxy/pageproxy/config"
	"github.com/go-appsec/pageproxy/pageproxy/fetch"
	"github.com/go-appsec/pageproxy/pageproxy/initialize"
)

var validCommands = []string{"browse", "fetch", "init", "config", "version", "help"}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printRootUsage()
		return 1
	}

	var err error
	switch args[0] {
	case "browse":
		err = browse.Parse(args[1:])
	case "fetch":
		err = fetch.Parse(args[1:])
	case "init":
		err = initialize.Parse(args[1:])
	case "config":
		err = initialize.ParseShow(args[1:])
	case "version", "--version", "-v":
		fmt.Printf("pageproxy version %s\n", config.Version)
		return 0
	case "help", "--help", "-h":
		printRootUsage()
		return 0
	default:
		err = cliutil.UnknownCommandError(args[0], validCommands)
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printRootUsage() {
	_, _ = fmt.Fprint(os.Stderr, `Usage: pageproxy <command> [options]

Send a browser's requests through a forward proxy, keeping the browser
cookie jar in sync with the responses.

Commands:
  browse     Load pages in a browser tab, forwarding every request
  fetch      Send requests through the bridge with an in-memory cookie jar
  init       Write a default config file
  config     Print the effective config

Use "pageproxy <command> --help" for specific command usage.
`)
}
