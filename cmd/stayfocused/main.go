package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.3.0"

// subcommands maps a command name to its entry point.
var subcommands = map[string]func(args []string) error{
	"init":   runInitCmd,
	"mcp":    runMCPCmd,
	"status": runStatusCmd,
}

func main() {
	// Handle subcommands before flag parsing.
	if len(os.Args) > 1 {
		if cmd, ok := subcommands[os.Args[1]]; ok {
			if err := cmd(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stayfocused [flags]\n       stayfocused <command> [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n"+
			"  init    Create a .stayfocused directory and config\n"+
			"  mcp     Serve focus and session tools over MCP on stdio\n"+
			"  status  Print the state reported by a running status server\n")
	}

	configPath := flag.String("config", "", "path to configuration file (default: <dir>/config.yaml)")
	dir := flag.String("dir", ".stayfocused", "path to the .stayfocused directory")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	headless := flag.Bool("headless", false, "run without the terminal UI and log focus readings")
	device := flag.String("device", "", "device ID to pair on start (headless mode)")
	ephemeral := flag.Bool("ephemeral", false, "keep the pairing in memory only")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	opts := appOptions{
		configPath: *configPath,
		dir:        *dir,
		ephemeral:  *ephemeral,
		headless:   *headless,
	}

	if err := run(opts, *device); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts appOptions, device string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	a.serveStatus(ctx)

	if opts.headless {
		return runHeadless(ctx, a, device, os.Stdout)
	}

	return runTUI(ctx, a)
}
