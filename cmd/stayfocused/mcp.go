package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/JesseRWeigel/stay-focused/pkg/tools/mcpserver"
)

// runMCPCmd serves the engine's tools over MCP on stdin/stdout. Logs go to
// the log file so stdout stays reserved for the protocol.
func runMCPCmd(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file (default: <dir>/config.yaml)")
	dir := fs.String("dir", ".stayfocused", "path to the .stayfocused directory")
	envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := loadDotEnv(*envFile); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := openApp(ctx, appOptions{configPath: *configPath, dir: *dir})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	srv := mcpserver.New("stayfocused", version)
	srv.Register(a.engine.Tools())

	a.logger.Info("serving MCP on stdio")

	return srv.Serve(ctx, os.Stdin, os.Stdout)
}
