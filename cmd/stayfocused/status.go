package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/JesseRWeigel/stay-focused/pkg/appdir"
	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	"github.com/JesseRWeigel/stay-focused/pkg/provider/cloud"
)

const defaultStatusAddr = "127.0.0.1:9464"

// runStatusCmd queries the status server of a running instance.
func runStatusCmd(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := fs.String("addr", "", "status server address (default: status.addr from config, else "+defaultStatusAddr+")")
	configPath := fs.String("config", "", "path to configuration file (default: <dir>/config.yaml)")
	dir := fs.String("dir", ".stayfocused", "path to the .stayfocused directory")
	asJSON := fs.Bool("json", false, "print the raw JSON state")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target := *addr
	if target == "" {
		target = statusAddr(resolveConfigPath(*configPath, appdir.New(*dir)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := fetchState(ctx, "http://"+target)
	if err != nil {
		return fmt.Errorf("query %s: %w", target, err)
	}

	return printStatus(os.Stdout, snap, *asJSON)
}

// statusAddr returns status.addr from the config at path, falling back to
// the default address.
func statusAddr(path string) string {
	if path == "" {
		return defaultStatusAddr
	}

	cfg, err := engine.LoadConfig(path)
	if err != nil || cfg.Status.Addr == "" {
		return defaultStatusAddr
	}

	return cfg.Status.Addr
}

func fetchState(ctx context.Context, baseURL string) (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := cloud.NewClient(baseURL, cloud.Auth{}, nil).GetJSON(ctx, "/v1/state", "", &snap)
	return snap, err
}

func printStatus(w io.Writer, s engine.Snapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	device := s.DeviceID
	if device == "" {
		device = "(none)"
	}

	_, _ = fmt.Fprintf(w, "phase:   %s\n", s.Phase)
	_, _ = fmt.Fprintf(w, "device:  %s\n", device)
	if s.User != nil {
		_, _ = fmt.Fprintf(w, "user:    %s\n", s.User.Email)
	}
	if s.Linked() {
		_, _ = fmt.Fprintf(w, "focus:   %d%%\n", engine.Percent(s.Focus))
		_, _ = fmt.Fprintf(w, "alert:   %t\n", s.Alert)
	}
	if s.Demo {
		_, _ = fmt.Fprintln(w, "mode:    demo")
	}
	if s.LastError != "" {
		_, _ = fmt.Fprintf(w, "error:   %s\n", s.LastError)
	}

	return nil
}
