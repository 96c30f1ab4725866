package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JesseRWeigel/stay-focused/pkg/appdir"
	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	"github.com/JesseRWeigel/stay-focused/pkg/identity"
	"github.com/charmbracelet/huh"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// wizardAnswers holds the raw form values. Numeric fields stay strings so
// the form can validate them as typed.
type wizardAnswers struct {
	BaseURL       string
	APIKey        string //nolint:gosec // env var reference, not a secret
	Storage       string
	Threshold     string
	NotifyCommand string
	StatusAddr    string
}

func defaultAnswers() wizardAnswers {
	def := engine.DefaultConfig()
	return wizardAnswers{
		APIKey:        "${STAYFOCUSED_API_KEY}",
		Storage:       def.Storage.Driver,
		Threshold:     strconv.FormatFloat(def.Feedback.Threshold, 'f', -1, 64),
		NotifyCommand: def.Feedback.NotifyCommand,
	}
}

func runInitCmd(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dir := fs.String("dir", ".stayfocused", "path to the .stayfocused directory")
	force := fs.Bool("force", false, "overwrite an existing config without asking")
	defaults := fs.Bool("defaults", false, "write the default config without prompting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d := appdir.New(*dir)

	answers := defaultAnswers()
	if !*defaults {
		if err := runWizard(&answers); err != nil {
			return err
		}
	}

	data, err := wizardConfigYAML(answers)
	if err != nil {
		return err
	}

	existing, err := os.ReadFile(d.ConfigPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read config: %w", err)
	case string(existing) == string(data):
		fmt.Printf("%s is already up to date\n", d.ConfigPath())
		return appdir.EnsureStructure(d)
	case !*force:
		fmt.Println(configDiff(d.ConfigPath(), string(existing), string(data)))

		var overwrite bool
		if err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title("Overwrite " + d.ConfigPath() + "?").Value(&overwrite),
		)).Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Config left unchanged")
			return appdir.EnsureStructure(d)
		}
	}

	if err := appdir.BootstrapWithConfig(d, data, true); err != nil {
		return err
	}

	fmt.Printf("Initialized %s\n", d.Root())
	if strings.HasPrefix(answers.APIKey, "${") {
		fmt.Printf("Set %s in your environment or .env file.\n", strings.Trim(answers.APIKey, "${}"))
	}

	return nil
}

func runWizard(a *wizardAnswers) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Device API base URL").
				Description("Leave empty to only use demo mode.").
				Value(&a.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("API key").
				Description("Use ${VAR} to read it from the environment.").
				Value(&a.APIKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Remember the paired device in").
				Options(
					huh.NewOption("SQLite database", identity.DriverSQLite),
					huh.NewOption("YAML file", identity.DriverFile),
					huh.NewOption("Memory only", identity.DriverMemory),
				).
				Value(&a.Storage),
			huh.NewInput().
				Title("Alert threshold").
				Description("Focus below this level (0 to 1) triggers feedback.").
				Value(&a.Threshold).
				Validate(func(s string) error {
					_, err := parseThreshold(s)
					return err
				}),
			huh.NewInput().
				Title("Notification command").
				Value(&a.NotifyCommand),
			huh.NewInput().
				Title("Status server address").
				Description("host:port for /metrics and /v1/state, empty to disable.").
				Placeholder(defaultStatusAddr).
				Value(&a.StatusAddr),
		),
	).Run()
}

func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return nil
	}
	return errors.New("must start with http:// or https://")
}

func parseThreshold(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.New("must be a number")
	}
	if v <= 0 || v > 1 {
		return 0, errors.New("must be greater than 0 and at most 1")
	}
	return v, nil
}

// wizardConfig applies the answers on top of the default config.
func wizardConfig(a wizardAnswers) (engine.Config, error) {
	cfg := engine.DefaultConfig()

	threshold, err := parseThreshold(a.Threshold)
	if err != nil {
		return engine.Config{}, fmt.Errorf("threshold: %w", err)
	}

	cfg.Provider.BaseURL = strings.TrimSpace(a.BaseURL)
	cfg.Provider.APIKey = strings.TrimSpace(a.APIKey)
	cfg.Provider.SessionCache = cfg.Provider.BaseURL != ""
	cfg.Storage.Driver = a.Storage
	cfg.Feedback.Threshold = threshold
	if cmd := strings.TrimSpace(a.NotifyCommand); cmd != "" {
		cfg.Feedback.NotifyCommand = cmd
	}
	cfg.Status.Addr = strings.TrimSpace(a.StatusAddr)

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}

	return cfg, nil
}

func wizardConfigYAML(a wizardAnswers) ([]byte, error) {
	cfg, err := wizardConfig(a)
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return data, nil
}

// configDiff returns a unified diff from oldContent to newContent.
func configDiff(path, oldContent, newContent string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: path,
		ToFile:   path + " (new)",
		Context:  3,
	}

	result, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("(diff error: %v)", err)
	}

	return result
}
