package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/JesseRWeigel/stay-focused/pkg/appdir"
	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// resolveConfigPath returns the config file to use. Priority:
// 1. Explicit --config flag (non-empty)
// 2. <dir>/config.yaml (if it exists)
// An empty result means built-in defaults.
func resolveConfigPath(explicit string, d appdir.Dir) string {
	if explicit != "" {
		return explicit
	}

	if _, err := os.Stat(d.ConfigPath()); err == nil {
		return d.ConfigPath()
	}

	return ""
}

// persistNotifications records the notification permission in the config
// file at path, keeping the rest of the document (comments included) as is.
// A missing file is created.
func persistNotifications(path string, granted bool) error {
	var doc yaml.Node

	data, err := os.ReadFile(path) //nolint:gosec // path is the resolved config file
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = nil
	case err != nil:
		return fmt.Errorf("read config: %w", err)
	}

	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}

	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return errors.New("parse config: top level is not a mapping")
	}

	fb := mappingValue(root, "feedback")
	if fb.Kind != yaml.MappingNode {
		fb.Kind, fb.Tag, fb.Value, fb.Content = yaml.MappingNode, "", "", nil
	}

	v := mappingValue(fb, "notifications")
	v.Kind, v.Tag, v.Value = yaml.ScalarNode, "!!bool", fmt.Sprint(granted)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// mappingValue returns the value node for key in m, appending an empty
// entry when the key is absent.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}

	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	v := &yaml.Node{Kind: yaml.MappingNode}
	m.Content = append(m.Content, k, v)

	return v
}

// mdRenderer renders markdown to terminal-formatted output.
var mdRenderer *glamour.TermRenderer

func initMarkdownRenderer(width int) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	mdRenderer = r
}

// renderMarkdown converts markdown text to terminal-formatted output.
func renderMarkdown(text string) string {
	if mdRenderer == nil {
		return text
	}
	out, err := mdRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
