package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Logout key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Logout: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "logout")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Logout, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

const helpMarkdown = `# stay focused

Your focus level is read from the paired headset and shown as a percentage.
When it drops below the alert threshold the screen turns red, the terminal
bell pulses and a desktop notification is sent.

## Keys

| Key | Action |
|-----|--------|
| ` + "`l`" + ` | Sign out and forget the paired device |
| ` + "`?`" + ` | Toggle this help |
| ` + "`q`" + ` | Quit |

## Demo mode

Pair the device ID ` + "`%s`" + ` to try the app without a headset. Focus
readings are then generated locally.
`
