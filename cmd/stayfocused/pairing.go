package main

import (
	"errors"
	"strings"

	"github.com/JesseRWeigel/stay-focused/pkg/provider"
	"github.com/charmbracelet/huh"
)

// pairingInput holds the values bound to the pairing form. The form keeps
// pointers into it, so it lives on the heap and is replaced per form.
type pairingInput struct {
	deviceID string
	email    string
	password string
	notify   bool
}

func (in *pairingInput) credentials() provider.Credentials {
	return provider.Credentials{
		Email:    strings.TrimSpace(in.email),
		Password: in.password,
	}
}

// newPairingForm builds the device and account form. Credentials are
// optional only for the demo device.
func newPairingForm(in *pairingInput, demoID string, askNotify bool) *huh.Form {
	required := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(in.deviceID) == demoID {
				return nil
			}
			if strings.TrimSpace(s) == "" {
				return errors.New(field + " is required")
			}
			return nil
		}
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Device ID").
			Description("Printed on the headset, or \"" + demoID + "\" to try without one.").
			Value(&in.deviceID).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("device ID is required")
				}
				return nil
			}),
		huh.NewInput().
			Title("Email").
			Value(&in.email).
			Validate(required("email")),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&in.password).
			Validate(required("password")),
	}

	if askNotify {
		fields = append(fields, huh.NewConfirm().
			Title("Notify me when my focus drops?").
			Affirmative("Yes").
			Negative("No").
			Value(&in.notify))
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true)
}
