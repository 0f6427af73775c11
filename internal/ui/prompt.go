package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("aborted")

func run(f *huh.Form) error {
	if err := f.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

// Confirm asks a yes/no question. Cancelling counts as no.
func Confirm(title, description string) bool {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	))
	if err := run(form); err != nil {
		return false
	}
	return ok
}

// ConfirmDanger is Confirm for destructive actions.
func ConfirmDanger(title, description string) bool {
	return Confirm("⚠ "+title, description)
}

// Secret reads a value without echoing it, e.g. a private key.
func Secret(title string, validate func(string) error) (string, error) {
	var v string
	input := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&v)
	if validate != nil {
		input = input.Validate(validate)
	}
	if err := run(huh.NewForm(huh.NewGroup(input))); err != nil {
		return "", err
	}
	return v, nil
}

// Choice is one option in Select.
type Choice struct {
	Label string
	Value string
}

// Select lets the user pick one of choices and returns its Value.
func Select(title string, choices []Choice) (string, error) {
	if len(choices) == 0 {
		return "", fmt.Errorf("nothing to choose from")
	}
	opts := make([]huh.Option[string], 0, len(choices))
	for _, c := range choices {
		opts = append(opts, huh.NewOption(c.Label, c.Value))
	}
	var v string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title(title).Options(opts...).Value(&v),
	))
	if err := run(form); err != nil {
		return "", err
	}
	return v, nil
}
