package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// confirm prompts the user before a destructive command runs. Callers
// should skip it entirely when --yes is set.
func confirm(prompt string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return ok, nil
}
