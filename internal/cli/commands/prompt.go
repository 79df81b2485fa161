package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

var errNonInteractive = errors.New("input required but stdin is not a terminal")

// Prompter asks the user for input
type Prompter interface {
	Input(label, defaultValue string, validate func(string) error) (string, error)
	Secret(label string) (string, error)
	Select(label string, items []string) (int, error)
}

// terminalPrompter prompts with promptui and reads passwords with x/term
type terminalPrompter struct {
	out io.Writer
}

func newTerminalPrompter(out io.Writer) *terminalPrompter {
	return &terminalPrompter{out: out}
}

func (p *terminalPrompter) interactive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

func (p *terminalPrompter) Input(label, defaultValue string, validate func(string) error) (string, error) {
	if !p.interactive() {
		return "", fmt.Errorf("%s: %w", label, errNonInteractive)
	}

	prompt := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: validate,
	}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("%s: %w", label, err)
	}
	return strings.TrimSpace(value), nil
}

func (p *terminalPrompter) Secret(label string) (string, error) {
	if !p.interactive() {
		return "", fmt.Errorf("%s: %w", label, errNonInteractive)
	}

	fmt.Fprintf(p.out, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(bytePassword), nil
}

func (p *terminalPrompter) Select(label string, items []string) (int, error) {
	if !p.interactive() {
		return 0, fmt.Errorf("%s: %w", label, errNonInteractive)
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("%s: nothing to select", label)
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ . | cyan }}",
		Inactive: "  {{ . }}",
		Selected: "{{ . | green }}",
	}

	prompt := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: templates,
		Size:      10,
	}
	index, _, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("%s cancelled: %w", strings.ToLower(label), err)
	}
	return index, nil
}

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("value is required")
	}
	return nil
}
