// Package tui implements the interactive prompts of the run command:
// a multi-line editor for pasting a WireGuard config and a picker for the
// conversion target.
//
// When stdin is not a terminal the editor reads the whole of stdin
// instead, so the run command also works in pipelines.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/yllada/wgconv/common"
)

// Terminal prompts on a TTY.
type Terminal struct {
	in          io.Reader
	out         io.Writer
	interactive bool
}

// New returns a Terminal on the process's stdin, drawing on stderr.
func New() *Terminal {
	return &Terminal{
		in:          os.Stdin,
		out:         os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewWithIO returns a Terminal on explicit streams.
func NewWithIO(in io.Reader, out io.Writer, interactive bool) *Terminal {
	return &Terminal{in: in, out: out, interactive: interactive}
}

// Interactive reports whether prompts are drawn.
func (t *Terminal) Interactive() bool {
	return t.interactive
}

// PromptConfig opens the editor prefilled with initial. Without a terminal
// it returns stdin instead. Empty input is treated as a cancellation.
func (t *Terminal) PromptConfig(ctx context.Context, title, initial string) (string, error) {
	if !t.interactive {
		data, err := io.ReadAll(t.in)
		if err != nil {
			return "", fmt.Errorf("reading config from stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", common.ErrCancelled
		}
		return string(data), nil
	}

	final, err := t.run(ctx, newEditor(title, initial))
	if err != nil {
		return "", err
	}
	editor := final.(editorModel)
	if !editor.submitted || strings.TrimSpace(editor.Value()) == "" {
		return "", common.ErrCancelled
	}
	return editor.Value(), nil
}

// Pick shows options and returns the Value of the chosen one. A single
// option is returned without asking.
func (t *Terminal) Pick(ctx context.Context, title string, options []common.Option) (string, error) {
	switch {
	case len(options) == 0:
		return "", errors.New("nothing to pick from")
	case len(options) == 1:
		return options[0].Value, nil
	case !t.interactive:
		return "", fmt.Errorf("%w: %s", common.ErrNotInteractive, title)
	}

	final, err := t.run(ctx, newPicker(title, options))
	if err != nil {
		return "", err
	}
	picker := final.(pickerModel)
	if picker.choice == "" {
		return "", common.ErrCancelled
	}
	return picker.choice, nil
}

func (t *Terminal) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)
	final, err := p.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("running prompt: %w", err)
	}
	return final, nil
}

var _ common.Prompter = (*Terminal)(nil)
