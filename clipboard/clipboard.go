// Package clipboard copies converted documents to the system clipboard.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/yllada/wgconv/common"
)

// System writes to the desktop clipboard through xclip, xsel, wl-copy or
// the platform API, whichever is available.
type System struct{}

// New returns the system clipboard sink.
func New() *System {
	return &System{}
}

// Available reports whether a clipboard utility was found.
func (s *System) Available() bool {
	return !clipboard.Unsupported
}

// WriteText replaces the clipboard contents with text.
func (s *System) WriteText(text string) error {
	if clipboard.Unsupported {
		return common.ErrClipboardUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", common.ErrClipboardUnavailable, err)
	}
	common.LogDebug("Clipboard: copied %d bytes", len(text))
	return nil
}

// Memory is an in-process sink for tests.
type Memory struct {
	Text   string
	Writes int
}

// WriteText stores text.
func (m *Memory) WriteText(text string) error {
	m.Text = text
	m.Writes++
	return nil
}

var (
	_ common.ClipboardSink = (*System)(nil)
	_ common.ClipboardSink = (*Memory)(nil)
)
