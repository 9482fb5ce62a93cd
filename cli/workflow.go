package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/yllada/wgconv/common"
	"github.com/yllada/wgconv/converter"
	"github.com/yllada/wgconv/dialfields"
	"github.com/yllada/wgconv/keyring"
	"github.com/yllada/wgconv/profile"
)

// Prompt texts of the interactive flow.
const (
	promptConfigTitle = "Paste the WireGuard client config"
	pickTargetTitle   = "Select the profile to update, or copy to clipboard"
	clipboardLabel    = "Copy to clipboard"
)

// extensionFields decodes the configured dial fields, or override when set.
// Malformed text is reported and replaced by no fields.
func (a *App) extensionFields(override *string) converter.Fields {
	text := a.Config.DialFields
	if override != nil {
		text = *override
	}

	fields, err := dialfields.Parse(text)
	if err != nil {
		common.LogWarn("Failed to parse dial fields, using empty object: %v", err)
	}
	return fields
}

// activeProfile returns the profile the kernel serves, falling back to the
// configured one when no kernel is running.
func (a *App) activeProfile() string {
	if a.Kernel != nil {
		if id, ok := a.Kernel.Running(); ok {
			return id
		}
	}
	return a.Config.ActiveProfile
}

// applyResult describes what Apply changed.
type applyResult struct {
	Profile   *profile.Profile
	Restarted bool
}

// Apply stores text as the mixin config of the profile with id and restarts
// the kernel when that profile is active.
func (a *App) Apply(ctx context.Context, id, text string) (*applyResult, error) {
	p, err := a.Profiles.Get(id)
	if err != nil {
		a.notify("Profile not found", id)
		return nil, err
	}

	updated := p.WithMixinConfig(text)
	if err := a.Profiles.Update(updated); err != nil {
		a.notify("Failed to update profile", updated.Name)
		return nil, fmt.Errorf("updating profile %s: %w", updated.Name, err)
	}
	common.LogInfo("Updated mixin of profile %s", updated.Name)
	a.notify("Profile updated", updated.Name)

	result := &applyResult{Profile: updated}
	if a.Kernel == nil || a.activeProfile() != updated.ID {
		return result, nil
	}

	if err := a.Kernel.Restart(ctx, updated, a.Config.Kernel.RestartDelay); err != nil {
		a.notify("Kernel restart failed", err.Error())
		return result, fmt.Errorf("restarting kernel: %w", err)
	}
	result.Restarted = true
	a.notify("Kernel restarted", updated.Name)
	return result, nil
}

// Copy puts text on the clipboard.
func (a *App) Copy(text string) error {
	if err := a.Clipboard.WriteText(text); err != nil {
		return err
	}
	a.notify("Copied to clipboard", "endpoint config copied")
	return nil
}

// Run is the interactive flow: prompt for a config, convert it, and send
// the result to a chosen profile or the clipboard.
func (a *App) Run(ctx context.Context, out io.Writer) error {
	ext := a.extensionFields(nil)

	raw, err := a.Prompter.PromptConfig(ctx, promptConfigTitle, a.lastInput())
	if errors.Is(err, common.ErrCancelled) {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	text, err := converter.Convert(raw, ext)
	if err != nil {
		return fmt.Errorf("converting config: %w", err)
	}
	a.rememberInput(raw)

	profiles, err := a.Profiles.List()
	if err != nil {
		return fmt.Errorf("listing profiles: %w", err)
	}
	options := make([]common.Option, 0, len(profiles)+1)
	for _, p := range profiles {
		options = append(options, common.Option{Label: p.Name, Value: p.ID})
	}
	options = append(options, common.Option{Label: clipboardLabel, Value: common.ClipboardOption})

	selected, err := a.Prompter.Pick(ctx, pickTargetTitle, options)
	if errors.Is(err, common.ErrCancelled) {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	if selected == common.ClipboardOption {
		if err := a.Copy(text); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Copied to clipboard")
		return nil
	}

	result, err := a.Apply(ctx, selected, text)
	if err != nil {
		return err
	}
	printApplied(out, result)
	return nil
}

func printApplied(out io.Writer, result *applyResult) {
	fmt.Fprintf(out, "✓ Updated profile %s\n", result.Profile.Name)
	if result.Restarted {
		fmt.Fprintln(out, "✓ Kernel restarted")
	}
}

func (a *App) lastInput() string {
	if a.History == nil || !a.Config.RememberInput {
		return ""
	}
	raw, err := a.History.Get(keyring.LastInputKey)
	if err != nil {
		if !errors.Is(err, common.ErrCredentialsNotFound) {
			common.LogDebug("Could not read last input: %v", err)
		}
		return ""
	}
	return raw
}

func (a *App) rememberInput(raw string) {
	if a.History == nil || !a.Config.RememberInput {
		return
	}
	if err := a.History.Store(keyring.LastInputKey, raw); err != nil {
		common.LogWarn("Could not remember input: %v", err)
	}
}

func (a *App) notify(title, message string) {
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.Notify(title, message); err != nil {
		common.LogDebug("Notification failed: %v", err)
	}
}
