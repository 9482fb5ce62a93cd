// Package cli provides the wgconv command line. It converts WireGuard
// client configs into proxy-core endpoint documents and applies them to
// stored profiles, restarting the kernel when the active profile changes.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yllada/wgconv/common"
	"github.com/yllada/wgconv/config"
	"github.com/yllada/wgconv/profile"
)

// Kernel is the part of kernel.Manager the commands drive.
type Kernel interface {
	Running() (profileID string, ok bool)
	Start(ctx context.Context, p *profile.Profile) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context, p *profile.Profile, delay time.Duration) error
	Uptime() time.Duration
}

// App bundles the collaborators a command runs against.
type App struct {
	Config    *config.Config
	Profiles  profile.Store
	Kernel    Kernel
	Clipboard common.ClipboardSink
	Notifier  common.Notifier
	Prompter  common.Prompter
	// History remembers the last raw input. Nil disables it.
	History common.CredentialStore
}

// Close releases the profile store and any notifier connection.
func (a *App) Close() error {
	if closer, ok := a.Notifier.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			common.LogDebug("Closing notifier: %v", err)
		}
	}
	if a.Profiles == nil {
		return nil
	}
	return a.Profiles.Close()
}

// Factory builds the App for a loaded configuration.
type Factory func(cfg *config.Config) (*App, error)

// BuildInfo is injected at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func (b BuildInfo) String() string {
	if b.Commit == "" || b.Commit == "unknown" {
		return b.Version
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", b.Version, b.Commit, b.Date)
}

type runner struct {
	factory    Factory
	configPath string
	verbose    bool
	app        *App
}

// Execute runs the command line with args and closes whatever the command
// opened.
func Execute(ctx context.Context, info BuildInfo, factory Factory, args []string) error {
	root, r := newRoot(info, factory)
	root.SetArgs(args)
	defer r.close()
	return root.ExecuteContext(ctx)
}

func newRoot(info BuildInfo, factory Factory) (*cobra.Command, *runner) {
	r := &runner{factory: factory}

	root := &cobra.Command{
		Use:   "wgconv",
		Short: "Convert WireGuard client configs into proxy-core endpoints",
		Long: `wgconv turns a WireGuard client configuration ([Interface] and [Peer]
sections) into a proxy-core "endpoints" JSON document.

The document can be printed, copied to the clipboard, or written into the
mixin of a stored profile. When the updated profile is the one the kernel
is running, the kernel is restarted with it.

Extension fields (dial_fields in the configuration file) are merged into
the endpoint before the fixed WireGuard fields.`,
		Version:       info.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.setup()
		},
	}

	root.PersistentFlags().StringVar(&r.configPath, "config", "", "configuration file (default ~/.config/wgconv/config.yaml)")
	root.PersistentFlags().BoolVarP(&r.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		r.newConvertCommand(),
		r.newApplyCommand(),
		r.newRunCommand(),
		r.newProfilesCommand(),
		r.newKernelCommand(),
	)
	return root, r
}

func (r *runner) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if r.configPath != "" {
		cfg, err = config.LoadFrom(r.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	level := common.ParseLevel(cfg.LogLevel)
	if r.verbose {
		level = common.LevelDebug
	}
	common.GetLogger().SetLevel(level)

	app, err := r.factory(cfg)
	if err != nil {
		return err
	}
	if app.Config == nil {
		app.Config = cfg
	}
	r.app = app
	return nil
}

func (r *runner) close() {
	if r.app == nil {
		return
	}
	if err := r.app.Close(); err != nil {
		common.LogWarn("Closing profile store: %v", err)
	}
	r.app = nil
}

// readInput returns the config text named by args: a file path, "-" for
// stdin, or stdin when args is empty.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("reading config: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("empty WireGuard config")
	}
	return string(data), nil
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
