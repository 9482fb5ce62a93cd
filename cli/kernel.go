package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yllada/wgconv/common"
	"github.com/yllada/wgconv/kernel"
	"github.com/yllada/wgconv/profile"
)

func (r *runner) newKernelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kernel",
		Short: "Control the proxy core",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "start [NAME|ID]",
			Short: "Start the kernel with a profile (default: the active one)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				query := r.app.Config.ActiveProfile
				if len(args) == 1 {
					query = args[0]
				}
				if query == "" {
					return errors.New("no profile given and no active profile configured")
				}

				p, err := r.app.Profiles.Find(query)
				if err != nil {
					return fmt.Errorf("%w: %s", err, query)
				}
				if err := r.app.Kernel.Start(cmd.Context(), p); err != nil {
					return err
				}

				if r.app.Config.ActiveProfile != p.ID {
					r.app.Config.ActiveProfile = p.ID
					if err := r.app.Config.Save(); err != nil {
						common.LogWarn("Could not save active profile: %v", err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Kernel running %s\n", p.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the kernel",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				err := r.app.Kernel.Stop(cmd.Context())
				if errors.Is(err, common.ErrKernelNotRunning) {
					fmt.Fprintln(cmd.OutOrStdout(), "Kernel is not running.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Kernel stopped")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the kernel status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				out := cmd.OutOrStdout()
				id, ok := r.app.Kernel.Running()
				if !ok {
					fmt.Fprintln(out, "Kernel: Stopped")
					return nil
				}

				name := common.ShortID(id)
				if p, err := r.app.Profiles.Get(id); err == nil {
					name = p.Name
				}
				fmt.Fprintf(out, "Kernel: Running\nProfile: %s\nUptime: %s\n",
					name, formatDuration(r.app.Kernel.Uptime()))
				return nil
			},
		},
		r.newKernelWatchCommand(),
	)
	return cmd
}

func (r *runner) newKernelWatchCommand() *cobra.Command {
	watch := kernel.DefaultWatchdogConfig()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the kernel running with the active profile",
		Long: `Watch probes the kernel until interrupted and starts it again with the
active profile whenever its process is gone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.app.Config.ActiveProfile == "" {
				return errors.New("no active profile configured; start the kernel with a profile first")
			}

			config := watch
			config.RestartDelay = r.app.Config.Kernel.RestartDelay
			w := kernel.NewWatchdog(r.app.Kernel, r.resolveActive, config)
			w.SetOnRestart(func(p *profile.Profile, attempt int) {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Kernel restarted with %s (attempt %d)\n", p.Name, attempt)
				r.app.notify("Kernel restarted", p.Name)
			})

			fmt.Fprintf(cmd.OutOrStdout(), "Watching kernel every %s, press Ctrl+C to stop\n", config.CheckInterval)
			err := w.Run(cmd.Context())
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if err != nil {
				r.app.notify("Kernel failed", err.Error())
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&watch.CheckInterval, "interval", watch.CheckInterval, "probe interval")
	cmd.Flags().IntVar(&watch.MaxRestarts, "max-restarts", watch.MaxRestarts, "consecutive restarts before giving up (0 = unlimited)")
	return cmd
}

// resolveActive loads the active profile from the store.
func (r *runner) resolveActive() (*profile.Profile, error) {
	return r.app.Profiles.Get(r.app.Config.ActiveProfile)
}
