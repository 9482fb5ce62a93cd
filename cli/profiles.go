package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yllada/wgconv/common"
	"github.com/yllada/wgconv/profile"
)

func (r *runner) newProfilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage stored profiles",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List profiles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				profiles, err := r.app.Profiles.List()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(profiles) == 0 {
					fmt.Fprintln(out, "No profiles configured.")
					fmt.Fprintln(out, "Add one with: wgconv profiles add NAME")
					return nil
				}

				active := r.app.activeProfile()
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tMIXIN\tUPDATED\tACTIVE")
				fmt.Fprintln(w, "--\t----\t-----\t-------\t------")
				for _, p := range profiles {
					mixin := "empty"
					if p.Mixin.Config != "" {
						mixin = fmt.Sprintf("%d bytes", len(p.Mixin.Config))
					}
					updated := "-"
					if !p.Updated.IsZero() {
						updated = p.Updated.Local().Format("2006-01-02 15:04")
					}
					isActive := ""
					if p.ID == active {
						isActive = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						common.ShortID(p.ID), p.Name, mixin, updated, isActive)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "add NAME",
			Short: "Add an empty profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p := profile.New(args[0])
				if err := r.app.Profiles.Add(p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Added profile %s (%s)\n", p.Name, common.ShortID(p.ID))
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove NAME|ID",
			Short: "Remove a profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := r.app.Profiles.Find(args[0])
				if err != nil {
					return fmt.Errorf("%w: %s", err, args[0])
				}
				if err := r.app.Profiles.Remove(p.ID); err != nil {
					return err
				}
				if r.app.Config.ActiveProfile == p.ID {
					r.app.Config.ActiveProfile = ""
					if err := r.app.Config.Save(); err != nil {
						common.LogWarn("Could not clear active profile: %v", err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed profile %s\n", p.Name)
				return nil
			},
		},
		r.newProfilesShowCommand(),
	)
	return cmd
}

func (r *runner) newProfilesShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show NAME|ID",
		Short: "Print a profile's mixin config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := r.app.Profiles.Find(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}
			if asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), p.ToJSON())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Mixin.Config)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the whole profile as JSON")
	return cmd
}
