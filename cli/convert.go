package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yllada/wgconv/converter"
)

func (r *runner) newConvertCommand() *cobra.Command {
	var (
		dialFields  string
		toClipboard bool
	)

	cmd := &cobra.Command{
		Use:   "convert [file|-]",
		Short: "Convert a WireGuard config and print the endpoints document",
		Long: `Convert reads a WireGuard client config from a file, or from stdin when
no file or "-" is given, and prints the proxy-core endpoints document.`,
		Example: `  wgconv convert wg0.conf
  wgconv convert --dial-fields '{"detour":"direct"}' < wg0.conf
  wgconv convert --clipboard wg0.conf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var override *string
			if cmd.Flags().Changed("dial-fields") {
				override = &dialFields
			}

			text, err := converter.Convert(raw, r.app.extensionFields(override))
			if err != nil {
				return err
			}

			if toClipboard {
				if err := r.app.Copy(text); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "✓ Copied to clipboard")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&dialFields, "dial-fields", "", "JSON object merged into the endpoint (overrides dial_fields)")
	cmd.Flags().BoolVar(&toClipboard, "clipboard", false, "copy the document to the clipboard instead of printing it")
	return cmd
}

func (r *runner) newApplyCommand() *cobra.Command {
	var profileName string

	cmd := &cobra.Command{
		Use:   "apply --profile NAME|ID [file|-]",
		Short: "Convert a WireGuard config into a profile's mixin",
		Long: `Apply converts a WireGuard client config and stores the result as the
mixin config of a profile. When the kernel runs that profile it is
restarted with the new config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := r.app.Profiles.Find(profileName)
			if err != nil {
				return fmt.Errorf("%w: %s", err, profileName)
			}

			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			text, err := converter.Convert(raw, r.app.extensionFields(nil))
			if err != nil {
				return err
			}

			result, err := r.app.Apply(cmd.Context(), p.ID, text)
			if err != nil {
				return err
			}
			printApplied(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile name or ID")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func (r *runner) newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Paste a config, convert it, and pick where it goes",
		Long: `Run opens an editor for a WireGuard client config, converts it, and
offers the stored profiles plus the clipboard as targets. Without a
terminal the config is read from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.app.Run(cmd.Context(), cmd.OutOrStdout())
		},
	}
}
