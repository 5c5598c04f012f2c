// cmd/cratespec/cli/app.go
package cli

import (
	"github.com/spf13/cobra"

	"github.com/LeeLiangmin/crate-spec/cmd/cratespec/output"
)

var rootCmd = &cobra.Command{
	Use:   "cratespec",
	Short: "Signed package container encoder/decoder",
	Long: `cratespec builds and verifies .scrate signed package containers:
structured metadata, a placeholder-then-fill signing protocol, and an
end-of-file fingerprint over the whole file.

Complete documentation of the container format is in spec.md.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Console is the global console for CLI commands.
var Console *output.Console

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	Console = output.DefaultConsole()

	rootCmd.PersistentFlags().StringP("configfile", "", "", "cratespec configuration file to use")
	rootCmd.PersistentFlags().StringP("verbosity", "", "normal", "Display verbosity (quiet, normal, detailed, diagnostic)")
	rootCmd.PersistentFlags().BoolP("non-interactive", "", false, "Do not prompt for a signing passphrase or other input")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		v, err := cmd.Flags().GetString("verbosity")
		if err != nil {
			return err
		}
		level, err := output.ParseVerbosity(v)
		if err != nil {
			return err
		}
		Console.SetVerbosity(level)
		return nil
	}
}

// SetupVersion configures version information after variables are set.
func SetupVersion() {
	rootCmd.SetVersionTemplate(GetFullVersion() + "\n")
	rootCmd.Version = GetVersion()
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}
