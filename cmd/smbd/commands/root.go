// Package commands implements the CLI commands for the smbd server.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "smbd",
	Short: "smbd - a standalone SMB2/3 server",
	Long: `smbd serves a single in-memory share over SMB2/3, with NTLM
authentication and 3.1.1 preauth integrity/signing.

Configuration is entirely environment-variable driven (SMB_PORT,
SMB_SHARE_PATH, ...); run "smbd serve --help" to see the full list.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
