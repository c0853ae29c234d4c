package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the drivepicker application
var rootCmd = &cobra.Command{
	Use:   "drivepicker",
	Short: "MCP server for Google Drive with per-file access",
	Long: `drivepicker exposes Google Drive to AI assistants through the Model Context
Protocol. It runs with the drive.file scope: it only sees files it created
and files you pick with the Google Picker.

It can run as:
  - An MCP server over stdio (default)
  - An MCP server over streamable HTTP with sign-in and picker pages`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configPath is the --config flag shared by all commands.
var configPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "drivepicker version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "drivepicker version %s\n", version)
		},
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default: <user config dir>/drivepicker/config.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
