// Package cmd implements the command-line interface for drivepicker.
//
// This package provides the following commands:
//   - serve: Start the MCP server (stdio or http transport)
//   - auth login: Sign in with Google through a local callback listener
//   - auth status: Show the stored credential
//   - auth logout: Remove the stored credential
//   - auth import: Store a credential obtained elsewhere
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
