package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/drivepicker/internal/google"
	"github.com/teemow/drivepicker/internal/server"
)

// toolDoc is a registered tool plus the transports that expose it.
type toolDoc struct {
	Tool       mcp.Tool
	Transports []string
}

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
The tools of both transports are registered and introspected, so the output
always matches what the server exposes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.OutOrStdout(), cmd.ErrOrStderr(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(stdout, stderr io.Writer, outputFile string) error {
	docs, err := collectTools()
	if err != nil {
		return err
	}

	markdown := generateToolsMarkdown(docs)

	if outputFile == "" {
		_, err := io.WriteString(stdout, markdown)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(stderr, "Documentation written to: %s\n", outputFile)
	return nil
}

// collectTools registers the tools of both transports with write tools
// enabled and merges them by name. No credential is needed to list tools.
func collectTools() ([]toolDoc, error) {
	modes := []server.Options{
		{Mode: server.ModeStdio},
		{Mode: server.ModeHTTP, BaseURL: "http://localhost:8080"},
	}

	byName := make(map[string]*toolDoc)
	for _, opts := range modes {
		opts.Credentials = google.NewCredentialStore("", nil)

		serverContext, err := server.NewServerContext(context.Background(), opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create server context: %w", err)
		}

		mcpSrv, err := newMCPServer(serverContext)
		_ = serverContext.Shutdown()
		if err != nil {
			return nil, err
		}

		for name, serverTool := range mcpSrv.ListTools() {
			doc, ok := byName[name]
			if !ok {
				doc = &toolDoc{Tool: serverTool.Tool}
				byName[name] = doc
			}
			doc.Transports = append(doc.Transports, string(opts.Mode))
		}
	}

	docs := make([]toolDoc, 0, len(byName))
	for _, doc := range byName {
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Tool.Name < docs[j].Tool.Name
	})
	return docs, nil
}

func generateToolsMarkdown(docs []toolDoc) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running drivepicker as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	byCategory := groupToolsByCategory(docs)
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, anchor)
	}
	sb.WriteString("\n")

	sb.WriteString("## Access Model\n\n")
	sb.WriteString("drivepicker uses the `drive.file` scope. Tools only see:\n\n")
	sb.WriteString("- **Files created by drivepicker** through `create_file`, `create_folder` or `copy_file`\n")
	sb.WriteString("- **Files picked by the user** in the Google Picker (`open_picker`, http transport)\n\n")
	sb.WriteString("Write tools are not registered when the server runs with `--read-only`.\n\n")

	for _, category := range categories {
		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, doc := range byCategory[category] {
			sb.WriteString(generateToolMarkdown(doc))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// groupToolsByCategory keeps the input order inside each category.
func groupToolsByCategory(docs []toolDoc) map[string][]toolDoc {
	categories := make(map[string][]toolDoc)
	for _, doc := range docs {
		category := getCategoryFromToolName(doc.Tool.Name)
		categories[category] = append(categories[category], doc)
	}
	return categories
}

func getCategoryFromToolName(name string) string {
	switch name {
	case "authenticate", "set_credentials", "open_picker":
		return "Access Tools"
	case "create_folder":
		return "Folder Tools"
	}

	if strings.HasSuffix(name, "_file") || strings.HasSuffix(name, "_files") {
		return "File Tools"
	}
	return "Other"
}

func generateToolMarkdown(doc toolDoc) string {
	var sb strings.Builder
	tool := doc.Tool

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)

	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	if len(doc.Transports) == 1 {
		fmt.Fprintf(&sb, "_Only available with the %s transport._\n\n", doc.Transports[0])
	}

	if len(tool.InputSchema.Properties) == 0 {
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")

	propNames := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		propNames = append(propNames, name)
	}
	sort.Strings(propNames)

	for _, name := range propNames {
		propMap, ok := tool.InputSchema.Properties[name].(map[string]interface{})
		if !ok {
			continue
		}

		requiredStr := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			requiredStr = "required"
		}

		fmt.Fprintf(&sb, "- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr)
		if desc, ok := propMap["description"].(string); ok {
			sb.WriteString(desc)
		} else {
			sb.WriteString("no description")
		}
		if constraint := propertyConstraint(propMap); constraint != "" {
			fmt.Fprintf(&sb, " [%s]", constraint)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

// propertyConstraint renders enum values or numeric bounds from the schema.
func propertyConstraint(prop map[string]interface{}) string {
	if values, ok := prop["enum"].([]string); ok && len(values) > 0 {
		return "one of: " + strings.Join(values, ", ")
	}

	lo, hasMin := prop["minimum"].(float64)
	hi, hasMax := prop["maximum"].(float64)
	switch {
	case hasMin && hasMax:
		return fmt.Sprintf("%g-%g", lo, hi)
	case hasMin:
		return fmt.Sprintf(">= %g", lo)
	case hasMax:
		return fmt.Sprintf("<= %g", hi)
	}
	return ""
}
