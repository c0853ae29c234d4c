package drive_tools

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivepicker/internal/drive"
	"github.com/teemow/drivepicker/internal/format"
	"github.com/teemow/drivepicker/internal/server"
	"github.com/teemow/drivepicker/internal/tools/common"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxNameLength   = 255

	defaultOrderBy = "modifiedTime desc"

	formatText = "text"
	formatJSON = "json"
)

// RegisterDriveTools registers the authentication and Drive tools for the
// server's mode. Write tools are skipped in read-only mode.
func RegisterDriveTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := registerAuthTools(s, sc); err != nil {
		return fmt.Errorf("failed to register auth tools: %w", err)
	}

	if err := registerFileTools(s, sc, sc.ReadOnly()); err != nil {
		return fmt.Errorf("failed to register file tools: %w", err)
	}

	if !sc.ReadOnly() {
		if err := registerFolderTools(s, sc); err != nil {
			return fmt.Errorf("failed to register folder tools: %w", err)
		}
	}

	if sc.Mode() == server.ModeHTTP {
		if err := registerPickerTools(s, sc); err != nil {
			return fmt.Errorf("failed to register picker tools: %w", err)
		}
	}

	return nil
}

// errorResult renders err for the caller and flags the result as an error.
func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(format.Error(err)), nil
}

// getDriveClient returns an authorized client or an error result explaining
// how to authenticate.
func getDriveClient(ctx context.Context, sc *server.ServerContext) (*drive.Client, error) {
	client, err := sc.DriveClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w%s", err, authHint(sc))
	}
	return client, nil
}

func authHint(sc *server.ServerContext) string {
	if sc.Mode() == server.ModeHTTP {
		return fmt.Sprintf(" (sign in at %s)", sc.LoginURL())
	}
	return ""
}

// outputFormat reads and validates the format argument.
func outputFormat(args map[string]interface{}) (string, error) {
	f := common.StringArg(args, "format")
	switch f {
	case "":
		return formatText, nil
	case formatText, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("format must be %q or %q", formatText, formatJSON)
	}
}

// render returns v as JSON or as the text produced by text.
func render(outFormat string, v any, text func() string) (*mcp.CallToolResult, error) {
	if outFormat == formatJSON {
		out, err := format.JSON(v)
		if err != nil {
			return errorResult(err)
		}
		return mcp.NewToolResultText(out), nil
	}
	return mcp.NewToolResultText(text()), nil
}

// validateName enforces the Drive name length limit.
func validateName(name string) error {
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("name must be at most %d characters", maxNameLength)
	}
	return nil
}

// pageArgs reads page_size and page_token.
func pageArgs(args map[string]interface{}) (int, string, error) {
	pageSize, err := common.IntArg(args, "page_size", defaultPageSize, 1, maxPageSize)
	if err != nil {
		return 0, "", err
	}
	return pageSize, common.StringArg(args, "page_token"), nil
}

var errNoChanges = errors.New("at least one of name, content, add_parents or remove_parents is required")
