package drive_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivepicker/internal/google"
	"github.com/teemow/drivepicker/internal/server"
	"github.com/teemow/drivepicker/internal/tools/common"
)

// registerPickerTools registers open_picker. The picker page is served by the
// HTTP transport, so the tool only exists in http mode.
func registerPickerTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	openPickerTool := mcp.NewTool("open_picker",
		mcp.WithDescription("Get the URL of the Google file picker. Files selected there become accessible to the other tools."),
	)
	s.AddTool(openPickerTool, common.InstrumentedToolHandler("open_picker", "", sc, handleOpenPicker(sc)))
	return nil
}

func handleOpenPicker(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !sc.Credentials().IsAuthenticated() {
			return errorResult(fmt.Errorf("%w%s", google.ErrNotAuthenticated, authHint(sc)))
		}
		if sc.Picker().APIKey == "" {
			return errorResult(errors.New("the file picker is not configured: set --picker-api-key"))
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"Open the file picker in your browser:\n\n%s\n\n"+
				"Files you select there become visible to list_files, search_files and get_file.",
			sc.PickerURL())), nil
	}
}
