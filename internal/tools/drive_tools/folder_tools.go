package drive_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivepicker/internal/format"
	"github.com/teemow/drivepicker/internal/instrumentation"
	"github.com/teemow/drivepicker/internal/server"
	"github.com/teemow/drivepicker/internal/tools/common"
)

func registerFolderTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	createFolderTool := mcp.NewTool("create_folder",
		mcp.WithDescription("Create a new folder in Google Drive"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the folder (max 255 characters)"),
		),
		mcp.WithString("parent_id",
			mcp.Description("ID of the folder to create the new folder in"),
		),
	)
	s.AddTool(createFolderTool, common.InstrumentedToolHandler("create_folder", instrumentation.OperationCreate, sc, handleCreateFolder(sc)))

	return nil
}

func handleCreateFolder(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		name, err := common.RequiredStringArg(args, "name")
		if err != nil {
			return errorResult(err)
		}
		if err := validateName(name); err != nil {
			return errorResult(err)
		}

		client, err := getDriveClient(ctx, sc)
		if err != nil {
			return errorResult(err)
		}

		folder, err := client.CreateFolder(ctx, name, common.StringArg(args, "parent_id"))
		if err != nil {
			return errorResult(err)
		}

		return mcp.NewToolResultText(fmt.Sprintf("Folder created successfully.\n\n%s", format.Metadata(folder))), nil
	}
}
