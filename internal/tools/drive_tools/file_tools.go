package drive_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivepicker/internal/drive"
	"github.com/teemow/drivepicker/internal/format"
	"github.com/teemow/drivepicker/internal/instrumentation"
	"github.com/teemow/drivepicker/internal/server"
	"github.com/teemow/drivepicker/internal/tools/common"
)

// registerFileTools registers the file tools. The mutating tools are left
// out when readOnly is set.
func registerFileTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listFilesTool := mcp.NewTool("list_files",
		mcp.WithDescription("List files visible to drivepicker: files it created and files picked by the user"),
		mcp.WithString("parent_id",
			mcp.Description("Only list files inside this folder"),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Maximum number of files to return (1-100, default: 20)"),
			mcp.Min(1),
			mcp.Max(float64(maxPageSize)),
		),
		mcp.WithString("page_token",
			mcp.Description("Token from a previous call to fetch the next page"),
		),
		mcp.WithString("order_by",
			mcp.Description("Sort order, e.g. 'name' or 'modifiedTime desc' (default: modifiedTime desc)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'text' (default) or 'json'"),
			mcp.Enum(formatText, formatJSON),
		),
	)
	s.AddTool(listFilesTool, common.InstrumentedToolHandler("list_files", instrumentation.OperationList, sc, handleListFiles(sc)))

	searchFilesTool := mcp.NewTool("search_files",
		mcp.WithDescription("Search accessible files by name, type and folder"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text the file name must contain"),
		),
		mcp.WithString("mime_type",
			mcp.Description("Only return files of this MIME type"),
		),
		mcp.WithString("parent_id",
			mcp.Description("Only return files inside this folder"),
		),
		mcp.WithBoolean("trashed",
			mcp.Description("Search trashed files instead of regular ones (default: false)"),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Maximum number of files to return (1-100, default: 20)"),
			mcp.Min(1),
			mcp.Max(float64(maxPageSize)),
		),
		mcp.WithString("page_token",
			mcp.Description("Token from a previous call to fetch the next page"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'text' (default) or 'json'"),
			mcp.Enum(formatText, formatJSON),
		),
	)
	s.AddTool(searchFilesTool, common.InstrumentedToolHandler("search_files", instrumentation.OperationSearch, sc, handleSearchFiles(sc)))

	getFileTool := mcp.NewTool("get_file",
		mcp.WithDescription("Get file metadata and, optionally, its content. Google Docs are returned as Markdown, Sheets as CSV and Slides as plain text."),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The ID of the file"),
		),
		mcp.WithBoolean("include_content",
			mcp.Description("Include the file content (default: false)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'text' (default) or 'json'"),
			mcp.Enum(formatText, formatJSON),
		),
	)
	s.AddTool(getFileTool, common.InstrumentedToolHandler("get_file", instrumentation.OperationGet, sc, handleGetFile(sc)))

	if readOnly {
		return nil
	}

	createFileTool := mcp.NewTool("create_file",
		mcp.WithDescription("Create a new file in Google Drive"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the file (max 255 characters)"),
		),
		mcp.WithString("content",
			mcp.Description("Text content of the file"),
		),
		mcp.WithString("mime_type",
			mcp.Description("MIME type of the file (default: text/plain)"),
		),
		mcp.WithString("parent_id",
			mcp.Description("ID of the folder to create the file in"),
		),
	)
	s.AddTool(createFileTool, common.InstrumentedToolHandler("create_file", instrumentation.OperationCreate, sc, handleCreateFile(sc)))

	updateFileTool := mcp.NewTool("update_file",
		mcp.WithDescription("Rename a file, replace its content or move it between folders"),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The ID of the file to update"),
		),
		mcp.WithString("name",
			mcp.Description("New name of the file"),
		),
		mcp.WithString("content",
			mcp.Description("New text content of the file"),
		),
		mcp.WithString("add_parents",
			mcp.Description("Comma-separated folder IDs to add the file to"),
		),
		mcp.WithString("remove_parents",
			mcp.Description("Comma-separated folder IDs to remove the file from"),
		),
	)
	s.AddTool(updateFileTool, common.InstrumentedToolHandler("update_file", instrumentation.OperationUpdate, sc, handleUpdateFile(sc)))

	deleteFileTool := mcp.NewTool("delete_file",
		mcp.WithDescription("Permanently delete a file. This skips the trash and cannot be undone."),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The ID of the file to delete"),
		),
	)
	s.AddTool(deleteFileTool, common.InstrumentedToolHandler("delete_file", instrumentation.OperationDelete, sc, handleDeleteFile(sc)))

	copyFileTool := mcp.NewTool("copy_file",
		mcp.WithDescription("Copy a file"),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The ID of the file to copy"),
		),
		mcp.WithString("name",
			mcp.Description("Name of the copy (default: 'Copy of <name>')"),
		),
		mcp.WithString("parent_id",
			mcp.Description("ID of the folder to place the copy in"),
		),
	)
	s.AddTool(copyFileTool, common.InstrumentedToolHandler("copy_file", instrumentation.OperationCopy, sc, handleCopyFile(sc)))

	return nil
}

func handleListFiles(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		outFormat, err := outputFormat(args)
		if err != nil {
			return errorResult(err)
		}
		pageSize, pageToken, err := pageArgs(args)
		if err != nil {
			return errorResult(err)
		}

		orderBy := common.StringArg(args, "order_by")
		if orderBy == "" {
			orderBy = defaultOrderBy
		}

		client, err := getDriveClient(ctx, sc)
		if err != nil {
			return errorResult(err)
		}

		list, err := client.List(ctx, drive.ListOptions{
			Query:     drive.BuildQuery(drive.SearchPredicate{ParentID: common.StringArg(args, "parent_id")}),
			PageSize:  pageSize,
			PageToken: pageToken,
			OrderBy:   orderBy,
		})
		if err != nil {
			return errorResult(err)
		}

		return render(outFormat, list, func() string { return format.List(list) })
	}
}

func handleSearchFiles(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		query, err := common.RequiredStringArg(args, "query")
		if err != nil {
			return errorResult(err)
		}
		outFormat, err := outputFormat(args)
		if err != nil {
			return errorResult(err)
		}
		pageSize, pageToken, err := pageArgs(args)
		if err != nil {
			return errorResult(err)
		}

		client, err := getDriveClient(ctx, sc)
		if err != nil {
			return errorResult(err)
		}

		list, err := client.List(ctx, drive.ListOptions{
			Query: drive.BuildQuery(drive.SearchPredicate{
				Query:    query,
				MimeType: common.StringArg(args, "mime_type"),
				ParentID: common.StringArg(args, "parent_id"),
				Trashed:  common.OptionalBoolArg(args, "trashed"),
			}),
			PageSize:  pageSize,
			PageToken: pageToken,
		})
		if err != nil {
			return errorResult(err)
		}

		return render(outFormat, list, func() string { return format.List(list) })
	}
}

func handleGetFile(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		fileID, err := common.RequiredStringArg(args, "file_id")
		if err != nil {
			return errorResult(err)
		}
		outFormat, err := outputFormat(args)
		if err != nil {
			return errorResult(err)
		}
		includeContent := common.BoolArg(args, "include_content", false)

		client, err := getDriveClient(ctx, sc)
		if err != nil {
			return errorResult(err)
		}

		file, err := client.Get(ctx, fileID)
		if err != nil {
			return errorResult(err)
		}

		var note string
		if includeContent && !file.IsFolder() {
			content, err := client.GetContent(ctx, file)
			switch {
			case errors.Is(err, drive.ErrUnsupportedContent):
				note = fmt.Sprintf("Content not available: %v", err)
			case err != nil:
				return errorResult(err)
			case content.Truncated:
				file.Content = format.TruncateDownload(content.Text, format.MaxContentLength, drive.MaxContentBytes)
			default:
				file.Content = format.Truncate(content.Text, format.MaxContentLength)
			}
		}

		return render(outFormat, file, func() string {
			var b strings.Builder
			b.WriteString(format.Metadata(file))
			if file.Content != "" {
				b.WriteString("\n\nContent:\n")
				b.WriteString(file.Content)
			}
			if note != "" {
				b.WriteString("\n\n")
				b.WriteString(note)
			}
			return b.String()
		})
	}
}

func handleCreateFile(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		name, err := common.RequiredStringArg(args, "name")
		if err != nil {
			return errorResult(err)
		}
		if err := validateName(name); err != nil {
			return errorResult(err)
		}

		mimeType := common.StringArg(args, "mime_type")
		if mimeType == "" {
			mimeType = drive.DefaultMimeType
		}
		if mimeType == drive.FolderMimeType {
			return errorResult(errors.New("use create_folder to create folders"))
		}

		client, err := getDriveClient(ctx, sc)
		if err != nil {
			return errorResult(err)
		}

		file, err := client.Create(ctx, drive.CreateOptions{
			Name:     name,
			MimeType: mimeType,
			ParentID: common.StringArg(args, "parent_id"),
			Content:  common.OptionalStringArg(args, "content"),
		})
		if err != nil {
			return errorResult(err)
		}

		return mcp.NewToolResultText(fmt.Sprintf("File created successfully.\n\n%s", format.Metadata(file))), nil
	}
}

func handleUpdateFile(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		fileID, err := common.RequiredStringArg(args, "file_id")
		if err != nil {
			return errorResult(err)
		}

		opts := drive.UpdateOptions{
			Content:       common.OptionalStringArg(args, "content"),
			AddParents:    common.ParseCommaList(common.StringArg(args, "add_parents")),
			RemoveParents: common.ParseCommaList(common.StringArg(args, "remove_parents")),
		}
		if name := common.StringArg(args, "name"); name != "" {
			if err := validateName(name); err != nil {
				return errorResult(err)
			}
			opts.Name = name
		}
		if opts.IsEmpty() {
			return errorResult(errNoChanges)
		}

		client, err := getDriveClient(ctx, sc)
		if err != nil {
			return errorResult(err)
		}

		file, err := client.Update(ctx, fileID, opts)
		if err != nil {
			return errorResult(err)
		}

		return mcp.NewToolResultText(fmt.Sprintf("File updated successfully.\n\n%s", format.Metadata(file))), nil
	}
}

func handleDeleteFile(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		fileID, err := common.RequiredStringArg(args, "file_id")
		if err != nil {
			return errorResult(err)
		}

		client, err := getDriveClient(ctx, sc)
		if err != nil {
			return errorResult(err)
		}

		file, err := client.Get(ctx, fileID)
		if err != nil {
			return errorResult(err)
		}
		if err := client.Delete(ctx, fileID); err != nil {
			return errorResult(err)
		}

		return mcp.NewToolResultText(fmt.Sprintf("File deleted successfully.\n\nName: %s\nID: %s", file.Name, file.ID)), nil
	}
}

func handleCopyFile(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		fileID, err := common.RequiredStringArg(args, "file_id")
		if err != nil {
			return errorResult(err)
		}
		name := common.StringArg(args, "name")
		if err := validateName(name); err != nil {
			return errorResult(err)
		}

		client, err := getDriveClient(ctx, sc)
		if err != nil {
			return errorResult(err)
		}

		file, err := client.Copy(ctx, fileID, drive.CopyOptions{
			Name:     name,
			ParentID: common.StringArg(args, "parent_id"),
		})
		if err != nil {
			return errorResult(err)
		}

		return mcp.NewToolResultText(fmt.Sprintf("File copied successfully.\n\n%s", format.Metadata(file))), nil
	}
}
