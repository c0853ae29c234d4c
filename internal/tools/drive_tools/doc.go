// Package drive_tools provides the MCP tools of the drivepicker server.
//
// The server runs with the drive.file scope, so every tool only sees files
// the application created and files the user selected in the Google Picker.
//
// Available tools:
//   - authenticate: Start the Google sign-in flow
//   - set_credentials: Complete sign-in with a pasted authorization code (stdio only)
//   - list_files: List accessible files, optionally inside a folder
//   - search_files: Search accessible files by name, MIME type and folder
//   - get_file: Get file metadata and optionally its content
//   - create_file: Create a file with optional text content
//   - create_folder: Create a folder
//   - update_file: Rename, rewrite or move a file
//   - delete_file: Permanently delete a file
//   - copy_file: Copy a file
//   - open_picker: Get the URL of the file picker (http only)
//
// create_file, create_folder, update_file, delete_file and copy_file are not
// registered when the server runs read-only.
//
// Example tool usage:
//
//	search_files({
//	  query: "quarterly report",
//	  mime_type: "application/vnd.google-apps.document",
//	  page_size: 10
//	})
//
//	get_file({
//	  file_id: "1AbC...",
//	  include_content: true
//	})
package drive_tools
