package drive

import (
	"strings"
	"time"
)

// FileMetadata represents a file or folder in Google Drive
type FileMetadata struct {
	// ID is the unique identifier for the file
	ID string `json:"id"`

	// Name is the name of the file
	Name string `json:"name"`

	// MimeType is the MIME type of the file
	MimeType string `json:"mime_type"`

	// CreatedTime is when the file was created
	CreatedTime time.Time `json:"created_time,omitzero"`

	// ModifiedTime is when the file was last modified
	ModifiedTime time.Time `json:"modified_time,omitzero"`

	// Size is the size of the file in bytes (not populated for folders and
	// Workspace-native documents)
	Size int64 `json:"size,omitempty"`

	// WebViewLink is a link for opening the file in a relevant Google editor or viewer
	WebViewLink string `json:"web_view_link,omitempty"`

	// Parents are the IDs of the parent folders
	Parents []string `json:"parents,omitempty"`

	Description string `json:"description,omitempty"`
	Starred     bool   `json:"starred,omitempty"`

	// Content is the file body, only set when explicitly requested
	Content string `json:"content,omitempty"`
}

// IsFolder reports whether the file is a Drive folder.
func (f *FileMetadata) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// HasStoredSize reports whether Drive keeps a byte size for the file, which
// excludes folders and Workspace-native documents.
func (f *FileMetadata) HasStoredSize() bool {
	return f.MimeType != "" && !strings.HasPrefix(f.MimeType, workspacePrefix)
}

// FileList is one page of a list or search call.
type FileList struct {
	Total         int             `json:"total"`
	Count         int             `json:"count"`
	Files         []*FileMetadata `json:"files"`
	HasMore       bool            `json:"has_more"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

// ListOptions contains options for listing files
type ListOptions struct {
	// Query is a Drive filter expression, usually built with BuildQuery
	Query string

	// PageSize is the maximum number of files to return
	PageSize int

	// PageToken is the opaque cursor from a previous FileList
	PageToken string

	// OrderBy specifies the sort order (e.g., "modifiedTime desc", "name")
	OrderBy string
}

// CreateOptions contains options for creating a file
type CreateOptions struct {
	Name     string
	MimeType string
	ParentID string

	// Content is uploaded as the file body when non-nil
	Content *string
}

// UpdateOptions contains the changes applied by Update. Zero values leave
// the corresponding attribute untouched.
type UpdateOptions struct {
	Name          string
	Content       *string
	AddParents    []string
	RemoveParents []string
}

// IsEmpty reports whether the options would change nothing.
func (o *UpdateOptions) IsEmpty() bool {
	return o.Name == "" && o.Content == nil && len(o.AddParents) == 0 && len(o.RemoveParents) == 0
}

// CopyOptions contains options for copying a file
type CopyOptions struct {
	// Name of the copy; Drive uses "Copy of <name>" when empty
	Name     string
	ParentID string
}

// DeletedFile identifies a file removed by Delete.
type DeletedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
