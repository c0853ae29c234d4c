package drive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/drivepicker/internal/instrumentation"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders
	FolderMimeType = "application/vnd.google-apps.folder"

	// DefaultMimeType is used by Create when no MIME type is given
	DefaultMimeType = "text/plain"

	fileFields = "id, name, mimeType, createdTime, modifiedTime, size, webViewLink, parents, description, starred"
	listFields = "nextPageToken, files(" + fileFields + ")"
)

// Client wraps the Google Drive API service
type Client struct {
	service *drive.Service
	metrics *instrumentation.Metrics
}

// NewClient creates a Drive client authorized by ts. Extra options are
// appended after the authorized HTTP client, which lets callers point the
// client at another endpoint.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	httpClient := oauth2.NewClient(ctx, ts)

	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := drive.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{service: service}, nil
}

// SetMetrics enables Drive operation metrics. A nil recorder disables them.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// observe runs one upstream round trip inside a span, records its duration
// and converts googleapi errors into *APIError.
func (c *Client) observe(ctx context.Context, operation, fileID string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartDriveSpan(ctx, operation, fileID)
	start := time.Now()

	err := toAPIError(fn(ctx))

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordDriveOperation(ctx, operation, status, time.Since(start))
	instrumentation.EndSpan(span, err)
	return err
}

// List returns one page of files matching opts.Query.
func (c *Client) List(ctx context.Context, opts ListOptions) (*FileList, error) {
	call := c.service.Files.List().Fields(listFields)
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}
	if opts.PageSize > 0 {
		call = call.PageSize(int64(opts.PageSize))
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	if opts.OrderBy != "" {
		call = call.OrderBy(opts.OrderBy)
	}

	var resp *drive.FileList
	err := c.observe(ctx, instrumentation.OperationList, "", func(ctx context.Context) error {
		var err error
		resp, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]*FileMetadata, len(resp.Files))
	for i, f := range resp.Files {
		files[i] = convertFile(f)
	}

	// Drive does not report a total for filtered queries, so the page is
	// all we know about.
	return &FileList{
		Total:         len(files),
		Count:         len(files),
		Files:         files,
		HasMore:       resp.NextPageToken != "",
		NextPageToken: resp.NextPageToken,
	}, nil
}

// Get retrieves metadata for a specific file
func (c *Client) Get(ctx context.Context, fileID string) (*FileMetadata, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	var f *drive.File
	err := c.observe(ctx, instrumentation.OperationGet, fileID, func(ctx context.Context) error {
		var err error
		f, err = c.service.Files.Get(fileID).Context(ctx).Fields(fileFields).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}

	return convertFile(f), nil
}

// Create creates a file, uploading opts.Content as its body when set.
func (c *Client) Create(ctx context.Context, opts CreateOptions) (*FileMetadata, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("file name is required")
	}

	file := &drive.File{
		Name:     opts.Name,
		MimeType: opts.MimeType,
	}
	if file.MimeType == "" {
		file.MimeType = DefaultMimeType
	}
	if opts.ParentID != "" {
		file.Parents = []string{opts.ParentID}
	}

	call := c.service.Files.Create(file).Fields(fileFields)
	if opts.Content != nil {
		call = call.Media(strings.NewReader(*opts.Content), googleapi.ContentType(file.MimeType))
	}

	var created *drive.File
	err := c.observe(ctx, instrumentation.OperationCreate, "", func(ctx context.Context) error {
		var err error
		created, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return convertFile(created), nil
}

// CreateFolder creates a new folder in Google Drive
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*FileMetadata, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	return c.Create(ctx, CreateOptions{
		Name:     name,
		MimeType: FolderMimeType,
		ParentID: parentID,
	})
}

// Update renames a file, replaces its content and moves it between parents
// in a single call.
func (c *Client) Update(ctx context.Context, fileID string, opts UpdateOptions) (*FileMetadata, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}
	if opts.IsEmpty() {
		return nil, fmt.Errorf("no changes requested")
	}

	update := &drive.File{}
	if opts.Name != "" {
		update.Name = opts.Name
	}

	call := c.service.Files.Update(fileID, update).Fields(fileFields)
	if len(opts.AddParents) > 0 {
		call = call.AddParents(strings.Join(opts.AddParents, ","))
	}
	if len(opts.RemoveParents) > 0 {
		call = call.RemoveParents(strings.Join(opts.RemoveParents, ","))
	}
	if opts.Content != nil {
		call = call.Media(strings.NewReader(*opts.Content))
	}

	var updated *drive.File
	err := c.observe(ctx, instrumentation.OperationUpdate, fileID, func(ctx context.Context) error {
		var err error
		updated, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update file %s: %w", fileID, err)
	}

	return convertFile(updated), nil
}

// Delete permanently deletes a file, bypassing the trash.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("fileID is required")
	}

	err := c.observe(ctx, instrumentation.OperationDelete, fileID, func(ctx context.Context) error {
		return c.service.Files.Delete(fileID).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", fileID, err)
	}

	return nil
}

// Copy copies a file. The copy is created by this application and is
// therefore always visible under the drive.file scope.
func (c *Client) Copy(ctx context.Context, fileID string, opts CopyOptions) (*FileMetadata, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	file := &drive.File{Name: opts.Name}
	if opts.ParentID != "" {
		file.Parents = []string{opts.ParentID}
	}

	var copied *drive.File
	err := c.observe(ctx, instrumentation.OperationCopy, fileID, func(ctx context.Context) error {
		var err error
		copied, err = c.service.Files.Copy(fileID, file).Context(ctx).Fields(fileFields).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to copy file %s: %w", fileID, err)
	}

	return convertFile(copied), nil
}

// convertFile converts a Drive API File to our FileMetadata type
func convertFile(f *drive.File) *FileMetadata {
	meta := &FileMetadata{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		Parents:     f.Parents,
		Description: f.Description,
		Starred:     f.Starred,
	}

	if f.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			meta.CreatedTime = t
		}
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			meta.ModifiedTime = t
		}
	}

	return meta
}
