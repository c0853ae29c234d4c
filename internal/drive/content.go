package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	mdconverter "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/teemow/drivepicker/internal/instrumentation"
)

// Workspace-native MIME types that can be exported as text.
const (
	DocumentMimeType     = "application/vnd.google-apps.document"
	SpreadsheetMimeType  = "application/vnd.google-apps.spreadsheet"
	PresentationMimeType = "application/vnd.google-apps.presentation"

	workspacePrefix = "application/vnd.google-apps."
)

// MaxContentBytes bounds how much of a file body is read into memory.
const MaxContentBytes = 10 << 20

// ErrUnsupportedContent is returned for files whose body cannot be shown as text.
var ErrUnsupportedContent = errors.New("file content is not available as text")

// exportFormat describes how a Workspace-native document is exported.
type exportFormat struct {
	mimeType   string
	toMarkdown bool
}

var exportFormats = map[string]exportFormat{
	DocumentMimeType:     {mimeType: "text/html", toMarkdown: true},
	SpreadsheetMimeType:  {mimeType: "text/csv"},
	PresentationMimeType: {mimeType: "text/plain"},
}

// Content is the text of a file body.
type Content struct {
	Text string

	// Truncated is set when the body exceeded MaxContentBytes and only the
	// first MaxContentBytes were read.
	Truncated bool
}

// GetContent returns the body of file as text. Docs are exported as HTML and
// converted to Markdown, Sheets as CSV and Slides as plain text. Other
// Workspace types, folders and binary files yield ErrUnsupportedContent.
func (c *Client) GetContent(ctx context.Context, file *FileMetadata) (*Content, error) {
	if file == nil || file.ID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	if export, ok := exportFormats[file.MimeType]; ok {
		return c.export(ctx, file.ID, export)
	}
	if strings.HasPrefix(file.MimeType, workspacePrefix) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, file.MimeType)
	}

	var (
		data      []byte
		truncated bool
	)
	err := c.observe(ctx, instrumentation.OperationGet, file.ID, func(ctx context.Context) error {
		resp, err := c.service.Files.Get(file.ID).Context(ctx).Download()
		if err != nil {
			return err
		}
		data, truncated, err = readBody(resp)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", file.ID, err)
	}

	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is binary", ErrUnsupportedContent, file.MimeType)
	}
	return &Content{Text: string(data), Truncated: truncated}, nil
}

func (c *Client) export(ctx context.Context, fileID string, format exportFormat) (*Content, error) {
	var (
		data      []byte
		truncated bool
	)
	err := c.observe(ctx, instrumentation.OperationExport, fileID, func(ctx context.Context) error {
		resp, err := c.service.Files.Export(fileID, format.mimeType).Context(ctx).Download()
		if err != nil {
			return err
		}
		data, truncated, err = readBody(resp)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export file %s: %w", fileID, err)
	}

	if !format.toMarkdown {
		return &Content{Text: string(data), Truncated: truncated}, nil
	}

	md, err := mdconverter.ConvertString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return &Content{Text: md, Truncated: truncated}, nil
}

// readBody reads at most MaxContentBytes and reports whether the body was
// longer. A cut body never ends in a partial UTF-8 sequence.
func readBody(resp *http.Response) ([]byte, bool, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxContentBytes+1))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read content: %w", err)
	}
	if len(data) <= MaxContentBytes {
		return data, false, nil
	}
	return trimPartialRune(data[:MaxContentBytes]), true, nil
}

// trimPartialRune drops an incomplete UTF-8 sequence from the end of b.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if !utf8.RuneStart(b[len(b)-i]) {
			continue
		}
		if !utf8.FullRune(b[len(b)-i:]) {
			return b[:len(b)-i]
		}
		return b
	}
	return b
}
