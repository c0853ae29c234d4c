// Package format renders Drive results and failures as tool output text.
package format

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/teemow/drivepicker/internal/drive"
)

// MaxContentLength is the number of characters of file content returned by get_file.
const MaxContentLength = 50000

// displayTime is the local display form for timestamps.
const displayTime = "2006-01-02 15:04:05 MST"

var sizeUnits = []string{"bytes", "KB", "MB", "GB", "TB"}

// Size renders a byte count at 1024 scale with two decimals, e.g. "1.50 KB".
func Size(bytes int64) string {
	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}

// Metadata renders the present fields of f, one per line, in a fixed order.
func Metadata(f *drive.FileMetadata) string {
	var b strings.Builder

	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}

	line("Name", f.Name)
	line("ID", f.ID)
	line("Type", f.MimeType)
	if f.Size > 0 || f.HasStoredSize() {
		line("Size", Size(f.Size))
	}
	if !f.CreatedTime.IsZero() {
		line("Created", f.CreatedTime.Local().Format(displayTime))
	}
	if !f.ModifiedTime.IsZero() {
		line("Modified", f.ModifiedTime.Local().Format(displayTime))
	}
	line("Link", f.WebViewLink)
	line("Description", f.Description)

	return strings.TrimSuffix(b.String(), "\n")
}

// List renders a page of files with a count header and a pagination hint.
// An empty page that still has a cursor keeps the hint.
func List(l *drive.FileList) string {
	if len(l.Files) == 0 && !l.HasMore {
		return "No files found."
	}

	var b strings.Builder
	if len(l.Files) == 0 {
		b.WriteString("No files on this page.")
	} else {
		fmt.Fprintf(&b, "Found %d files (showing %d):\n\n", l.Total, l.Count)
	}

	for i, f := range l.Files {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Metadata(f))
	}

	if l.HasMore {
		fmt.Fprintf(&b, "\n\nMore results available. Use page_token: %s", l.NextPageToken)
	}
	return b.String()
}

// Truncate limits text to limit characters and appends a notice naming the
// original and shown lengths. Text within the limit is returned unchanged.
func Truncate(text string, limit int) string {
	limit = max(limit, 0)
	total := utf8.RuneCountInString(text)
	if total <= limit {
		return text
	}

	runes := []rune(text)
	return string(runes[:limit]) +
		fmt.Sprintf("\n\n[Content truncated: showing first %d of %d characters]", limit, total)
}

// TruncateDownload is Truncate for a body that was already cut after
// capBytes bytes, so its original length is unknown.
func TruncateDownload(text string, limit int, capBytes int64) string {
	limit = max(limit, 0)
	runes := []rune(text)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) +
		fmt.Sprintf("\n\n[Content truncated: showing first %d characters of more than %d bytes]", len(runes), capBytes)
}

// JSON renders v as indented JSON.
func JSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(data), nil
}

// Error translates a failure into user guidance. v is usually an error but
// may be any value recovered from a panic.
func Error(v any) string {
	err, ok := v.(error)
	if !ok {
		return fmt.Sprintf("Unknown error: %v", v)
	}

	var apiErr *drive.APIError
	if !errors.As(err, &apiErr) {
		return "Error: " + err.Error()
	}

	switch apiErr.Code {
	case http.StatusUnauthorized:
		return "Authentication failed. Your credentials are missing, expired or revoked. " +
			"Run the authenticate tool to sign in again."
	case http.StatusForbidden:
		return "Access forbidden. This server uses the drive.file scope and can only access files " +
			"it created or files you explicitly opened with the file picker. " +
			"Details: " + apiErr.Message
	case http.StatusNotFound:
		return "File not found. With the drive.file scope the server only sees files it created " +
			"or files you granted through the file picker. Use the file picker to select the file " +
			"and grant access, then retry."
	case http.StatusTooManyRequests:
		return "Rate limit exceeded. Wait a moment before retrying the request."
	default:
		return fmt.Sprintf("Google Drive API error (%d): %s", apiErr.Code, apiErr.Message)
	}
}
