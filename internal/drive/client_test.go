package drive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"

	"github.com/teemow/drivepicker/internal/drive/drivetest"
)

func newTestClient(t *testing.T) (*Client, *drivetest.Server) {
	t.Helper()

	srv := drivetest.NewServer(t)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})

	client, err := NewClient(context.Background(), ts, srv.ClientOptions()...)
	require.NoError(t, err)
	return client, srv
}

func TestConvertFile(t *testing.T) {
	driveFile := &drive.File{
		Id:           "file123",
		Name:         "test.pdf",
		MimeType:     "application/pdf",
		Size:         1024,
		CreatedTime:  "2023-01-01T10:00:00Z",
		ModifiedTime: "2023-01-02T15:30:00Z",
		WebViewLink:  "https://drive.google.com/file/d/file123/view",
		Parents:      []string{"parent1", "parent2"},
		Description:  "quarterly numbers",
		Starred:      true,
	}

	meta := convertFile(driveFile)

	assert.Equal(t, "file123", meta.ID)
	assert.Equal(t, "test.pdf", meta.Name)
	assert.Equal(t, "application/pdf", meta.MimeType)
	assert.Equal(t, int64(1024), meta.Size)
	assert.Equal(t, "https://drive.google.com/file/d/file123/view", meta.WebViewLink)
	assert.Equal(t, []string{"parent1", "parent2"}, meta.Parents)
	assert.Equal(t, "quarterly numbers", meta.Description)
	assert.True(t, meta.Starred)
	assert.Equal(t, time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC), meta.CreatedTime.UTC())
	assert.Equal(t, time.Date(2023, 1, 2, 15, 30, 0, 0, time.UTC), meta.ModifiedTime.UTC())
}

func TestConvertFile_InvalidTimes(t *testing.T) {
	meta := convertFile(&drive.File{Id: "x", CreatedTime: "yesterday"})

	assert.True(t, meta.CreatedTime.IsZero())
	assert.True(t, meta.ModifiedTime.IsZero())
}

func TestClient_List(t *testing.T) {
	client, srv := newTestClient(t)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		srv.AddFile(&drive.File{Name: name, MimeType: "text/plain"}, name)
	}

	ctx := context.Background()
	page, err := client.List(ctx, ListOptions{
		Query:    BuildQuery(SearchPredicate{ParentID: "root"}),
		PageSize: 2,
		OrderBy:  "modifiedTime desc",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, page.Count)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextPageToken)
	assert.Equal(t, "a.txt", page.Files[0].Name)

	q := srv.LastListQuery()
	assert.Equal(t, "'root' in parents and trashed=false", q.Get("q"))
	assert.Equal(t, "2", q.Get("pageSize"))
	assert.Equal(t, "modifiedTime desc", q.Get("orderBy"))

	next, err := client.List(ctx, ListOptions{PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	assert.Equal(t, 1, next.Count)
	assert.False(t, next.HasMore)
	assert.Empty(t, next.NextPageToken)
	assert.Equal(t, "c.txt", next.Files[0].Name)
	assert.Equal(t, page.NextPageToken, srv.LastListQuery().Get("pageToken"))
}

func TestClient_Get(t *testing.T) {
	client, srv := newTestClient(t)
	id := srv.AddFile(&drive.File{
		Name:         "notes.md",
		MimeType:     "text/markdown",
		Size:         42,
		ModifiedTime: "2024-05-06T07:08:09Z",
	}, "# notes")

	meta, err := client.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, meta.ID)
	assert.Equal(t, "notes.md", meta.Name)
	assert.Equal(t, int64(42), meta.Size)
	assert.False(t, meta.ModifiedTime.IsZero())

	_, err = client.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_Get_NotFound(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Get(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Code)
	assert.Contains(t, apiErr.Message, "File not found")
	assert.True(t, IsNotFound(err))
}

func TestClient_UpstreamErrors(t *testing.T) {
	client, srv := newTestClient(t)
	srv.FailWith(429, "User rate limit exceeded.")

	_, err := client.List(context.Background(), ListOptions{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Code)
	assert.Equal(t, "User rate limit exceeded.", apiErr.Message)
}

func TestClient_Create(t *testing.T) {
	client, srv := newTestClient(t)
	content := "hello drive"

	meta, err := client.Create(context.Background(), CreateOptions{
		Name:     "hello.txt",
		ParentID: "folder1",
		Content:  &content,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello.txt", meta.Name)
	assert.Equal(t, DefaultMimeType, meta.MimeType)
	assert.Equal(t, []string{"folder1"}, meta.Parents)
	assert.Equal(t, content, srv.Content(meta.ID))
	assert.Contains(t, srv.Requests(), "POST /upload/drive/v3/files")
}

func TestClient_Create_MetadataOnly(t *testing.T) {
	client, srv := newTestClient(t)

	meta, err := client.Create(context.Background(), CreateOptions{Name: "empty.txt"})
	require.NoError(t, err)
	assert.Equal(t, "empty.txt", meta.Name)
	assert.Contains(t, srv.Requests(), "POST /drive/v3/files")

	_, err = client.Create(context.Background(), CreateOptions{})
	assert.Error(t, err)
}

func TestClient_CreateFolder(t *testing.T) {
	client, _ := newTestClient(t)

	meta, err := client.CreateFolder(context.Background(), "Projects", "")
	require.NoError(t, err)
	assert.Equal(t, FolderMimeType, meta.MimeType)
	assert.True(t, meta.IsFolder())
	assert.Empty(t, meta.Parents)
}

func TestClient_Update(t *testing.T) {
	client, srv := newTestClient(t)
	id := srv.AddFile(&drive.File{Name: "old.txt", MimeType: "text/plain", Parents: []string{"p1"}}, "old")

	content := "new body"
	meta, err := client.Update(context.Background(), id, UpdateOptions{
		Name:          "new.txt",
		Content:       &content,
		AddParents:    []string{"p2"},
		RemoveParents: []string{"p1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "new.txt", meta.Name)
	assert.Equal(t, []string{"p2"}, meta.Parents)
	assert.Equal(t, content, srv.Content(id))
}

func TestClient_Update_NoChanges(t *testing.T) {
	client, srv := newTestClient(t)

	_, err := client.Update(context.Background(), "file-1", UpdateOptions{})
	assert.Error(t, err)
	assert.Empty(t, srv.Requests())
}

func TestClient_Delete(t *testing.T) {
	client, srv := newTestClient(t)
	id := srv.AddFile(&drive.File{Name: "gone.txt"}, "")

	require.NoError(t, client.Delete(context.Background(), id))
	assert.Nil(t, srv.File(id))

	err := client.Delete(context.Background(), id)
	assert.True(t, IsNotFound(err))
}

func TestClient_Copy(t *testing.T) {
	client, srv := newTestClient(t)
	id := srv.AddFile(&drive.File{Name: "report.txt", MimeType: "text/plain"}, "numbers")

	cp, err := client.Copy(context.Background(), id, CopyOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, id, cp.ID)
	assert.Equal(t, "Copy of report.txt", cp.Name)

	named, err := client.Copy(context.Background(), id, CopyOptions{Name: "backup.txt", ParentID: "archive"})
	require.NoError(t, err)
	assert.Equal(t, "backup.txt", named.Name)
	assert.Equal(t, []string{"archive"}, named.Parents)
	assert.Equal(t, "numbers", srv.Content(named.ID))
}

func TestClient_GetContent(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	textID := srv.AddFile(&drive.File{Name: "a.txt", MimeType: "text/plain"}, "plain body")
	docID := srv.AddFile(&drive.File{Name: "doc", MimeType: DocumentMimeType}, "")
	srv.SetExport(docID, "<h1>Title</h1><p>Hello <strong>world</strong></p>")
	sheetID := srv.AddFile(&drive.File{Name: "sheet", MimeType: SpreadsheetMimeType}, "")
	srv.SetExport(sheetID, "a,b\n1,2\n")
	formID := srv.AddFile(&drive.File{Name: "form", MimeType: "application/vnd.google-apps.form"}, "")
	binID := srv.AddFile(&drive.File{Name: "img.png", MimeType: "image/png"}, "\xff\xfe\xfd")

	got, err := client.GetContent(ctx, &FileMetadata{ID: textID, MimeType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "plain body", got.Text)

	got, err = client.GetContent(ctx, &FileMetadata{ID: docID, MimeType: DocumentMimeType})
	require.NoError(t, err)
	assert.Contains(t, got.Text, "# Title")
	assert.Contains(t, got.Text, "**world**")

	got, err = client.GetContent(ctx, &FileMetadata{ID: sheetID, MimeType: SpreadsheetMimeType})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", got.Text)
	assert.False(t, got.Truncated)
	assert.Contains(t, srv.Requests(), "GET /drive/v3/files/"+sheetID+"/export")

	_, err = client.GetContent(ctx, &FileMetadata{ID: formID, MimeType: "application/vnd.google-apps.form"})
	assert.True(t, errors.Is(err, ErrUnsupportedContent))

	_, err = client.GetContent(ctx, &FileMetadata{ID: binID, MimeType: "image/png"})
	assert.True(t, errors.Is(err, ErrUnsupportedContent))
}

func TestClient_GetContentOverCap(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	bigID := srv.AddFile(&drive.File{Name: "big.txt", MimeType: "text/plain"}, strings.Repeat("a", MaxContentBytes+1024))
	got, err := client.GetContent(ctx, &FileMetadata{ID: bigID, MimeType: "text/plain"})
	require.NoError(t, err)
	assert.True(t, got.Truncated)
	assert.Len(t, got.Text, MaxContentBytes)

	exact := strings.Repeat("b", MaxContentBytes)
	exactID := srv.AddFile(&drive.File{Name: "exact.txt", MimeType: "text/plain"}, exact)
	got, err = client.GetContent(ctx, &FileMetadata{ID: exactID, MimeType: "text/plain"})
	require.NoError(t, err)
	assert.False(t, got.Truncated)
	assert.Len(t, got.Text, MaxContentBytes)
}

func TestClient_GetContentCapInsideRune(t *testing.T) {
	client, srv := newTestClient(t)

	// The two-byte "é" straddles the cap.
	body := strings.Repeat("a", MaxContentBytes-1) + "é"
	id := srv.AddFile(&drive.File{Name: "accent.txt", MimeType: "text/plain"}, body)

	got, err := client.GetContent(context.Background(), &FileMetadata{ID: id, MimeType: "text/plain"})
	require.NoError(t, err)
	assert.True(t, got.Truncated)
	assert.Equal(t, strings.Repeat("a", MaxContentBytes-1), got.Text)
}

func TestTrimPartialRune(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"ascii":              {"abc", "abc"},
		"complete two-byte":  {"aé", "aé"},
		"cut two-byte":       {"a\xc3", "a"},
		"cut three-byte":     {"a\xe2\x82", "a"},
		"cut four-byte":      {"a\xf0\x9f\x98", "a"},
		"complete four-byte": {"a😀", "a😀"},
		"empty":              {"", ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(trimPartialRune([]byte(tt.in))))
		})
	}
}
