// Package drivetest provides an in-memory Drive v3 API server for tests.
package drivetest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Server is a fake Drive API backed by a map of files. It understands the
// subset of files.* endpoints the drive package calls.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	files     map[string]*drive.File
	contents  map[string]string
	exports   map[string]string
	order     []string
	nextID    int
	lastQuery url.Values
	requests  []string
	fail      *apiError
}

type apiError struct {
	code    int
	message string
}

// NewServer starts a fake Drive server that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		files:    make(map[string]*drive.File),
		contents: make(map[string]string),
		exports:  make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /drive/v3/files", s.handleList)
	mux.HandleFunc("POST /drive/v3/files", s.handleCreate)
	mux.HandleFunc("POST /upload/drive/v3/files", s.handleCreate)
	mux.HandleFunc("GET /drive/v3/files/{id}", s.handleGet)
	mux.HandleFunc("PATCH /drive/v3/files/{id}", s.handleUpdate)
	mux.HandleFunc("PATCH /upload/drive/v3/files/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /drive/v3/files/{id}", s.handleDelete)
	mux.HandleFunc("POST /drive/v3/files/{id}/copy", s.handleCopy)
	mux.HandleFunc("GET /drive/v3/files/{id}/export", s.handleExport)

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// ClientOptions points a drive client at this server.
func (s *Server) ClientOptions() []option.ClientOption {
	return []option.ClientOption{option.WithEndpoint(s.URL + "/drive/v3/")}
}

// AddFile stores f with the given body and returns its id.
func (s *Server) AddFile(f *drive.File, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.Id == "" {
		f.Id = s.newID()
	}
	s.store(f)
	s.contents[f.Id] = content
	return f.Id
}

// SetExport sets the body returned by files.export for id.
func (s *Server) SetExport(id, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports[id] = body
}

// File returns a stored file, or nil.
func (s *Server) File(id string) *drive.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[id]
}

// Content returns the stored body of id.
func (s *Server) Content(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contents[id]
}

// FailWith makes every following request fail with code and message.
// A zero code clears the failure.
func (s *Server) FailWith(code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		s.fail = nil
		return
	}
	s.fail = &apiError{code: code, message: message}
}

// LastListQuery returns the query parameters of the most recent files.list call.
func (s *Server) LastListQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// Requests returns "METHOD /path" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		fail := s.fail
		s.mu.Unlock()

		if fail != nil {
			writeError(w, fail.code, fail.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	s.lastQuery = q
	ids := slices.Clone(s.order)
	s.mu.Unlock()

	pageSize := 100
	if v, err := strconv.Atoi(q.Get("pageSize")); err == nil && v > 0 {
		pageSize = v
	}
	start := 0
	if v, err := strconv.Atoi(q.Get("pageToken")); err == nil {
		start = v
	}
	if start > len(ids) {
		start = len(ids)
	}
	end := min(start+pageSize, len(ids))

	resp := &drive.FileList{}
	s.mu.Lock()
	for _, id := range ids[start:end] {
		resp.Files = append(resp.Files, s.files[id])
	}
	s.mu.Unlock()
	if end < len(ids) {
		resp.NextPageToken = strconv.Itoa(end)
	}

	writeJSON(w, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	f, ok := s.files[id]
	content := s.contents[id]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}
	if r.URL.Query().Get("alt") == "media" {
		w.Header().Set("Content-Type", f.MimeType)
		_, _ = io.WriteString(w, content)
		return
	}
	writeJSON(w, f)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	_, ok := s.files[id]
	body := s.exports[id]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}
	w.Header().Set("Content-Type", r.URL.Query().Get("mimeType"))
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	meta, content, hasContent, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	meta.Id = s.newID()
	meta.CreatedTime = "2024-01-02T03:04:05Z"
	meta.ModifiedTime = meta.CreatedTime
	meta.WebViewLink = "https://drive.google.com/file/d/" + meta.Id + "/view"
	if hasContent {
		meta.Size = int64(len(content))
		s.contents[meta.Id] = content
	}
	s.store(meta)
	s.mu.Unlock()

	writeJSON(w, meta)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	patch, content, hasContent, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}
	if patch.Name != "" {
		f.Name = patch.Name
	}
	if hasContent {
		s.contents[id] = content
		f.Size = int64(len(content))
	}
	q := r.URL.Query()
	if v := q.Get("removeParents"); v != "" {
		f.Parents = slices.DeleteFunc(f.Parents, func(p string) bool {
			return slices.Contains(strings.Split(v, ","), p)
		})
	}
	if v := q.Get("addParents"); v != "" {
		f.Parents = append(f.Parents, strings.Split(v, ",")...)
	}
	f.ModifiedTime = "2024-02-03T04:05:06Z"

	writeJSON(w, f)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}
	delete(s.files, id)
	delete(s.contents, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req drive.File
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}
	cp := *src
	cp.Id = s.newID()
	cp.Name = req.Name
	if cp.Name == "" {
		cp.Name = "Copy of " + src.Name
	}
	if len(req.Parents) > 0 {
		cp.Parents = req.Parents
	}
	s.store(&cp)
	s.contents[cp.Id] = s.contents[id]

	writeJSON(w, &cp)
}

// store must be called with mu held.
func (s *Server) store(f *drive.File) {
	if _, exists := s.files[f.Id]; !exists {
		s.order = append(s.order, f.Id)
	}
	s.files[f.Id] = f
}

// newID must be called with mu held.
func (s *Server) newID() string {
	s.nextID++
	return fmt.Sprintf("file-%d", s.nextID)
}

// readUpload decodes a metadata-only JSON body or a multipart/related upload.
func readUpload(r *http.Request) (*drive.File, string, bool, error) {
	meta := &drive.File{}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		if err := json.NewDecoder(r.Body).Decode(meta); err != nil && err != io.EOF {
			return nil, "", false, fmt.Errorf("invalid metadata: %w", err)
		}
		return meta, "", false, nil
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		return nil, "", false, fmt.Errorf("missing metadata part: %w", err)
	}
	if err := json.NewDecoder(part).Decode(meta); err != nil {
		return nil, "", false, fmt.Errorf("invalid metadata: %w", err)
	}

	part, err = mr.NextPart()
	if err != nil {
		return nil, "", false, fmt.Errorf("missing media part: %w", err)
	}
	body, err := io.ReadAll(part)
	if err != nil {
		return nil, "", false, err
	}
	return meta, string(body), true, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"errors":  []map[string]string{{"message": message}},
		},
	})
}
