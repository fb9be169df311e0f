package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FolderMimeType marks a Drive folder.
const FolderMimeType = "application/vnd.google-apps.folder"

// File is the subset of Drive file metadata this service reads.
type File struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MimeType    string   `json:"mimeType,omitempty"`
	Parents     []string `json:"parents,omitempty"`
	WebViewLink string   `json:"webViewLink,omitempty"`
}

// FileMeta describes a file or folder to create.
type FileMeta struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}

// ListOptions controls ordering and page size of ListFiles.
type ListOptions struct {
	OrderBy  string
	PageSize int
}

// Remote is the cloud file store contract. Calls block, are never retried
// here, and return *APIError for failures reported by the store.
type Remote interface {
	ListFiles(ctx context.Context, q Query, opts ListOptions) ([]File, error)
	// CreateFile creates a file; media may be nil for folders.
	CreateFile(ctx context.Context, meta FileMeta, media io.Reader) (File, error)
	DeleteFile(ctx context.Context, id string) error
	DownloadFile(ctx context.Context, id string) ([]byte, error)
	// SetPublicPermission grants anyone-with-link read access.
	SetPublicPermission(ctx context.Context, id string) error
}

// Query is a structured Drive files.list filter. String renders the Drive
// query language with every value escaped.
type Query struct {
	Name           string
	MimeType       string
	Parent         string
	IncludeTrashed bool
}

func (q Query) String() string {
	var parts []string
	if q.Name != "" {
		parts = append(parts, fmt.Sprintf("name = '%s'", Escape(q.Name)))
	}
	if q.MimeType != "" {
		parts = append(parts, fmt.Sprintf("mimeType = '%s'", Escape(q.MimeType)))
	}
	if q.Parent != "" {
		parts = append(parts, fmt.Sprintf("'%s' in parents", Escape(q.Parent)))
	}
	if !q.IncludeTrashed {
		parts = append(parts, "trashed = false")
	}
	return strings.Join(parts, " and ")
}

// Matches evaluates the query against a file the way Drive would.
func (q Query) Matches(f File, trashed bool) bool {
	if trashed && !q.IncludeTrashed {
		return false
	}
	if q.Name != "" && f.Name != q.Name {
		return false
	}
	if q.MimeType != "" && f.MimeType != q.MimeType {
		return false
	}
	if q.Parent != "" {
		for _, p := range f.Parents {
			if p == q.Parent {
				return true
			}
		}
		return false
	}
	return true
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Escape backslash-escapes a value for use inside a single-quoted query string.
func Escape(s string) string {
	return queryEscaper.Replace(s)
}

// APIError is a failure reported by the remote store.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("drive %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("drive %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the remote store.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
