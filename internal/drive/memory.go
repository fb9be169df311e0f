package drive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memFile struct {
	File
	content []byte
	trashed bool
	public  bool
}

// MemoryRemote is an in-process file store with Drive semantics. It backs
// offline runs and tests; FailOn injects remote failures per operation.
type MemoryRemote struct {
	mu    sync.Mutex
	files map[string]*memFile
	order []string
	fail  map[string]error
	calls map[string]int
}

var _ Remote = (*MemoryRemote)(nil)

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{
		files: map[string]*memFile{},
		fail:  map[string]error{},
		calls: map[string]int{},
	}
}

// FailOn makes every call of op ("list", "create", "delete", "download",
// "permission") return err. A nil err clears the failure.
func (m *MemoryRemote) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Calls returns how many times op was invoked.
func (m *MemoryRemote) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MemoryRemote) enter(op string) error {
	m.calls[op]++
	return m.fail[op]
}

func (m *MemoryRemote) ListFiles(_ context.Context, q Query, opts ListOptions) ([]File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("list"); err != nil {
		return nil, err
	}

	var out []File
	for _, id := range m.order {
		f := m.files[id]
		if q.Matches(f.File, f.trashed) {
			out = append(out, copyFile(f.File))
		}
	}
	// creation order stands in for createdTime/modifiedTime
	if strings.HasSuffix(strings.TrimSpace(opts.OrderBy), "desc") {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if opts.PageSize > 0 && len(out) > opts.PageSize {
		out = out[:opts.PageSize]
	}
	return out, nil
}

func (m *MemoryRemote) CreateFile(_ context.Context, meta FileMeta, media io.Reader) (File, error) {
	var content []byte
	if media != nil {
		b, err := io.ReadAll(media)
		if err != nil {
			return File{}, fmt.Errorf("read media: %w", err)
		}
		content = b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("create"); err != nil {
		return File{}, err
	}

	id := uuid.NewString()
	link := "https://drive.google.com/file/d/" + id + "/view"
	if meta.MimeType == FolderMimeType {
		link = "https://drive.google.com/drive/folders/" + id
	}
	f := &memFile{
		File: File{
			ID:          id,
			Name:        meta.Name,
			MimeType:    meta.MimeType,
			Parents:     append([]string(nil), meta.Parents...),
			WebViewLink: link,
		},
		content: content,
	}
	m.files[id] = f
	m.order = append(m.order, id)
	return copyFile(f.File), nil
}

func (m *MemoryRemote) DeleteFile(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("delete"); err != nil {
		return err
	}
	if _, ok := m.files[id]; !ok {
		return &APIError{Op: "delete", StatusCode: 404, Message: "File not found: " + id}
	}
	delete(m.files, id)
	for i, x := range m.order {
		if x == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryRemote) DownloadFile(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("download"); err != nil {
		return nil, err
	}
	f, ok := m.files[id]
	if !ok {
		return nil, &APIError{Op: "download", StatusCode: 404, Message: "File not found: " + id}
	}
	return append([]byte(nil), f.content...), nil
}

func (m *MemoryRemote) SetPublicPermission(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("permission"); err != nil {
		return err
	}
	f, ok := m.files[id]
	if !ok {
		return &APIError{Op: "permission", StatusCode: 404, Message: "File not found: " + id}
	}
	f.public = true
	return nil
}

// Trash moves a file to the trash; trashed files are hidden from queries
// unless IncludeTrashed is set.
func (m *MemoryRemote) Trash(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[id]; ok {
		f.trashed = true
	}
}

// IsPublic reports whether SetPublicPermission succeeded for id.
func (m *MemoryRemote) IsPublic(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	return ok && f.public
}

func copyFile(f File) File {
	f.Parents = append([]string(nil), f.Parents...)
	return f
}
