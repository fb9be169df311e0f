package drive

import (
	"context"
	"io"
)

// UnavailableRemote stands in when no remote could be configured. Every
// call fails with the configuration error, so callers report it instead of
// writing somewhere that does not persist.
type UnavailableRemote struct {
	err error
}

var _ Remote = (*UnavailableRemote)(nil)

func NewUnavailableRemote(err error) *UnavailableRemote {
	return &UnavailableRemote{err: err}
}

func (u *UnavailableRemote) Err() error { return u.err }

func (u *UnavailableRemote) ListFiles(context.Context, Query, ListOptions) ([]File, error) {
	return nil, u.err
}

func (u *UnavailableRemote) CreateFile(context.Context, FileMeta, io.Reader) (File, error) {
	return File{}, u.err
}

func (u *UnavailableRemote) DeleteFile(context.Context, string) error { return u.err }

func (u *UnavailableRemote) DownloadFile(context.Context, string) ([]byte, error) {
	return nil, u.err
}

func (u *UnavailableRemote) SetPublicPermission(context.Context, string) error { return u.err }
