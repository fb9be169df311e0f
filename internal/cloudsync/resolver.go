// Package cloudsync maps the folder-per-city layout onto the remote file
// store and moves state.json snapshots in and out of it.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eintrusts/MahacapV2/internal/drive"

	"go.uber.org/zap"
)

var ErrEmptyFolderName = errors.New("folder name is required")

// FolderResolver finds or creates a named folder. Resolutions of the same
// name and parent are serialised inside the process; two processes can
// still race and create duplicates, in which case the oldest folder wins
// on every later call.
type FolderResolver struct {
	remote drive.Remote
	locks  keyedMutex
	logger *zap.Logger
}

func NewFolderResolver(remote drive.Remote, logger *zap.Logger) *FolderResolver {
	return &FolderResolver{
		remote: remote,
		locks:  keyedMutex{m: map[string]*refLock{}},
		logger: logger,
	}
}

// Resolve returns the id of the non-trashed folder called name under
// parentID (anywhere when parentID is empty), creating it when none exists.
func (r *FolderResolver) Resolve(ctx context.Context, name, parentID string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyFolderName
	}

	unlock := r.locks.Lock(parentID + "\x00" + name)
	defer unlock()

	q := drive.Query{Name: name, MimeType: drive.FolderMimeType, Parent: parentID}
	found, err := r.remote.ListFiles(ctx, q, drive.ListOptions{OrderBy: "createdTime"})
	if err != nil {
		return "", fmt.Errorf("find folder %q: %w", name, err)
	}
	if len(found) > 0 {
		if len(found) > 1 {
			r.logger.Warn("Duplicate folders found, using the oldest",
				zap.String("name", name),
				zap.String("parent_id", parentID),
				zap.Int("count", len(found)),
			)
		}
		return found[0].ID, nil
	}

	meta := drive.FileMeta{Name: name, MimeType: drive.FolderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := r.remote.CreateFile(ctx, meta, nil)
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	r.logger.Info("Folder created",
		zap.String("name", name),
		zap.String("parent_id", parentID),
		zap.String("folder_id", created.ID),
	)
	return created.ID, nil
}

type refLock struct {
	sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*refLock
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &refLock{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
