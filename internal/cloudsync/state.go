package cloudsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eintrusts/MahacapV2/internal/domain"
	"github.com/eintrusts/MahacapV2/internal/drive"
	"github.com/eintrusts/MahacapV2/internal/statefile"

	"go.uber.org/zap"
)

// ReplaceStrategy orders the upload of a new snapshot against the removal
// of the old ones.
type ReplaceStrategy string

const (
	// CreateThenDelete uploads first, so a failed save leaves the previous
	// snapshot in place.
	CreateThenDelete ReplaceStrategy = "create-then-delete"
	// DeleteThenCreate removes existing snapshots before uploading.
	DeleteThenCreate ReplaceStrategy = "delete-then-create"
)

func ParseReplaceStrategy(s string) (ReplaceStrategy, error) {
	switch ReplaceStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CreateThenDelete:
		return CreateThenDelete, nil
	case DeleteThenCreate:
		return DeleteThenCreate, nil
	}
	return "", fmt.Errorf("unknown replace strategy %q", s)
}

// CleanupFailure is one old snapshot that could not be removed.
type CleanupFailure struct {
	FileID string
	Err    error
}

// BestEffort reports cleanup steps whose failure did not fail the operation.
type BestEffort struct {
	Failures []CleanupFailure
}

func (b *BestEffort) add(fileID string, err error) {
	b.Failures = append(b.Failures, CleanupFailure{FileID: fileID, Err: err})
}

func (b BestEffort) OK() bool { return len(b.Failures) == 0 }

// Err joins the swallowed failures, nil when there were none.
func (b BestEffort) Err() error {
	errs := make([]error, 0, len(b.Failures))
	for _, f := range b.Failures {
		errs = append(errs, fmt.Errorf("delete %s: %w", f.FileID, f.Err))
	}
	return errors.Join(errs...)
}

// SaveResult identifies the uploaded snapshot.
type SaveResult struct {
	FileID  string
	Cleanup BestEffort
}

// StateSync stores record snapshots as a named JSON file inside a folder.
type StateSync struct {
	remote   drive.Remote
	strategy ReplaceStrategy
	logger   *zap.Logger
}

func NewStateSync(remote drive.Remote, strategy ReplaceStrategy, logger *zap.Logger) *StateSync {
	if strategy == "" {
		strategy = CreateThenDelete
	}
	return &StateSync{remote: remote, strategy: strategy, logger: logger}
}

func (s *StateSync) Strategy() ReplaceStrategy { return s.strategy }

// Save writes recs as filename in folderID so that afterwards exactly one
// such file holds the new content, unless cleanup of an older copy failed
// (reported in SaveResult.Cleanup). Listing and upload errors are returned.
func (s *StateSync) Save(ctx context.Context, folderID string, recs domain.CityRecords, filename string) (SaveResult, error) {
	if filename == "" {
		filename = statefile.DefaultFilename
	}
	body, err := statefile.Encode(recs)
	if err != nil {
		return SaveResult{}, err
	}

	existing, err := s.remote.ListFiles(ctx, drive.Query{Name: filename, Parent: folderID}, drive.ListOptions{})
	if err != nil {
		return SaveResult{}, fmt.Errorf("list %s: %w", filename, err)
	}

	var res SaveResult
	if s.strategy == DeleteThenCreate {
		res.Cleanup = s.deleteAll(ctx, existing)
	}

	meta := drive.FileMeta{Name: filename, MimeType: statefile.MimeType, Parents: []string{folderID}}
	created, err := s.remote.CreateFile(ctx, meta, bytes.NewReader(body))
	if err != nil {
		return res, fmt.Errorf("upload %s: %w", filename, err)
	}
	res.FileID = created.ID

	if s.strategy == CreateThenDelete {
		res.Cleanup = s.deleteAll(ctx, existing)
	}

	s.logger.Info("State saved",
		zap.String("folder_id", folderID),
		zap.String("file_id", created.ID),
		zap.Int("cities", len(recs)),
		zap.Int("replaced", len(existing)),
		zap.String("strategy", string(s.strategy)),
	)
	return res, nil
}

func (s *StateSync) deleteAll(ctx context.Context, files []drive.File) BestEffort {
	var cleanup BestEffort
	for _, f := range files {
		if err := s.remote.DeleteFile(ctx, f.ID); err != nil {
			s.logger.Warn("Failed to delete old state file",
				zap.String("file_id", f.ID),
				zap.Error(err),
			)
			cleanup.add(f.ID, err)
		}
	}
	return cleanup
}

// Load reads the newest filename in folderID. A missing or unparsable file
// yields found=false and no error; remote failures are returned.
func (s *StateSync) Load(ctx context.Context, folderID, filename string) (domain.CityRecords, bool, error) {
	if filename == "" {
		filename = statefile.DefaultFilename
	}

	files, err := s.remote.ListFiles(ctx,
		drive.Query{Name: filename, Parent: folderID},
		drive.ListOptions{OrderBy: "modifiedTime desc", PageSize: 1})
	if err != nil {
		return nil, false, fmt.Errorf("list %s: %w", filename, err)
	}
	if len(files) == 0 {
		s.logger.Debug("No state file in folder", zap.String("folder_id", folderID))
		return nil, false, nil
	}

	body, err := s.remote.DownloadFile(ctx, files[0].ID)
	if err != nil {
		return nil, false, fmt.Errorf("download %s: %w", filename, err)
	}

	recs, err := statefile.Decode(body)
	if err != nil {
		s.logger.Warn("Ignoring unreadable state file",
			zap.String("folder_id", folderID),
			zap.String("file_id", files[0].ID),
			zap.Error(err),
		)
		return nil, false, nil
	}
	return recs, true, nil
}
