package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/eintrusts/MahacapV2/internal/cloudsync"
	"github.com/eintrusts/MahacapV2/internal/domain"
	"github.com/eintrusts/MahacapV2/internal/drive"
	"github.com/eintrusts/MahacapV2/internal/statefile"
	"github.com/eintrusts/MahacapV2/internal/store"

	"go.uber.org/zap"
)

// DefaultRootFolder holds the whole-store snapshot and one folder per city.
const DefaultRootFolder = "MahaCAP"

// LoadMode says how a loaded snapshot meets the records already in memory.
type LoadMode string

const (
	// LoadReplace makes the snapshot the new content.
	LoadReplace LoadMode = "replace"
	// LoadMerge keeps what the snapshot does not mention: other cities for
	// a whole-store load, unsaved sections for a single-city load.
	LoadMerge LoadMode = "merge"
)

func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LoadReplace:
		return LoadReplace, nil
	case LoadMerge:
		return LoadMerge, nil
	}
	return "", fmt.Errorf("%w: unknown load mode %q", domain.ErrValidation, s)
}

// DocumentExtensions accepted by UploadDocument.
var DocumentExtensions = []string{".pdf", ".xlsx", ".docx"}

// CloudOptions configures CloudService.
type CloudOptions struct {
	RootFolder string
	Filename   string
	// MakePublic grants anyone-with-link read access to uploaded documents.
	MakePublic bool
}

// SaveReport describes a snapshot upload.
type SaveReport struct {
	FolderID        string   `json:"folder_id"`
	FileID          string   `json:"file_id"`
	Cities          int      `json:"cities"`
	CleanupFailures []string `json:"cleanup_failures,omitempty"`
}

// LoadReport describes a snapshot download. Found is false when the folder
// held no readable snapshot; the store is then left as it was.
type LoadReport struct {
	FolderID string   `json:"folder_id"`
	Found    bool     `json:"found"`
	Mode     LoadMode `json:"mode"`
	Cities   int      `json:"cities"`
}

// CloudService moves records between the store and the remote folders.
// A remote failure is returned and leaves the store unchanged.
type CloudService struct {
	store    store.RecordStore
	catalog  *domain.Catalog
	remote   drive.Remote
	resolver *cloudsync.FolderResolver
	sync     *cloudsync.StateSync
	merger   *SectionMerger
	opts     CloudOptions
	logger   *zap.Logger
}

func NewCloudService(
	st store.RecordStore,
	catalog *domain.Catalog,
	remote drive.Remote,
	resolver *cloudsync.FolderResolver,
	sync *cloudsync.StateSync,
	merger *SectionMerger,
	opts CloudOptions,
	logger *zap.Logger,
) *CloudService {
	if opts.RootFolder == "" {
		opts.RootFolder = DefaultRootFolder
	}
	if opts.Filename == "" {
		opts.Filename = statefile.DefaultFilename
	}
	return &CloudService{
		store:    st,
		catalog:  catalog,
		remote:   remote,
		resolver: resolver,
		sync:     sync,
		merger:   merger,
		opts:     opts,
		logger:   logger,
	}
}

// RootFolder resolves the top-level folder holding the full snapshot.
func (s *CloudService) RootFolder(ctx context.Context) (string, error) {
	return s.resolver.Resolve(ctx, s.opts.RootFolder, "")
}

// CityFolder resolves the folder of city under the root folder.
func (s *CloudService) CityFolder(ctx context.Context, city string) (string, error) {
	if err := s.catalog.Check(city); err != nil {
		return "", err
	}
	root, err := s.RootFolder(ctx)
	if err != nil {
		return "", err
	}
	return s.resolver.Resolve(ctx, city, root)
}

// SaveAll uploads the whole store to the root folder.
func (s *CloudService) SaveAll(ctx context.Context) (SaveReport, error) {
	recs, err := s.store.Snapshot(ctx)
	if err != nil {
		return SaveReport{}, fmt.Errorf("failed to snapshot store: %w", err)
	}
	folderID, err := s.RootFolder(ctx)
	if err != nil {
		return SaveReport{}, err
	}
	return s.save(ctx, folderID, recs)
}

// SaveCity uploads a one-city snapshot to the city's folder.
func (s *CloudService) SaveCity(ctx context.Context, city string) (SaveReport, error) {
	folderID, err := s.CityFolder(ctx, city)
	if err != nil {
		return SaveReport{}, err
	}
	rec, err := s.store.Get(ctx, city)
	if err != nil {
		return SaveReport{}, fmt.Errorf("failed to read %s: %w", city, err)
	}
	return s.save(ctx, folderID, domain.CityRecords{city: rec})
}

func (s *CloudService) save(ctx context.Context, folderID string, recs domain.CityRecords) (SaveReport, error) {
	res, err := s.sync.Save(ctx, folderID, recs, s.opts.Filename)
	if err != nil {
		return SaveReport{}, err
	}

	report := SaveReport{FolderID: folderID, FileID: res.FileID, Cities: len(recs)}
	for _, f := range res.Cleanup.Failures {
		report.CleanupFailures = append(report.CleanupFailures, f.FileID)
	}
	if !res.Cleanup.OK() {
		s.logger.Warn("Old snapshots left behind",
			zap.String("folder_id", folderID),
			zap.Strings("file_ids", report.CleanupFailures),
			zap.Error(res.Cleanup.Err()),
		)
	}
	return report, nil
}

// LoadAll reads the root snapshot into the store.
func (s *CloudService) LoadAll(ctx context.Context, mode LoadMode) (LoadReport, error) {
	folderID, err := s.RootFolder(ctx)
	if err != nil {
		return LoadReport{}, err
	}
	recs, found, err := s.sync.Load(ctx, folderID, s.opts.Filename)
	if err != nil {
		return LoadReport{}, err
	}
	report := LoadReport{FolderID: folderID, Found: found, Mode: mode}
	if !found {
		return report, nil
	}

	for city, rec := range recs {
		if !s.catalog.Contains(city) {
			s.logger.Warn("Snapshot holds a city outside the catalog", zap.String("city", city))
		}
		rec.Normalize()
		recs[city] = rec
	}

	switch mode {
	case LoadMerge:
		err = s.store.Merge(ctx, recs)
	default:
		err = s.store.Replace(ctx, recs)
	}
	if err != nil {
		return LoadReport{}, fmt.Errorf("failed to apply snapshot: %w", err)
	}

	report.Cities = len(recs)
	s.logger.Info("Snapshot loaded",
		zap.String("folder_id", folderID),
		zap.String("mode", string(mode)),
		zap.Int("cities", report.Cities),
	)
	return report, nil
}

// LoadCity reads the snapshot in the city's folder. Other cities are never
// touched; a snapshot without an entry for city counts as not found.
func (s *CloudService) LoadCity(ctx context.Context, city string, mode LoadMode) (LoadReport, error) {
	folderID, err := s.CityFolder(ctx, city)
	if err != nil {
		return LoadReport{}, err
	}
	recs, found, err := s.sync.Load(ctx, folderID, s.opts.Filename)
	if err != nil {
		return LoadReport{}, err
	}
	report := LoadReport{FolderID: folderID, Mode: mode}
	remote, ok := recs[city]
	if !found || !ok {
		return report, nil
	}
	remote.Normalize()

	err = s.store.Update(ctx, city, func(rec *domain.CityRecord) error {
		if mode == LoadMerge {
			*rec = overlayRecord(*rec, remote)
		} else {
			*rec = remote
		}
		return nil
	})
	if err != nil {
		return LoadReport{}, fmt.Errorf("failed to apply snapshot of %s: %w", city, err)
	}

	report.Found = true
	report.Cities = 1
	s.logger.Info("City snapshot loaded",
		zap.String("city", city),
		zap.String("folder_id", folderID),
		zap.String("mode", string(mode)),
	)
	return report, nil
}

// overlayRecord takes remote and fills in sections and GHG it lacks from local.
func overlayRecord(local, remote domain.CityRecord) domain.CityRecord {
	out := remote.Clone()
	for _, name := range domain.SectionNames {
		if _, ok := out.Section(name); ok {
			continue
		}
		if sec, ok := local.Section(name); ok {
			out.SetSection(sec)
		}
	}
	if out.GHG == nil {
		out.GHG = local.GHG
	}
	return out.Clone()
}

// UploadDocument stores a supporting document in the city's folder and
// attaches it to section. Failing to make it public is logged only.
func (s *CloudService) UploadDocument(ctx context.Context, city string, section domain.SectionName, filename, contentType string, content io.Reader) (domain.DocumentRef, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	ext := strings.ToLower(filepath.Ext(name))
	if name == "" || name == "." || !slices.Contains(DocumentExtensions, ext) {
		return domain.DocumentRef{}, fmt.Errorf("%w: document must be one of %s", domain.ErrValidation, strings.Join(DocumentExtensions, ", "))
	}
	if _, err := domain.NewSection(section); err != nil {
		return domain.DocumentRef{}, err
	}

	folderID, err := s.CityFolder(ctx, city)
	if err != nil {
		return domain.DocumentRef{}, err
	}

	created, err := s.remote.CreateFile(ctx, drive.FileMeta{
		Name:     name,
		MimeType: contentType,
		Parents:  []string{folderID},
	}, content)
	if err != nil {
		return domain.DocumentRef{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	if s.opts.MakePublic {
		if err := s.remote.SetPublicPermission(ctx, created.ID); err != nil {
			s.logger.Warn("Failed to make document public",
				zap.String("file_id", created.ID),
				zap.Error(err),
			)
		}
	}

	ref := domain.DocumentRef{FileID: created.ID, Name: name, WebViewLink: created.WebViewLink}
	if _, err := s.merger.AttachDocument(ctx, city, section, ref); err != nil {
		return domain.DocumentRef{}, err
	}

	s.logger.Info("Document uploaded",
		zap.String("city", city),
		zap.String("section", string(section)),
		zap.String("file_id", created.ID),
	)
	return ref, nil
}
