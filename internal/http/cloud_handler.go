package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/eintrusts/MahacapV2/internal/domain"
	"github.com/eintrusts/MahacapV2/internal/service"

	"go.uber.org/zap"
)

const maxUploadBytes = 20 << 20

// CloudHandler exposes snapshot save/load and document upload.
type CloudHandler struct {
	cloud  *service.CloudService
	logger *zap.Logger
}

func NewCloudHandler(cloud *service.CloudService, logger *zap.Logger) *CloudHandler {
	return &CloudHandler{cloud: cloud, logger: logger}
}

// SaveAll POST /api/v1/cloud/save
func (h *CloudHandler) SaveAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.cloud.SaveAll(r.Context())
	if err != nil {
		h.logger.Error("SaveAll failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeSaveReport(w, report)
}

// SaveCity POST /api/v1/cities/{city}/cloud/save
func (h *CloudHandler) SaveCity(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	report, err := h.cloud.SaveCity(r.Context(), city)
	if err != nil {
		h.logger.Error("SaveCity failed", zap.String("city", city), zap.Error(err))
		writeError(w, err)
		return
	}
	writeSaveReport(w, report)
}

func writeSaveReport(w http.ResponseWriter, report service.SaveReport) {
	if len(report.CleanupFailures) > 0 {
		writeJSON(w, http.StatusOK, Warn(report,
			"saved, but %d old snapshot(s) could not be removed", len(report.CleanupFailures)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// LoadAll POST /api/v1/cloud/load?mode=replace|merge
func (h *CloudHandler) LoadAll(w http.ResponseWriter, r *http.Request) {
	mode, err := service.ParseLoadMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.cloud.LoadAll(r.Context(), mode)
	if err != nil {
		h.logger.Error("LoadAll failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// LoadCity POST /api/v1/cities/{city}/cloud/load?mode=replace|merge
func (h *CloudHandler) LoadCity(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	mode, err := service.ParseLoadMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.cloud.LoadCity(r.Context(), city, mode)
	if err != nil {
		h.logger.Error("LoadCity failed", zap.String("city", city), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// UploadDocument POST /api/v1/cities/{city}/sections/{section}/document
// multipart/form-data with the document in field "file".
func (h *CloudHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	section, err := domain.ParseSectionName(r.PathValue("section"))
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, fmt.Errorf("document exceeds %d bytes: %w", maxUploadBytes, err))
			return
		}
		writeError(w, fmt.Errorf("%w: multipart field \"file\" is required: %v", domain.ErrValidation, err))
		return
	}
	defer file.Close()

	ref, err := h.cloud.UploadDocument(r.Context(), city, section, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.logger.Error("UploadDocument failed",
			zap.String("city", city),
			zap.String("section", string(section)),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(ref))
}
