package httpapi

import (
	"fmt"
	"net/http"

	"github.com/eintrusts/MahacapV2/internal/domain"
	"github.com/eintrusts/MahacapV2/internal/export"
	"github.com/eintrusts/MahacapV2/internal/service"

	"go.uber.org/zap"
)

// CityHandler serves city records, form submissions and exports.
type CityHandler struct {
	cities *service.CityService
	merger *service.SectionMerger
	logger *zap.Logger
}

func NewCityHandler(cities *service.CityService, merger *service.SectionMerger, logger *zap.Logger) *CityHandler {
	return &CityHandler{
		cities: cities,
		merger: merger,
		logger: logger,
	}
}

// ListCities GET /api/v1/cities
func (h *CityHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	items, err := h.cities.List(r.Context())
	if err != nil {
		h.logger.Error("ListCities failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// GetCity GET /api/v1/cities/{city}
func (h *CityHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	rec, err := h.cities.Get(r.Context(), r.PathValue("city"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// PutProfile PUT /api/v1/cities/{city}
func (h *CityHandler) PutProfile(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	var p domain.CityProfile
	if err := readBodyJSON(r, maxJSONBody, &p); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.merger.ApplyProfile(r.Context(), city, p)
	if err != nil {
		h.logger.Warn("PutProfile rejected", zap.String("city", city), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// PutSection PUT /api/v1/cities/{city}/sections/{section}
// {section} is the stored key ("Energy_Buildings") or its slug ("energy-buildings").
func (h *CityHandler) PutSection(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	name, err := domain.ParseSectionName(r.PathValue("section"))
	if err != nil {
		writeError(w, err)
		return
	}
	sec, err := domain.NewSection(name)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := readBodyJSON(r, maxJSONBody, sec); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.merger.ApplySection(r.Context(), city, sec)
	if err != nil {
		h.logger.Warn("PutSection rejected",
			zap.String("city", city),
			zap.String("section", string(name)),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// PutGHG PUT /api/v1/cities/{city}/ghg
// Body: {"Energy": 1200.5, "Transport": 300}
func (h *CityHandler) PutGHG(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	var ghg map[domain.GHGSector]float64
	if err := readBodyJSON(r, maxJSONBody, &ghg); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.merger.ApplyGHG(r.Context(), city, ghg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// Summary GET /api/v1/dashboard/summary
func (h *CityHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.cities.Summary(r.Context())
	if err != nil {
		h.logger.Error("Summary failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sum))
}

// ExportGHGWorkbook GET /api/v1/cities/{city}/export/ghg.xlsx
func (h *CityHandler) ExportGHGWorkbook(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", export.XLSXContentType, export.GHGWorkbook)
}

// ExportGHGReport GET /api/v1/cities/{city}/export/ghg.pdf
func (h *CityHandler) ExportGHGReport(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "pdf", export.PDFContentType, export.GHGReport)
}

func (h *CityHandler) export(w http.ResponseWriter, r *http.Request, ext, contentType string, render func(string, domain.CityRecord) ([]byte, error)) {
	city := r.PathValue("city")
	rec, err := h.cities.Get(r.Context(), city)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := render(city, rec)
	if err != nil {
		h.logger.Error("GHG export failed", zap.String("city", city), zap.String("format", ext), zap.Error(err))
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(city, ext)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
