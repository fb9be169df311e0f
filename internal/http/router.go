package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps http.ServeMux; routes use method and {wildcard} patterns.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the router behind recovery and request logging.
func (r *Router) Handler() http.Handler {
	return WithLogging(r.logger, WithRecovery(r.logger, r))
}

func (r *Router) RegisterHealthRoutes() {
	r.Handle("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

func (r *Router) RegisterCityRoutes(h *CityHandler) {
	r.Handle("GET /api/v1/cities", h.ListCities)
	r.Handle("GET /api/v1/cities/{city}", h.GetCity)
	r.Handle("PUT /api/v1/cities/{city}", h.PutProfile)
	r.Handle("PUT /api/v1/cities/{city}/sections/{section}", h.PutSection)
	r.Handle("PUT /api/v1/cities/{city}/ghg", h.PutGHG)
	r.Handle("GET /api/v1/cities/{city}/export/ghg.xlsx", h.ExportGHGWorkbook)
	r.Handle("GET /api/v1/cities/{city}/export/ghg.pdf", h.ExportGHGReport)
	r.Handle("GET /api/v1/dashboard/summary", h.Summary)
}

func (r *Router) RegisterCloudRoutes(h *CloudHandler) {
	r.Handle("POST /api/v1/cloud/save", h.SaveAll)
	r.Handle("POST /api/v1/cloud/load", h.LoadAll)
	r.Handle("POST /api/v1/cities/{city}/cloud/save", h.SaveCity)
	r.Handle("POST /api/v1/cities/{city}/cloud/load", h.LoadCity)
	r.Handle("POST /api/v1/cities/{city}/sections/{section}/document", h.UploadDocument)
}
