package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/eintrusts/MahacapV2/internal/cloudsync"
	"github.com/eintrusts/MahacapV2/internal/domain"
	"github.com/eintrusts/MahacapV2/internal/drive"
	"github.com/eintrusts/MahacapV2/internal/export"
	"github.com/eintrusts/MahacapV2/internal/service"
	"github.com/eintrusts/MahacapV2/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testAPI struct {
	handler http.Handler
	store   *store.MemoryRecordStore
	remote  *drive.MemoryRemote
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	logger := zap.NewNop()
	st := store.NewMemoryRecordStore()
	catalog := domain.NewCatalog(domain.DefaultCities)
	remote := drive.NewMemoryRemote()

	merger := service.NewSectionMerger(st, catalog, logger)
	cities := service.NewCityService(st, catalog, logger)
	cloud := service.NewCloudService(st, catalog, remote,
		cloudsync.NewFolderResolver(remote, logger),
		cloudsync.NewStateSync(remote, cloudsync.CreateThenDelete, logger),
		merger, service.CloudOptions{MakePublic: true}, logger)

	router := NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterCityRoutes(NewCityHandler(cities, merger, logger))
	router.RegisterCloudRoutes(NewCloudHandler(cloud, logger))
	return testAPI{handler: router.Handler(), store: st, remote: remote}
}

func (a testAPI) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decodeResult[T any](t *testing.T, w *httptest.ResponseRecorder) Result[T] {
	t.Helper()
	var res Result[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func cityPath(city string, rest ...string) string {
	return "/api/v1/cities/" + url.PathEscape(city) + strings.Join(rest, "")
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, CodeOK, decodeResult[map[string]string](t, w).Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}

func TestPutProfileAndGet(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPut, cityPath("Mumbai"), `{
		"District": "Mumbai",
		"CAP_Status": "In Progress",
		"CAP_Link": "https://example.org/draft.pdf",
		"Population": {"Male": 6400000, "Female": 5900000, "Total": 1},
		"Area": 603.4,
		"Env_Dept_Exist": "Yes",
		"Dept_Name": "ignored"
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, cityPath("Mumbai"), "")
	require.Equal(t, http.StatusOK, w.Code)

	var raw struct {
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	pop := raw.Result["Population"].(map[string]any)
	assert.Equal(t, 12300000.0, pop["Total"])
	assert.Equal(t, "", raw.Result["CAP_Link"])
	assert.Equal(t, "", raw.Result["Dept_Name"])
	assert.InDelta(t, 20384.49, raw.Result["Density"].(float64), 0.01)
}

func TestPutSection(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, api.store.Put(ctx, "Pune", domain.CityRecord{
		Sections: domain.Sections{Waste: &domain.Waste{Total: 900}},
	}))

	w := api.do(t, http.MethodPut, cityPath("Pune", "/sections/energy-buildings"),
		`{"Residential": 120.5, "Fuel_Types": ["Coal", "Gas"], "Street_Lighting_Type": "LED"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rec, err := api.store.Get(ctx, "Pune")
	require.NoError(t, err)
	require.NotNil(t, rec.EnergyBuildings)
	assert.Equal(t, []string{"Coal", "Gas"}, rec.EnergyBuildings.FuelTypes)
	assert.Equal(t, 900.0, rec.Waste.Total)

	w = api.do(t, http.MethodPut, cityPath("Pune", "/sections/Basic%20Info"), `{"Population": 3100000}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPutSection_Errors(t *testing.T) {
	api := newTestAPI(t)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown city", cityPath("Atlantis", "/sections/water"), `{}`, http.StatusNotFound},
		{"unknown section", cityPath("Pune", "/sections/tourism"), `{}`, http.StatusNotFound},
		{"unknown field", cityPath("Pune", "/sections/water"), `{"Colour": "blue"}`, http.StatusBadRequest},
		{"out of range", cityPath("Pune", "/sections/water"), `{"WWT": 101}`, http.StatusBadRequest},
		{"empty body", cityPath("Pune", "/sections/water"), ``, http.StatusBadRequest},
		{"malformed", cityPath("Pune", "/sections/water"), `{"WWT":`, http.StatusBadRequest},
		{"trailing data", cityPath("Pune", "/sections/water"), `{} {}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := api.do(t, http.MethodPut, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, CodeFailed, decodeResult[any](t, w).Code)
		})
	}

	recs, err := api.store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestPutGHGAndExports(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPut, cityPath("Navi Mumbai", "/ghg"), `{"Energy": 1200.5, "Waste": 80}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, cityPath("Navi Mumbai", "/export/ghg.xlsx"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.XLSXContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Navi_Mumbai_ghg_inventory.xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = api.do(t, http.MethodGet, cityPath("Navi Mumbai", "/export/ghg.pdf"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.PDFContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Energy")

	w = api.do(t, http.MethodPut, cityPath("Navi Mumbai", "/ghg"), `{"Aviation": 3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAndSummary(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.store.Put(context.Background(), "Thane", domain.CityRecord{CAPStatus: domain.CAPCompleted}))

	w := api.do(t, http.MethodGet, "/api/v1/cities", "")
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeResult[[]service.CityListItem](t, w).Result
	assert.Len(t, items, 44)

	w = api.do(t, http.MethodGet, "/api/v1/dashboard/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	sum := decodeResult[service.Summary](t, w).Result
	assert.Equal(t, 43, sum.TotalCities)
	assert.Equal(t, 1, sum.StatusCounts[domain.CAPCompleted])
	assert.Equal(t, 42, sum.StatusCounts[domain.CAPNotStarted])
}

func TestCloudSaveAndLoad(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, api.store.Put(ctx, "Pune", domain.CityRecord{District: "Pune"}))

	w := api.do(t, http.MethodPost, "/api/v1/cloud/save", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decodeResult[service.SaveReport](t, w)
	assert.Equal(t, KindSuccess, saved.Type)
	assert.Equal(t, 1, saved.Result.Cities)

	require.NoError(t, api.store.Replace(ctx, domain.CityRecords{}))
	w = api.do(t, http.MethodPost, "/api/v1/cloud/load?mode=replace", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeResult[service.LoadReport](t, w).Result.Found)

	rec, err := api.store.Get(ctx, "Pune")
	require.NoError(t, err)
	assert.Equal(t, "Pune", rec.District)

	w = api.do(t, http.MethodPost, "/api/v1/cloud/load?mode=append", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCloudCityRoutes(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, cityPath("Latur", "/cloud/load"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeResult[service.LoadReport](t, w).Result.Found)

	w = api.do(t, http.MethodPost, cityPath("Latur", "/cloud/save"), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, cityPath("Latur", "/cloud/load?mode=merge"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResult[service.LoadReport](t, w).Result.Found)
}

func TestCloudSave_RemoteFailureIsBadGateway(t *testing.T) {
	api := newTestAPI(t)
	api.remote.FailOn("list", &drive.APIError{Op: "list", StatusCode: 500, Message: "backend error"})

	w := api.do(t, http.MethodPost, "/api/v1/cloud/save", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decodeResult[any](t, w).Message, "backend error")
}

func TestCloudSave_CleanupFailureIsWarning(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.store.Put(context.Background(), "Pune", domain.CityRecord{District: "Pune"}))

	w := api.do(t, http.MethodPost, "/api/v1/cloud/save", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	api.remote.FailOn("delete", &drive.APIError{Op: "delete", StatusCode: 403, Message: "forbidden"})
	w = api.do(t, http.MethodPost, "/api/v1/cloud/save", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeResult[service.SaveReport](t, w)
	assert.Equal(t, CodeOK, res.Code)
	assert.Equal(t, KindWarning, res.Type)
	assert.Contains(t, res.Message, "1 old snapshot(s)")
}

func TestFail_MasksInternalErrors(t *testing.T) {
	res := Fail(http.StatusInternalServerError, errors.New("pq: password authentication failed"))
	assert.Equal(t, CodeFailed, res.Code)
	assert.Equal(t, KindError, res.Type)
	assert.Equal(t, "internal server error", res.Message)

	res = Fail(http.StatusBadGateway, errors.New("drive list: backend error"))
	assert.Equal(t, "drive list: backend error", res.Message)
}

func TestUploadDocument(t *testing.T) {
	api := newTestAPI(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "waste-plan.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, cityPath("Kolhapur", "/sections/waste/document"), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ref := decodeResult[domain.DocumentRef](t, w).Result
	assert.Equal(t, "waste-plan.pdf", ref.Name)
	assert.True(t, api.remote.IsPublic(ref.FileID))

	rec, err := api.store.Get(context.Background(), "Kolhapur")
	require.NoError(t, err)
	require.NotNil(t, rec.Waste)
	assert.Equal(t, ref.FileID, rec.Waste.Upload.FileID)
}

func TestUploadDocument_TooLarge(t *testing.T) {
	api := newTestAPI(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "huge.pdf")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), maxUploadBytes+1024))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, cityPath("Kolhapur", "/sections/waste/document"), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Equal(t, CodeFailed, decodeResult[any](t, w).Code)
	assert.Zero(t, api.remote.Calls("create"))
}

func TestUploadDocument_MissingFile(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, cityPath("Kolhapur", "/sections/waste/document"), `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodDelete, cityPath("Pune"), "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRecovery(t *testing.T) {
	h := WithRecovery(zap.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	res := decodeResult[any](t, w)
	assert.Equal(t, CodeFailed, res.Code)
	assert.Equal(t, "internal server error", res.Message)
}
