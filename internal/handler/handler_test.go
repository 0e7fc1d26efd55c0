package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-swap-api/internal/dto"
	"github.com/noah-isme/sma-swap-api/internal/middleware"
	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/internal/service"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
)

type swapServiceMock struct {
	created   *models.SwapRequest
	list      []models.SwapRequest
	lastQuery dto.SwapQuery
	err       error
}

func (m *swapServiceMock) Create(ctx context.Context, actor models.Actor, req dto.CreateSwapRequest) (*models.SwapRequest, error) {
	return m.created, m.err
}

func (m *swapServiceMock) List(ctx context.Context, actor models.Actor, query dto.SwapQuery) ([]models.SwapRequest, error) {
	m.lastQuery = query
	return m.list, m.err
}

func (m *swapServiceMock) Get(ctx context.Context, actor models.Actor, id string) (*models.SwapRequest, error) {
	return m.created, m.err
}

func (m *swapServiceMock) Delete(ctx context.Context, actor models.Actor, id string) error {
	return m.err
}

type matchingServiceMock struct {
	matched *models.SwapRequest
	err     error
	actor   models.Actor
}

func (m *matchingServiceMock) Accept(ctx context.Context, actor models.Actor, id string) (*models.SwapRequest, error) {
	m.actor = actor
	return m.matched, m.err
}

type availabilityServiceMock struct {
	day     models.Day
	period  int
	exclude string
	result  []models.TeacherSummary
	err     error
}

func (m *availabilityServiceMock) FindAvailable(ctx context.Context, schoolCode string, day models.Day, period int, excludeTeacherID string) ([]models.TeacherSummary, error) {
	m.day, m.period, m.exclude = day, period, excludeTeacherID
	return m.result, m.err
}

type timetableServiceMock struct {
	schedule *models.TeacherSchedule
	grid     models.Grid
	err      error
	saves    int
}

func (m *timetableServiceMock) ListClasses(ctx context.Context, actor models.Actor) ([]models.Class, error) {
	return []models.Class{{ID: "S1_1_1", Grade: "1", Section: "1", TeacherID: actor.TeacherID}}, m.err
}

func (m *timetableServiceMock) RegisterClass(ctx context.Context, actor models.Actor, req dto.RegisterClassRequest) (*models.Class, error) {
	return &models.Class{ID: "S1_" + req.Grade + "_" + req.Section, Grade: req.Grade, Section: req.Section, TeacherID: actor.TeacherID}, m.err
}

func (m *timetableServiceMock) GetClassTimetable(ctx context.Context, actor models.Actor, classID string) (*models.ClassTimetable, error) {
	return &models.ClassTimetable{ClassID: classID}, m.err
}

func (m *timetableServiceMock) SaveClassTimetable(ctx context.Context, actor models.Actor, classID string, raw map[string][]string) (*models.ClassTimetable, error) {
	m.saves++
	return &models.ClassTimetable{ClassID: classID}, m.err
}

func (m *timetableServiceMock) GetTeacherSchedule(ctx context.Context, actor models.Actor, teacherID string) (*models.TeacherSchedule, error) {
	return m.schedule, m.err
}

func (m *timetableServiceMock) SaveTeacherSchedule(ctx context.Context, actor models.Actor, raw map[string][]string) (*models.TeacherSchedule, error) {
	m.saves++
	return m.schedule, m.err
}

func (m *timetableServiceMock) MergeTeacherSchedule(ctx context.Context, actor models.Actor, req dto.MergeCellsRequest) (*models.TeacherSchedule, error) {
	return m.schedule, m.err
}

func (m *timetableServiceMock) ImportGrid(r io.Reader) (string, models.Grid, error) {
	_, _ = io.Copy(io.Discard, r)
	return "Sheet1", m.grid, m.err
}

type exportServiceMock struct {
	format service.ExportFormat
}

func (m *exportServiceMock) ExportClassTimetable(ctx context.Context, actor models.Actor, classID string, format service.ExportFormat) (*service.ExportResult, error) {
	m.format = format
	return &service.ExportResult{Filename: "class.csv", ContentType: "text/csv", Body: []byte("Period")}, nil
}

func (m *exportServiceMock) ExportTeacherSchedule(ctx context.Context, actor models.Actor, teacherID string, format service.ExportFormat) (*service.ExportResult, error) {
	m.format = format
	return &service.ExportResult{Filename: "me.pdf", ContentType: "application/pdf", Body: []byte("%PDF")}, nil
}

func withActor(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: id, SchoolCode: "S1", DisplayName: "T " + id, Role: models.RoleTeacher})
		c.Next()
	}
}

func newTestRouter(swaps *swapServiceMock, matching *matchingServiceMock, availability *availabilityServiceMock, timetables *timetableServiceMock, exports *exportServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/", withActor("A"))

	swapHandler := NewSwapHandler(swaps, matching)
	api.GET("/swaps", swapHandler.List)
	api.POST("/swaps", swapHandler.Create)
	api.GET("/swaps/:id", swapHandler.Get)
	api.DELETE("/swaps/:id", swapHandler.Delete)
	api.POST("/swaps/:id/accept", swapHandler.Accept)

	api.GET("/availability", NewAvailabilityHandler(availability).Find)

	tt := NewTimetableHandler(timetables, exports, 1024)
	api.GET("/classes", tt.ListClasses)
	api.POST("/classes", tt.RegisterClass)
	api.GET("/me/schedule", tt.GetMySchedule)
	api.PUT("/me/schedule", tt.SaveMySchedule)
	api.GET("/me/schedule/export", tt.ExportMySchedule)
	api.PUT("/classes/:id/timetable", tt.SaveClassTimetable)
	api.GET("/classes/:id/timetable/export", tt.ExportClassTimetable)
	api.POST("/timetables/import", tt.Import)
	return r
}

func do(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) appErrors.Error {
	t.Helper()
	var env struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error
}

func TestSwapHandlerMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{appErrors.WithEntity(appErrors.ErrAlreadyMatched, "r1", ""), http.StatusConflict, "ALREADY_MATCHED"},
		{appErrors.WithEntity(appErrors.ErrTargetMismatch, "r1", ""), http.StatusForbidden, "TARGET_MISMATCH"},
		{appErrors.WithEntity(appErrors.ErrSelfAcceptNotAllowed, "r1", ""), http.StatusForbidden, "SELF_ACCEPT_NOT_ALLOWED"},
		{appErrors.WithEntity(appErrors.ErrNotFound, "r1", "swap request not found"), http.StatusNotFound, "NOT_FOUND"},
		{appErrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			r := newTestRouter(&swapServiceMock{}, &matchingServiceMock{err: tc.err}, &availabilityServiceMock{}, &timetableServiceMock{}, &exportServiceMock{})
			w := do(r, http.MethodPost, "/swaps/r1/accept", nil)
			require.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Code)
		})
	}
}

func TestSwapHandlerAcceptReturnsMatchedRequest(t *testing.T) {
	now := time.Now().UTC()
	matched := &models.SwapRequest{ID: "r1", Day: models.DayTuesday, Period: 3, Status: models.SwapStatusMatched, AccepterID: strPtr("A"), MatchedAt: &now}
	matching := &matchingServiceMock{matched: matched}
	r := newTestRouter(&swapServiceMock{}, matching, &availabilityServiceMock{}, &timetableServiceMock{}, &exportServiceMock{})

	w := do(r, http.MethodPost, "/swaps/r1/accept", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A", matching.actor.TeacherID)
	assert.Contains(t, w.Body.String(), `"status":"matched"`)
	assert.Contains(t, w.Body.String(), `"dayLabel":"Tue"`)
	assert.Contains(t, w.Body.String(), `"kind":"open"`)
}

func TestSwapHandlerCreateAndList(t *testing.T) {
	swaps := &swapServiceMock{
		created: &models.SwapRequest{ID: "r1", ToID: strPtr("B"), Day: models.DayMonday, Period: 1},
		list:    []models.SwapRequest{{ID: "r1"}},
	}
	r := newTestRouter(swaps, &matchingServiceMock{}, &availabilityServiceMock{}, &timetableServiceMock{}, &exportServiceMock{})

	w := do(r, http.MethodPost, "/swaps", []byte(`{"day":"mon","period":1,"subject":"Math","toId":"B"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"direct"`)

	w = do(r, http.MethodPost, "/swaps", []byte(`{"day":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/swaps?filter=inbox&status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inbox", swaps.lastQuery.Filter)
	assert.Equal(t, "pending", swaps.lastQuery.Status)

	w = do(r, http.MethodDelete, "/swaps/r1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAvailabilityHandler(t *testing.T) {
	availability := &availabilityServiceMock{result: []models.TeacherSummary{{ID: "B", DisplayName: "B"}}}
	r := newTestRouter(&swapServiceMock{}, &matchingServiceMock{}, availability, &timetableServiceMock{}, &exportServiceMock{})

	w := do(r, http.MethodGet, "/availability?day=Tue&period=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DayTuesday, availability.day)
	assert.Equal(t, 3, availability.period)
	assert.Equal(t, "A", availability.exclude)
	assert.Contains(t, w.Body.String(), `"teachers":[{"id":"B"`)

	w = do(r, http.MethodGet, "/availability?day=sun&period=3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/availability?day=mon&period=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerScheduleAndClasses(t *testing.T) {
	grid := models.Grid{}
	require.NoError(t, grid.Set(models.DayMonday, 1, "Math"))
	timetables := &timetableServiceMock{schedule: &models.TeacherSchedule{TeacherID: "A", Grid: grid}}
	exports := &exportServiceMock{}
	r := newTestRouter(&swapServiceMock{}, &matchingServiceMock{}, &availabilityServiceMock{}, timetables, exports)

	w := do(r, http.MethodGet, "/me/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mon":["Math","","","","","",""]`)
	assert.NotContains(t, w.Body.String(), "updatedAt")

	w = do(r, http.MethodPut, "/me/schedule", []byte(`{"grid":{"mon":["x"]}}`))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/classes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"owned":true`)

	w = do(r, http.MethodPost, "/classes", []byte(`{"grade":"2","section":"3"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"label":"2-3"`)

	timetables.err = appErrors.WithEntity(appErrors.ErrNotFound, "A", "schedule not found")
	w = do(r, http.MethodGet, "/me/schedule", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerRejectsNullCells(t *testing.T) {
	timetables := &timetableServiceMock{schedule: &models.TeacherSchedule{TeacherID: "A"}}
	r := newTestRouter(&swapServiceMock{}, &matchingServiceMock{}, &availabilityServiceMock{}, timetables, &exportServiceMock{})

	w := do(r, http.MethodPut, "/me/schedule", []byte(`{"grid":{"mon":["Math",null,"","","","",""]}}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeError(t, w).Code)

	w = do(r, http.MethodPut, "/classes/S1_1_1/timetable", []byte(`{"grid":{"mon":null}}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, timetables.saves)
}

func TestTimetableHandlerExport(t *testing.T) {
	exports := &exportServiceMock{}
	r := newTestRouter(&swapServiceMock{}, &matchingServiceMock{}, &availabilityServiceMock{}, &timetableServiceMock{}, exports)

	w := do(r, http.MethodGet, "/me/schedule/export?format=pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormat("pdf"), exports.format)
	assert.Equal(t, `attachment; filename="me.pdf"`, w.Header().Get("Content-Disposition"))

	w = do(r, http.MethodGet, "/classes/S1_1_1/timetable/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, exports.format)
}

func TestTimetableHandlerImport(t *testing.T) {
	grid := models.Grid{}
	require.NoError(t, grid.Set(models.DayFriday, 7, "Music"))
	r := newTestRouter(&swapServiceMock{}, &matchingServiceMock{}, &availabilityServiceMock{}, &timetableServiceMock{grid: grid}, &exportServiceMock{})

	upload := func(size int) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "timetable.xlsx")
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte("x"), size))
		require.NoError(t, err)
		require.NoError(t, writer.Close())
		req := httptest.NewRequest(http.MethodPost, "/timetables/import", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := upload(10)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"occupied":1`)
	assert.Contains(t, w.Body.String(), `"sheet":"Sheet1"`)

	assert.Equal(t, http.StatusBadRequest, upload(4096).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/timetables/import", nil).Code)
}

func TestHandlersRequireIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/swaps", NewSwapHandler(&swapServiceMock{}, &matchingServiceMock{}).List)
	w := do(r, http.MethodGet, "/swaps", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewMetricsHandler(nil, map[string]Pinger{"db": PingerFunc(func(context.Context) error { return nil })})
	failing := NewMetricsHandler(nil, map[string]Pinger{"db": PingerFunc(func(context.Context) error { return errors.New("refused") })})

	r := gin.New()
	r.GET("/ready", healthy.Ready)
	r.GET("/ready-bad", failing.Ready)
	r.GET("/metrics", healthy.Prometheus)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", nil).Code)
	w := do(r, http.MethodGet, "/ready-bad", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "refused")
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/metrics", nil).Code)
}

func strPtr(v string) *string { return &v }
