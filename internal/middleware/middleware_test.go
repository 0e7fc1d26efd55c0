package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-swap-api/internal/models"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.token = token
	return s.claims, s.err
}

type stubToucher struct {
	actors []models.Actor
}

func (s *stubToucher) Touch(ctx context.Context, actor models.Actor) {
	s.actors = append(s.actors, actor)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, actor.TeacherID)
	})
	r.GET("/protected", handlers...)
	return r
}

func perform(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	r := newRouter(JWT(&stubValidator{}))

	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Token abc").Code)
}

func TestJWTPropagatesValidatorError(t *testing.T) {
	r := newRouter(JWT(&stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")}))
	w := perform(r, "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestJWTStoresClaimsAndTouchesDirectory(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "A", SchoolCode: "S1", Role: models.RoleTeacher}}
	toucher := &stubToucher{}
	r := newRouter(JWT(validator), RequireRoles(models.RoleTeacher), Directory(toucher))

	w := perform(r, "bearer  tok ")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A", w.Body.String())
	assert.Equal(t, "tok", validator.token)
	require.Len(t, toucher.actors, 1)
	assert.Equal(t, "S1", toucher.actors[0].SchoolCode)
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "S", SchoolCode: "S1", Role: models.RoleStudent}}
	toucher := &stubToucher{}
	r := newRouter(JWT(validator), RequireRoles(models.RoleTeacher), Directory(toucher))

	assert.Equal(t, http.StatusForbidden, perform(r, "Bearer tok").Code)
	assert.Empty(t, toucher.actors)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := newRouter(RequireRoles(models.RoleTeacher))
	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
}

func TestMetricsWithNilServicePassesThrough(t *testing.T) {
	r := newRouter(Metrics(nil))
	assert.Equal(t, http.StatusTeapot, perform(r, "").Code)
}

type observedRequest struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	mu       sync.Mutex
	requests []observedRequest
}

func (o *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, observedRequest{method: method, route: path, status: status})
}

func TestMetricsRecordsRouteTemplatesAndSkipsOpsEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer, "/health", "/metrics"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/swaps/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/health", "/metrics", "/swaps/0f9c", "/swaps/71ab", "/no/such/route"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []observedRequest{
		{method: http.MethodGet, route: "/swaps/:id", status: http.StatusNotFound},
		{method: http.MethodGet, route: "/swaps/:id", status: http.StatusNotFound},
		{method: http.MethodGet, route: unmatchedRoute, status: http.StatusNotFound},
	}, observer.requests)
}

func TestMetricsLabelsAbandonedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/availability", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/availability", nil).WithContext(ctx))

	require.Len(t, observer.requests, 1)
	assert.Equal(t, StatusClientClosed, observer.requests[0].status)
}
