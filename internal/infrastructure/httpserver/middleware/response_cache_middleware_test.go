package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/service-kit/internal/application/services"
	"github.com/avatarctic/service-kit/internal/core/domain/cache"
	"github.com/avatarctic/service-kit/internal/infrastructure/httpserver/middleware"
	tmocks "github.com/avatarctic/service-kit/test/mocks"
)

func newCacheMiddleware(t *testing.T, store *tmocks.HashStoreMock) *middleware.ResponseCacheMiddleware {
	t.Helper()
	svc, err := impl.NewResponseCacheService(&impl.ResponseCacheConfig{Store: store, DefaultDuration: 1000}, logrus.New())
	require.NoError(t, err)
	return middleware.NewResponseCacheMiddleware(svc, logrus.New())
}

// serve runs a single request through an echo instance with the cache on GET /items.
func serve(t *testing.T, m *middleware.ResponseCacheMiddleware, duration any, h echo.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/items", h, m.MustCache(duration))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func countingHandler(calls *int, status int, body any) echo.HandlerFunc {
	return func(c echo.Context) error {
		*calls++
		return c.JSON(status, body)
	}
}

func TestResponseCache_MissPersistsResponse(t *testing.T) {
	store := &tmocks.HashStoreMock{}
	m := newCacheMiddleware(t, store)
	calls := 0

	rec := serve(t, m, 1000, countingHandler(&calls, http.StatusOK, map[string]int{"a": 1}), httptest.NewRequest(http.MethodGet, "/items?page=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"a":1}`, rec.Body.String())
	require.Equal(t, 1, calls)

	require.Equal(t, []string{"/items?page=1"}, store.HGetAllKeys)
	require.Len(t, store.HSetCalls, 2)
	require.Equal(t, "/items?page=1", store.HSetCalls[0].Key)
	require.Equal(t, cache.FieldResponse, store.HSetCalls[0].Field)
	require.JSONEq(t, `{"status":200,"data":{"a":1}}`, store.HSetCalls[0].Value)
	require.Equal(t, tmocks.HSetCall{Key: "/items?page=1", Field: cache.FieldDuration, Value: "1000"}, store.HSetCalls[1])
	require.Equal(t, []tmocks.ExpireCall{{Key: "/items?page=1", TTL: time.Second}}, store.ExpireCalls)
}

func TestResponseCache_HitReplaysWithoutCallingHandler(t *testing.T) {
	store := &tmocks.HashStoreMock{}
	m := newCacheMiddleware(t, store)
	calls := 0
	h := countingHandler(&calls, http.StatusCreated, map[string]any{"name": "widget", "tags": []string{"x", "y"}})

	first := serve(t, m, "5 minutes", h, httptest.NewRequest(http.MethodGet, "/items", nil))
	second := serve(t, m, "5 minutes", h, httptest.NewRequest(http.MethodGet, "/items", nil))
	third := serve(t, m, "5 minutes", h, httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, 1, calls)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, cache.NoStoreCacheControl, second.Header().Get("Cache-Control"))
	require.Empty(t, first.Header().Get("Cache-Control"))

	var original, replayed map[string]any
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &original))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &replayed))
	require.Equal(t, original, replayed)

	// replay is idempotent
	require.Equal(t, second.Code, third.Code)
	require.Equal(t, second.Body.String(), third.Body.String())

	require.Equal(t, []tmocks.ExpireCall{{Key: "/items", TTL: 5 * time.Minute}}, store.ExpireCalls)
}

func TestResponseCache_ReplaysRawStrings(t *testing.T) {
	store := &tmocks.HashStoreMock{Data: map[string]map[string]string{
		"/items": {cache.FieldResponse: `{"status":200,"data":"<b>hello</b>"}`},
	}}
	m := newCacheMiddleware(t, store)

	rec := serve(t, m, 1000, func(c echo.Context) error {
		t.Fatal("handler must not run on a hit")
		return nil
	}, httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "<b>hello</b>", rec.Body.String())
	require.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
}

func TestResponseCache_ReplayDecodesJSONStringData(t *testing.T) {
	store := &tmocks.HashStoreMock{Data: map[string]map[string]string{
		"/items": {cache.FieldResponse: `{"status":200,"data":"{\"a\":1}"}`},
	}}
	m := newCacheMiddleware(t, store)

	rec := serve(t, m, 1000, func(c echo.Context) error { return c.NoContent(http.StatusTeapot) }, httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"a":1}`, rec.Body.String())
	require.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

func TestResponseCache_BypassNeverTouchesStore(t *testing.T) {
	for _, header := range []string{"X-Apicache-Bypass", "X-Apicache-Force-Fetch"} {
		store := &tmocks.HashStoreMock{Data: map[string]map[string]string{
			"/items": {cache.FieldResponse: `{"status":200,"data":{"cached":true}}`},
		}}
		m := newCacheMiddleware(t, store)
		calls := 0

		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		req.Header.Set(header, "true")
		rec := serve(t, m, 1000, countingHandler(&calls, http.StatusOK, map[string]bool{"cached": false}), req)

		require.Equal(t, 1, calls, header)
		require.JSONEq(t, `{"cached":false}`, rec.Body.String(), header)
		require.Zero(t, store.Calls(), header)
	}
}

func TestResponseCache_LookupFailureFailsOpen(t *testing.T) {
	store := &tmocks.HashStoreMock{HGetAllFn: func(ctx context.Context, key string) (map[string]string, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	m := newCacheMiddleware(t, store)
	calls := 0

	rec := serve(t, m, 1000, countingHandler(&calls, http.StatusOK, map[string]string{"status": "fresh"}), httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, 1, calls)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"fresh"}`, rec.Body.String())
}

func TestResponseCache_WriteFailureDoesNotAffectResponse(t *testing.T) {
	store := &tmocks.HashStoreMock{
		HSetFn:   func(ctx context.Context, key, field, value string) error { return errors.New("READONLY") },
		ExpireFn: func(ctx context.Context, key string, ttl time.Duration) error { return errors.New("READONLY") },
	}
	m := newCacheMiddleware(t, store)
	calls := 0

	rec := serve(t, m, 1000, countingHandler(&calls, http.StatusOK, map[string]int{"n": 3}), httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"n":3}`, rec.Body.String())
	// exactly one attempt, no retry
	require.Len(t, store.HSetCalls, 1)
	require.Empty(t, store.ExpireCalls)
}

func TestResponseCache_MalformedRecordIsAMiss(t *testing.T) {
	store := &tmocks.HashStoreMock{Data: map[string]map[string]string{
		"/items": {cache.FieldResponse: "{not json"},
	}}
	m := newCacheMiddleware(t, store)
	calls := 0

	rec := serve(t, m, 1000, countingHandler(&calls, http.StatusOK, map[string]int{"v": 2}), httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, 1, calls)
	require.JSONEq(t, `{"v":2}`, rec.Body.String())
	require.JSONEq(t, `{"status":200,"data":{"v":2}}`, store.Data["/items"][cache.FieldResponse])
}

func TestResponseCache_HandlerErrorIsNotCached(t *testing.T) {
	store := &tmocks.HashStoreMock{}
	m := newCacheMiddleware(t, store)

	rec := serve(t, m, 1000, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad input")
	}, httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, store.HSetCalls)
}

func TestResponseCache_CachesNonJSONBodiesAsStrings(t *testing.T) {
	store := &tmocks.HashStoreMock{}
	m := newCacheMiddleware(t, store)

	rec := serve(t, m, "1 hour", func(c echo.Context) error {
		return c.String(http.StatusOK, "plain words")
	}, httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, "plain words", rec.Body.String())
	require.JSONEq(t, `{"status":200,"data":"plain words"}`, store.Data["/items"][cache.FieldResponse])
	require.Equal(t, "3600000", store.Data["/items"][cache.FieldDuration])
}

func TestResponseCache_BinaryBodyIsNotCached(t *testing.T) {
	store := &tmocks.HashStoreMock{}
	m := newCacheMiddleware(t, store)
	png := []byte{0x89, 0x50, 0x4e, 0x47, 0xff, 0x00}
	calls := 0
	h := func(c echo.Context) error {
		calls++
		return c.Blob(http.StatusOK, "image/png", png)
	}

	first := serve(t, m, 1000, h, httptest.NewRequest(http.MethodGet, "/items", nil))
	second := serve(t, m, 1000, h, httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, png, first.Body.Bytes())
	require.Equal(t, png, second.Body.Bytes())
	require.Equal(t, "image/png", second.Header().Get(echo.HeaderContentType))
	require.Equal(t, 2, calls)
	require.Empty(t, store.HSetCalls)
	require.Empty(t, store.ExpireCalls)
}

func TestResponseCache_UnparsableDurationUsesDefault(t *testing.T) {
	store := &tmocks.HashStoreMock{}
	m := newCacheMiddleware(t, store)
	calls := 0

	serve(t, m, "whenever", countingHandler(&calls, http.StatusOK, map[string]int{}), httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, "1000", store.Data["/items"][cache.FieldDuration])
}

func TestResponseCache_RequiresService(t *testing.T) {
	m := middleware.NewResponseCacheMiddleware(nil, logrus.New())
	_, err := m.Cache(1000)
	require.True(t, errors.Is(err, cache.ErrStoreNotConfigured))
	require.Panics(t, func() { m.MustCache(1000) })
}
