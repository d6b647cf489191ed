package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/service-kit/internal/application/services"
	"github.com/avatarctic/service-kit/internal/core/domain/cache"
	tmocks "github.com/avatarctic/service-kit/test/mocks"
)

func newCacheService(t *testing.T, store *tmocks.HashStoreMock) *impl.ResponseCacheService {
	t.Helper()
	svc, err := impl.NewResponseCacheService(&impl.ResponseCacheConfig{Store: store, DefaultDuration: 1000}, logrus.New())
	require.NoError(t, err)
	return svc
}

func TestNewResponseCacheService_RequiresStore(t *testing.T) {
	_, err := impl.NewResponseCacheService(&impl.ResponseCacheConfig{}, logrus.New())
	require.True(t, errors.Is(err, cache.ErrStoreNotConfigured))

	_, err = impl.NewResponseCacheService(nil, nil)
	require.True(t, errors.Is(err, cache.ErrStoreNotConfigured))
}

func TestResponseCacheService_Defaults(t *testing.T) {
	svc, err := impl.NewResponseCacheService(&impl.ResponseCacheConfig{Store: &tmocks.HashStoreMock{}}, nil)
	require.NoError(t, err)
	require.Equal(t, cache.DefaultNamespace, svc.Namespace())
	require.Equal(t, cache.DefaultDurationMillis, svc.Duration("garbage"))
	require.Equal(t, int64(7200000), svc.Duration("2 hours"))
}

func TestResponseCacheService_StoreWritesEnvelopeDurationAndExpiry(t *testing.T) {
	store := &tmocks.HashStoreMock{}
	svc := newCacheService(t, store)

	entry := cache.NewEntry(http.StatusOK, []byte(`{"a":1}`))
	require.NoError(t, svc.Store(context.Background(), "/x", entry, 1000))

	require.Len(t, store.HSetCalls, 2)
	require.Equal(t, tmocks.HSetCall{Key: "/x", Field: cache.FieldDuration, Value: "1000"}, store.HSetCalls[1])

	var envelope map[string]any
	require.Equal(t, cache.FieldResponse, store.HSetCalls[0].Field)
	require.NoError(t, json.Unmarshal([]byte(store.HSetCalls[0].Value), &envelope))
	require.Equal(t, map[string]any{"status": float64(200), "data": map[string]any{"a": float64(1)}}, envelope)

	require.Equal(t, []tmocks.ExpireCall{{Key: "/x", TTL: time.Second}}, store.ExpireCalls)
}

func TestResponseCacheService_StoreFailureIsReportedOnce(t *testing.T) {
	store := &tmocks.HashStoreMock{HSetFn: func(ctx context.Context, key, field, value string) error {
		return errors.New("connection refused")
	}}
	svc := newCacheService(t, store)

	err := svc.Store(context.Background(), "/x", cache.NewEntry(200, []byte("ok")), 1000)
	require.True(t, errors.Is(err, cache.ErrStoreUnavailable))
	require.Len(t, store.HSetCalls, 1)
	require.Empty(t, store.ExpireCalls)
}

func TestResponseCacheService_LookupOutcomes(t *testing.T) {
	ctx := context.Background()

	store := &tmocks.HashStoreMock{}
	svc := newCacheService(t, store)
	res := svc.Lookup(ctx, "/missing")
	require.Equal(t, cache.OutcomeMiss, res.Outcome)
	require.False(t, res.Hit())

	store.Data = map[string]map[string]string{
		"/hit":     {cache.FieldResponse: `{"status":201,"data":{"ok":true}}`, cache.FieldDuration: "1000"},
		"/broken":  {cache.FieldResponse: `{"status":`},
		"/nofield": {cache.FieldDuration: "1000"},
	}

	res = svc.Lookup(ctx, "/hit")
	require.True(t, res.Hit())
	require.Equal(t, 201, res.Entry.Status)
	require.Equal(t, map[string]any{"ok": true}, res.Entry.Data)

	res = svc.Lookup(ctx, "/broken")
	require.Equal(t, cache.OutcomeMalformed, res.Outcome)
	require.True(t, errors.Is(res.Err, cache.ErrMalformedRecord))

	res = svc.Lookup(ctx, "/nofield")
	require.Equal(t, cache.OutcomeMiss, res.Outcome)

	failing := &tmocks.HashStoreMock{HGetAllFn: func(ctx context.Context, key string) (map[string]string, error) {
		return nil, errors.New("i/o timeout")
	}}
	res = newCacheService(t, failing).Lookup(ctx, "/x")
	require.Equal(t, cache.OutcomeUnavailable, res.Outcome)
	require.True(t, errors.Is(res.Err, cache.ErrStoreUnavailable))
}

func TestResponseCacheService_ClearSingleKey(t *testing.T) {
	store := &tmocks.HashStoreMock{Data: map[string]map[string]string{"/a": {cache.FieldResponse: "{}"}}}
	svc := newCacheService(t, store)

	require.NoError(t, svc.Clear(context.Background(), "/a"))
	require.Equal(t, []string{"/a"}, store.DelKeys)
	require.Zero(t, store.ClearCalls)
	require.NotContains(t, store.Data, "/a")
}

func TestResponseCacheService_ClearSingleKeyStoreError(t *testing.T) {
	store := &tmocks.HashStoreMock{DelFn: func(ctx context.Context, key string) error { return errors.New("down") }}
	svc := newCacheService(t, store)

	err := svc.Clear(context.Background(), "/a")
	require.True(t, errors.Is(err, cache.ErrStoreUnavailable))
}

func TestResponseCacheService_ClearAll(t *testing.T) {
	store := &tmocks.HashStoreMock{Data: map[string]map[string]string{"/a": {}, "/b": {}}}
	svc := newCacheService(t, store)

	require.NoError(t, svc.Clear(context.Background(), ""))
	require.Equal(t, 1, store.ClearCalls)
	require.Empty(t, store.DelKeys)
	require.Empty(t, store.Data)
}

func TestResponseCacheService_ClearAllUnsupportedIsNoop(t *testing.T) {
	store := &tmocks.HashStoreMock{ClearFn: func(ctx context.Context) (int64, error) {
		return 0, cache.ErrGlobalClearUnsupported
	}}
	svc := newCacheService(t, store)

	require.NoError(t, svc.Clear(context.Background(), ""))
	require.Equal(t, 1, store.ClearCalls)
}
