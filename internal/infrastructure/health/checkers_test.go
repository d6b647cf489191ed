package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	tmocks "github.com/avatarctic/service-kit/test/mocks"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestRedisHealthChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hc := NewRedisHealthChecker(client)
	require.Equal(t, "redis", hc.Name())
	require.NoError(t, hc.Check(context.Background()))

	mr.Close()
	require.Error(t, hc.Check(context.Background()))
}

func TestDBHealthChecker(t *testing.T) {
	require.NoError(t, NewDBHealthChecker(fakePinger{}).Check(context.Background()))
	require.Error(t, NewDBHealthChecker(fakePinger{err: errors.New("down")}).Check(context.Background()))
}

func TestObjectStoreHealthChecker_MissingProbeIsHealthy(t *testing.T) {
	hc := NewObjectStoreHealthChecker("s3", &tmocks.ObjectStoreMock{})
	require.Equal(t, "s3", hc.Name())
	require.NoError(t, hc.Check(context.Background()))
}
