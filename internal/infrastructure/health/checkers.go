package health

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/service-kit/internal/core/ports"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db pinger }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.Ping(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// objectStoreHealthChecker lists a single prefix of the default bucket.
type objectStoreHealthChecker struct {
	name  string
	store ports.ObjectStore
}

func (o *objectStoreHealthChecker) Name() string { return o.name }
func (o *objectStoreHealthChecker) Check(ctx context.Context) error {
	_, err := o.store.Stat(ctx, "", ".healthcheck")
	if err == nil || errors.Is(err, ports.ErrObjectNotFound) {
		return nil
	}
	return err
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db pinger) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewObjectStoreHealthChecker reports the store healthy when the default bucket answers,
// even if the probe object does not exist.
func NewObjectStoreHealthChecker(name string, store ports.ObjectStore) ports.HealthChecker {
	return &objectStoreHealthChecker{name: name, store: store}
}
