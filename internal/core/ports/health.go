package ports

import "context"

// HealthChecker reports on one backing dependency (redis, postgres, the object store)
// for GET /health. Check returns nil when the dependency answers within ctx.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
