package cache

import (
	"net/http"
	"strings"
)

// DefaultNamespace prefixes the bypass headers when none is configured.
const DefaultNamespace = "apicache"

// BypassHeaders returns the two request headers that force a fetch for namespace.
func BypassHeaders(namespace string) (bypass, forceFetch string) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	ns := strings.ToLower(namespace)
	return "x-" + ns + "-bypass", "x-" + ns + "-force-fetch"
}

// IsBypass reports whether the request explicitly asked to skip the cache.
// Any non-empty value counts.
func IsBypass(h http.Header, namespace string) bool {
	bypass, force := BypassHeaders(namespace)
	return h.Get(bypass) != "" || h.Get(force) != ""
}

// KeyFromRequest derives the cache key from the raw request target (path and query).
// No normalization is applied: differently ordered query strings map to different keys.
func KeyFromRequest(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}
