package cache

import "net/http"

// Key returns the cache key for a request: its path and raw query exactly
// as received. The method is not part of the key; only GET requests
// reach the store.
func Key(r *http.Request) string {
	return r.URL.RequestURI()
}
