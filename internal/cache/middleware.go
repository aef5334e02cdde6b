package cache

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ContentType is sent with every payload replayed from the store
const ContentType = "application/json; charset=utf-8"

// Middleware memoizes GET response bodies in a Store for a fixed TTL.
// Writes never invalidate entries; they age out.
type Middleware struct {
	store    Store
	ttl      time.Duration
	observer Observer
	logger   zerolog.Logger
}

// NewMiddleware creates a new Middleware
func NewMiddleware(store Store, ttl time.Duration, observer Observer, logger zerolog.Logger) *Middleware {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Middleware{
		store:    store,
		ttl:      ttl,
		observer: observer,
		logger:   logger.With().Str("component", "cache").Logger(),
	}
}

// Wrap returns next with the cache hooks installed around it
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			m.observer.Bypassed()
			next.ServeHTTP(w, r)
			return
		}

		key := Key(r)
		if m.serveCached(w, key) {
			return
		}
		m.observer.Miss()

		rec := newRecorder()
		next.ServeHTTP(rec, r)

		m.storeResponse(key, rec.body.Bytes())
		rec.writeTo(w)
	})
}

// serveCached is the pre-dispatch hook. It writes the cached payload and
// reports true on a hit.
func (m *Middleware) serveCached(w http.ResponseWriter, key string) bool {
	payload, found := m.store.Get(key)
	if !found {
		return false
	}

	m.observer.Hit()
	m.logger.Debug().
		Str("cacheKey", key).
		Msg("cache hit")

	h := w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		m.logger.Debug().Err(err).Str("cacheKey", key).Msg("failed to write cached response")
	}
	return true
}

// storeResponse is the post-response hook. It fills the slot only if no
// live entry exists, so a hit never refreshes an entry's expiry.
func (m *Middleware) storeResponse(key string, body []byte) {
	payload := make([]byte, len(body))
	copy(payload, body)

	if !m.store.Add(key, payload, m.ttl) {
		return
	}

	m.observer.Stored()
	m.logger.Debug().
		Str("cacheKey", key).
		Int("bytes", len(payload)).
		Msg("cached response")
}

// recorder buffers a handler's response until the post-response hook ran
type recorder struct {
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newRecorder() *recorder {
	return &recorder{
		header: make(http.Header),
		status: http.StatusOK,
	}
}

func (rec *recorder) Header() http.Header {
	return rec.header
}

func (rec *recorder) WriteHeader(status int) {
	if rec.wroteHeader {
		return
	}
	rec.status = status
	rec.wroteHeader = true
}

func (rec *recorder) Write(p []byte) (int, error) {
	if !rec.wroteHeader {
		rec.WriteHeader(http.StatusOK)
	}
	return rec.body.Write(p)
}

// writeTo transmits the buffered response
func (rec *recorder) writeTo(w http.ResponseWriter) {
	h := w.Header()
	for k, v := range rec.header {
		h[k] = v
	}
	if h.Get("Content-Length") == "" {
		h.Set("Content-Length", strconv.Itoa(rec.body.Len()))
	}
	w.WriteHeader(rec.status)
	w.Write(rec.body.Bytes())
}
