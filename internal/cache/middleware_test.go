package cache

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// spyStore records every store access
type spyStore struct {
	Store
	mu   sync.Mutex
	gets int
	sets int
	adds int
}

func (s *spyStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Store.Get(key)
}

func (s *spyStore) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	s.sets++
	s.mu.Unlock()
	s.Store.Set(key, value, ttl)
}

func (s *spyStore) Add(key string, value []byte, ttl time.Duration) bool {
	s.mu.Lock()
	s.adds++
	s.mu.Unlock()
	return s.Store.Add(key, value, ttl)
}

func (s *spyStore) counts() (gets, sets, adds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.sets, s.adds
}

// countingObserver counts middleware events
type countingObserver struct {
	hits, misses, stored, bypassed atomic.Int32
}

func (o *countingObserver) Hit()      { o.hits.Add(1) }
func (o *countingObserver) Miss()     { o.misses.Add(1) }
func (o *countingObserver) Stored()   { o.stored.Add(1) }
func (o *countingObserver) Bypassed() { o.bypassed.Add(1) }

// countingHandler writes a JSON body derived from the request and counts calls
type countingHandler struct {
	calls  atomic.Int32
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := h.calls.Add(1)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if h.status != 0 {
		w.WriteHeader(h.status)
	}
	io.WriteString(w, `{"url":"`+r.URL.RequestURI()+`","call":`+strconv.Itoa(int(n))+`}`)
}

func newTestMiddleware(t *testing.T) (*spyStore, *countingObserver, *countingHandler, http.Handler) {
	t.Helper()
	ms, err := NewMemoryStore(128, 0)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	t.Cleanup(ms.Close)

	spy := &spyStore{Store: ms}
	obs := &countingObserver{}
	next := &countingHandler{}
	mw := NewMiddleware(spy, 15*time.Second, obs, zerolog.Nop())
	return spy, obs, next, mw.Wrap(next)
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestMiddleware_MissThenHit(t *testing.T) {
	_, obs, next, h := newTestMiddleware(t)

	first := do(h, http.MethodGet, "/activity-groups")
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}

	second := do(h, http.MethodGet, "/activity-groups")
	if second.Body.String() != first.Body.String() {
		t.Errorf("hit body = %s, want %s", second.Body.String(), first.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != ContentType {
		t.Errorf("Content-Type = %q, want %q", ct, ContentType)
	}
	if next.calls.Load() != 1 {
		t.Errorf("handler called %d times, want 1", next.calls.Load())
	}
	if obs.hits.Load() != 1 || obs.misses.Load() != 1 || obs.stored.Load() != 1 {
		t.Errorf("hits=%d misses=%d stored=%d", obs.hits.Load(), obs.misses.Load(), obs.stored.Load())
	}
}

func TestMiddleware_NonGETNeverTouchesStore(t *testing.T) {
	spy, obs, next, h := newTestMiddleware(t)

	methods := []string{http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodPut, http.MethodHead, http.MethodOptions}
	for _, method := range methods {
		do(h, method, "/todo-items/abc")
	}

	gets, sets, adds := spy.counts()
	if gets != 0 || sets != 0 || adds != 0 {
		t.Errorf("store touched by non-GET: gets=%d sets=%d adds=%d", gets, sets, adds)
	}
	if int(next.calls.Load()) != len(methods) {
		t.Errorf("handler called %d times, want %d", next.calls.Load(), len(methods))
	}
	if int(obs.bypassed.Load()) != len(methods) {
		t.Errorf("bypassed = %d, want %d", obs.bypassed.Load(), len(methods))
	}
}

func TestMiddleware_NoRefreshOnHit(t *testing.T) {
	spy, _, _, h := newTestMiddleware(t)

	for i := 0; i < 5; i++ {
		do(h, http.MethodGet, "/todo-items")
	}

	_, sets, adds := spy.counts()
	if sets != 0 {
		t.Errorf("Set called %d times, want 0", sets)
	}
	if adds != 1 {
		t.Errorf("Add called %d times, want 1 (only the miss)", adds)
	}
}

func TestMiddleware_HitSkipsHandler(t *testing.T) {
	_, _, next, h := newTestMiddleware(t)

	do(h, http.MethodGet, "/todo-items/1")
	for i := 0; i < 10; i++ {
		do(h, http.MethodGet, "/todo-items/1")
	}

	if next.calls.Load() != 1 {
		t.Errorf("handler called %d times, want 1", next.calls.Load())
	}
}

func TestMiddleware_KeysIncludeQuery(t *testing.T) {
	_, _, next, h := newTestMiddleware(t)

	a := do(h, http.MethodGet, "/todo-items?activity_group_id=1")
	b := do(h, http.MethodGet, "/todo-items?activity_group_id=2")

	if a.Body.String() == b.Body.String() {
		t.Errorf("distinct query strings served the same body: %s", a.Body.String())
	}
	if !strings.Contains(b.Body.String(), "activity_group_id=2") {
		t.Errorf("body = %s", b.Body.String())
	}
	if next.calls.Load() != 2 {
		t.Errorf("handler called %d times, want 2", next.calls.Load())
	}
}

func TestMiddleware_ErrorBodiesAreCached(t *testing.T) {
	ms, err := NewMemoryStore(16, 0)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	defer ms.Close()

	next := &countingHandler{status: http.StatusNotFound}
	h := NewMiddleware(ms, 15*time.Second, nil, zerolog.Nop()).Wrap(next)

	first := do(h, http.MethodGet, "/todo-items/missing")
	if first.Code != http.StatusNotFound {
		t.Fatalf("first status = %d, want 404", first.Code)
	}

	// the cached body is replayed with the default status
	second := do(h, http.MethodGet, "/todo-items/missing")
	if second.Code != http.StatusOK {
		t.Errorf("replayed status = %d, want 200", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("replayed body = %s, want %s", second.Body.String(), first.Body.String())
	}
	if next.calls.Load() != 1 {
		t.Errorf("handler called %d times, want 1", next.calls.Load())
	}
}

func TestMiddleware_ExpiredEntryRepopulates(t *testing.T) {
	ms, err := NewMemoryStore(16, 0)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	defer ms.Close()
	clock := newFakeClock()
	ms.now = clock.Now

	next := &countingHandler{}
	h := NewMiddleware(ms, 15*time.Second, nil, zerolog.Nop()).Wrap(next)

	do(h, http.MethodGet, "/activity-groups")
	clock.Advance(14 * time.Second)
	do(h, http.MethodGet, "/activity-groups")
	if next.calls.Load() != 1 {
		t.Fatalf("handler called %d times before expiry, want 1", next.calls.Load())
	}

	clock.Advance(time.Second)
	do(h, http.MethodGet, "/activity-groups")
	if next.calls.Load() != 2 {
		t.Errorf("handler called %d times after expiry, want 2", next.calls.Load())
	}
}

func TestMiddleware_MissPreservesHandlerResponse(t *testing.T) {
	ms, err := NewMemoryStore(16, 0)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	defer ms.Close()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler", "yes")
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "part1,")
		io.WriteString(w, "part2")
	})
	h := NewMiddleware(ms, time.Minute, nil, zerolog.Nop()).Wrap(next)

	rec := do(h, http.MethodGet, "/x")
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if rec.Header().Get("X-Handler") != "yes" {
		t.Error("handler header lost")
	}
	if rec.Body.String() != "part1,part2" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got, _ := ms.Get("/x"); string(got) != "part1,part2" {
		t.Errorf("stored payload = %q", got)
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/activity-groups", "/activity-groups"},
		{"/todo-items?activity_group_id=1", "/todo-items?activity_group_id=1"},
		{"/todo-items?b=2&a=1", "/todo-items?b=2&a=1"},
		{"http://example.com/todo-items/abc", "/todo-items/abc"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, tt.target, nil)
		if got := Key(r); got != tt.want {
			t.Errorf("Key(%s) = %q, want %q", tt.target, got, tt.want)
		}
	}
}
