package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIdem(t *testing.T) Idem {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}
}

func TestIdemRejectsReplay(t *testing.T) {
	idem := newIdem(t)
	calls := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	req.Header.Set("Idempotency-Key", "order-abc")

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req.Clone(req.Context()))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req.Clone(req.Context()))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected replay to conflict, got %d", second.Code)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestIdemDistinctKeysPass(t *testing.T) {
	idem := newIdem(t)
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for _, key := range []string{"order-1", "order-2"} {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("key %s: expected 201, got %d", key, rec.Code)
		}
	}
}

func TestIdemSkipsRequestsWithoutKey(t *testing.T) {
	idem := newIdem(t)
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, rec.Code)
		}
	}
}

func TestParsePaginationDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	page, perPage := ParsePagination(req, 20)
	if page != 1 || perPage != 20 {
		t.Fatalf("expected defaults 1/20, got %d/%d", page, perPage)
	}

	req = httptest.NewRequest(http.MethodGet, "/orders?page=3&limit=5", nil)
	page, perPage = ParsePagination(req, 20)
	if page != 3 || perPage != 5 {
		t.Fatalf("expected 3/5, got %d/%d", page, perPage)
	}

	req = httptest.NewRequest(http.MethodGet, "/orders?page=-1&limit=0", nil)
	page, perPage = ParsePagination(req, 20)
	if page != 1 || perPage != 20 {
		t.Fatalf("expected invalid values ignored, got %d/%d", page, perPage)
	}
}
