package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"budgetrollup/internal/core"
	"budgetrollup/internal/log"
	"budgetrollup/internal/rollup"
	"budgetrollup/internal/services"
	"budgetrollup/internal/sources"
	"budgetrollup/internal/sources/memory"
)

// brokenReader fails one collection and delegates the rest.
type brokenReader struct {
	*memory.Store
	collection string
}

func (b brokenReader) Fetch(ctx context.Context, q sources.Query) ([]sources.Record, error) {
	if q.Collection == b.collection {
		return nil, errors.New("connection reset")
	}
	return b.Store.Fetch(ctx, q)
}

type fakeComputer struct {
	err error
}

func (f fakeComputer) ComputeRollup(ctx context.Context, raw string) (*rollup.Rollup, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rollup.Rollup{}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newFixtureServer(t *testing.T, wrap func(*memory.Store) sources.Reader) *Server {
	t.Helper()
	store, err := memory.NewFromFile("../rollup/testdata/project.yaml")
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	var reader sources.Reader = store
	if wrap != nil {
		reader = wrap(store)
	}
	engine := rollup.NewEngine(reader, rollup.WithLogger(log.Discard()))
	srv := NewServer(":0", services.NewRollupService(engine, nil, nil), store, Options{RateLimitPerMinute: 1000})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestBudgetDetailsBothRoutes(t *testing.T) {
	srv := newFixtureServer(t, nil)

	var bodies []string
	for _, path := range []string{"/api/projects/42/budget/details", "/api/budget/42/details"} {
		rec := do(t, srv, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body %s", path, rec.Code, rec.Body)
		}
		if rec.Header().Get(HeaderDegraded) != "" {
			t.Errorf("%s unexpected degraded header %q", path, rec.Header().Get(HeaderDegraded))
		}

		var body struct {
			Details []core.DetailLineItem `json:"details"`
			Count   int                   `json:"count"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Count != 15 || len(body.Details) != body.Count {
			t.Errorf("%s count = %d, details = %d", path, body.Count, len(body.Details))
		}
		bodies = append(bodies, rec.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Errorf("routes returned different bodies")
	}
}

func TestBudgetDetailsEmptyProject(t *testing.T) {
	srv := newFixtureServer(t, nil)

	rec := do(t, srv, "/api/budget/999/details")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"details\":[],\"count\":0}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestBudgetDetailsZeroActivityCode(t *testing.T) {
	store := memory.New()
	store.Insert("cost_codes", sources.Record{"id": "02-200", "description": "Sitework"})
	store.Insert("budget_lines", sources.Record{"id": 1, "project_id": 7, "cost_code_id": "02-200", "description": "Placeholder", "original_amount": 0})
	engine := rollup.NewEngine(store, rollup.WithLogger(log.Discard()))
	srv := NewServer(":0", services.NewRollupService(engine, nil, nil), store, Options{RateLimitPerMinute: 1000})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rec := do(t, srv, "/api/projects/7/budget/details")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{`"originalBudgetAmount":0`, `"forecastToComplete":0`, `"count":2`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}

func TestBudgetDetailsInvalidProjectID(t *testing.T) {
	srv := newFixtureServer(t, nil)

	for _, id := range []string{"abc", "0", "-4", "1.5", "%2012%20"} {
		rec := do(t, srv, fmt.Sprintf("/api/projects/%s/budget/details", id))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q status = %d, want 400", id, rec.Code)
			continue
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
			t.Errorf("id %q body = %s", id, rec.Body)
		}
	}
}

func TestBudgetDetailsDegradedHeader(t *testing.T) {
	srv := newFixtureServer(t, func(s *memory.Store) sources.Reader {
		return brokenReader{Store: s, collection: "direct_costs"}
	})

	rec := do(t, srv, "/api/budget/42/details")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get(HeaderDegraded); got != "direct_costs" {
		t.Errorf("%s = %q, want direct_costs", HeaderDegraded, got)
	}
}

func TestBudgetDetailsUnexpectedFailure(t *testing.T) {
	srv := NewServer(":0", fakeComputer{err: fmt.Errorf("%w: boom", core.ErrUnexpected)}, fakePinger{}, Options{})
	defer srv.Shutdown(context.Background())

	rec := do(t, srv, "/api/budget/1/details")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "failed to compute budget rollup" {
		t.Errorf("body = %v", body)
	}
}

func TestRateLimit(t *testing.T) {
	srv := NewServer(":0", fakeComputer{}, fakePinger{}, Options{RateLimitPerMinute: 2})
	defer srv.Shutdown(context.Background())

	for i := 0; i < 2; i++ {
		if rec := do(t, srv, "/api/budget/1/details"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}
	rec := do(t, srv, "/api/budget/1/details")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Errorf("missing Retry-After")
	}

	// probes are not rate limited
	if rec := do(t, srv, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	tests := []struct {
		name  string
		store Pinger
		want  int
	}{
		{"ready", fakePinger{}, http.StatusOK},
		{"store down", fakePinger{err: errors.New("db closed")}, http.StatusServiceUnavailable},
		{"no store", nil, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(":0", fakeComputer{}, tt.store, Options{})
			defer srv.Shutdown(context.Background())

			if rec := do(t, srv, "/healthz"); rec.Code != http.StatusOK {
				t.Errorf("healthz status = %d", rec.Code)
			}
			rec := do(t, srv, "/readyz")
			if rec.Code != tt.want {
				t.Errorf("readyz status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Errorf("missing request id header")
			}
		})
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv := NewServer(":0", fakeComputer{}, fakePinger{}, Options{})
	defer srv.Shutdown(context.Background())

	if rec := do(t, srv, "/api/budget/1"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d", rec.Code)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/budget/1/details", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", rec.Code)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	srv := NewServer(":0", fakeComputer{}, fakePinger{}, Options{})
	defer srv.Shutdown(context.Background())

	rec := do(t, srv, "/openapi.yaml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc struct {
		Paths map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("parse openapi: %v", err)
	}
	for _, p := range []string{"/api/projects/{projectId}/budget/details", "/api/budget/{projectId}/details"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("openapi missing path %s", p)
		}
	}
}
