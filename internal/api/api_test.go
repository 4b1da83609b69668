package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dirsize/internal/config"
	"dirsize/internal/metrics"
	"dirsize/internal/testutil"
)

func newTestRouter(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(config.DefaultConfig(), metrics.New(), zap.NewNop())
}

func do(t *testing.T, h *Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := SetupRouter(h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestSizes(t *testing.T) {
	for _, input := range []string{testutil.ExampleListing, testutil.ExampleTranscript} {
		rec := do(t, newTestRouter(t), http.MethodPost, "/v1/sizes", input)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp SizesResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Total != testutil.ExampleTotalSize {
			t.Errorf("expected total %d, got %d", testutil.ExampleTotalSize, resp.Total)
		}
		if resp.Sum != 95437 || resp.Count != 2 {
			t.Errorf("expected 2 sizes summing to 95437, got %d summing to %d", resp.Count, resp.Sum)
		}
		if len(resp.Digest) != 16 {
			t.Errorf("expected 16 hex digest, got %q", resp.Digest)
		}
	}
}

func TestSizes_Window(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/v1/sizes?format=listing&min=1000&max=100000000", testutil.ExampleListing)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp SizesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	// "/", d and a; e is 584.
	if resp.Count != 3 {
		t.Errorf("expected 3 sizes, got %v", resp.Sizes)
	}

	rec = do(t, newTestRouter(t), http.MethodPost, "/v1/sizes?min=0&max=1", testutil.ExampleListing)
	if !strings.Contains(rec.Body.String(), `"sizes":[]`) {
		t.Errorf("expected empty size list, got %s", rec.Body.String())
	}
}

func TestFree(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/v1/free", testutil.ExampleTranscript)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp FreeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Smallest != 24933642 {
		t.Errorf("expected 24933642, got %d", resp.Smallest)
	}
	if resp.Deficit != 8381165 {
		t.Errorf("expected deficit 8381165, got %d", resp.Deficit)
	}
}

func TestFree_Unsatisfiable(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/v1/free?total=50000000&min_free=60000000", testutil.ExampleListing)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWalk(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/v1/walk", testutil.ExampleListing)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var entries []WalkEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(testutil.ExampleWalk) {
		t.Fatalf("expected %d entries, got %d", len(testutil.ExampleWalk), len(entries))
	}
	if entries[0].Path != "/" || entries[0].Type != "dir" || entries[0].Size != testutil.ExampleTotalSize {
		t.Errorf("unexpected root entry: %+v", entries[0])
	}
	if entries[1].Path != "/a" {
		t.Errorf("expected /a second, got %s", entries[1].Path)
	}
}

func TestBadRequests(t *testing.T) {
	cases := []struct {
		name   string
		target string
		body   string
	}{
		{"empty body", "/v1/sizes", ""},
		{"navigation error", "/v1/sizes", "$ cd .."},
		{"unknown format", "/v1/sizes?format=xml", testutil.ExampleListing},
		{"bad min", "/v1/sizes?min=abc", testutil.ExampleListing},
		{"bad total", "/v1/free?total=-x", testutil.ExampleListing},
		{"invalid json", "/v1/sizes?format=json", "{bad"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, newTestRouter(t), http.MethodPost, tc.target, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Errorf("expected error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestMapError_Internal(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/v1/sizes", nil), rec)

	if err := mapError(c, errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "boom") {
		t.Errorf("expected error message in body, got %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/v1/free", testutil.ExampleListing)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `dirsize_trees_built_total{format="listing"} 1`) {
		t.Errorf("expected a listing build in metrics:\n%s", body)
	}
}
