package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"benefit-recommendation-api/internal/catalog"
	"benefit-recommendation-api/internal/models"
	"benefit-recommendation-api/internal/recommend"
	"benefit-recommendation-api/internal/service"
)

type stubStore struct {
	offers []models.Item
	events []models.Item
}

func (s *stubStore) Load(ctx context.Context) ([]models.Item, []models.Item, error) {
	return s.offers, s.events, nil
}

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	store := &stubStore{
		offers: []models.Item{
			{
				ID: "ofr-starbucks-10", Kind: models.KindOffer,
				Title: "Starbucks 10% off", Brand: "Starbucks", Category: "Cafe",
				Benefit: &models.Benefit{Kind: "percent", Value: 10},
			},
			{
				ID: "ofr-ediya-5", Kind: models.KindOffer,
				Title: "Ediya 5% off", Brand: "Ediya", Category: "Cafe",
			},
		},
	}

	provider, err := catalog.NewProvider(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("Failed to create catalog provider: %v", err)
	}

	svc := service.NewService(service.Options{
		Catalog: provider,
		Engine:  recommend.NewEngine(0, nil),
	})

	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Route("/recommend", func(r chi.Router) {
		r.Post("/", h.Recommend)
		r.Post("/ai", h.RecommendWithNarrative)
		r.Post("/alternatives", h.RecommendAlternatives)
	})
	r.Post("/catalog/reload", h.ReloadCatalog)
	r.Get("/health", h.Health)

	return r
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const validRequest = `{
	"user": {"telecom": "SKT", "payments": ["CardX"]},
	"plan": {"dateTime": "2026-05-01T10:00:00", "brand": "Starbucks", "category": "Cafe"}
}`

func TestRecommendEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/recommend", validRequest)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.RecommendationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.RecommendationID == "" {
		t.Error("Expected a recommendation id")
	}
	if resp.TotalCount != 2 {
		t.Errorf("Expected 2 recommendations, got %d", resp.TotalCount)
	}
	if resp.Recommendations[0].Item.ID != "ofr-starbucks-10" {
		t.Errorf("Expected exact brand match first, got %s", resp.Recommendations[0].Item.ID)
	}
}

func TestRecommendEmptyResultIsOK(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"user": {"telecom": "Rakuten", "payments": ["CardZ"]},
		"plan": {"dateTime": "2026-05-01T10:00:00", "brand": "Nonexistent"}
	}`
	rec := postJSON(t, router, "/recommend", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for an empty result, got %d", rec.Code)
	}

	var resp models.RecommendationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.TotalCount != 0 {
		t.Errorf("Expected 0 recommendations, got %d", resp.TotalCount)
	}
}

func TestRecommendValidationFailures(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"invalid json", "{not json"},
		{"missing telecom", `{"user": {"payments": ["CardX"]}, "plan": {"dateTime": "2026-05-01T10:00:00", "brand": "Starbucks"}}`},
		{"missing payments", `{"user": {"telecom": "SKT"}, "plan": {"dateTime": "2026-05-01T10:00:00", "brand": "Starbucks"}}`},
		{"no brand or category", `{"user": {"telecom": "SKT", "payments": ["CardX"]}, "plan": {"dateTime": "2026-05-01T10:00:00"}}`},
		{"bad datetime", `{"user": {"telecom": "SKT", "payments": ["CardX"]}, "plan": {"dateTime": "whenever", "brand": "Starbucks"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, router, "/recommend", tc.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rec.Code)
			}

			var errResp models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if errResp.Error == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestRecommendAIEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/recommend/ai", validRequest)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.RecommendationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.TotalCount != 2 {
		t.Errorf("Expected 2 recommendations, got %d", resp.TotalCount)
	}
}

func TestAlternativesEndpoint(t *testing.T) {
	router := newTestRouter(t)

	// No items carry a time window, so the exact-brand offer comes back as a
	// zero-offset temporal hit and Ediya as a categorical substitution.
	rec := postJSON(t, router, "/recommend/alternatives", validRequest)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.AlternativesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.TotalCount != 2 {
		t.Fatalf("Expected 2 alternatives, got %d", resp.TotalCount)
	}
	for _, alt := range resp.Alternatives {
		if alt.Reason == "" {
			t.Error("Expected every alternative to carry a reason")
		}
	}
}

func TestCatalogReloadEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/catalog/reload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.ReloadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.OffersCount != 2 {
		t.Errorf("Expected 2 offers after reload, got %d", resp.OffersCount)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp models.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy status, got %s", resp.Status)
	}
	if !resp.DataLoaded {
		t.Error("Expected data_loaded to be true")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/recommend", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestRequestBodyTooLarge(t *testing.T) {
	store := &stubStore{offers: []models.Item{{ID: "o1", Kind: models.KindOffer, Brand: "Starbucks", Category: "Cafe"}}}
	provider, err := catalog.NewProvider(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("Failed to create catalog provider: %v", err)
	}

	svc := service.NewService(service.Options{
		Catalog: provider,
		Engine:  recommend.NewEngine(0, nil),
	})
	h := NewHandlerWithOptions(svc, NewHandlerOptions{MaxBodySize: 64})

	var buf bytes.Buffer
	buf.WriteString(`{"user": {"telecom": "SKT", "payments": ["`)
	for i := 0; i < 100; i++ {
		buf.WriteString("CardX")
	}
	buf.WriteString(`"]}, "plan": {"brand": "Starbucks"}}`)

	req := httptest.NewRequest(http.MethodPost, "/recommend", &buf)
	rec := httptest.NewRecorder()
	h.Recommend(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an oversized body, got %d", rec.Code)
	}
}
