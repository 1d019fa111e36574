package keywords

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/config"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/models"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/telemetry"
)

func newTestExtractor(t *testing.T, p config.Provider) *Extractor {
	t.Helper()
	tracer, meter, logger, _ := telemetry.Noop(nil)
	cfg := config.Config{Providers: config.Providers{KeywordService: p}}
	e, err := NewExtractor(cfg, &http.Client{Timeout: 2 * time.Second}, tracer, logger, meter)
	require.NoError(t, err)
	return e
}

func TestExtractKeywordsUsesService(t *testing.T) {
	var got models.KeywordRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract-keywords", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keywords":["ascorbic","serum"],"method_used":"keybert"}`))
	}))
	defer srv.Close()

	e := newTestExtractor(t, config.Provider{Enabled: true, BaseURL: srv.URL + "/", APIKey: "secret"})
	kws := e.ExtractKeywords(context.Background(), "비타민C 세럼")

	assert.Equal(t, []string{"ascorbic", "serum"}, kws)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "비타민C 세럼", got.ProductName)
	assert.Equal(t, MaxKeywords, got.TopK)
	assert.Equal(t, "auto", got.Method)
}

func TestExtractKeywordsFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"null keywords", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"keywords":null,"method_used":"none"}`))
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"keywords":`))
		}},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			e := newTestExtractor(t, config.Provider{Enabled: true, BaseURL: srv.URL})
			assert.Equal(t, []string{"vitamin", "serum"}, e.ExtractKeywords(context.Background(), "비타민C 세럼"))
		})
	}
}

func TestExtractKeywordsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e := newTestExtractor(t, config.Provider{Enabled: true, BaseURL: url})
	assert.Equal(t, []string{"vitamin", "serum"}, e.ExtractKeywords(context.Background(), "Vitamin Serum"))
}

func TestExtractKeywordsDisabledSkipsService(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	e := newTestExtractor(t, config.Provider{Enabled: false, BaseURL: srv.URL})
	assert.Equal(t, []string{"vitamin", "serum", "premium"}, e.ExtractKeywords(context.Background(), "Premium Vitamin C Serum"))
	assert.Zero(t, calls.Load())
}

func TestExtractKeywordsBlankProduct(t *testing.T) {
	e := newTestExtractor(t, config.Provider{})
	assert.Equal(t, []string{}, e.ExtractKeywords(context.Background(), ""))
}
