package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IBM/fp-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/config"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/models"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/telemetry"
)

const (
	enforcementBody = `{"results":[{"recall_number":"F-1","classification":"Class II","reason_for_recall":"labeling"}]}`
	foodsBody       = `{"foods":[{"fdcId":1,"description":"Serum"}]}`
	chemicalsBody   = `[{"dtxsid":"DTXSID1","preferredName":"Ascorbic acid","casrn":"50-81-7"}]`
	tradeBody       = `[["I_COMMODITY","time"],["330499","2024-05"]]`
)

type stub struct {
	mu       sync.Mutex
	requests []*http.Request
	handlers map[string]http.HandlerFunc
}

func (s *stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Clone(context.Background()))
	s.mu.Unlock()
	for prefix, h := range s.handlers {
		if strings.HasPrefix(r.URL.Path, prefix) {
			h(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *stub) byPrefix(prefix string) []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*http.Request
	for _, r := range s.requests {
		if strings.HasPrefix(r.URL.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func body(s string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s))
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(code) }
}

func allProviders(s *stub) {
	s.handlers = map[string]http.HandlerFunc{
		"/fda/":    body(enforcementBody),
		"/usda/":   body(foodsBody),
		"/epa/":    body(chemicalsBody),
		"/census/": body(tradeBody),
	}
}

func newTestCollector(t *testing.T, s *stub) *Collector {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	cfg := config.Config{
		HTTP: config.HTTP{Timeout: 2 * time.Second, UserAgent: "test-agent"},
		Providers: config.Providers{
			FDA:    config.Provider{Enabled: true, BaseURL: srv.URL + "/fda", APIKey: "fda-key"},
			USDA:   config.Provider{Enabled: true, BaseURL: srv.URL + "/usda", APIKey: "usda-key"},
			EPA:    config.Provider{Enabled: true, BaseURL: srv.URL + "/epa", APIKey: "epa-key"},
			Census: config.Provider{Enabled: true, BaseURL: srv.URL + "/census", APIKey: "census-key"},
		},
	}
	tracer, meter, logger, _ := telemetry.Noop(nil)
	c, err := NewCollector(cfg, &http.Client{Timeout: cfg.HTTP.Timeout}, tracer, logger, meter)
	require.NoError(t, err)
	c.Now = func() time.Time { return time.Date(2024, time.May, 17, 0, 0, 0, 0, time.UTC) }
	return c
}

func agencies(cs []models.Citation) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Agency
	}
	return out
}

func TestOrQuery(t *testing.T) {
	assert.Equal(t,
		"product_description:vitamin OR product_description:serum",
		OrQuery("product_description", []string{"vitamin", "serum"}))
	assert.Equal(t,
		`product_description:"vitamin c serum"`,
		OrQuery("product_description", []string{"vitamin c serum", " "}))
	assert.Equal(t, "", OrQuery("f", nil))
}

func TestCollectAllProviders(t *testing.T) {
	s := &stub{}
	allProviders(s)
	c := newTestCollector(t, s)

	data := c.Collect(context.Background(), "vitamin c serum", []string{"vitamin", "serum"}, "ascorbic acid", "330499")

	assert.Equal(t, []string{"FDA", "USDA", "EPA", "Census"}, agencies(data.Citations))
	assert.True(t, option.IsSome(data.Enforcement))
	assert.True(t, option.IsSome(data.Foods))
	assert.True(t, option.IsSome(data.Chemicals))
	assert.True(t, option.IsSome(data.Trade))

	for _, cite := range data.Citations {
		assert.NotContains(t, cite.URL, "key", cite.Agency)
	}
	census := data.Citations[3]
	assert.Contains(t, census.URL, "330499")
	assert.Contains(t, census.URL, "time=2024-05")

	fda := s.byPrefix("/fda/")
	require.Len(t, fda, 1)
	assert.Equal(t, "product_description:vitamin OR product_description:serum", fda[0].URL.Query().Get("search"))
	assert.Equal(t, "fda-key", fda[0].URL.Query().Get("api_key"))
	assert.Equal(t, "test-agent", fda[0].Header.Get("User-Agent"))

	usda := s.byPrefix("/usda/")
	require.Len(t, usda, 1)
	assert.Equal(t, "vitamin serum", usda[0].URL.Query().Get("query"))

	epa := s.byPrefix("/epa/")
	require.Len(t, epa, 1)
	assert.Equal(t, "/epa/chemical/search/equal/ascorbic%20acid", epa[0].URL.EscapedPath())
	assert.Equal(t, "epa-key", epa[0].Header.Get("x-api-key"))
}

func TestCollectEnforcementRetriesWithPrimaryKeyword(t *testing.T) {
	s := &stub{}
	allProviders(s)
	s.handlers["/fda/"] = func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("search"), " OR ") {
			_, _ = w.Write([]byte(`{"results":[]}`))
			return
		}
		_, _ = w.Write([]byte(enforcementBody))
	}
	c := newTestCollector(t, s)

	data := c.Collect(context.Background(), "vitamin c serum", []string{"vitamin", "serum"}, "", "")

	fda := s.byPrefix("/fda/")
	require.Len(t, fda, 2)
	assert.Equal(t, `product_description:"vitamin c serum"`, fda[1].URL.Query().Get("search"))
	assert.True(t, option.IsSome(data.Enforcement))
	assert.Equal(t, []string{"FDA", "USDA"}, agencies(data.Citations))
}

func TestCollectEnforcementSkipsBlankKeywordQuery(t *testing.T) {
	s := &stub{}
	allProviders(s)
	s.handlers["/fda/"] = body(`{"results":[]}`)
	c := newTestCollector(t, s)

	data := c.Collect(context.Background(), "product", []string{" ", ""}, "", "")

	fda := s.byPrefix("/fda/")
	require.Len(t, fda, 1)
	assert.Equal(t, "product_description:product", fda[0].URL.Query().Get("search"))
	assert.True(t, option.IsNone(data.Enforcement))
}

func TestCollectEnforcementQueriesSingleKeywordOnce(t *testing.T) {
	s := &stub{}
	allProviders(s)
	s.handlers["/fda/"] = body(`{"results":[]}`)
	c := newTestCollector(t, s)

	c.Collect(context.Background(), "serum", []string{"serum"}, "", "")

	fda := s.byPrefix("/fda/")
	require.Len(t, fda, 1)
	assert.Equal(t, "product_description:serum", fda[0].URL.Query().Get("search"))
}

func TestCollectAllProvidersDown(t *testing.T) {
	s := &stub{handlers: map[string]http.HandlerFunc{"/": status(http.StatusServiceUnavailable)}}
	c := newTestCollector(t, s)

	data := c.Collect(context.Background(), "vitamin c serum", []string{"vitamin", "serum"}, "ascorbic acid", "330499")

	assert.Empty(t, data.Citations)
	assert.NotNil(t, data.Citations)
	assert.True(t, option.IsNone(data.Enforcement))
	assert.True(t, option.IsNone(data.Foods))
	assert.True(t, option.IsNone(data.Chemicals))
	assert.True(t, option.IsNone(data.Trade))
}

func TestCollectSkipsOptionalProviders(t *testing.T) {
	s := &stub{}
	allProviders(s)
	c := newTestCollector(t, s)

	data := c.Collect(context.Background(), "green tea", nil, "  ", "")

	assert.Empty(t, s.byPrefix("/epa/"))
	assert.Empty(t, s.byPrefix("/census/"))
	assert.Equal(t, []string{"FDA", "USDA"}, agencies(data.Citations))
	usda := s.byPrefix("/usda/")
	require.Len(t, usda, 1)
	assert.Equal(t, "green tea", usda[0].URL.Query().Get("query"))
}

func TestCollectDisabledProvider(t *testing.T) {
	s := &stub{}
	allProviders(s)
	c := newTestCollector(t, s)
	c.Cfg.Providers.USDA.Enabled = false

	data := c.Collect(context.Background(), "serum", []string{"serum"}, "", "")

	assert.Empty(t, s.byPrefix("/usda/"))
	assert.Equal(t, []string{"FDA"}, agencies(data.Citations))
}

func TestCollectRejectsEmptyFoods(t *testing.T) {
	s := &stub{}
	allProviders(s)
	s.handlers["/usda/"] = body(`{"foods":[]}`)
	c := newTestCollector(t, s)

	data := c.Collect(context.Background(), "serum", []string{"serum"}, "", "")

	assert.True(t, option.IsNone(data.Foods))
	assert.Equal(t, []string{"FDA"}, agencies(data.Citations))
}
