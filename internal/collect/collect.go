package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	ET "github.com/IBM/fp-go/v2/either"
	F "github.com/IBM/fp-go/v2/function"
	IOE "github.com/IBM/fp-go/v2/ioeither"
	Http "github.com/IBM/fp-go/v2/ioeither/http"
	"github.com/IBM/fp-go/v2/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/config"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/fetch"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/models"
)

const (
	ProviderFDA    = "fda"
	ProviderUSDA   = "usda"
	ProviderEPA    = "epa"
	ProviderCensus = "census"
)

const (
	enforcementField = "product_description"
	enforcementLimit = "10"
	foodPageSize     = "10"
	tradeFields      = "I_COMMODITY,I_COMMODITY_SDESC,CTY_CODE,CTY_NAME,GEN_VAL_MO"
)

// Collector queries every enabled provider in a fixed order and gathers their
// raw payloads and citations. Provider failures are absorbed.
type Collector struct {
	Cfg              config.Config
	Logger           *zap.SugaredLogger
	Tracer           trace.Tracer
	Meter            metric.Meter
	Now              func() time.Time
	client           Http.Client
	sessionDuration  metric.Int64Histogram
	providerRequests metric.Int64Counter
	providerDuration metric.Int64Histogram
}

func NewCollector(
	cfg config.Config,
	client *http.Client,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Collector, error) {
	c := &Collector{
		Cfg:    cfg,
		Logger: logger,
		Tracer: tracer,
		Meter:  meter,
		Now:    time.Now,
		client: Http.MakeClient(client),
	}

	var err error
	c.sessionDuration, err = c.Meter.Int64Histogram(
		"collect.session.duration",
		metric.WithDescription("Duration of one multi-provider collection"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	c.providerRequests, err = c.Meter.Int64Counter(
		"collect.provider.requests",
		metric.WithDescription("Provider requests by outcome"),
	)
	if err != nil {
		return nil, err
	}

	c.providerDuration, err = c.Meter.Int64Histogram(
		"collect.provider.duration",
		metric.WithDescription("Duration of individual provider requests"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Collect runs the providers sequentially: FDA, USDA, EPA, Census. Citations
// are appended in that order.
func (c *Collector) Collect(
	ctx context.Context,
	keyword string,
	keywords []string,
	chemicalName, hsCode string,
) models.CollectedData {
	ctx, span := c.Tracer.Start(ctx, "collect.session", trace.WithAttributes(
		attribute.String("keyword", keyword),
		attribute.StringSlice("keywords", keywords),
		attribute.String("chemical_name", chemicalName),
		attribute.String("hs_code", hsCode),
	))
	defer span.End()
	startTime := time.Now()

	data := models.CollectedData{
		Enforcement: option.None[json.RawMessage](),
		Foods:       option.None[json.RawMessage](),
		Chemicals:   option.None[json.RawMessage](),
		Trade:       option.None[json.RawMessage](),
		Citations:   []models.Citation{},
	}

	c.collectEnforcement(ctx, &data, keyword, keywords)
	c.collectFoods(ctx, &data, keyword, keywords)
	if strings.TrimSpace(chemicalName) != "" {
		c.collectChemicals(ctx, &data, strings.TrimSpace(chemicalName))
	}
	if strings.TrimSpace(hsCode) != "" {
		c.collectTrade(ctx, &data, strings.TrimSpace(hsCode))
	}

	span.SetAttributes(attribute.Int("citations", len(data.Citations)))
	c.sessionDuration.Record(ctx, time.Since(startTime).Milliseconds(),
		metric.WithAttributes(attribute.Int("citations", len(data.Citations))),
	)
	c.Logger.Infow("Collection finished",
		"keyword", keyword,
		"citations", len(data.Citations),
		"duration_ms", time.Since(startTime).Milliseconds())
	return data
}

func (c *Collector) collectEnforcement(
	ctx context.Context,
	data *models.CollectedData,
	keyword string,
	keywords []string,
) {
	p := c.Cfg.Providers.FDA
	if !p.Enabled {
		return
	}
	var searches []string
	for _, search := range []string{
		OrQuery(enforcementField, keywords),
		OrQuery(enforcementField, []string{keyword}),
	} {
		// blank searches match every record
		if search != "" && !slices.Contains(searches, search) {
			searches = append(searches, search)
		}
	}

	for i, search := range searches {
		q := url.Values{"search": {search}, "limit": {enforcementLimit}}
		cite := endpoint(p.BaseURL, "/food/enforcement.json", q)
		target := endpoint(p.BaseURL, "/food/enforcement.json", withParam(q, "api_key", p.APIKey))
		payload := c.call(ctx, ProviderFDA, target, nil, nonEmptyArray("results"))
		if raw, ok := option.Unwrap(payload); ok {
			data.Enforcement = option.Some(raw)
			data.Citations = append(data.Citations, models.Citation{
				Agency:   "FDA",
				Category: "Food Enforcement",
				URL:      cite,
				Title:    "FDA Food Enforcement Reports",
			})
			return
		}
		if i == 0 && len(searches) > 1 {
			c.Logger.Infow("Enforcement OR-query returned nothing, retrying with primary keyword",
				"keyword", keyword)
		}
	}
}

func (c *Collector) collectFoods(
	ctx context.Context,
	data *models.CollectedData,
	keyword string,
	keywords []string,
) {
	p := c.Cfg.Providers.USDA
	if !p.Enabled {
		return
	}
	query := strings.Join(keywords, " ")
	if strings.TrimSpace(query) == "" {
		query = keyword
	}
	q := url.Values{"query": {query}, "pageSize": {foodPageSize}}
	cite := endpoint(p.BaseURL, "/foods/search", q)
	target := endpoint(p.BaseURL, "/foods/search", withParam(q, "api_key", p.APIKey))
	if raw, ok := option.Unwrap(c.call(ctx, ProviderUSDA, target, nil, nonEmptyArray("foods"))); ok {
		data.Foods = option.Some(raw)
		data.Citations = append(data.Citations, models.Citation{
			Agency:   "USDA",
			Category: "Food Data",
			URL:      cite,
			Title:    "USDA FoodData Central",
		})
	}
}

func (c *Collector) collectChemicals(ctx context.Context, data *models.CollectedData, chemicalName string) {
	p := c.Cfg.Providers.EPA
	if !p.Enabled {
		return
	}
	target := endpoint(p.BaseURL, "/chemical/search/equal/"+url.PathEscape(chemicalName), nil)
	headers := map[string]string{}
	if p.APIKey != "" {
		headers["x-api-key"] = p.APIKey
	}
	if raw, ok := option.Unwrap(c.call(ctx, ProviderEPA, target, headers, anyJSON)); ok {
		data.Chemicals = option.Some(raw)
		data.Citations = append(data.Citations, models.Citation{
			Agency:   "EPA",
			Category: "Chemical Safety",
			URL:      target,
			Title:    "EPA CompTox Chemicals Dashboard: " + chemicalName,
		})
	}
}

func (c *Collector) collectTrade(ctx context.Context, data *models.CollectedData, hsCode string) {
	p := c.Cfg.Providers.Census
	if !p.Enabled {
		return
	}
	q := url.Values{
		"get":         {tradeFields},
		"I_COMMODITY": {hsCode},
		"time":        {c.Now().Format("2006-01")},
	}
	cite := endpoint(p.BaseURL, "/timeseries/intltrade/imports/hs", q)
	target := endpoint(p.BaseURL, "/timeseries/intltrade/imports/hs", withParam(q, "key", p.APIKey))
	if raw, ok := option.Unwrap(c.call(ctx, ProviderCensus, target, nil, anyJSON)); ok {
		data.Trade = option.Some(raw)
		data.Citations = append(data.Citations, models.Citation{
			Agency:   "Census",
			Category: "Trade Statistics",
			URL:      cite,
			Title:    fmt.Sprintf("U.S. Census International Trade, HS %s", hsCode),
		})
	}
}

// call performs one provider request. Network errors, non-2xx answers,
// malformed JSON and payloads rejected by accept all become None.
func (c *Collector) call(
	ctx context.Context,
	provider, target string,
	headers map[string]string,
	accept func(json.RawMessage) error,
) option.Option[json.RawMessage] {
	ctx, span := c.Tracer.Start(ctx, "collect.provider", trace.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("url", stripQuery(target)),
	))
	defer span.End()
	startTime := time.Now()

	if c.Cfg.HTTP.UserAgent != "" {
		h := make(map[string]string, len(headers)+1)
		for k, v := range headers {
			h[k] = v
		}
		h["User-Agent"] = c.Cfg.HTTP.UserAgent
		headers = h
	}

	result := F.Pipe1(
		fetch.RawJSON(c.client, fetch.Request(ctx, http.MethodGet, target, nil, headers)),
		IOE.Chain(func(raw json.RawMessage) IOE.IOEither[error, json.RawMessage] {
			if err := accept(raw); err != nil {
				return IOE.Left[json.RawMessage](err)
			}
			return IOE.Right[error](raw)
		}),
	)()

	record := func(status string) {
		attrs := metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		)
		c.providerRequests.Add(ctx, 1, attrs)
		c.providerDuration.Record(ctx, time.Since(startTime).Milliseconds(), attrs)
		span.SetAttributes(attribute.String("status", status))
	}

	return ET.Fold(
		func(err error) option.Option[json.RawMessage] {
			record("failed")
			span.RecordError(err)
			span.SetStatus(codes.Error, "provider returned no data")
			c.Logger.Warnw("Provider returned no data", "provider", provider, "error", err)
			return option.None[json.RawMessage]()
		},
		func(raw json.RawMessage) option.Option[json.RawMessage] {
			record("success")
			c.Logger.Debugw("Provider answered", "provider", provider, "bytes", len(raw))
			return option.Some(raw)
		},
	)(result)
}
