// Package pipeline wires keyword derivation, provider collection, extraction
// and aggregation into the single requirements collection operation.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	ET "github.com/IBM/fp-go/v2/either"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/aggregate"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/extract"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/keywords"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/models"
)

type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, productName string) []string
}

type ProviderCollector interface {
	Collect(ctx context.Context, keyword string, keywords []string, chemicalName, hsCode string) models.CollectedData
}

// Request is one inbound collection call. Nil and blank strings are treated
// alike.
type Request struct {
	Product        *string
	HSCode         *string
	IncludeRawData bool
}

// Result is either the error document of a failed run or the requirements
// document.
type Result = ET.Either[models.ErrorDocument, models.Document]

type Service struct {
	Keywords  KeywordExtractor
	Collector ProviderCollector
	Extract   func(models.CollectedData) []models.RequirementItem
	Logger    *zap.SugaredLogger
	Tracer    trace.Tracer
	Now       func() time.Time
	requests  metric.Int64Counter
	items     metric.Int64Counter
}

func NewService(
	kw KeywordExtractor,
	collector ProviderCollector,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Service, error) {
	s := &Service{
		Keywords:  kw,
		Collector: collector,
		Extract:   extract.All,
		Logger:    logger,
		Tracer:    tracer,
		Now:       time.Now,
	}
	var err error
	s.requests, err = meter.Int64Counter(
		"pipeline.requests",
		metric.WithDescription("Requirement collection requests by outcome"),
	)
	if err != nil {
		return nil, err
	}
	s.items, err = meter.Int64Counter(
		"pipeline.items",
		metric.WithDescription("Requirement items emitted, by category"),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (s *Service) timestamp() string {
	return s.Now().UTC().Format(time.RFC3339)
}

// Collect builds the requirements document. Provider trouble never surfaces
// here; an error means the assembled document broke an invariant.
func (s *Service) Collect(ctx context.Context, req Request) (models.Document, error) {
	requestID := uuid.NewString()
	product := deref(req.Product)
	ctx, span := s.Tracer.Start(ctx, "pipeline.collect", trace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.String("product", product),
		attribute.Bool("include_raw", req.IncludeRawData),
	))
	defer span.End()

	normalized := keywords.Normalize(product)
	searchTerm := keywords.SearchTerm(normalized)
	chemicalName := keywords.ToChemicalName(normalized)
	kws := s.Keywords.ExtractKeywords(ctx, product)
	s.Logger.Infow("Collecting requirements",
		"request_id", requestID,
		"product", product,
		"normalized_keyword", normalized,
		"keywords", kws,
		"chemical_name", chemicalName)

	var hsCode *string
	if hs := deref(req.HSCode); hs != "" {
		hsCode = &hs
	}

	data := s.Collector.Collect(ctx, searchTerm, kws, chemicalName, deref(hsCode))
	items := s.Extract(data)
	reqs := aggregate.Aggregate(items, data.Citations)
	if err := check(reqs); err != nil {
		span.RecordError(err)
		return models.Document{}, err
	}
	for category, n := range reqs.CategoryStats {
		s.items.Add(ctx, int64(n), metric.WithAttributes(attribute.String("category", category)))
	}

	doc := models.Document{
		Product:           product,
		NormalizedKeyword: normalized,
		ChemicalName:      chemicalName,
		HSCode:            hsCode,
		Timestamp:         s.timestamp(),
		Requirements:      reqs,
		Citations:         reqs.Citations,
	}
	if req.IncludeRawData {
		doc.RawData = data.Raw()
	}
	span.SetAttributes(
		attribute.Int("total_count", reqs.TotalCount),
		attribute.Int("citations", len(reqs.Citations)),
	)
	s.Logger.Infow("Requirements collected",
		"request_id", requestID,
		"total_count", reqs.TotalCount,
		"citations", len(reqs.Citations))
	return doc, nil
}

// Respond is the caller-facing form of Collect: errors and panics escaping
// the pipeline become an ErrorDocument instead of a partial result.
func (s *Service) Respond(ctx context.Context, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = ET.Left[models.Document](s.failure(ctx, fmt.Errorf("pipeline panic: %v", r)))
		}
	}()
	doc, err := s.Collect(ctx, req)
	if err != nil {
		return ET.Left[models.Document](s.failure(ctx, err))
	}
	s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	return ET.Right[models.ErrorDocument](doc)
}

func (s *Service) failure(ctx context.Context, err error) models.ErrorDocument {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "failed")))
	s.Logger.Errorw("Requirements collection failed", "error", err)
	return models.ErrorDocument{Error: err.Error(), Timestamp: s.timestamp()}
}

// Payload unwraps a Result into the value to serialize.
func Payload(res Result) any {
	return ET.Fold(
		func(e models.ErrorDocument) any { return e },
		func(d models.Document) any { return d },
	)(res)
}

func check(reqs models.Requirements) error {
	if reqs.TotalCount != len(reqs.AllItems) {
		return fmt.Errorf("total_count %d does not match %d items", reqs.TotalCount, len(reqs.AllItems))
	}
	for _, item := range reqs.AllItems {
		if item.Confidence < 0 || item.Confidence > 1 {
			return fmt.Errorf("item %q has confidence %v outside [0,1]", item.Title, item.Confidence)
		}
	}
	return nil
}
