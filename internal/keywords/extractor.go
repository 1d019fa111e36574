package keywords

import (
	"context"
	"errors"
	"net/http"
	"strings"

	ET "github.com/IBM/fp-go/v2/either"
	F "github.com/IBM/fp-go/v2/function"
	IOE "github.com/IBM/fp-go/v2/ioeither"
	Http "github.com/IBM/fp-go/v2/ioeither/http"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/config"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/fetch"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/models"
)

var errNullKeywords = errors.New("keyword service returned null keywords")

const (
	MethodService   = "service"
	MethodHeuristic = "heuristic"
)

// Extractor asks the keyword extraction service for search keywords and falls
// back to Heuristic whenever the service cannot answer.
type Extractor struct {
	Cfg         config.Provider
	Logger      *zap.SugaredLogger
	Tracer      trace.Tracer
	client      Http.Client
	extractions metric.Int64Counter
}

func NewExtractor(
	cfg config.Config,
	client *http.Client,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Extractor, error) {
	e := &Extractor{
		Cfg:    cfg.Providers.KeywordService,
		Logger: logger,
		Tracer: tracer,
		client: Http.MakeClient(client),
	}
	var err error
	e.extractions, err = meter.Int64Counter(
		"keywords.extractions",
		metric.WithDescription("Keyword extractions by method"),
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ExtractKeywords never fails; the worst case is an empty list.
func (e *Extractor) ExtractKeywords(ctx context.Context, productName string) []string {
	ctx, span := e.Tracer.Start(ctx, "keywords.extract")
	defer span.End()

	useHeuristic := func(reason string) []string {
		kws := Heuristic(productName)
		span.SetAttributes(
			attribute.String("method", MethodHeuristic),
			attribute.String("fallback_reason", reason),
		)
		e.extractions.Add(ctx, 1, metric.WithAttributes(attribute.String("method", MethodHeuristic)))
		e.Logger.Debugw("Using heuristic keywords", "reason", reason, "keywords", kws)
		return kws
	}

	if !e.Cfg.Enabled || strings.TrimSpace(e.Cfg.BaseURL) == "" {
		return useHeuristic("service disabled")
	}

	url := strings.TrimRight(e.Cfg.BaseURL, "/") + "/extract-keywords"
	body := models.KeywordRequest{
		ProductName:        productName,
		ProductDescription: "",
		TopK:               MaxKeywords,
		Method:             "auto",
	}
	headers := map[string]string{}
	if e.Cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + e.Cfg.APIKey
	}

	result := F.Pipe1(
		fetch.JSON[models.KeywordResponse](e.client, fetch.Request(ctx, http.MethodPost, url, body, headers)),
		IOE.Chain(func(resp models.KeywordResponse) IOE.IOEither[error, []string] {
			if resp.Keywords == nil {
				return IOE.Left[[]string](errNullKeywords)
			}
			span.SetAttributes(attribute.String("method_used", resp.MethodUsed))
			return IOE.Right[error](*resp.Keywords)
		}),
	)()

	return ET.Fold(
		func(err error) []string {
			span.RecordError(err)
			e.Logger.Warnw("Keyword service unavailable, falling back", "url", url, "error", err)
			return useHeuristic(err.Error())
		},
		func(kws []string) []string {
			span.SetAttributes(attribute.String("method", MethodService))
			e.extractions.Add(ctx, 1, metric.WithAttributes(attribute.String("method", MethodService)))
			return kws
		},
	)(result)
}
