package internal

import (
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/batch"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/collect"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/config"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/keywords"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/pipeline"
)

type Services struct {
	Requirements RequirementsServiceInterface
	Batch        BatchRunnerInterface
}

// InitServices builds the service graph. Every outbound call shares one
// http.Client bounded by http.timeout.
func InitServices(
	cfg config.Config,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Services, error) {
	client := &http.Client{Timeout: cfg.HTTP.Timeout}

	e, err := keywords.NewExtractor(cfg, client, tracer, logger, meter)
	if err != nil {
		return nil, err
	}
	c, err := collect.NewCollector(cfg, client, tracer, logger, meter)
	if err != nil {
		return nil, err
	}
	s, err := pipeline.NewService(e, c, tracer, logger, meter)
	if err != nil {
		return nil, err
	}
	b, err := batch.NewRunner(s, cfg.Batch.RowsPerSecond, tracer, logger, meter)
	if err != nil {
		return nil, err
	}
	return &Services{
		Requirements: s,
		Batch:        b,
	}, nil
}
