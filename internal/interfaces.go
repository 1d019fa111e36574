package internal

import (
	"context"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/pipeline"
)

type RequirementsServiceInterface interface {
	Respond(ctx context.Context, req pipeline.Request) pipeline.Result
}

type BatchRunnerInterface interface {
	Run(ctx context.Context, inputCSV, outputJSONL string, workers int64) error
}
