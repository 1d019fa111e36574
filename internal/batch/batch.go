// Package batch runs the requirements pipeline over a CSV of products and
// writes one JSON document per line.
package batch

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ET "github.com/IBM/fp-go/v2/either"
	IOE "github.com/IBM/fp-go/v2/ioeither"
	"github.com/IBM/fp-go/v2/ioeither/file"
	"github.com/schollz/progressbar/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/pipeline"
	T "github.com/Qubut/IP-Claim/packages/requirements_collector/internal/typing"
)

var ErrNoProductColumn = errors.New(`input CSV has no "product" column`)

type Responder interface {
	Respond(ctx context.Context, req pipeline.Request) pipeline.Result
}

// Row is one input line. Line is 1-based and counts the header.
type Row struct {
	Line    int
	Product string
	HSCode  string
}

type Runner struct {
	Service         Responder
	Logger          *zap.SugaredLogger
	Tracer          trace.Tracer
	Meter           metric.Meter
	Progress        io.Writer
	Create          func(name string) (io.WriteCloser, error)
	Limiter         *rate.Limiter
	progress        *progressbar.ProgressBar
	sessionDuration metric.Int64Histogram
	rowsTotal       metric.Int64Counter
	rowsFailed      metric.Int64Counter
}

func createFile(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// NewRunner paces row dispatch to rowsPerSecond when it is positive, which
// keeps batch runs under the providers' public rate limits.
func NewRunner(
	svc Responder,
	rowsPerSecond float64,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Runner, error) {
	r := &Runner{
		Service:  svc,
		Logger:   logger,
		Tracer:   tracer,
		Meter:    meter,
		Progress: os.Stdout,
		Create:   createFile,
	}
	if rowsPerSecond > 0 {
		r.Limiter = rate.NewLimiter(rate.Limit(rowsPerSecond), 1)
	}

	var err error
	r.sessionDuration, err = meter.Int64Histogram(
		"batch.session.duration",
		metric.WithDescription("Duration of the full batch run"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	r.rowsTotal, err = meter.Int64Counter(
		"batch.rows.total",
		metric.WithDescription("Total number of input rows processed"),
	)
	if err != nil {
		return nil, err
	}

	r.rowsFailed, err = meter.Int64Counter(
		"batch.rows.failed",
		metric.WithDescription("Rows whose pipeline run produced an error document"),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// ReadRows parses a CSV with a product column and an optional hs_code column.
// Header names are matched case-insensitively.
func ReadRows(in io.Reader) ([]Row, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoProductColumn
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	productCol, hsCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "product":
			productCol = i
		case "hs_code":
			hsCol = i
		}
	}
	if productCol < 0 {
		return nil, ErrNoProductColumn
	}

	cell := func(record []string, i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		rows = append(rows, Row{Line: line, Product: cell(record, productCol), HSCode: cell(record, hsCol)})
	}
}

func readFile(path string) IOE.IOEither[error, []Row] {
	return IOE.Bracket(
		file.Open(path),
		func(f *os.File) IOE.IOEither[error, []Row] {
			return IOE.TryCatchError(func() ([]Row, error) { return ReadRows(f) })
		},
		func(f *os.File, _ ET.Either[error, []Row]) IOE.IOEither[error, any] {
			return IOE.TryCatchError(func() (any, error) { return nil, f.Close() })
		},
	)
}

// Run processes every row of inputCSV with at most workers concurrent
// pipeline runs. Lines are written in completion order. A failed pipeline
// run still produces its error document; only I/O errors abort the run.
func (r *Runner) Run(ctx context.Context, inputCSV, outputJSONL string, workers int64) error {
	ctx, sessionSpan := r.Tracer.Start(ctx, "batch.session", trace.WithAttributes(
		attribute.String("input", inputCSV),
		attribute.String("output", outputJSONL),
		attribute.Int64("workers", workers),
	))
	defer sessionSpan.End()
	startTime := time.Now()
	if workers < 1 {
		workers = 1
	}

	rows, err := ET.UnwrapError(readFile(inputCSV)())
	if err != nil {
		sessionSpan.RecordError(err)
		return fmt.Errorf("read input: %w", err)
	}
	r.Logger.Infow("Starting batch run", "input", inputCSV, "rows", len(rows), "workers", workers)

	out, err := r.Create(outputJSONL)
	if err != nil {
		sessionSpan.RecordError(err)
		return fmt.Errorf("failed to create output: %w", err)
	}
	buffered := bufio.NewWriter(out)
	encoder := json.NewEncoder(buffered)
	encoder.SetEscapeHTML(false)

	var writeMu sync.Mutex
	safeWrite := func(v any) IOE.IOEither[error, T.Unit] {
		return IOE.TryCatchError(func() (T.Unit, error) {
			writeMu.Lock()
			defer writeMu.Unlock()
			return T.Unit{}, encoder.Encode(v)
		})
	}

	r.progress = progressbar.NewOptions(len(rows),
		progressbar.OptionSetWriter(r.Progress),
		progressbar.OptionSetWidth(60),
		progressbar.OptionSetDescription("Collecting requirements..."),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(50*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
	)

	sem := semaphore.NewWeighted(workers)
	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	var failed atomic.Int64
	var cancelled error

	for _, row := range rows {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				cancelled = err
				r.Logger.Warnw("Batch run cancelled", "line", row.Line)
				break
			}
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			cancelled = err
			r.Logger.Warnw("Batch run cancelled", "line", row.Line)
			break
		}
		wg.Add(1)
		go func(row Row) {
			defer wg.Done()
			defer sem.Release(1)

			ctxRow, rowSpan := r.Tracer.Start(ctx, "batch.row", trace.WithAttributes(
				attribute.Int("line", row.Line),
				attribute.String("product", row.Product),
			))
			defer rowSpan.End()

			res := r.Service.Respond(ctxRow, pipeline.Request{
				Product: &row.Product,
				HSCode:  &row.HSCode,
			})
			status := "success"
			if ET.IsLeft(res) {
				status = "failed"
				failed.Add(1)
				r.rowsFailed.Add(ctxRow, 1)
			}
			r.rowsTotal.Add(ctxRow, 1, metric.WithAttributes(attribute.String("status", status)))
			rowSpan.SetAttributes(attribute.String("status", status))

			if _, err := ET.UnwrapError(safeWrite(pipeline.Payload(res))()); err != nil {
				rowSpan.RecordError(err)
				select {
				case errChan <- fmt.Errorf("write line %d: %w", row.Line, err):
				default:
				}
			}
			r.updateProgress()
		}(row)
	}

	wg.Wait()
	close(errChan)
	writeMu.Lock()
	flushErr := buffered.Flush()
	writeMu.Unlock()
	closeErr := out.Close()
	if err, ok := <-errChan; ok {
		sessionSpan.RecordError(err)
		return err
	}
	if flushErr != nil {
		sessionSpan.RecordError(flushErr)
		return fmt.Errorf("flush output: %w", flushErr)
	}
	if closeErr != nil {
		sessionSpan.RecordError(closeErr)
		return fmt.Errorf("close output: %w", closeErr)
	}
	if cancelled != nil {
		sessionSpan.RecordError(cancelled)
		return cancelled
	}

	status := "success"
	if len(rows) == 0 {
		status = "empty"
	}
	r.sessionDuration.Record(ctx, time.Since(startTime).Milliseconds(),
		metric.WithAttributes(attribute.String("status", status)))
	r.Logger.Infow("Batch run completed",
		"rows", len(rows),
		"failed", failed.Load(),
		"output", outputJSONL)
	if r.progress != nil {
		r.progress.Describe("Batch complete")
		_ = r.progress.Finish()
		r.progress = nil
	}
	return nil
}

func (r *Runner) updateProgress() {
	if r.progress != nil {
		_ = r.progress.Add(1)
	}
}
