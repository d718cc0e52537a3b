// Package recorder provides the write side of the decision trace: scoped
// acquisition of a single decision record, exactly-once emission per
// decision_id, and a higher-order instrumentation wrapper for task
// functions.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"decisiontrace/internal/platform/metrics"
	"decisiontrace/pkg/domain"
	"decisiontrace/pkg/record"
	"decisiontrace/pkg/record/exporter"
)

// Options configures a Recorder. TenantID, Environment and Exporters are
// stamped on or receive every record the recorder emits; Logger, Metrics and
// OnEmitError are optional observability hooks.
type Options struct {
	TenantID    string
	Environment string
	Exporters   []exporter.Exporter
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	// OnEmitError receives emission failures from the instrumentation
	// wrapper, which cannot return them without masking the task result.
	OnEmitError func(error)
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Recorder is a per-run factory for recording scopes. It holds the ambient
// identity fields, the exporter set, a monotonically non-decreasing stream
// clock and the registry of decision_ids emitted during this run.
//
// A Recorder is safe for concurrent use; scopes may be opened from
// independent goroutines.
type Recorder struct {
	tenantID    string
	environment string
	exporters   []exporter.Exporter
	logger      *slog.Logger
	metrics     *metrics.Metrics
	onEmitError func(error)
	now         func() time.Time

	mu        sync.Mutex
	lastStamp time.Time
	emitted   map[string]struct{}
}

// New builds a Recorder from opts. Missing observability hooks are replaced
// with no-ops; exporter presence is checked at Open so construction never
// fails.
func New(opts Options) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		tenantID:    opts.TenantID,
		environment: opts.Environment,
		exporters:   opts.Exporters,
		logger:      logger,
		metrics:     opts.Metrics,
		onEmitError: opts.OnEmitError,
		now:         now,
		emitted:     make(map[string]struct{}),
	}
}

// Open describes the identity of a decision about to be recorded.
// DecisionID is optional; when absent one is minted.
type Open struct {
	DecisionType string
	Actor        record.Actor
	DecisionID   string
}

// Open starts a recording scope for one decision. It fails when the recorder
// has no exporters or when the decision type or actor is incomplete, so a
// misconfigured pipeline is caught at acquisition rather than at emission.
func (r *Recorder) Open(ctx context.Context, open Open) (*Scope, error) {
	if len(r.exporters) == 0 {
		return nil, errors.New("recorder has no exporters configured")
	}
	if open.DecisionType == "" {
		return nil, errors.New("open scope: decision_type is required")
	}
	if open.Actor.ID == "" || open.Actor.Type == "" {
		return nil, errors.New("open scope: actor id and type are required")
	}

	id := open.DecisionID
	if id == "" {
		id = domain.NewDecisionID().String()
	} else if _, err := domain.ParseDecisionID(id); err != nil {
		return nil, fmt.Errorf("open scope: %w", err)
	}

	return &Scope{
		recorder:     r,
		decisionID:   id,
		decisionType: open.DecisionType,
		actor:        open.Actor,
	}, nil
}

// WithScope opens a scope, runs fn, and finalizes the scope when fn returns,
// including on panic. An error from fn takes precedence over the finalize
// result so a task failure is never masked by ErrNoAction.
func (r *Recorder) WithScope(ctx context.Context, open Open, fn func(*Scope) error) (err error) {
	scope, err := r.Open(ctx, open)
	if err != nil {
		return err
	}
	defer func() {
		finErr := scope.Finalize(ctx)
		if err == nil {
			err = finErr
		}
	}()
	return fn(scope)
}

// stamp returns the next timestamp on this recorder's stream. Successive
// stamps never go backwards even if the wall clock does.
func (r *Recorder) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if now.Before(r.lastStamp) {
		now = r.lastStamp
	}
	r.lastStamp = now
	return now
}

// register claims id in the run-scoped registry. It fails when the id was
// already emitted by this recorder.
func (r *Recorder) register(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.emitted[id]; taken {
		return fmt.Errorf("%w: %s", ErrDecisionIDReused, id)
	}
	r.emitted[id] = struct{}{}
	return nil
}

// emit fans rec out to every exporter. Per-sink failures are logged and
// counted individually, then returned joined; a failing sink never stops
// delivery to the others.
func (r *Recorder) emit(ctx context.Context, rec record.Record) error {
	start := time.Now()
	exportErrs := exporter.Fanout(ctx, r.exporters, rec)
	if r.metrics != nil {
		r.metrics.ObserveExportDuration(time.Since(start).Seconds())
		r.metrics.IncrementRecordsEmitted()
	}

	for _, exportErr := range exportErrs {
		r.logger.ErrorContext(ctx, "export failed",
			"decision_id", rec.DecisionID,
			"sink", exportErr.Sink,
			"error", exportErr.Err,
		)
		if r.metrics != nil {
			r.metrics.IncrementExportFailures(exportErr.Sink)
		}
	}
	return exporter.Join(exportErrs)
}

// contractViolation logs and counts a contract violation, then returns err.
// Violations are programming errors rather than request outcomes, so the log
// call carries no request context.
func (r *Recorder) contractViolation(err error, decisionID string) error {
	r.logger.Warn("emission contract violation",
		"decision_id", decisionID,
		"error", err,
	)
	if r.metrics != nil {
		r.metrics.IncrementContractViolations()
	}
	return err
}

// spanAnnotations returns trace correlation fields when ctx carries a valid
// span context, or nil.
func spanAnnotations(ctx context.Context) map[string]string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return map[string]string{
		"trace_id": sc.TraceID().String(),
		"span_id":  sc.SpanID().String(),
	}
}
