package recorder

import (
	"context"
	"fmt"
	"maps"

	"decisiontrace/pkg/domain"
	"decisiontrace/pkg/record"
)

// TaskFunc is the shape of an instrumentable pipeline step: it consumes a
// task mapping and produces a record-shaped result mapping.
type TaskFunc func(ctx context.Context, task map[string]any) (map[string]any, error)

// InstrumentOption adjusts how Instrument turns task results into records.
type InstrumentOption func(*instrumentConfig)

type instrumentConfig struct {
	contextDefaults map[string]any
}

// WithContextValue injects a default key/value into the result's context
// mapping when the task did not set it, e.g. a pipeline-wide policy_id.
func WithContextValue(key string, value any) InstrumentOption {
	return func(cfg *instrumentConfig) {
		if cfg.contextDefaults == nil {
			cfg.contextDefaults = make(map[string]any)
		}
		cfg.contextDefaults[key] = value
	}
}

// Instrument wraps fn so that each successful invocation emits one decision
// record built from the returned mapping. The task's result and error always
// pass through unchanged; emission failures are logged, counted and handed
// to the recorder's OnEmitError hook instead of replacing the result. A
// result reusing an already-emitted decision_id is an emission failure, not
// an overwrite.
func (r *Recorder) Instrument(fn TaskFunc, opts ...InstrumentOption) TaskFunc {
	var cfg instrumentConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(ctx context.Context, task map[string]any) (map[string]any, error) {
		result, err := fn(ctx, task)
		if err != nil {
			return result, err
		}

		rec, buildErr := r.recordFromResult(ctx, result, cfg)
		if buildErr != nil {
			r.reportEmitError(ctx, fmt.Errorf("instrumented task produced an unrecordable result: %w", buildErr))
			return result, nil
		}
		if regErr := r.register(rec.DecisionID); regErr != nil {
			r.reportEmitError(ctx, r.contractViolation(regErr, rec.DecisionID))
			return result, nil
		}
		if emitErr := r.emit(ctx, rec); emitErr != nil {
			r.reportEmitError(ctx, emitErr)
		}
		return result, nil
	}
}

func (r *Recorder) reportEmitError(ctx context.Context, err error) {
	r.logger.ErrorContext(ctx, "instrumented emission failed", "error", err)
	if r.onEmitError != nil {
		r.onEmitError(err)
	}
}

// recordFromResult builds a validated record out of a record-shaped result
// mapping. decision_id is minted when absent; lineage defaults to empty.
func (r *Recorder) recordFromResult(ctx context.Context, result map[string]any, cfg instrumentConfig) (record.Record, error) {
	if result == nil {
		return record.Record{}, fmt.Errorf("result mapping is nil")
	}

	id, _ := result["decision_id"].(string)
	if id == "" {
		id = domain.NewDecisionID().String()
	} else if _, err := domain.ParseDecisionID(id); err != nil {
		return record.Record{}, err
	}

	decisionType, _ := result["decision_type"].(string)
	if decisionType == "" {
		return record.Record{}, fmt.Errorf("result missing decision_type")
	}

	actor, err := actorFromResult(result["actor"])
	if err != nil {
		return record.Record{}, err
	}

	recCtx, err := mappingField(result, "context")
	if err != nil {
		return record.Record{}, err
	}
	logic, err := mappingField(result, "logic")
	if err != nil {
		return record.Record{}, err
	}
	outcome, err := mappingField(result, "outcome")
	if err != nil {
		return record.Record{}, err
	}

	merged := make(map[string]any, len(recCtx)+len(cfg.contextDefaults)+2)
	maps.Copy(merged, recCtx)
	for key, val := range cfg.contextDefaults {
		if _, present := merged[key]; !present {
			merged[key] = val
		}
	}
	for key, val := range spanAnnotations(ctx) {
		if _, present := merged[key]; !present {
			merged[key] = val
		}
	}

	var confidence *float64
	switch v := result["confidence"].(type) {
	case float64:
		confidence = &v
	case nil:
	default:
		return record.Record{}, fmt.Errorf("confidence must be a number, got %T", v)
	}

	lineage, err := lineageFromResult(result["lineage"])
	if err != nil {
		return record.Record{}, err
	}

	rec := record.Record{
		DecisionID:   id,
		DecisionType: decisionType,
		Timestamp:    r.stamp(),
		TenantID:     r.tenantID,
		Environment:  r.environment,
		Context:      merged,
		Actor:        actor,
		Logic:        logic,
		Outcome:      outcome,
		Confidence:   confidence,
		Lineage:      lineage,
	}
	if err := rec.Validate(); err != nil {
		return record.Record{}, err
	}
	return rec, nil
}

func actorFromResult(v any) (record.Actor, error) {
	switch actor := v.(type) {
	case record.Actor:
		return actor, nil
	case map[string]any:
		id, _ := actor["id"].(string)
		name, _ := actor["name"].(string)
		actorType, _ := actor["type"].(string)
		return record.Actor{ID: id, Name: name, Type: actorType}, nil
	case nil:
		return record.Actor{}, fmt.Errorf("result missing actor")
	default:
		return record.Actor{}, fmt.Errorf("actor must be a mapping, got %T", v)
	}
}

func mappingField(result map[string]any, key string) (map[string]any, error) {
	raw, present := result[key]
	if !present {
		return nil, fmt.Errorf("result missing %s", key)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping, got %T", key, raw)
	}
	return m, nil
}

func lineageFromResult(v any) ([]string, error) {
	switch parents := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return parents, nil
	case []any:
		out := make([]string, 0, len(parents))
		for _, p := range parents {
			s, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("lineage entries must be strings, got %T", p)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("lineage must be a list of strings, got %T", v)
	}
}
