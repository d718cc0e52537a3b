package recorder

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"decisiontrace/pkg/record"
)

// Payload carries the decision content set by exactly one Action call.
type Payload struct {
	Context    map[string]any
	Logic      map[string]any
	Outcome    map[string]any
	Confidence *float64
	Lineage    []string
}

// Scope is a single-use recording handle for one decision. It moves from
// open to finalized exactly once; the record is built and dispatched at
// Finalize, never earlier.
type Scope struct {
	recorder     *Recorder
	decisionID   string
	decisionType string
	actor        record.Actor

	mu        sync.Mutex
	payload   *Payload
	finalized bool
}

// DecisionID returns the identifier this scope will emit under.
func (s *Scope) DecisionID() string {
	return s.decisionID
}

// Action sets the decision content. A second call fails with ErrDoubleAction
// and leaves the first payload untouched.
func (s *Scope) Action(p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return s.recorder.contractViolation(ErrScopeFinalized, s.decisionID)
	}
	if s.payload != nil {
		return s.recorder.contractViolation(ErrDoubleAction, s.decisionID)
	}
	s.payload = &p
	return nil
}

// Finalize closes the scope. With a payload it builds, validates, registers
// and emits the record; per-sink export failures come back joined. Without a
// payload it emits nothing: a cancelled context is reported as the context
// error, anything else is ErrNoAction. The scope is terminal afterwards
// regardless of outcome.
func (s *Scope) Finalize(ctx context.Context) error {
	s.mu.Lock()
	if s.finalized {
		s.mu.Unlock()
		return s.recorder.contractViolation(ErrScopeFinalized, s.decisionID)
	}
	s.finalized = true
	payload := s.payload
	s.mu.Unlock()

	r := s.recorder

	if payload == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.logger.InfoContext(ctx, "scope cancelled before action",
				"decision_id", s.decisionID,
				"decision_type", s.decisionType,
			)
			if r.metrics != nil {
				r.metrics.IncrementScopesCancelled()
			}
			return fmt.Errorf("scope %s abandoned: %w", s.decisionID, ctxErr)
		}
		return r.contractViolation(ErrNoAction, s.decisionID)
	}

	rec := s.build(ctx, *payload)
	if err := rec.Validate(); err != nil {
		return r.contractViolation(fmt.Errorf("finalize %s: %w", s.decisionID, err), s.decisionID)
	}
	if err := r.register(s.decisionID); err != nil {
		return r.contractViolation(err, s.decisionID)
	}

	if err := r.emit(ctx, rec); err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "decision recorded",
		"decision_id", rec.DecisionID,
		"decision_type", rec.DecisionType,
	)
	return nil
}

// build assembles the record from the scope identity, the recorder's ambient
// fields and the payload. The payload's context map is copied so the emitted
// record stays independent of later caller mutation.
func (s *Scope) build(ctx context.Context, p Payload) record.Record {
	recCtx := make(map[string]any, len(p.Context)+2)
	maps.Copy(recCtx, p.Context)
	for key, val := range spanAnnotations(ctx) {
		if _, present := recCtx[key]; !present {
			recCtx[key] = val
		}
	}

	lineage := p.Lineage
	if lineage == nil {
		lineage = []string{}
	}

	return record.Record{
		DecisionID:   s.decisionID,
		DecisionType: s.decisionType,
		Timestamp:    s.recorder.stamp(),
		TenantID:     s.recorder.tenantID,
		Environment:  s.recorder.environment,
		Context:      recCtx,
		Actor:        s.actor,
		Logic:        p.Logic,
		Outcome:      p.Outcome,
		Confidence:   p.Confidence,
		Lineage:      lineage,
	}
}
