package recorder

import "errors"

// Contract violations are programming errors in the instrumented pipeline,
// not transport faults. They are returned to the caller, logged, and counted,
// but never fabricate or overwrite a record.
var (
	// ErrNoAction reports a scope that reached Finalize without an action
	// while its context was still live.
	ErrNoAction = errors.New("scope finalized without an action")

	// ErrDoubleAction reports a second Action call on the same scope. The
	// first payload is kept; the second is discarded.
	ErrDoubleAction = errors.New("action already set for scope")

	// ErrScopeFinalized reports Action or Finalize on a scope that has
	// already reached its terminal state.
	ErrScopeFinalized = errors.New("scope already finalized")

	// ErrDecisionIDReused reports an attempt to emit a decision_id that this
	// recorder already emitted during the current run.
	ErrDecisionIDReused = errors.New("decision_id already emitted in this run")
)

// IsContractViolation reports whether err is one of the emission contract
// violations, as opposed to an export or validation failure.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrNoAction) ||
		errors.Is(err, ErrDoubleAction) ||
		errors.Is(err, ErrScopeFinalized) ||
		errors.Is(err, ErrDecisionIDReused)
}
