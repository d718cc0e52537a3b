package verify

import "fmt"

// LoadError reports one sink line that could not become a record: malformed
// JSON or a missing decision_id. Load errors ride alongside the loaded set
// and surface in the report; they never abort a verification pass.
type LoadError struct {
	File string
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// StructuralConflict reports a decision_id shared by records with differing
// content. It indicates corrupted input rather than a semantic lapse, so it
// is a distinct category from rule violations.
type StructuralConflict struct {
	DecisionID string
}

func (e *StructuralConflict) Error() string {
	return fmt.Sprintf("decision_id %s reused for structurally different records", e.DecisionID)
}
