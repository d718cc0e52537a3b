package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DecisionID identifies one decision record. It is opaque: callers may mint
// their own identifiers as long as they stay unique within a run, so this is
// a validated string rather than a typed UUID.
type DecisionID string

// NewDecisionID mints a globally unique identifier for a decision.
func NewDecisionID() DecisionID {
	return DecisionID(uuid.NewString())
}

// ParseDecisionID validates an externally supplied identifier.
// Identifiers end up as JSON-line keys and graph node keys, so control
// characters and newlines are rejected at the trust boundary.
func ParseDecisionID(s string) (DecisionID, error) {
	if s == "" {
		return "", fmt.Errorf("decision_id must not be empty")
	}
	if strings.ContainsAny(s, "\n\r") {
		return "", fmt.Errorf("decision_id must not contain line breaks")
	}
	for _, r := range s {
		if r < 0x20 {
			return "", fmt.Errorf("decision_id must not contain control characters")
		}
	}
	return DecisionID(s), nil
}

// String returns the string form of the identifier.
func (d DecisionID) String() string {
	return string(d)
}

// IsNil returns true if the identifier is empty.
func (d DecisionID) IsNil() bool {
	return d == ""
}
