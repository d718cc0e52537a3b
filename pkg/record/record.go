// Package record defines the immutable decision record emitted by agents and
// consumed by the verification pipeline. Keep it transport-agnostic so
// exporters can fan out to files, databases, and brokers without caring who
// produced the record.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Actor names who or what made the decision. Type is an open set; "agent",
// "system" and "human" are the conventional values.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ReasonCode is one evidence artifact inside the logic mapping. Every record
// must carry at least one with a non-empty explanation, otherwise the trace
// degrades into an unexplainable event log.
type ReasonCode struct {
	Code        string `json:"code"`
	Status      string `json:"status"`
	Explanation string `json:"explanation"`
}

// Record captures one decision event. A record is immutable once finalized
// by a recorder scope; everything here is plain data so it survives a
// round-trip through the line-delimited JSON sink format unchanged.
type Record struct {
	DecisionID   string         `json:"decision_id"`
	DecisionType string         `json:"decision_type"`
	Timestamp    time.Time      `json:"timestamp"`
	TenantID     string         `json:"tenant_id"`
	Environment  string         `json:"environment"`
	Context      map[string]any `json:"context"`
	Actor        Actor          `json:"actor"`
	Logic        map[string]any `json:"logic"`
	Outcome      map[string]any `json:"outcome"`
	Confidence   *float64       `json:"confidence,omitempty"`
	// Lineage lists parent decision_ids, oldest first. Empty for roots.
	Lineage []string `json:"lineage"`
}

// Validate checks schema completeness for emission. Verification applies the
// same floor post hoc; emitting records that would fail it is a contract
// violation at the source.
func (r Record) Validate() error {
	if r.DecisionID == "" {
		return fmt.Errorf("record missing decision_id")
	}
	if r.DecisionType == "" {
		return fmt.Errorf("record %s: missing decision_type", r.DecisionID)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("record %s: missing timestamp", r.DecisionID)
	}
	if len(r.Context) == 0 {
		return fmt.Errorf("record %s: context must reference identifiable inputs", r.DecisionID)
	}
	if r.Actor.ID == "" && r.Actor.Name == "" {
		return fmt.Errorf("record %s: actor must carry an id or name", r.DecisionID)
	}
	if r.Actor.Type == "" {
		return fmt.Errorf("record %s: actor must carry a type", r.DecisionID)
	}
	if len(r.Logic) == 0 {
		return fmt.Errorf("record %s: logic must not be empty", r.DecisionID)
	}
	explained := false
	for _, code := range r.ReasonCodes() {
		if code.Explanation != "" {
			explained = true
			break
		}
	}
	if !explained {
		return fmt.Errorf("record %s: logic must carry at least one explained reason artifact", r.DecisionID)
	}
	if len(r.Outcome) == 0 {
		return fmt.Errorf("record %s: outcome must not be empty", r.DecisionID)
	}
	if r.Confidence != nil && (*r.Confidence < 0 || *r.Confidence > 1) {
		return fmt.Errorf("record %s: confidence %v outside [0,1]", r.DecisionID, *r.Confidence)
	}
	return nil
}

// OutcomeStatus extracts the determinable status field from the outcome
// mapping. "decision" is the canonical key, "status" the accepted fallback.
func (r Record) OutcomeStatus() (string, bool) {
	for _, key := range []string{"decision", "status"} {
		if v, ok := r.Outcome[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// ReasonCodes extracts the reason artifacts from the logic mapping. It
// tolerates both the typed form (as built by the recorder) and the generic
// form produced by JSON decoding.
func (r Record) ReasonCodes() []ReasonCode {
	raw, ok := r.Logic["reason_codes"]
	if !ok {
		raw, ok = r.Logic["reasons"]
	}
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []ReasonCode:
		return v
	case []any:
		codes := make([]ReasonCode, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			codes = append(codes, ReasonCode{
				Code:        stringField(m, "code"),
				Status:      stringField(m, "status"),
				Explanation: stringField(m, "explanation"),
			})
		}
		return codes
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// ContentHash returns the SHA-256 hex digest of the canonical JSON encoding.
// The encoding is normalized through a generic decode so that typed values
// (e.g. []ReasonCode placed in logic by the recorder) hash identically to
// their decoded map form: encoding/json sorts map keys, giving one canonical
// byte sequence per structural content.
func (r Record) ContentHash() string {
	encoded, err := json.Marshal(r)
	if err != nil {
		// Records are built from JSON-representable values; an unmarshalable
		// record cannot have reached a sink in the first place.
		return fmt.Sprintf("unhashable:%s", r.DecisionID)
	}
	var generic map[string]any
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return fmt.Sprintf("unhashable:%s", r.DecisionID)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return fmt.Sprintf("unhashable:%s", r.DecisionID)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Equal reports full-field structural equality via the canonical encoding.
func (r Record) Equal(other Record) bool {
	return r.ContentHash() == other.ContentHash()
}
