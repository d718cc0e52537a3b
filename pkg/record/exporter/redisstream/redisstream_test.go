package redisstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisiontrace/pkg/record"
)

func TestEntry(t *testing.T) {
	rec := record.Record{
		DecisionID:   "d-9",
		DecisionType: "BUDGET_PLAN_PUBLISHED",
		Timestamp:    time.Now().UTC(),
		TenantID:     "tenant-a",
		Environment:  "local",
		Context:      map[string]any{"plan": "selected"},
		Actor:        record.Actor{ID: "publisher", Name: "PlannerAgent", Type: "agent"},
		Logic: map[string]any{
			"reason_codes": []record.ReasonCode{{Code: "PUBLISH", Status: "ok", Explanation: "final plan rendered"}},
		},
		Outcome: map[string]any{"decision": "published"},
		Lineage: []string{"d-7"},
	}

	values, err := Entry(rec)
	require.NoError(t, err)

	assert.Equal(t, "d-9", values["decision_id"])
	assert.Equal(t, "BUDGET_PLAN_PUBLISHED", values["decision_type"])

	payload, ok := values["record"].(string)
	require.True(t, ok)
	decoded, err := record.DecodeLine([]byte(payload))
	require.NoError(t, err)
	assert.True(t, rec.Equal(decoded))
}

func TestEntry_RejectsIncompleteRecord(t *testing.T) {
	_, err := Entry(record.Record{DecisionID: "d-bad"})
	require.Error(t, err)
}
