package jsonl

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisiontrace/pkg/record"
)

func testRecord(id string) record.Record {
	return record.Record{
		DecisionID:   id,
		DecisionType: "PLAN_EVALUATED_RISK",
		Timestamp:    time.Now().UTC(),
		TenantID:     "tenant-a",
		Environment:  "local",
		Context:      map[string]any{"plan": "streaming trim"},
		Actor:        record.Actor{ID: "risk", Name: "RiskFeasibilityAgent", Type: "agent"},
		Logic: map[string]any{
			"reason_codes": []record.ReasonCode{
				{Code: "CONCENTRATION", Status: "pass", Explanation: "cuts spread across categories"},
			},
		},
		Outcome: map[string]any{"decision": "feasible"},
		Lineage: []string{},
	}
}

func TestAppend_WritesOneParseableLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "decision_trace.jsonl")
	exp, err := Open(path)
	require.NoError(t, err)
	defer exp.Close()

	require.NoError(t, exp.Append(context.Background(), testRecord("d-1")))
	require.NoError(t, exp.Append(context.Background(), testRecord("d-2")))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	for i, line := range lines {
		decoded, err := record.DecodeLine([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("d-%d", i+1), decoded.DecisionID)
	}
}

// TestAppend_ConcurrentScopesNeverInterleave exercises the critical-section
// discipline: records appended from many goroutines must each come out as
// one intact, parseable line.
func TestAppend_ConcurrentScopesNeverInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decision_trace.jsonl")
	exp, err := Open(path)
	require.NoError(t, err)
	defer exp.Close()

	const writers = 32
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := testRecord(fmt.Sprintf("d-%03d", i))
			assert.NoError(t, exp.Append(context.Background(), rec))
		}()
	}
	wg.Wait()

	lines := readLines(t, path)
	require.Len(t, lines, writers)

	seen := make(map[string]bool)
	for _, line := range lines {
		decoded, err := record.DecodeLine([]byte(line))
		require.NoError(t, err, "interleaved partial writes would corrupt this line")
		assert.False(t, seen[decoded.DecisionID], "each record appears exactly once")
		seen[decoded.DecisionID] = true
	}
}

func TestAppend_DurableBeforeReturn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	exp, err := Open(path, WithFsync())
	require.NoError(t, err)
	defer exp.Close()

	require.NoError(t, exp.Append(context.Background(), testRecord("d-1")))

	// Readable by an independent handle before Close: no private buffering.
	lines := readLines(t, path)
	require.Len(t, lines, 1)
}

func TestAppend_RejectsIncompleteRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	exp, err := Open(path)
	require.NoError(t, err)
	defer exp.Close()

	err = exp.Append(context.Background(), record.Record{DecisionID: "half-built"})
	require.Error(t, err)

	assert.Empty(t, readLines(t, path), "a rejected record must leave no partial line")
}

func TestClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	exp, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, exp.Close())
	require.NoError(t, exp.Close(), "close is idempotent")

	err = exp.Append(context.Background(), testRecord("d-after-close"))
	require.Error(t, err)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if scanner.Text() != "" {
			lines = append(lines, scanner.Text())
		}
	}
	require.NoError(t, scanner.Err())
	return lines
}
