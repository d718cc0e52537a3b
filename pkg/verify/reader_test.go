package verify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodLine = `{"decision_id":"d-1","decision_type":"PLAN_PROPOSED","timestamp":"2026-03-01T12:00:00Z","tenant_id":"tenant-a","environment":"test","context":{"goal":"reduce spend"},"actor":{"id":"planner-1","name":"Planner","type":"agent"},"logic":{"reason_codes":[{"code":"DRAFT","status":"ok","explanation":"three plans drafted"}]},"outcome":{"decision":"proposed"},"lineage":[]}`

func TestRead_CollectsRecordsAndLoadErrors(t *testing.T) {
	input := strings.Join([]string{
		goodLine,
		"",
		"{not json at all",
		`{"decision_type":"KEYLESS","timestamp":"2026-03-01T12:00:01Z"}`,
		strings.Replace(goodLine, "d-1", "d-2", 1),
	}, "\n")

	records, loadErrs := Read(strings.NewReader(input), "trace.jsonl")

	require.Len(t, records, 2)
	assert.Equal(t, "d-1", records[0].DecisionID)
	assert.Equal(t, "d-2", records[1].DecisionID)

	require.Len(t, loadErrs, 2, "bad lines are reported, never silently skipped")
	assert.Equal(t, "trace.jsonl", loadErrs[0].File)
	assert.Equal(t, 3, loadErrs[0].Line)
	assert.Equal(t, 4, loadErrs[1].Line)
}

func TestRead_SchemaGapsAreNotLoadErrors(t *testing.T) {
	// parseable but semantically incomplete: the rule battery judges it
	line := `{"decision_id":"d-thin","decision_type":"PLAN_PROPOSED","timestamp":"2026-03-01T12:00:00Z","context":{},"actor":{},"logic":{},"outcome":{}}`

	records, loadErrs := Read(strings.NewReader(line), "trace.jsonl")

	require.Len(t, records, 1)
	assert.Empty(t, loadErrs)
	assert.Equal(t, []string{}, records[0].Lineage, "absent lineage defaults to empty")
}

func TestReadFile(t *testing.T) {
	t.Run("loads an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "trace.jsonl")
		require.NoError(t, os.WriteFile(path, []byte(goodLine+"\n"), 0o600))

		records, loadErrs, err := ReadFile(path)
		require.NoError(t, err)
		assert.Empty(t, loadErrs)
		require.Len(t, records, 1)
	})

	t.Run("missing file is an error, not a load error", func(t *testing.T) {
		_, _, err := ReadFile(filepath.Join(t.TempDir(), "absent.jsonl"))
		require.Error(t, err)
	})
}

func TestReadAll_PreservesPathOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.jsonl")
	second := filepath.Join(dir, "b.jsonl")
	require.NoError(t, os.WriteFile(first, []byte(goodLine+"\n"), 0o600))
	require.NoError(t, os.WriteFile(second,
		[]byte(strings.Replace(goodLine, "d-1", "d-2", 1)+"\nbroken\n"), 0o600))

	records, loadErrs, err := ReadAll(context.Background(), []string{first, second})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "d-1", records[0].DecisionID)
	assert.Equal(t, "d-2", records[1].DecisionID)
	require.Len(t, loadErrs, 1)
	assert.Equal(t, second, loadErrs[0].File)
}

func TestReadAll_FailsWhenAnyFileUnreadable(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.jsonl")
	require.NoError(t, os.WriteFile(present, []byte(goodLine+"\n"), 0o600))

	_, _, err := ReadAll(context.Background(), []string{present, filepath.Join(dir, "absent.jsonl")})
	require.Error(t, err)
}
