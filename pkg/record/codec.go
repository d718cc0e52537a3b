package record

import (
	"encoding/json"
	"fmt"
)

// EncodeLine renders a record as one line of the sink format: compact JSON
// terminated by a newline. The record is the atomic unit; exporters must
// write the returned slice with a single call so concurrent appends never
// interleave.
func EncodeLine(r Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", r.DecisionID, err)
	}
	return append(data, '\n'), nil
}

// DecodeLine parses one sink line back into a record. It does not apply the
// verification rule battery; a decoded record may still be semantically
// defective and is judged post hoc by the engine. Only structural
// unparseability is an error here.
func DecodeLine(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return Record{}, fmt.Errorf("decode record line: %w", err)
	}
	if r.DecisionID == "" {
		// A keyless record cannot become a graph node; treat as a load error
		// rather than letting it shadow every other anonymous record.
		return Record{}, fmt.Errorf("decode record line: missing decision_id")
	}
	if r.Lineage == nil {
		r.Lineage = []string{}
	}
	return r, nil
}
