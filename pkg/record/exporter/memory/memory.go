// Package memory provides an in-memory exporter. It backs tests and
// in-process analysis passes that verify a run without re-reading sinks.
package memory

import (
	"context"
	"fmt"
	"sync"

	"decisiontrace/pkg/record"
)

// Exporter keeps appended records in order of arrival.
type Exporter struct {
	mu      sync.RWMutex
	records []record.Record
	closed  bool
}

// New creates an empty in-memory exporter.
func New() *Exporter {
	return &Exporter{}
}

// Name identifies the sink.
func (e *Exporter) Name() string {
	return "memory"
}

// Append stores one record.
func (e *Exporter) Append(_ context.Context, rec record.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("memory exporter closed")
	}
	e.records = append(e.records, rec)
	return nil
}

// Records returns a copy of everything appended so far, in arrival order.
func (e *Exporter) Records() []record.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]record.Record{}, e.records...)
}

// Len returns the number of appended records.
func (e *Exporter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}

// Clear drops all stored records. Closed state is preserved.
func (e *Exporter) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = nil
}

// Close marks the exporter closed; later appends fail.
func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
