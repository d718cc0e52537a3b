// Package jsonl implements the canonical file sink: one record per line of
// compact JSON, appended and flushed before Append returns.
package jsonl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"decisiontrace/pkg/record"
)

// Exporter appends records to a line-delimited JSON file. A mutex serializes
// appends from concurrent recorder scopes so lines never interleave.
type Exporter struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	fsync bool
}

// Option configures the Exporter.
type Option func(*Exporter)

// WithFsync forces an fsync after every append. Without it durability relies
// on the kernel flushing the page cache; the loss window is the records
// written since the last sync.
func WithFsync() Option {
	return func(e *Exporter) {
		e.fsync = true
	}
}

// Open creates or appends to the trace file at path, creating parent
// directories as needed.
func Open(path string, opts ...Option) (*Exporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	e := &Exporter{path: path, file: file}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name identifies the sink by its file path.
func (e *Exporter) Name() string {
	return "jsonl:" + e.path
}

// Append writes the record as one line with a single write call and flushes
// it before returning.
func (e *Exporter) Append(_ context.Context, rec record.Record) error {
	line, err := record.EncodeLine(rec)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		return fmt.Errorf("trace file %s already closed", e.path)
	}
	if _, err := e.file.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", e.path, err)
	}
	if e.fsync {
		if err := e.file.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", e.path, err)
		}
	}
	return nil
}

// Close closes the underlying file. Close is idempotent.
func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", e.path, err)
	}
	return nil
}
