// Package exporter defines the durable sink contract for decision records
// and the fan-out used to deliver one record to several sinks. Failure of
// one sink must never block delivery to the others; every failure is
// collected and surfaced to the caller.
package exporter

import (
	"context"
	"errors"
	"fmt"

	"decisiontrace/pkg/record"
)

// Exporter appends records to a durable sink. Implementations serialize
// concurrent Append calls internally so the sink never observes interleaved
// partial writes; one record is one atomic unit (one line, one row, one
// message).
type Exporter interface {
	// Name identifies the sink in errors, logs and metrics.
	Name() string

	// Append durably writes one record. For file-backed sinks the record is
	// flushed before returning; buffered implementations must document their
	// loss window.
	Append(ctx context.Context, rec record.Record) error

	// Close releases the sink. Append after Close fails.
	Close() error
}

// ExportError reports that one specific sink failed to durably append.
type ExportError struct {
	Sink string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s failed: %v", e.Sink, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Fanout appends the record to every exporter, continuing past failures.
// The returned slice holds one entry per failed sink, in exporter order;
// it is empty when every sink accepted the record.
func Fanout(ctx context.Context, exporters []Exporter, rec record.Record) []*ExportError {
	var failed []*ExportError
	for _, exp := range exporters {
		if err := exp.Append(ctx, rec); err != nil {
			failed = append(failed, &ExportError{Sink: exp.Name(), Err: err})
		}
	}
	return failed
}

// Join folds fan-out failures into a single error, or nil when none failed.
func Join(failed []*ExportError) error {
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, len(failed))
	for i, f := range failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// CloseAll closes every exporter, collecting failures.
func CloseAll(exporters []Exporter) error {
	var errs []error
	for _, exp := range exporters {
		if err := exp.Close(); err != nil {
			errs = append(errs, &ExportError{Sink: exp.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}
