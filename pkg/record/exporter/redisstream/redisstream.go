// Package redisstream implements a Redis Streams sink for decision records.
// XADD appends one entry per record, which makes the stream an append-only
// log that downstream consumers can tail with consumer groups.
package redisstream

import (
	"bytes"
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"decisiontrace/pkg/record"
)

// Exporter appends records to a Redis stream. The go-redis client pools and
// serializes commands; each XADD is one atomic entry.
type Exporter struct {
	client redis.UniversalClient
	stream string
}

// New wraps an existing client. The caller keeps ownership of the client;
// Close will not close it, so one client can back several sinks.
func New(client redis.UniversalClient, stream string) *Exporter {
	return &Exporter{client: client, stream: stream}
}

// Dial connects to the URL (redis://...) and returns an exporter that owns
// its connection.
func Dial(ctx context.Context, url, stream string) (*Exporter, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(client, stream), client, nil
}

// Name identifies the sink by stream.
func (e *Exporter) Name() string {
	return "redis-stream:" + e.stream
}

// Append adds one stream entry carrying the sink-format JSON.
func (e *Exporter) Append(ctx context.Context, rec record.Record) error {
	values, err := Entry(rec)
	if err != nil {
		return err
	}
	if err := e.client.XAdd(ctx, &redis.XAddArgs{
		Stream: e.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd decision %s to %s: %w", rec.DecisionID, e.stream, err)
	}
	return nil
}

// Entry builds the stream entry fields for one record.
func Entry(rec record.Record) (map[string]any, error) {
	line, err := record.EncodeLine(rec)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"decision_id":   rec.DecisionID,
		"decision_type": rec.DecisionType,
		"record":        string(bytes.TrimSuffix(line, []byte("\n"))),
	}, nil
}

// Close is a no-op; the caller owns the client.
func (e *Exporter) Close() error {
	return nil
}
