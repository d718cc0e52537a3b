// Package kafka implements a Kafka sink for decision records. One record
// becomes one message, keyed by decision_id so records for the same decision
// land in the same partition in emission order.
package kafka

import (
	"bytes"
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"decisiontrace/pkg/record"
)

// Exporter produces records synchronously so Append is durable-before-return
// once the broker acknowledges the write. The kgo client is safe for
// concurrent use; each message is one atomic unit.
type Exporter struct {
	client *kgo.Client
	topic  string
	owned  bool
}

// New dials the brokers and returns an exporter producing to topic.
func New(brokers []string, topic string) (*Exporter, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial kafka: %w", err)
	}
	return &Exporter{client: client, topic: topic, owned: true}, nil
}

// NewWithClient wraps an existing client. The caller keeps ownership; Close
// will not close it.
func NewWithClient(client *kgo.Client, topic string) *Exporter {
	return &Exporter{client: client, topic: topic}
}

// Name identifies the sink by topic.
func (e *Exporter) Name() string {
	return "kafka:" + e.topic
}

// Append produces one message and waits for broker acknowledgement.
func (e *Exporter) Append(ctx context.Context, rec record.Record) error {
	msg, err := Message(e.topic, rec)
	if err != nil {
		return err
	}
	if err := e.client.ProduceSync(ctx, msg).FirstErr(); err != nil {
		return fmt.Errorf("produce decision %s to %s: %w", rec.DecisionID, e.topic, err)
	}
	return nil
}

// Message builds the Kafka message for one record: key is the decision_id,
// value is the sink-format JSON without the line terminator.
func Message(topic string, rec record.Record) (*kgo.Record, error) {
	line, err := record.EncodeLine(rec)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(rec.DecisionID),
		Value: bytes.TrimSuffix(line, []byte("\n")),
	}, nil
}

// Close closes the client when this exporter owns it.
func (e *Exporter) Close() error {
	if e.owned {
		e.client.Close()
	}
	return nil
}
