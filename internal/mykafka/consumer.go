package mykafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return &Consumer{reader: r}, nil
}

// Run decodes each message into T and hands it to handle. A message is
// committed after handle returns, whatever the outcome, so a poison message
// cannot block the partition.
func Run[T any](ctx context.Context, c *Consumer, l *slog.Logger, handle func(context.Context, T) error) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("kafka: fetch: %w", err)
		}

		var event T
		if err := json.Unmarshal(m.Value, &event); err != nil {
			l.Error("kafka_decode_failed", "topic", m.Topic, "offset", m.Offset, "error", err)
		} else if err := handle(ctx, event); err != nil {
			l.Error("kafka_handle_failed", "topic", m.Topic, "offset", m.Offset, "error", err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			l.Warn("kafka_commit_failed", "topic", m.Topic, "offset", m.Offset, "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
