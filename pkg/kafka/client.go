// Package kafka publishes and consumes document index tasks.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fincra-wisdom/internal/config"
	"fincra-wisdom/pkg/log"
	"fincra-wisdom/pkg/tasks"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts is how many times a failing task is tried before its offset is committed.
const maxAttempts = 3

const defaultRetryBackoff = 500 * time.Millisecond

// TaskProcessor handles one decoded index task.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.DocumentIndexTask) error
}

func brokerList(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Producer writes index tasks to the configured topic.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Producer. The connection is opened lazily on first write.
func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokerList(cfg)...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish sends task, keyed by document id so tasks for one document stay ordered.
func (p *Producer) Publish(ctx context.Context, task tasks.DocumentIndexTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprint(task.DocumentID)),
		Value: taskBytes,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer reads index tasks and hands them to a TaskProcessor.
type Consumer struct {
	reader    *kafka.Reader
	rdb       redis.Cmdable
	processor TaskProcessor
	// retryBackoff is multiplied by the attempt number between tries of one message.
	retryBackoff time.Duration
}

// NewConsumer creates a consumer group reader. rdb stores per-task failure counts.
func NewConsumer(cfg config.KafkaConfig, rdb redis.Cmdable, processor TaskProcessor) *Consumer {
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "fincra-wisdom-indexer"
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokerList(cfg),
			Topic:    cfg.Topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6, // 10MB
		}),
		rdb:          rdb,
		processor:    processor,
		retryBackoff: defaultRetryBackoff,
	}
}

// Run consumes until ctx is cancelled or the reader fails.
func (c *Consumer) Run(ctx context.Context) {
	log.Infof("Kafka consumer started on topic '%s'", c.reader.Config().Topic)
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Error("failed to close Kafka consumer", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("Kafka consumer stopped")
			} else {
				log.Error("failed to fetch Kafka message", err)
			}
			return
		}

		if c.process(ctx, m.Value) {
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				log.Errorf("failed to commit Kafka offset %d: %v", m.Offset, err)
			}
		}
	}
}

// process retries one message in place until handle allows the commit. Later offsets
// are never fetched while a message is pending, since committing them would skip it.
// It returns false only when ctx ends first.
func (c *Consumer) process(ctx context.Context, value []byte) bool {
	for attempt := 1; ; attempt++ {
		if c.handle(ctx, value) {
			return true
		}
		if attempt >= maxAttempts {
			// Reached when the Redis counter itself is failing.
			log.Errorw("index task dropped", "attempts", attempt)
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * c.retryBackoff):
		}
	}
}

// handle processes one message and reports whether its offset should be committed.
func (c *Consumer) handle(ctx context.Context, value []byte) bool {
	var task tasks.DocumentIndexTask
	if err := json.Unmarshal(value, &task); err != nil {
		// Malformed messages are committed so they don't block the partition.
		log.Errorf("cannot decode Kafka message: %v, value: %s", err, string(value))
		return true
	}

	attemptsKey := "kafka:attempts:" + task.Key()
	if err := c.processor.Process(ctx, task); err != nil {
		log.Errorw("index task failed", "document_id", task.DocumentID, "action", task.Action, "error", err)
		attempts, incErr := c.rdb.Incr(ctx, attemptsKey).Result()
		if incErr != nil {
			// Without a counter leave the offset alone and let Kafka redeliver.
			return false
		}
		_ = c.rdb.Expire(ctx, attemptsKey, 24*time.Hour).Err()
		if attempts >= maxAttempts {
			log.Errorw("index task gave up", "document_id", task.DocumentID, "action", task.Action, "attempts", attempts)
			_ = c.rdb.Del(ctx, attemptsKey).Err()
			return true
		}
		return false
	}

	_ = c.rdb.Del(ctx, attemptsKey).Err()
	return true
}
