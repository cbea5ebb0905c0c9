package kafka

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/events"
)

// DLQMessage сообщение в Dead Letter Queue
type DLQMessage struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int    `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`   // base64
	OriginalValue     string `json:"original_value"` // base64
	Group             string `json:"group"`
	ErrorMessage      string `json:"error_message"`
	FailedAt          string `json:"failed_at"` // RFC3339
	Attempts          int    `json:"attempts"`
	EventKind         string `json:"event_kind,omitempty"` // если конверт удалось разобрать
	EventID           string `json:"event_id,omitempty"`
}

// DLQPublisher пишет сообщения в <topic><suffix>
type DLQPublisher struct {
	logger *zap.Logger
	writer messageWriter
	suffix string
	now    func() time.Time
}

// NewDLQPublisher создаёт publisher для DLQ
func NewDLQPublisher(logger *zap.Logger, cfg Config) *DLQPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return newDLQPublisher(logger, writer, cfg.DLQSuffix)
}

func newDLQPublisher(logger *zap.Logger, writer messageWriter, suffix string) *DLQPublisher {
	if suffix == "" {
		suffix = ".dlq"
	}
	return &DLQPublisher{logger: logger, writer: writer, suffix: suffix, now: time.Now}
}

// Topic имя DLQ топика для исходного топика
func (p *DLQPublisher) Topic(original string) string {
	return original + p.suffix
}

// Publish отправляет сообщение в DLQ. env может быть nil, если конверт не разобрался.
func (p *DLQPublisher) Publish(ctx context.Context, group string, msg kafka.Message, cause error, attempts int, env *events.Envelope) error {
	errorMsg := "unknown error"
	if cause != nil {
		errorMsg = cause.Error()
	}

	dlqMsg := DLQMessage{
		OriginalTopic:     msg.Topic,
		OriginalPartition: msg.Partition,
		OriginalOffset:    msg.Offset,
		OriginalKey:       base64.StdEncoding.EncodeToString(msg.Key),
		OriginalValue:     base64.StdEncoding.EncodeToString(msg.Value),
		Group:             group,
		ErrorMessage:      errorMsg,
		FailedAt:          p.now().UTC().Format(time.RFC3339),
		Attempts:          attempts,
	}
	if env != nil {
		dlqMsg.EventKind = string(env.Kind)
		dlqMsg.EventID = env.EventID
	}

	value, err := json.Marshal(dlqMsg)
	if err != nil {
		return err
	}

	topic := p.Topic(msg.Topic)
	if err := p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: msg.Key, Value: value}); err != nil {
		p.logger.Error("failed to publish message to DLQ",
			zap.Error(err),
			zap.String("dlq_topic", topic),
			zap.String("original_topic", msg.Topic),
			zap.Int("original_partition", msg.Partition),
			zap.Int64("original_offset", msg.Offset),
		)
		return err
	}

	p.logger.Warn("message sent to DLQ",
		zap.String("dlq_topic", topic),
		zap.String("group", group),
		zap.String("original_topic", msg.Topic),
		zap.Int("original_partition", msg.Partition),
		zap.Int64("original_offset", msg.Offset),
		zap.String("error", errorMsg),
	)
	return nil
}

// Close закрывает kafka writer
func (p *DLQPublisher) Close() error {
	return p.writer.Close()
}
