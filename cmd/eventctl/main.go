// Command eventctl публикует одно доменное событие в kafka вручную:
// для отладки consumers и повторного запуска каскадов.
//
//	eventctl -kind user.deleted -payload '{"user_id":"u-1","user_role":"SELLER"}'
//	eventctl -kind order.created -payload ./order.json -dry-run
//
// Брокеры берутся из KAFKA_BROKERS (по умолчанию localhost:19092).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/events"
	platformkafka "github.com/shestoi/GoMarket/platform/kafka"
	platformlogging "github.com/shestoi/GoMarket/platform/logging"
	"github.com/shestoi/GoMarket/platform/metrics"
)

const serviceName = "eventctl"

type options struct {
	kind    string
	key     string
	payload string
	dryRun  bool
	timeout time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.kind, "kind", "", "event kind, e.g. user.deleted")
	flag.StringVar(&opts.key, "key", "", "partition key (defaults to the aggregate id from payload)")
	flag.StringVar(&opts.payload, "payload", "", "JSON payload inline or path to a JSON file")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "print the envelope instead of publishing")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "publish timeout")
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "eventctl:", err)
		os.Exit(1)
	}
}

func run(opts options, out io.Writer) error {
	msg, err := buildMessage(opts, time.Now())
	if err != nil {
		return err
	}
	if opts.dryRun {
		return printMessage(out, msg)
	}

	logCfg := platformlogging.Config{ServiceName: serviceName, Env: "local"}
	if err := platformlogging.LoadEnv(&logCfg); err != nil {
		return fmt.Errorf("load log config: %w", err)
	}
	logger, err := platformlogging.New(logCfg)
	if err != nil {
		return err
	}
	defer platformlogging.Sync(logger)

	cfg := platformkafka.DefaultConfig()
	if err := platformkafka.LoadEnv(&cfg); err != nil {
		return fmt.Errorf("load kafka config: %w", err)
	}

	pub := platformkafka.NewPublisher(logger, cfg, serviceName, metrics.New(serviceName))
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Error("Failed to close kafka publisher", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := pub.Publish(ctx, msg.Topic, msg.Key, msg.Envelope); err != nil {
		return err
	}
	logger.Info("Event published",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", msg.Topic),
		zap.String("key", msg.Key),
		zap.String("event_id", msg.Envelope.EventID),
		zap.String("kind", string(msg.Envelope.Kind)),
	)
	return nil
}

// message готовое к отправке событие
type message struct {
	Topic    string          `json:"topic"`
	Key      string          `json:"key"`
	Envelope events.Envelope `json:"envelope"`
}

// buildMessage разбирает payload по kind, валидирует его и упаковывает в конверт
func buildMessage(opts options, now time.Time) (message, error) {
	if opts.kind == "" {
		return message{}, fmt.Errorf("-kind is required")
	}
	raw, err := readPayload(opts.payload)
	if err != nil {
		return message{}, err
	}

	kind := events.Kind(opts.kind)
	ev, err := events.Envelope{Kind: kind, Payload: raw}.Decode()
	if err != nil {
		return message{}, fmt.Errorf("payload for %s: %w", kind, err)
	}
	env, err := events.NewEnvelope(ev, now)
	if err != nil {
		return message{}, err
	}
	topic, err := events.TopicFor(kind)
	if err != nil {
		return message{}, err
	}

	key := env.Key
	if opts.key != "" {
		key = opts.key
		env.Key = key
	}
	return message{Topic: topic, Key: key, Envelope: env}, nil
}

func readPayload(src string) (json.RawMessage, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("-payload is required")
	}
	if strings.HasPrefix(src, "{") {
		return json.RawMessage(src), nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read payload file: %w", err)
	}
	return data, nil
}

func printMessage(out io.Writer, msg message) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(msg)
}
