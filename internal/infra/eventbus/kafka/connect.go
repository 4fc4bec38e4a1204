package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/pkg/common/logger"
)

const (
	sessionTimeout    = 20 * time.Second
	heartbeatInterval = 6 * time.Second

	maxConnectWait  = 5 * time.Minute
	initialInterval = 5 * time.Second
)

// ConnectEventBus establishes a connection to Kafka with retries, returning a
// fully wired event bus. Brokers are commonly not ready the instant a
// collector pod starts, so the initial connection backs off for up to five
// minutes before giving up.
func ConnectEventBus(
	ctx context.Context,
	cfg *EventBusConfig,
	log *logger.Logger,
	metrics EventBusMetrics,
	tracer trace.Tracer,
) (*EventBus, error) {
	var bus *EventBus

	operation := func() error {
		client, err := NewClient(cfg)
		if err != nil {
			log.Warn(ctx, "Kafka connection attempt failed, retrying", "error", err)
			return err
		}

		bus, err = NewEventBus(client.Producer, client.ConsumerGroup, cfg, log, metrics, tracer)
		if err != nil {
			_ = client.Producer.Close()
			_ = client.ConsumerGroup.Close()
			return backoff.Permanent(err)
		}
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = initialInterval
	expBackoff.MaxElapsedTime = maxConnectWait

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return nil, fmt.Errorf("failed to connect to kafka after retries: %w", err)
	}

	log.Info(ctx, "Connected to Kafka", "brokers", cfg.Brokers)
	return bus, nil
}
