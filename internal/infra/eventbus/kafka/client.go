package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
)

// Client bundles the Kafka producer and consumer group connections used to
// build an event bus.
type Client struct {
	Producer      sarama.SyncProducer
	ConsumerGroup sarama.ConsumerGroup
}

// NewClient establishes producer and consumer group connections to the Kafka
// cluster described by cfg. Callers own the returned connections and must
// close them via the event bus.
func NewClient(cfg *EventBusConfig) (*Client, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.ClientID
	saramaCfg.Version = sarama.V3_6_0_0

	// Producer settings. Wait for all in-sync replicas before acking so a
	// dispatched scan task survives a single broker failure.
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Partitioner = sarama.NewHashPartitioner

	// Consumer settings. Offsets are committed manually after the handler
	// acknowledges a message.
	saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRoundRobin(),
	}
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Consumer.Offsets.AutoCommit.Enable = false
	saramaCfg.Consumer.Group.Session.Timeout = sessionTimeout
	saramaCfg.Consumer.Group.Heartbeat.Interval = heartbeatInterval

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaCfg)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Client{Producer: producer, ConsumerGroup: consumerGroup}, nil
}
