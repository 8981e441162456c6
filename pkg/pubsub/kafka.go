package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// channelToTopic converts a Redis-style channel name to a Kafka topic.
//
//	"rooms:lobby" → "rooms-lobby"
func channelToTopic(channel string) string {
	return strings.ReplaceAll(channel, ":", "-")
}

// kafkaSubscription tracks a single consumer subscription.
type kafkaSubscription struct {
	consumer *kafka.Consumer
	cancel   context.CancelFunc
}

// KafkaPubSub implements PubSub interface using Apache Kafka.
type KafkaPubSub struct {
	producer      *kafka.Producer
	subscriptions map[string]*kafkaSubscription
	config        KafkaConfig
	mu            sync.Mutex
	doneCh        chan struct{}
}

// NewKafkaPubSub creates a new Kafka-based PubSub instance.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kps := &KafkaPubSub{
		producer:      p,
		subscriptions: make(map[string]*kafkaSubscription),
		config:        cfg,
		doneCh:        make(chan struct{}),
	}

	go kps.deliveryReportHandler()

	if err := kps.ensureTopic(channelToTopic(ChannelRoomLobby)); err != nil {
		// Topic may already exist or be auto-created by the broker.
		fmt.Printf("warning: failed to ensure kafka topic: %v\n", err)
	}

	return kps, nil
}

// ensureTopic creates the topic if it doesn't exist.
func (k *KafkaPubSub) ensureTopic(topic string) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": k.config.Brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := k.config.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	return err
}

// deliveryReportHandler drains producer delivery reports.
func (k *KafkaPubSub) deliveryReportHandler() {
	for {
		select {
		case <-k.doneCh:
			return
		case e, ok := <-k.producer.Events():
			if !ok {
				return
			}
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				fmt.Printf("kafka delivery failed: %v\n", m.TopicPartition.Error)
			}
		}
	}
}

// Publish publishes an event to the topic derived from the channel.
// The event's room ID is used as the partition key so events for the
// same room stay ordered.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := channelToTopic(channel)
	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.RoomID),
		Value:          data,
	}, nil)
}

// Subscribe consumes events from the topic derived from the channel.
func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	groupID := k.config.GroupID
	if groupID == "" {
		groupID = "room-directory"
	}

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": k.config.Brokers,
		"group.id":          groupID,
		"auto.offset.reset": "latest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := consumer.Subscribe(channelToTopic(channel), nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	k.subscriptions[channel] = &kafkaSubscription{consumer: consumer, cancel: cancel}

	eventCh := make(chan *Event, 100)
	go k.pollMessages(subCtx, consumer, eventCh)

	return eventCh, nil
}

// Unsubscribe stops the consumer for a channel.
func (k *KafkaPubSub) Unsubscribe(ctx context.Context, channel string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if sub, ok := k.subscriptions[channel]; ok {
		sub.cancel()
		if err := sub.consumer.Close(); err != nil {
			return err
		}
		delete(k.subscriptions, channel)
	}
	return nil
}

// Close shuts down the producer and all consumers.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, sub := range k.subscriptions {
		sub.cancel()
		sub.consumer.Close()
	}
	k.subscriptions = make(map[string]*kafkaSubscription)

	k.producer.Flush(5000)
	close(k.doneCh)
	k.producer.Close()
	return nil
}

// pollMessages reads messages from Kafka and forwards them as events.
func (k *KafkaPubSub) pollMessages(ctx context.Context, consumer *kafka.Consumer, eventCh chan<- *Event) {
	defer close(eventCh)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := consumer.ReadMessage(500 * time.Millisecond)
		if err != nil {
			if kerr, ok := err.(kafka.Error); ok && kerr.IsTimeout() {
				continue
			}
			return
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			continue
		}

		select {
		case eventCh <- &event:
		case <-ctx.Done():
			return
		default:
			// Channel full, skip message
		}
	}
}
