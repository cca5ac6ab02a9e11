package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"

	pkglog "github.com/weiawesome/wes-io-live/pkg/log"
)

const (
	defaultKafkaGroup        = "pubsub"
	defaultKafkaPartitions   = 4
	defaultKafkaDeliveryWait = 5 * time.Second
	kafkaPollMillis          = 250
)

var unsafeGroupChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// kafkaTopic maps a room channel onto a shared topic keyed by room, so
// "notify:room:r1:to_peers" becomes topic "notify-to-peers" with key "r1".
// Patterns map to the same topic; pattern reports that case.
func kafkaTopic(channel string) (topic, key string, pattern bool, err error) {
	rc, err := parseRoomChannel(channel)
	if err != nil {
		return "", "", false, err
	}
	return rc.prefix + "-to-" + strings.ReplaceAll(rc.target, "_", "-"), rc.roomID, rc.pattern, nil
}

func groupSafe(s string) string {
	return unsafeGroupChars.ReplaceAllString(s, "-")
}

type kafkaSubscription struct {
	key    string
	cancel context.CancelFunc
	done   chan struct{}
}

// KafkaPubSub carries room events over Kafka. Each subscription owns its
// consumer and closes it when its poll loop exits.
type KafkaPubSub struct {
	producer *kafka.Producer
	cfg      KafkaConfig
	reported chan struct{}

	mu   sync.Mutex
	subs map[*kafkaSubscription]struct{}
}

// NewKafkaPubSub connects a producer and makes sure the room topic exists.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	if cfg.GroupID == "" {
		cfg.GroupID = defaultKafkaGroup
	}
	if cfg.Member == "" {
		cfg.Member = uuid.NewString()[:8]
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = defaultKafkaPartitions
	}
	if cfg.DeliveryWait <= 0 {
		cfg.DeliveryWait = defaultKafkaDeliveryWait
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	k := &KafkaPubSub{
		producer: producer,
		cfg:      cfg,
		reported: make(chan struct{}),
		subs:     make(map[*kafkaSubscription]struct{}),
	}
	go k.watchProducer()

	if err := k.createRoomTopic(); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Msg("kafka pubsub: could not create room topic")
	}
	return k, nil
}

func (k *KafkaPubSub) createRoomTopic() error {
	topic, _, _, err := kafkaTopic(PatternRoomPeers)
	if err != nil {
		return err
	}

	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     k.cfg.Partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}
	for _, r := range results {
		if code := r.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %s", r.Topic, r.Error)
		}
	}
	return nil
}

// watchProducer logs client-level producer errors. Delivery reports go to
// the per-message channel passed by Publish.
func (k *KafkaPubSub) watchProducer() {
	defer close(k.reported)
	for ev := range k.producer.Events() {
		if e, ok := ev.(kafka.Error); ok {
			l := pkglog.L()
			l.Error().Err(e).Bool("fatal", e.IsFatal()).Msg("kafka pubsub: producer error")
		}
	}
}

// Publish produces the event keyed by room and waits for its delivery
// report, bounded by ctx and KafkaConfig.DeliveryWait.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	topic, key, pattern, err := kafkaTopic(channel)
	if err != nil {
		return err
	}
	if pattern {
		return fmt.Errorf("cannot publish to pattern %q", channel)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	delivery := make(chan kafka.Event, 1)
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
	}
	if err := k.producer.Produce(msg, delivery); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}

	timer := time.NewTimer(k.cfg.DeliveryWait)
	defer timer.Stop()

	select {
	case ev := <-delivery:
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("kafka delivery to %s failed: %w", topic, m.TopicPartition.Error)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("kafka delivery to %s not confirmed within %s", topic, k.cfg.DeliveryWait)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe delivers the events of one room channel.
func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return k.subscribe(ctx, channel)
}

// SubscribePattern delivers every event on the pattern's topic.
func (k *KafkaPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return k.subscribe(ctx, pattern)
}

func (k *KafkaPubSub) subscribe(ctx context.Context, key string) (<-chan *Event, error) {
	// roomID is empty for patterns, which receive every room.
	topic, roomID, _, err := kafkaTopic(key)
	if err != nil {
		return nil, err
	}

	group := fmt.Sprintf("%s-%s-%s", k.cfg.GroupID, k.cfg.Member, groupSafe(key))
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  k.cfg.Brokers,
		"group.id":           group,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	if err := consumer.Subscribe(topic, nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &kafkaSubscription{key: key, cancel: cancel, done: make(chan struct{})}
	out := make(chan *Event, 100)

	k.mu.Lock()
	k.subs[sub] = struct{}{}
	k.mu.Unlock()

	go k.poll(subCtx, sub, consumer, roomID, out)
	return out, nil
}

func (k *KafkaPubSub) poll(ctx context.Context, sub *kafkaSubscription, consumer *kafka.Consumer, roomID string, out chan<- *Event) {
	l := pkglog.L()
	defer func() {
		if err := consumer.Close(); err != nil {
			l.Warn().Err(err).Str("key", sub.key).Msg("kafka pubsub: consumer close failed")
		}
		k.mu.Lock()
		delete(k.subs, sub)
		k.mu.Unlock()
		close(out)
		close(sub.done)
	}()

	for ctx.Err() == nil {
		switch e := consumer.Poll(kafkaPollMillis).(type) {
		case *kafka.Message:
			key := string(e.Key)
			if roomID != "" && key != roomID {
				continue
			}
			var event Event
			if err := json.Unmarshal(e.Value, &event); err != nil {
				l.Warn().Err(err).Msg("kafka pubsub: undecodable event")
				continue
			}
			if event.RoomID == "" {
				event.RoomID = key
			}
			select {
			case out <- &event:
			default:
				// Channel full, skip message
			}
		case kafka.Error:
			l.Error().Err(e).Bool("fatal", e.IsFatal()).Str("key", sub.key).Msg("kafka pubsub: consumer error")
			if e.IsFatal() {
				return
			}
		}
	}
}

// Unsubscribe stops every subscription on channel and waits for their
// consumers to close.
func (k *KafkaPubSub) Unsubscribe(_ context.Context, channel string) error {
	k.stop(func(sub *kafkaSubscription) bool { return sub.key == channel })
	return nil
}

// Close stops all subscriptions, flushes pending messages and closes the producer.
func (k *KafkaPubSub) Close() error {
	k.stop(func(*kafkaSubscription) bool { return true })

	if left := k.producer.Flush(int(k.cfg.DeliveryWait / time.Millisecond)); left > 0 {
		l := pkglog.L()
		l.Warn().Int("unflushed", left).Msg("kafka pubsub: closing with undelivered messages")
	}
	k.producer.Close()
	<-k.reported
	return nil
}

func (k *KafkaPubSub) stop(match func(*kafkaSubscription) bool) {
	k.mu.Lock()
	var stopping []*kafkaSubscription
	for sub := range k.subs {
		if match(sub) {
			stopping = append(stopping, sub)
		}
	}
	k.mu.Unlock()

	for _, sub := range stopping {
		sub.cancel()
		<-sub.done
	}
}
