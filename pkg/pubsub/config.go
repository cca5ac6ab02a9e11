package pubsub

import (
	"fmt"
	"time"
)

// Driver names accepted in Config.Driver.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverKafka  = "kafka"
)

// Config selects and configures the bus driver.
type Config struct {
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

// RedisConfig configures the Redis driver.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig configures the Kafka driver. Every process joins its own
// consumer group derived from GroupID and Member so all instances see
// every room event; an empty Member is replaced by a random one.
type KafkaConfig struct {
	Brokers      string        `mapstructure:"brokers"`
	GroupID      string        `mapstructure:"group_id"`
	Member       string        `mapstructure:"member"`
	Partitions   int           `mapstructure:"partitions"`
	DeliveryWait time.Duration `mapstructure:"delivery_wait"`
}

// NewPubSub opens the driver named by cfg.Driver. An empty driver means memory.
func NewPubSub(cfg Config) (PubSub, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemoryPubSub(), nil
	case DriverRedis:
		return NewRedisPubSub(cfg.Redis)
	case DriverKafka:
		return NewKafkaPubSub(cfg.Kafka)
	}
	return nil, fmt.Errorf("unsupported pubsub driver %q", cfg.Driver)
}
