package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/weiawesome/wes-io-live/notify-service/internal/idgen"
	pkgconfig "github.com/weiawesome/wes-io-live/pkg/config"
	"github.com/weiawesome/wes-io-live/pkg/database"
	pkglog "github.com/weiawesome/wes-io-live/pkg/log"
	"github.com/weiawesome/wes-io-live/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	Log       pkglog.Config
	Database  database.Config
	Redis     RedisConfig
	Cache     CacheConfig
	PubSub    pubsub.Config `mapstructure:"pubsub"`
	JWT       JWTConfig     `mapstructure:"jwt"`
	Identity  IdentityConfig
	Policy    PolicyConfig
	Thread    ThreadConfig
	Template  TemplateConfig
	Gateway   GatewayConfig
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	IDs       IDConfig        `mapstructure:"ids"`
	Seed      SeedConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowEmbedding bool          `mapstructure:"allow_embedding"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	InstanceID     string        `mapstructure:"instance_id"`
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	Prefix string
	TTL    time.Duration
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Duration time.Duration
}

// IdentityConfig controls the development-only token fallback.
type IdentityConfig struct {
	DevMode       bool     `mapstructure:"dev_mode"`
	DevTokenParam string   `mapstructure:"dev_token_param"`
	LocalHosts    []string `mapstructure:"local_hosts"`
}

// PolicyConfig selects how the gateway authorizes and whom it acts as.
type PolicyConfig struct {
	RequireAuth    bool   `mapstructure:"require_auth"`
	RequiredLevel  string `mapstructure:"required_level"`
	ActingIdentity string `mapstructure:"acting_identity"` // user, service
	ServiceID      string `mapstructure:"service_id"`
}

type ThreadConfig struct {
	Name       string
	WhoCanPost string `mapstructure:"who_can_post"`
}

type TemplateConfig struct {
	DefaultTitle   string `mapstructure:"default_title"`
	DefaultContent string `mapstructure:"default_content"`
	TitlePrefix    string `mapstructure:"title_prefix"`
	ContentSuffix  string `mapstructure:"content_suffix"`
	IsMention      bool   `mapstructure:"is_mention"`
	MaxTitleLen    int    `mapstructure:"max_title_len"`
	MaxContentLen  int    `mapstructure:"max_content_len"`
	BroadcastText  string `mapstructure:"broadcast_text"`
}

type GatewayConfig struct {
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type IDConfig struct {
	Generator    idgen.Config `mapstructure:"generator"`
	ThreadPrefix string       `mapstructure:"thread_prefix"`
	PostPrefix   string       `mapstructure:"post_prefix"`
}

// SeedConfig preloads the room directory and grants, for single-node
// deployments without an external admin tool.
type SeedConfig struct {
	Rooms  []RoomSeed
	Grants []GrantSeed
}

type RoomSeed struct {
	RoomID         string `mapstructure:"room_id"`
	OrganizationID string `mapstructure:"organization_id"`
}

type GrantSeed struct {
	OrganizationID string `mapstructure:"organization_id"`
	ActorKind      string `mapstructure:"actor_kind"`
	ActorID        string `mapstructure:"actor_id"`
	Capability     string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	setDefaults(v)

	// Override from environment
	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":            "PORT",
		"server.allow_embedding": "ALLOW_EMBEDDING",
		"server.instance_id":     "INSTANCE_ID",
		"log.level":              "LOG_LEVEL",
		"database.driver":        "DB_DRIVER",
		"database.host":          "DB_HOST",
		"database.port":          "DB_PORT",
		"database.user":          "DB_USER",
		"database.password":      "DB_PASSWORD",
		"database.dbname":        "DB_NAME",
		"database.sslmode":       "DB_SSLMODE",
		"database.file_path":     "DB_FILE_PATH",
		"redis.enabled":          "REDIS_ENABLED",
		"redis.address":          "REDIS_ADDRESS",
		"redis.password":         "REDIS_PASSWORD",
		"pubsub.driver":          "PUBSUB_DRIVER",
		"pubsub.redis.address":   "PUBSUB_REDIS_ADDRESS",
		"pubsub.kafka.brokers":   "KAFKA_BROKERS",
		"jwt.secret":             "JWT_SECRET",
		"jwt.issuer":             "JWT_ISSUER",
		"identity.dev_mode":      "DEV_MODE",
		"policy.require_auth":    "REQUIRE_AUTH",
		"policy.required_level":  "REQUIRED_LEVEL",
		"policy.acting_identity": "ACTING_IDENTITY",
		"policy.service_id":      "SERVICE_ID",
		"gateway.call_timeout":   "GATEWAY_CALL_TIMEOUT",
		"ids.generator.kind":     "ID_KIND",
	}); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ReadTimeout = pkgconfig.Duration(v, "server.read_timeout", 15*time.Second)
	cfg.Server.WriteTimeout = pkgconfig.Duration(v, "server.write_timeout", 15*time.Second)
	cfg.Cache.TTL = parseOptionalDuration(v, "cache.ttl")
	cfg.JWT.Duration = pkgconfig.Duration(v, "jwt.duration", 24*time.Hour)
	cfg.Gateway.CallTimeout = pkgconfig.Duration(v, "gateway.call_timeout", 10*time.Second)
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.PubSub.Redis.ReadTimeout = pkgconfig.Duration(v, "pubsub.redis.read_timeout", 3*time.Second)
	cfg.PubSub.Redis.WriteTimeout = pkgconfig.Duration(v, "pubsub.redis.write_timeout", 3*time.Second)
	cfg.PubSub.Kafka.DeliveryWait = pkgconfig.Duration(v, "pubsub.kafka.delivery_wait", 5*time.Second)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8095)
	v.SetDefault("server.allow_embedding", true)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "notify-service")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "notify_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/notify.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.prefix", "notify:org")
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("pubsub.driver", "memory")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "notify-service")
	v.SetDefault("pubsub.kafka.partitions", 4)
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.duration", "24h")
	v.SetDefault("identity.dev_mode", false)
	v.SetDefault("identity.dev_token_param", "dev_token")
	v.SetDefault("identity.local_hosts", []string{"localhost", "127.0.0.1", "::1"})
	v.SetDefault("policy.require_auth", true)
	v.SetDefault("policy.required_level", "")
	v.SetDefault("policy.acting_identity", "user")
	v.SetDefault("thread.name", "Radio Discussions")
	v.SetDefault("thread.who_can_post", "everyone")
	v.SetDefault("template.default_title", "New Listener Joined")
	v.SetDefault("template.default_content", "Someone just joined the radio station! 🎧 Welcome to the vibe! What music are you feeling today?")
	v.SetDefault("template.title_prefix", "🎵 ")
	v.SetDefault("template.content_suffix", "\n\n*radio announcement*")
	v.SetDefault("template.is_mention", true)
	v.SetDefault("template.max_title_len", 120)
	v.SetDefault("template.max_content_len", 2000)
	v.SetDefault("template.broadcast_text", "🎵 someone joined the radio station")
	v.SetDefault("gateway.call_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("ids.generator.kind", "uuid")
	v.SetDefault("ids.thread_prefix", "thr_")
	v.SetDefault("ids.post_prefix", "pst_")
}

// Validate rejects policy combinations the gateway cannot honour.
func (c *Config) Validate() error {
	switch c.Policy.ActingIdentity {
	case "user", "":
	case "service":
		if c.Policy.ServiceID == "" {
			return fmt.Errorf("policy.service_id is required when acting_identity is service")
		}
	default:
		return fmt.Errorf("unsupported policy.acting_identity: %s", c.Policy.ActingIdentity)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	return nil
}

// parseOptionalDuration returns zero when the key is unset or malformed;
// zero means "no expiry" for caches.
func parseOptionalDuration(v *viper.Viper, key string) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d < 0 {
		return 0
	}
	return d
}
