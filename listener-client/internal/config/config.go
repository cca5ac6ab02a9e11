package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/weiawesome/wes-io-live/pkg/config"
	pkglog "github.com/weiawesome/wes-io-live/pkg/log"
)

type Config struct {
	RoomID          string `mapstructure:"room_id"`
	PageURL         string `mapstructure:"page_url"`
	Token           string
	JoinMessage     string `mapstructure:"join_message"`
	TitleOverride   string `mapstructure:"title_override"`
	ContentOverride string `mapstructure:"content_override"`
	PlayAfter       time.Duration
	Gateway         GatewayConfig
	Presence        PresenceConfig
	Log             pkglog.Config
}

type GatewayConfig struct {
	URL     string
	Timeout time.Duration
}

type PresenceConfig struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// NewViper loads ./config/listener.yaml (optional) with defaults and env
// bindings applied. Callers bind CLI flags on top before calling Decode.
func NewViper() (*viper.Viper, error) {
	v, err := pkgconfig.Load("./config", "listener")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("gateway.url", "http://localhost:8095")
	v.SetDefault("gateway.timeout", "5s")
	v.SetDefault("presence.url", "ws://localhost:8095/presence/ws")
	v.SetDefault("presence.reconnect_delay", "1s")
	v.SetDefault("presence.max_reconnect_delay", "30s")
	v.SetDefault("play_after", "0s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("log.service_name", "listener-client")

	// Override from environment
	if err := pkgconfig.BindEnvs(v, map[string]string{
		"room_id":      "ROOM_ID",
		"page_url":     "PAGE_URL",
		"token":        "USER_TOKEN",
		"gateway.url":  "GATEWAY_URL",
		"presence.url": "PRESENCE_URL",
		"log.level":    "LOG_LEVEL",
	}); err != nil {
		return nil, err
	}

	return v, nil
}

// Decode builds a Config from v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.PlayAfter = pkgconfig.Duration(v, "play_after", 0)
	cfg.Gateway.Timeout = pkgconfig.Duration(v, "gateway.timeout", 5*time.Second)
	cfg.Presence.ReconnectDelay = pkgconfig.Duration(v, "presence.reconnect_delay", time.Second)
	cfg.Presence.MaxReconnectDelay = pkgconfig.Duration(v, "presence.max_reconnect_delay", 30*time.Second)

	if cfg.Gateway.URL == "" || cfg.Presence.URL == "" {
		return nil, fmt.Errorf("gateway.url and presence.url are required")
	}
	return &cfg, nil
}
