package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the TOML layout. Unset keys leave the defaults alone.
type fileConfig struct {
	HTTP struct {
		Address        string `toml:"address"`
		MetricsAddress string `toml:"metrics_address"`
	} `toml:"http"`

	Store struct {
		Driver      string `toml:"driver"`
		PostgresURL string `toml:"postgres_url"`
		SQLitePath  string `toml:"sqlite_path"`
	} `toml:"store"`

	Session struct {
		Driver        string `toml:"driver"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password"`
		RedisDB       *int   `toml:"redis_db"`
		TTL           string `toml:"ttl"`
		LockTTL       string `toml:"lock_ttl"`
	} `toml:"session"`

	Bot struct {
		Token         string `toml:"token"`
		APIURL        string `toml:"api_url"`
		WebhookSecret string `toml:"webhook_secret"`
		Timezone      string `toml:"timezone"`
	} `toml:"bot"`

	Kafka struct {
		Brokers           []string `toml:"brokers"`
		UpdatesTopic      string   `toml:"updates_topic"`
		AuditTopic        string   `toml:"audit_topic"`
		ConsumerGroupID   string   `toml:"consumer_group_id"`
		SchemaRegistryURL string   `toml:"schema_registry_url"`
	} `toml:"kafka"`

	Outbox struct {
		Enabled      *bool  `toml:"enabled"`
		PollInterval string `toml:"poll_interval"`
		BatchSize    int    `toml:"batch_size"`
	} `toml:"outbox"`

	JWT struct {
		Secret string `toml:"secret"`
		Issuer string `toml:"issuer"`
	} `toml:"jwt"`

	DLQ struct {
		PollInterval string `toml:"poll_interval"`
		MaxRetries   int    `toml:"max_retries"`
		BaseDelay    string `toml:"base_delay"`
	} `toml:"dlq"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&c.HTTPAddress, fc.HTTP.Address)
	setString(&c.MetricsAddress, fc.HTTP.MetricsAddress)
	setString(&c.StoreDriver, fc.Store.Driver)
	setString(&c.PostgresURL, fc.Store.PostgresURL)
	setString(&c.SQLitePath, fc.Store.SQLitePath)
	setString(&c.SessionDriver, fc.Session.Driver)
	setString(&c.RedisAddr, fc.Session.RedisAddr)
	setString(&c.RedisPassword, fc.Session.RedisPassword)
	if fc.Session.RedisDB != nil {
		c.RedisDB = *fc.Session.RedisDB
	}
	setString(&c.BotToken, fc.Bot.Token)
	setString(&c.BotAPIURL, fc.Bot.APIURL)
	setString(&c.WebhookSecret, fc.Bot.WebhookSecret)
	setString(&c.Timezone, fc.Bot.Timezone)
	if len(fc.Kafka.Brokers) > 0 {
		c.KafkaBrokers = fc.Kafka.Brokers
	}
	setString(&c.UpdatesTopic, fc.Kafka.UpdatesTopic)
	setString(&c.AuditTopic, fc.Kafka.AuditTopic)
	setString(&c.ConsumerGroupID, fc.Kafka.ConsumerGroupID)
	setString(&c.SchemaRegistryURL, fc.Kafka.SchemaRegistryURL)
	if fc.Outbox.Enabled != nil {
		c.OutboxEnabled = *fc.Outbox.Enabled
	}
	if fc.Outbox.BatchSize > 0 {
		c.OutboxBatchSize = fc.Outbox.BatchSize
	}
	setString(&c.JWTSecret, fc.JWT.Secret)
	setString(&c.JWTIssuer, fc.JWT.Issuer)
	if fc.DLQ.MaxRetries > 0 {
		c.DLQMaxRetries = fc.DLQ.MaxRetries
	}
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)

	durations := []struct {
		key    string
		raw    string
		target *time.Duration
	}{
		{"session.ttl", fc.Session.TTL, &c.SessionTTL},
		{"session.lock_ttl", fc.Session.LockTTL, &c.SessionLockTTL},
		{"outbox.poll_interval", fc.Outbox.PollInterval, &c.OutboxPollInterval},
		{"dlq.poll_interval", fc.DLQ.PollInterval, &c.DLQPollInterval},
		{"dlq.base_delay", fc.DLQ.BaseDelay, &c.DLQBaseDelay},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", d.key, err)
		}
		*d.target = parsed
	}
	return nil
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}
