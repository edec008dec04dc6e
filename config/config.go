package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"
)

const (
	EnvTranslatorAuthKey = "TRANSLATOR_AUTH_KEY"

	defaultHTTPAddr             = ":8080"
	defaultRecorderHTTPAddr     = ":8082"
	defaultLookupsTopic         = "tracking.lookups"
	defaultConsumerGroup        = "lookup-recorder"
	defaultMirrorTimeoutMS      = 5000
	defaultTranslatorTimeoutMS  = 5000
	defaultTargetLang           = "PL"
	defaultTranslateConcurrency = 8
	defaultCacheTTLSeconds      = 24 * 60 * 60
)

type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Mirrors    []MirrorEndpoint `yaml:"mirrors"`
	Mirror     MirrorConfig     `yaml:"mirror"`
	Translator TranslatorConfig `yaml:"translator"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Database   DatabaseConfig   `yaml:"database"`
	Recorder   RecorderConfig   `yaml:"recorder"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MirrorEndpoint is one entry of the priority list. Order in the file is the query order.
type MirrorEndpoint struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type MirrorConfig struct {
	TimeoutMS          int `yaml:"timeout_ms"`
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

type TranslatorConfig struct {
	BaseURL         string `yaml:"base_url"`
	AuthKey         string `yaml:"auth_key"`
	TargetLang      string `yaml:"target_lang"`
	TimeoutMS       int    `yaml:"timeout_ms"`
	Concurrency     int    `yaml:"concurrency"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	LookupsTopicName string `yaml:"lookups_topic_name"`
	ConsumerGroup    string `yaml:"consumer_group"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type RecorderConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if key := os.Getenv(EnvTranslatorAuthKey); key != "" {
		config.Translator.AuthKey = key
	}
	config.ApplyDefaults()

	return &config, nil
}

// ApplyDefaults fills zero values. Redis, Kafka and the database stay
// disabled when their host is empty.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaultHTTPAddr
	}
	if c.Mirror.TimeoutMS <= 0 {
		c.Mirror.TimeoutMS = defaultMirrorTimeoutMS
	}
	if c.Translator.TargetLang == "" {
		c.Translator.TargetLang = defaultTargetLang
	}
	if c.Translator.TimeoutMS <= 0 {
		c.Translator.TimeoutMS = defaultTranslatorTimeoutMS
	}
	if c.Translator.Concurrency <= 0 {
		c.Translator.Concurrency = defaultTranslateConcurrency
	}
	if c.Translator.CacheTTLSeconds <= 0 {
		c.Translator.CacheTTLSeconds = defaultCacheTTLSeconds
	}
	if c.Kafka.LookupsTopicName == "" {
		c.Kafka.LookupsTopicName = defaultLookupsTopic
	}
	if c.Kafka.ConsumerGroup == "" {
		c.Kafka.ConsumerGroup = defaultConsumerGroup
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Recorder.HTTPAddr == "" {
		c.Recorder.HTTPAddr = defaultRecorderHTTPAddr
	}
}

func (c *Config) MirrorURLs() []string {
	out := make([]string, 0, len(c.Mirrors))
	for _, m := range c.Mirrors {
		if m.URL != "" {
			out = append(out, m.URL)
		}
	}
	return out
}

func (c MirrorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c TranslatorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c TranslatorConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c KafkaConfig) Enabled() bool { return c.Host != "" }

func (c KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", c.Host, c.Port)}
}

func (c DatabaseConfig) ConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.DBName, sslMode)
}
