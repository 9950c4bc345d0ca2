package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirrored from the WeBack mobile app.
const (
	DefaultAuthURL      = "https://user.grit-cloud.com/prod/oauth"
	DefaultLanguage     = "en"
	DefaultApplication  = "WeBack"
	DefaultClientID     = "yugong_app"
	DefaultAPIVersion   = "1.0"
	DefaultCredsFile    = "wb_creds"
	DefaultPollInterval = "60s"
	DefaultSyncInterval = "1h"
)

type Config struct {
	WeBack        WeBackConfig        `yaml:"weback"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Blob          BlobConfig          `yaml:"blob"`
	Status        StatusConfig        `yaml:"status"`
	Pushover      PushoverConfig      `yaml:"pushover"`
	Log           LogConfig           `yaml:"log"`
}

type WeBackConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Region       string `yaml:"region"`
	Language     string `yaml:"language"`
	Application  string `yaml:"application"`
	ClientID     string `yaml:"client_id"`
	APIVersion   string `yaml:"api_version"`
	AuthURL      string `yaml:"auth_url"`
	CredsFile    string `yaml:"creds_file"`
	PollInterval string `yaml:"poll_interval"`
	SyncInterval string `yaml:"sync_interval"`
	RetryBackoff string `yaml:"retry_backoff"`
}

type MQTTConfig struct {
	Enabled         bool             `yaml:"enabled"`
	Broker          MQTTBrokerConfig `yaml:"broker"`
	Auth            MQTTAuthConfig   `yaml:"auth"`
	QoS             int              `yaml:"qos"`
	TopicPrefix     string           `yaml:"topic_prefix"`
	DiscoveryPrefix string           `yaml:"discovery_prefix"`
}

type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	TLS      bool   `yaml:"tls"`
}

type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type HomeAssistantConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
}

type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// BlobConfig configures the optional S3 mirror of the credential cache.
type BlobConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Region        string `yaml:"region"`
	AccessKeyFile string `yaml:"access_key_file"`
	SecretKeyFile string `yaml:"secret_key_file"`
}

type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.WeBack.Language == "" {
		c.WeBack.Language = DefaultLanguage
	}
	if c.WeBack.Application == "" {
		c.WeBack.Application = DefaultApplication
	}
	if c.WeBack.ClientID == "" {
		c.WeBack.ClientID = DefaultClientID
	}
	if c.WeBack.APIVersion == "" {
		c.WeBack.APIVersion = DefaultAPIVersion
	}
	if c.WeBack.AuthURL == "" {
		c.WeBack.AuthURL = DefaultAuthURL
	}
	if c.WeBack.CredsFile == "" {
		c.WeBack.CredsFile = DefaultCredsFile
	}
	if c.WeBack.PollInterval == "" {
		c.WeBack.PollInterval = DefaultPollInterval
	}
	if c.WeBack.SyncInterval == "" {
		c.WeBack.SyncInterval = DefaultSyncInterval
	}
	if c.MQTT.Broker.Port == 0 {
		c.MQTT.Broker.Port = 1883
	}
	if c.MQTT.Broker.ClientID == "" {
		c.MQTT.Broker.ClientID = "weback-home"
	}
	if c.MQTT.QoS == 0 {
		c.MQTT.QoS = 1
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "weback"
	}
	if c.MQTT.DiscoveryPrefix == "" {
		c.MQTT.DiscoveryPrefix = "homeassistant"
	}
	if c.InfluxDB.BatchSize == 0 {
		c.InfluxDB.BatchSize = 100
	}
	if c.InfluxDB.FlushInterval == 0 {
		c.InfluxDB.FlushInterval = 10
	}
	if c.Blob.Prefix == "" {
		c.Blob.Prefix = "weback-home/creds"
	}
	if c.Status.Addr == "" {
		c.Status.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks required fields and that every duration parses.
func (c *Config) Validate() error {
	var errs []error

	if c.WeBack.Username == "" {
		errs = append(errs, errors.New("weback.username is required"))
	}
	if c.WeBack.Password == "" {
		errs = append(errs, errors.New("weback.password is required"))
	}
	if c.WeBack.Region == "" {
		errs = append(errs, errors.New("weback.region is required"))
	}

	for name, value := range map[string]string{
		"weback.poll_interval": c.WeBack.PollInterval,
		"weback.sync_interval": c.WeBack.SyncInterval,
		"weback.retry_backoff": c.WeBack.RetryBackoff,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, value))
		}
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2"))
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, errors.New("mqtt.broker.host is required when mqtt is enabled"))
	}
	if c.HomeAssistant.Enabled && (c.HomeAssistant.URL == "" || c.HomeAssistant.Token == "") {
		errs = append(errs, errors.New("homeassistant.url and homeassistant.token are required when enabled"))
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, errors.New("influxdb.url and influxdb.bucket are required when enabled"))
	}
	if c.Blob.Enabled && (c.Blob.Endpoint == "" || c.Blob.Bucket == "" || c.Blob.AccessKeyFile == "" || c.Blob.SecretKeyFile == "") {
		errs = append(errs, errors.New("blob endpoint, bucket and key files are required when enabled"))
	}

	return errors.Join(errs...)
}

func (w WeBackConfig) PollEvery() time.Duration {
	return durationOr(w.PollInterval, time.Minute)
}

func (w WeBackConfig) SyncEvery() time.Duration {
	return durationOr(w.SyncInterval, time.Hour)
}

func (w WeBackConfig) Backoff() time.Duration {
	return durationOr(w.RetryBackoff, 0)
}

func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
