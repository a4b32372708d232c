package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-sns-push-service/pkg/platform"
)

const applicationEnvPrefix = "SNS_APPLICATION_"

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// SNSConfig holds the broker connection. AccessKey and SecretKey are
// ciphertext when CredentialsKey is set.
type SNSConfig struct {
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	CredentialsKey string
	Issuer         string
	// Applications maps a platform name to its platform application ARN.
	Applications map[string]string
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ProjectID              string
	ListenAddr             string
	TopicID                string
	SubscriptionID         string
	SubscriptionDLQTopicID string
	NumPipelineWorkers     int

	CorsConfig middleware.CorsConfig
	Redis      RedisConfig
	SNS        SNSConfig

	PubsubConsumerConfig *messagepipeline.GooglePubsubConsumerConfig
}

// ApplicationsByPlatform resolves the configured application names into platforms.
func (c *Config) ApplicationsByPlatform() (map[platform.Platform]string, error) {
	apps := make(map[platform.Platform]string, len(c.SNS.Applications))
	for name, arn := range c.SNS.Applications {
		p, err := platform.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("sns application %q: %w", name, err)
		}
		if _, dup := apps[p]; dup {
			return nil, fmt.Errorf("sns application for %s is configured more than once", p)
		}
		if arn == "" {
			return nil, fmt.Errorf("sns application %q has no arn", name)
		}
		apps[p] = arn
	}
	return apps, nil
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PROJECT_ID", "source", "env")
		cfg.ProjectID = val
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("SUBSCRIPTION_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SUBSCRIPTION_ID", "source", "env")
		cfg.SubscriptionID = val
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(val)
	}
	if val := os.Getenv("SUBSCRIPTION_DLQ_TOPIC_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SUBSCRIPTION_DLQ_TOPIC_ID", "source", "env")
		cfg.SubscriptionDLQTopicID = val
	}
	if val := os.Getenv("NUM_PIPELINE_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil && workers > 0 {
			logger.Debug("Overriding config value", "key", "NUM_PIPELINE_WORKERS", "source", "env")
			cfg.NumPipelineWorkers = workers
		}
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// SNS Overrides
	snsOverrides := []struct {
		key    string
		target *string
		secret bool
	}{
		{"SNS_REGION", &cfg.SNS.Region, false},
		{"SNS_ENDPOINT", &cfg.SNS.Endpoint, false},
		{"SNS_ACCESS_KEY", &cfg.SNS.AccessKey, true},
		{"SNS_SECRET_KEY", &cfg.SNS.SecretKey, true},
		{"SNS_CREDENTIALS_KEY", &cfg.SNS.CredentialsKey, true},
		{"SNS_ISSUER", &cfg.SNS.Issuer, false},
	}
	for _, o := range snsOverrides {
		if val := os.Getenv(o.key); val != "" {
			if o.secret {
				logger.Debug("Overriding config value", "key", o.key, "source", "env", "redacted", true)
			} else {
				logger.Debug("Overriding config value", "key", o.key, "source", "env", "value", val)
			}
			*o.target = val
		}
	}
	for _, kv := range os.Environ() {
		key, val, found := strings.Cut(kv, "=")
		if !found || val == "" || !strings.HasPrefix(key, applicationEnvPrefix) {
			continue
		}
		name := strings.TrimPrefix(key, applicationEnvPrefix)
		if cfg.SNS.Applications == nil {
			cfg.SNS.Applications = make(map[string]string)
		}
		// The env entry replaces any YAML entry naming the same platform by alias.
		if p, err := platform.Parse(name); err == nil {
			for existing := range cfg.SNS.Applications {
				if q, err := platform.Parse(existing); err == nil && q == p {
					delete(cfg.SNS.Applications, existing)
				}
			}
		}
		logger.Debug("Overriding config value", "key", key, "source", "env")
		cfg.SNS.Applications[name] = val
	}

	// CORS Overrides
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug("Overriding config value", "key", "CORS_ALLOWED_ORIGINS", "source", "env")
		rawOrigins := strings.Split(corsOrigins, ",")
		var cleanOrigins []string
		for _, o := range rawOrigins {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleanOrigins = append(cleanOrigins, trimmed)
			}
		}
		cfg.CorsConfig.AllowedOrigins = cleanOrigins
	}

	// Final Validation
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required (set via YAML or PROJECT_ID env var)")
	}
	if cfg.SubscriptionID == "" {
		return nil, fmt.Errorf("subscription_id is required (set via YAML or SUBSCRIPTION_ID env var)")
	}
	if cfg.SNS.Region == "" {
		return nil, fmt.Errorf("sns.region is required (set via YAML or SNS_REGION env var)")
	}
	if len(cfg.SNS.Applications) == 0 {
		return nil, fmt.Errorf("at least one sns application is required (set via YAML or SNS_APPLICATION_<PLATFORM> env var)")
	}
	if _, err := cfg.ApplicationsByPlatform(); err != nil {
		return nil, err
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.NumPipelineWorkers <= 0 {
		cfg.NumPipelineWorkers = 1
	}

	if cfg.PubsubConsumerConfig == nil && cfg.SubscriptionID != "" {
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.SubscriptionID)
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
