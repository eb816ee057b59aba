package sinks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vnykmshr/metricbus/pkg/bus"
	"github.com/vnykmshr/metricbus/pkg/common/validation"
)

// DefaultPublishTimeout bounds a single PUBLISH.
const DefaultPublishTimeout = time.Second

// Publisher is the subset of a go-redis client the Redis consumer uses.
// *redis.Client and *redis.ClusterClient satisfy it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisConfig configures a RedisConsumer.
type RedisConfig struct {
	Client    Publisher
	Channel   string
	Formatter Formatter
	Timeout   time.Duration
	Logger    *zap.Logger
}

// RedisConsumer publishes every report on a Redis channel.
type RedisConsumer struct {
	client    Publisher
	channel   string
	formatter Formatter
	timeout   time.Duration
	logger    *zap.Logger
}

// NewRedisConsumer creates a consumer. The formatter defaults to a
// JSONFormatter with a random source id.
func NewRedisConsumer(cfg RedisConfig) (*RedisConsumer, error) {
	if err := validation.ValidateNotNil("sinks", "redis_client", cfg.Client); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty("sinks", "redis_channel", cfg.Channel); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeDuration("sinks", "redis_timeout", cfg.Timeout); err != nil {
		return nil, err
	}
	if cfg.Formatter == nil {
		cfg.Formatter = NewJSONFormatter(uuid.Nil)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultPublishTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisConsumer{
		client:    cfg.Client,
		channel:   cfg.Channel,
		formatter: cfg.Formatter,
		timeout:   cfg.Timeout,
		logger:    logger.With(zap.String("component", "sink.redis"), zap.String("channel", cfg.Channel)),
	}, nil
}

// HandleMetric implements bus.Consumer. Failures are logged and the report
// is dropped.
func (c *RedisConsumer) HandleMetric(report bus.Report) {
	payload, err := c.formatter.Format(report)
	if err != nil {
		c.logger.Warn("failed to format report", zap.String("metric", metricName(report)), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.client.Publish(ctx, c.channel, payload).Err(); err != nil {
		c.logger.Warn("failed to publish report", zap.String("metric", metricName(report)), zap.Error(err))
	}
}
