package config

import (
	"errors"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/vnykmshr/metricbus/pkg/scheduling/periodic"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "METRICBUS"

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

type MetricsConfig struct {
	Period     time.Duration `mapstructure:"period"`
	Schedule   string        `mapstructure:"schedule"`
	EnableLog  bool          `mapstructure:"enable_log"`
	EnableJSON bool          `mapstructure:"enable_json"`
	Verbose    bool          `mapstructure:"verbose"`
}

type PoolConfig struct {
	Capacity int  `mapstructure:"capacity"`
	Bounded  bool `mapstructure:"bounded"`
}

type ExecutorConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	Channel string `mapstructure:"channel"`
}

// Enabled reports whether reports are published to Redis.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type PrometheusConfig struct {
	Address   string `mapstructure:"address"`
	Namespace string `mapstructure:"namespace"`
}

type OTelConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	MeterName string `mapstructure:"meter_name"`
}

type ConsoleConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Pool       PoolConfig       `mapstructure:"pool"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	OTel       OTelConfig       `mapstructure:"otel"`
	Console    ConsoleConfig    `mapstructure:"console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.period", "1s")
	v.SetDefault("metrics.schedule", "")
	v.SetDefault("metrics.enable_log", true)
	v.SetDefault("metrics.enable_json", false)
	v.SetDefault("metrics.verbose", false)
	v.SetDefault("pool.capacity", 64)
	v.SetDefault("pool.bounded", true)
	v.SetDefault("executor.workers", 2)
	v.SetDefault("executor.queue_size", 256)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", LogFormatConsole)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.channel", "metricbus")
	v.SetDefault("prometheus.address", ":9090")
	v.SetDefault("prometheus.namespace", "metricbus")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.meter_name", "github.com/vnykmshr/metricbus")
	v.SetDefault("console.enabled", true)
}

// Load reads path when it is not empty, or looks for metricbus.yaml in
// ./config and the working directory otherwise. A missing default file is
// not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metricbus")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Metrics, validation.By(func(value interface{}) error {
			mc, ok := value.(MetricsConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
			}
			return validation.ValidateStruct(&mc,
				validation.Field(&mc.Period, validation.Min(time.Duration(0))),
				validation.Field(&mc.Schedule, validation.By(validateSchedule)),
			)
		})),
		validation.Field(&c.Pool, validation.By(func(value interface{}) error {
			pc, ok := value.(PoolConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a PoolConfig")
			}
			return validation.ValidateStruct(&pc,
				validation.Field(&pc.Capacity, validation.Required, validation.Min(1)),
			)
		})),
		validation.Field(&c.Executor, validation.By(func(value interface{}) error {
			ec, ok := value.(ExecutorConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be an ExecutorConfig")
			}
			return validation.ValidateStruct(&ec,
				validation.Field(&ec.Workers, validation.Required, validation.Min(1)),
				validation.Field(&ec.QueueSize, validation.Required, validation.Min(1)),
			)
		})),
		validation.Field(&c.Logging, validation.By(func(value interface{}) error {
			lc, ok := value.(LoggingConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
			}
			return validation.ValidateStruct(&lc,
				validation.Field(&lc.Level,
					validation.Required,
					validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
				),
				validation.Field(&lc.Format,
					validation.Required,
					validation.In(LogFormatConsole, LogFormatJSON),
				),
				validation.Field(&lc.MaxSizeMB, validation.Min(0)),
				validation.Field(&lc.MaxBackups, validation.Min(0)),
			)
		})),
		validation.Field(&c.Redis, validation.By(func(value interface{}) error {
			rc, ok := value.(RedisConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a RedisConfig")
			}
			return validation.ValidateStruct(&rc,
				validation.Field(&rc.Addr, validation.By(validateHostPort)),
				validation.Field(&rc.Channel, validation.When(rc.Enabled(), validation.Required)),
			)
		})),
		validation.Field(&c.Prometheus, validation.By(func(value interface{}) error {
			pc, ok := value.(PrometheusConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a PrometheusConfig")
			}
			return validation.ValidateStruct(&pc,
				validation.Field(&pc.Address, validation.By(validateHostPort)),
			)
		})),
		validation.Field(&c.OTel, validation.By(func(value interface{}) error {
			oc, ok := value.(OTelConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be an OTelConfig")
			}
			return validation.ValidateStruct(&oc,
				validation.Field(&oc.MeterName, validation.When(oc.Enabled, validation.Required)),
			)
		})),
	)
}

// validateHostPort accepts an empty address, which disables the endpoint.
func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if addr == "" {
		return nil
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}
	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}
	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}
	return nil
}

func validateSchedule(value interface{}) error {
	expr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if expr == "" {
		return nil
	}
	if err := periodic.ValidateSchedule(expr); err != nil {
		return validation.NewError("validation_invalid_schedule", "must be a cron expression or descriptor")
	}
	return nil
}
