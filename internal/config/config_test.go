package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vnykmshr/metricbus/internal/config"
)

var _ = Describe("Config", func() {
	var tempDir string

	writeConfig := func(content string) string {
		path := filepath.Join(tempDir, "metricbus.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "metricbus-config-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("with an explicit config file", func() {
			It("should parse every section", func() {
				path := writeConfig(`
metrics:
  period: "250ms"
  enable_log: false
  enable_json: true
  verbose: true
pool:
  capacity: 16
  bounded: false
executor:
  workers: 4
  queue_size: 32
logging:
  level: "debug"
  format: "json"
  file: "/var/log/metricbus.log"
redis:
  addr: "localhost:6379"
  channel: "reports"
prometheus:
  address: "127.0.0.1:9100"
otel:
  enabled: true
console:
  enabled: false
`)
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Metrics.Period).To(Equal(250 * time.Millisecond))
				Expect(cfg.Metrics.EnableLog).To(BeFalse())
				Expect(cfg.Metrics.EnableJSON).To(BeTrue())
				Expect(cfg.Metrics.Verbose).To(BeTrue())
				Expect(cfg.Pool.Capacity).To(Equal(16))
				Expect(cfg.Pool.Bounded).To(BeFalse())
				Expect(cfg.Executor.Workers).To(Equal(4))
				Expect(cfg.Executor.QueueSize).To(Equal(32))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelDebug))
				Expect(cfg.Logging.Format).To(Equal(config.LogFormatJSON))
				Expect(cfg.Logging.File).To(Equal("/var/log/metricbus.log"))
				Expect(cfg.Redis.Enabled()).To(BeTrue())
				Expect(cfg.Redis.Channel).To(Equal("reports"))
				Expect(cfg.Prometheus.Address).To(Equal("127.0.0.1:9100"))
				Expect(cfg.OTel.Enabled).To(BeTrue())
				Expect(cfg.Console.Enabled).To(BeFalse())
			})

			It("should fail when the file does not exist", func() {
				_, err := config.Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})

		Context("without a config file", func() {
			var cwd string

			BeforeEach(func() {
				var err error
				cwd, err = os.Getwd()
				Expect(err).NotTo(HaveOccurred())
				Expect(os.Chdir(tempDir)).To(Succeed())
			})

			AfterEach(func() {
				Expect(os.Chdir(cwd)).To(Succeed())
			})

			It("should use defaults", func() {
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Metrics.Period).To(Equal(time.Second))
				Expect(cfg.Metrics.EnableLog).To(BeTrue())
				Expect(cfg.Pool.Capacity).To(Equal(64))
				Expect(cfg.Pool.Bounded).To(BeTrue())
				Expect(cfg.Redis.Enabled()).To(BeFalse())
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelInfo))
				Expect(cfg.Console.Enabled).To(BeTrue())
			})

			It("should pick up metricbus.yaml from the working directory", func() {
				writeConfig("pool:\n  capacity: 5\n")
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Pool.Capacity).To(Equal(5))
			})
		})

		Context("with environment variables", func() {
			BeforeEach(func() {
				os.Setenv("METRICBUS_METRICS_PERIOD", "0s")
				os.Setenv("METRICBUS_EXECUTOR_WORKERS", "8")
				os.Setenv("METRICBUS_REDIS_ADDR", "redis:6379")
			})

			AfterEach(func() {
				os.Unsetenv("METRICBUS_METRICS_PERIOD")
				os.Unsetenv("METRICBUS_EXECUTOR_WORKERS")
				os.Unsetenv("METRICBUS_REDIS_ADDR")
			})

			It("should override file values", func() {
				path := writeConfig("executor:\n  workers: 2\n")
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Metrics.Period).To(Equal(time.Duration(0)))
				Expect(cfg.Executor.Workers).To(Equal(8))
				Expect(cfg.Redis.Addr).To(Equal("redis:6379"))
			})
		})

		Context("with invalid values", func() {
			DescribeTable("should reject the configuration",
				func(content string) {
					_, err := config.Load(writeConfig(content))
					Expect(err).To(HaveOccurred())
				},
				Entry("negative period", "metrics:\n  period: \"-1s\"\n"),
				Entry("bad schedule", "metrics:\n  schedule: \"every tuesday\"\n"),
				Entry("zero pool capacity", "pool:\n  capacity: 0\n"),
				Entry("zero workers", "executor:\n  workers: 0\n"),
				Entry("unknown log level", "logging:\n  level: \"verbose\"\n"),
				Entry("unknown log format", "logging:\n  format: \"xml\"\n"),
				Entry("redis address without port", "redis:\n  addr: \"localhost\"\n"),
				Entry("redis without channel", "redis:\n  addr: \"localhost:6379\"\n  channel: \"\"\n"),
				Entry("bad prometheus address", "prometheus:\n  address: \"nope\"\n"),
			)

			It("should accept a valid cron schedule", func() {
				cfg, err := config.Load(writeConfig("metrics:\n  schedule: \"*/10 * * * * *\"\n"))
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Metrics.Schedule).To(Equal("*/10 * * * * *"))
			})
		})
	})
})
