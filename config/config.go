// Package config provides configuration management for the write-path
// coordinator.
package config

import (
	"fmt"
	"time"
)

// Config is the global configuration for the coordinator process.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Server is the server configuration.
	Server ServerConfig `mapstructure:"server" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// WritePath is the write-path coordinator configuration.
	WritePath WritePathConfig `mapstructure:"write_path"`

	// Storage is the persistence configuration.
	Storage StorageConfig `mapstructure:"storage"`

	// Distributor is the committed-mutation fan-out configuration.
	Distributor DistributorConfig `mapstructure:"distributor"`

	// Metrics is the observability configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing is the distributed tracing configuration.
	Tracing TracingConfig `mapstructure:"tracing"`
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Version is the application version.
	Version string `mapstructure:"version"`

	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`

	// Debug enables debug mode with verbose logging.
	Debug bool `mapstructure:"debug"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	// Host is the bind address.
	Host string `mapstructure:"host"`

	// Port is the HTTP API port.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`

	// HTTP is the HTTP server configuration.
	HTTP HTTPConfig `mapstructure:"http"`

	// CORS is the CORS configuration.
	CORS CORSConfig `mapstructure:"cors"`
}

// HTTPConfig holds HTTP-specific settings.
type HTTPConfig struct {
	// Enabled enables the HTTP server.
	Enabled bool `mapstructure:"enabled"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	MaxHeaderBytes int `mapstructure:"max_header_bytes"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	// Enabled enables CORS support.
	Enabled bool `mapstructure:"enabled"`

	// AllowedOrigins is the list of allowed origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// AllowedMethods is the list of allowed HTTP methods.
	AllowedMethods []string `mapstructure:"allowed_methods"`

	// AllowedHeaders is the list of allowed headers.
	AllowedHeaders []string `mapstructure:"allowed_headers"`

	// ExposedHeaders is the list of headers exposed to the client.
	ExposedHeaders []string `mapstructure:"exposed_headers"`

	// AllowCredentials indicates whether credentials are allowed.
	AllowCredentials bool `mapstructure:"allow_credentials"`

	// MaxAge is the maximum age of CORS preflight cache in seconds.
	MaxAge int `mapstructure:"max_age"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the output format (json, text).
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is the output destination (stdout, stderr, or file path).
	Output string `mapstructure:"output"`
}

// WritePathConfig holds settings for the lock/commit/distributor pipeline.
type WritePathConfig struct {
	// LockLifetime is the duration a path lease is honored before another
	// writer may steal it.
	LockLifetime time.Duration `mapstructure:"lock_lifetime" validate:"min=1s"`

	// LockRetryDelay is loaded and validated but not read by the executors,
	// which wait a fixed 2s before retrying a refused target lock and 1s
	// before retrying a refused parent lock.
	LockRetryDelay time.Duration `mapstructure:"lock_retry_delay" validate:"min=1ms"`

	// CounterShards is loaded and validated but not read by the executors,
	// which always increment system-counter shard 0.
	CounterShards int `mapstructure:"counter_shards" validate:"min=1"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Type is the storage backend (memory, badger).
	Type string `mapstructure:"type" validate:"oneof=memory badger"`

	// Badger is the BadgerDB configuration.
	Badger BadgerConfig `mapstructure:"badger"`
}

// BadgerConfig holds BadgerDB-specific settings.
type BadgerConfig struct {
	// Path is the database directory path.
	Path string `mapstructure:"path"`

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool `mapstructure:"sync_writes"`

	// ValueLogFileSize is the maximum size of value log files in bytes.
	ValueLogFileSize int64 `mapstructure:"value_log_file_size"`

	// NumVersionsToKeep is the number of versions to keep per key.
	NumVersionsToKeep int `mapstructure:"num_versions_to_keep"`
}

// DistributorConfig holds settings for the committed-mutation fan-out lane.
type DistributorConfig struct {
	// ShardKey identifies this coordinator's shard in published event
	// subjects.
	ShardKey string `mapstructure:"shard_key" validate:"required"`

	// Backend selects the fan-out queue implementation (local, redis).
	// A redis backend lets multiple coordinator processes share one
	// distributor queue instead of each holding an in-process lane.
	Backend string `mapstructure:"backend" validate:"oneof=local redis"`

	// Lane is the worker-pool/backpressure configuration of the fan-out
	// queue.
	Lane LaneConfig `mapstructure:"lane"`

	// Redis configures the Redis-backed lane when Backend is "redis".
	Redis RedisLaneConfig `mapstructure:"redis"`
}

// LaneConfig mirrors the settings of a single lane.Config.
type LaneConfig struct {
	// Capacity is the maximum number of queued distributor pushes.
	Capacity int `mapstructure:"capacity" validate:"min=1"`

	// MaxConcurrency is the maximum number of concurrent publish workers.
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"min=1"`

	// Backpressure is the strategy when the queue is full (block, drop).
	Backpressure string `mapstructure:"backpressure" validate:"oneof=block drop"`
}

// RedisLaneConfig holds settings for the Redis-backed distributor lane.
type RedisLaneConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string `mapstructure:"addr"`

	// KeyPrefix namespaces the lane's Redis keys.
	KeyPrefix string `mapstructure:"key_prefix"`

	// BlockTimeout is the BRPOP timeout used while consuming tasks.
	BlockTimeout time.Duration `mapstructure:"block_timeout"`
}

// MetricsConfig holds observability settings.
type MetricsConfig struct {
	// Enabled enables metrics collection.
	Enabled bool `mapstructure:"enabled"`

	// Path is the metrics endpoint path.
	Path string `mapstructure:"path"`

	// Port is the metrics server port.
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// TracingConfig holds distributed tracing settings.
type TracingConfig struct {
	// Enabled enables distributed tracing.
	Enabled bool `mapstructure:"enabled"`

	// Type is the tracing backend (jaeger, zipkin).
	Type string `mapstructure:"type" validate:"oneof=jaeger zipkin"`

	// Exporter is the OTLP exporter implementation (otlpgrpc).
	Exporter string `mapstructure:"exporter" validate:"oneof=otlpgrpc"`

	// Endpoint is the collector endpoint.
	Endpoint string `mapstructure:"endpoint"`

	// Timeout bounds a single span export call.
	Timeout time.Duration `mapstructure:"timeout"`

	// Headers are additional OTLP exporter request headers.
	Headers map[string]string `mapstructure:"headers"`

	// Sampler selects the trace sampler (always_on, always_off, ratio).
	Sampler string `mapstructure:"sampler" validate:"oneof=always_on always_off ratio"`

	// SampleRate is the fraction of traces to sample (0.0-1.0) when
	// Sampler is "ratio".
	SampleRate float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// String returns a string representation of the configuration (without sensitive data).
func (c *Config) String() string {
	return fmt.Sprintf("Config{App: %s, Server: :%d, Env: %s}",
		c.App.Name, c.Server.Port, c.App.Environment)
}
