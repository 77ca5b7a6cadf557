package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Log       LogConfig
	Analytics AnalyticsConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// KafkaConfig holds Kafka configuration. Topic receives report snapshots,
// TradesTopic carries imported trades.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	TradesTopic string
	GroupID     string
}

// RedisConfig holds the report cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level       string
	Encoding    string
	Development bool
	// Output is a zap sink such as "stdout", "stderr" or a file path
	Output string
}

// AnalyticsConfig holds engine defaults
type AnalyticsConfig struct {
	// Timezone buckets report series: "local", an IANA name or an offset
	Timezone string
}

// SchedulerConfig controls periodic report snapshots
type SchedulerConfig struct {
	Enabled      bool
	SnapshotCron string
}

// env maps config keys to the environment variables that set them
var env = map[string]string{
	"server.port":              "SERVER_PORT",
	"server.host":              "SERVER_HOST",
	"database.host":            "DB_HOST",
	"database.port":            "DB_PORT",
	"database.user":            "DB_USER",
	"database.password":        "DB_PASSWORD",
	"database.name":            "DB_NAME",
	"database.sslmode":         "DB_SSLMODE",
	"database.migrations_path": "MIGRATIONS_PATH",
	"kafka.brokers":            "KAFKA_BROKERS",
	"kafka.topic":              "KAFKA_TOPIC",
	"kafka.trades_topic":       "KAFKA_TRADES_TOPIC",
	"kafka.group_id":           "KAFKA_GROUP_ID",
	"redis.addr":               "REDIS_ADDR",
	"redis.password":           "REDIS_PASSWORD",
	"redis.db":                 "REDIS_DB",
	"redis.ttl":                "CACHE_TTL",
	"log.level":                "LOG_LEVEL",
	"log.encoding":             "LOG_ENCODING",
	"log.development":          "LOG_DEVELOPMENT",
	"log.output":               "LOG_OUTPUT",
	"analytics.timezone":       "ANALYTICS_TIMEZONE",
	"scheduler.enabled":        "SNAPSHOT_ENABLED",
	"scheduler.snapshot_cron":  "SNAPSHOT_CRON",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "tradejournal")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_path", "db/migrations")
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "journal-reports")
	v.SetDefault("kafka.trades_topic", "trading.trades")
	v.SetDefault("kafka.group_id", "trade-journal")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "10m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("log.output", "stdout")
	v.SetDefault("analytics.timezone", "local")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.snapshot_cron", "@every 15m")
}

// Load reads configuration from environment variables, optionally layered
// over the YAML/JSON file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}
	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return nil, fmt.Errorf("failed to bind CONFIG_FILE: %w", err)
	}

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: v.GetString("server.port"),
			Host: v.GetString("server.host"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("database.host"),
			Port:           v.GetString("database.port"),
			User:           v.GetString("database.user"),
			Password:       v.GetString("database.password"),
			DBName:         v.GetString("database.name"),
			SSLMode:        v.GetString("database.sslmode"),
			MigrationsPath: v.GetString("database.migrations_path"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka.brokers")),
			Topic:       v.GetString("kafka.topic"),
			TradesTopic: v.GetString("kafka.trades_topic"),
			GroupID:     v.GetString("kafka.group_id"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Encoding:    v.GetString("log.encoding"),
			Development: v.GetBool("log.development"),
			Output:      v.GetString("log.output"),
		},
		Analytics: AnalyticsConfig{
			Timezone: v.GetString("analytics.timezone"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      v.GetBool("scheduler.enabled"),
			SnapshotCron: v.GetString("scheduler.snapshot_cron"),
		},
	}, nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns host:port for the HTTP listener
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
