package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadConfigFromEnv loads configuration from environment variables with
// defaults. Variable names used by the original storefront scripts
// (bootstrap_server, api_key, api_secret, topic, DB, activity, Order_col)
// are accepted when the canonical name is unset.
func LoadConfigFromEnv() (*Config, error) {
	cfg := Defaults()
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with every environment variable that is set.
// Unset variables keep the value already in cfg.
func ApplyEnv(cfg *Config) error {
	env := &envReader{}

	k := &cfg.Kafka
	k.Brokers = env.str(k.Brokers, "KAFKA_BOOTSTRAP_SERVERS", "bootstrap_server")
	k.SecurityProtocol = env.str(k.SecurityProtocol, "KAFKA_SECURITY_PROTOCOL")
	k.SASLMechanism = env.str(k.SASLMechanism, "KAFKA_SASL_MECHANISM")
	k.Username = env.str(k.Username, "KAFKA_API_KEY", "api_key")
	k.Password = env.str(k.Password, "KAFKA_API_SECRET", "api_secret")
	k.Topic = env.str(k.Topic, "KAFKA_TOPIC", "topic")
	k.ConsumerGroup = env.str(k.ConsumerGroup, "KAFKA_CONSUMER_GROUP")
	k.AutoOffsetReset = env.str(k.AutoOffsetReset, "KAFKA_AUTO_OFFSET_RESET")
	k.CommitMode = env.str(k.CommitMode, "KAFKA_COMMIT_MODE")
	k.AutoCommitInterval = env.duration(k.AutoCommitInterval, "KAFKA_AUTO_COMMIT_INTERVAL")
	k.PollTimeout = env.duration(k.PollTimeout, "KAFKA_POLL_TIMEOUT")
	k.ConnectTimeout = env.duration(k.ConnectTimeout, "KAFKA_CONNECT_TIMEOUT")
	k.EnablePartitionEOF = env.boolean(k.EnablePartitionEOF, "KAFKA_ENABLE_PARTITION_EOF")

	st := &cfg.Storage
	st.URI = env.str(st.URI, "MONGODB_URL")
	st.Database = env.str(st.Database, "MONGODB_DATABASE", "DB")
	st.ActivityCollection = env.str(st.ActivityCollection, "MONGODB_ACTIVITY_COLLECTION", "activity")
	st.OrdersCollection = env.str(st.OrdersCollection, "MONGODB_ORDERS_COLLECTION", "Order_col")
	st.ConnectTimeout = env.duration(st.ConnectTimeout, "MONGODB_CONNECT_TIMEOUT")
	st.WriteTimeout = env.duration(st.WriteTimeout, "MONGODB_WRITE_TIMEOUT")
	st.MaxConsecutiveFailures = env.integer(st.MaxConsecutiveFailures, "MONGODB_MAX_CONSECUTIVE_FAILURES")

	cfg.Processing.StrictDecode = env.boolean(cfg.Processing.StrictDecode, "PROCESSING_STRICT_DECODE")

	cfg.Logging.Level = strings.ToLower(env.str(cfg.Logging.Level, "LOG_LEVEL"))
	cfg.Logging.Format = strings.ToLower(env.str(cfg.Logging.Format, "LOG_FORMAT"))

	cfg.Metrics.Addr = env.str(cfg.Metrics.Addr, "METRICS_ADDR")

	sim := &cfg.Simulator
	sim.Sessions = env.integer(sim.Sessions, "SIMULATOR_SESSIONS")
	sim.Interval = env.duration(sim.Interval, "SIMULATOR_INTERVAL")
	sim.MaxItems = env.integer(sim.MaxItems, "SIMULATOR_MAX_ITEMS")
	sim.FlushTimeout = env.duration(sim.FlushTimeout, "SIMULATOR_FLUSH_TIMEOUT")
	sim.SessionsToClose = env.integer(sim.SessionsToClose, "SIMULATOR_SESSIONS_TO_CLOSE")

	return env.err()
}

// envReader reads typed variables and remembers values that fail to parse
type envReader struct {
	errs []error
}

// lookup returns the first non-empty variable among keys
func (r *envReader) lookup(keys ...string) (string, string, bool) {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return key, value, true
		}
	}
	return "", "", false
}

func (r *envReader) str(defaultValue string, keys ...string) string {
	if _, value, ok := r.lookup(keys...); ok {
		return value
	}
	return defaultValue
}

func (r *envReader) integer(defaultValue int, keys ...string) int {
	key, value, ok := r.lookup(keys...)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return parsed
}

func (r *envReader) boolean(defaultValue bool, keys ...string) bool {
	key, value, ok := r.lookup(keys...)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return defaultValue
	}
	return parsed
}

func (r *envReader) duration(defaultValue time.Duration, keys ...string) time.Duration {
	key, value, ok := r.lookup(keys...)
	if !ok {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return parsed
}

func (r *envReader) err() error {
	return joinConfigErrors(r.errs)
}
