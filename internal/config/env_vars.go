package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	configFileEnvVar        = "VTIGER_CONFIG_FILE"
	envEnvVar               = "VTIGER_ENV"
	logLevelEnvVar          = "VTIGER_LOG_LEVEL"
	metricsAddrEnvVar       = "VTIGER_METRICS_ADDR"
	urlEnvVar               = "VTIGER_URL"
	usernameEnvVar          = "VTIGER_USERNAME"
	accessKeyEnvVar         = "VTIGER_ACCESSKEY"
	persistEnvVar           = "VTIGER_PERSIST_CONNECTION"
	insecureTLSEnvVar       = "VTIGER_INSECURE_TLS"
	httpTimeoutEnvVar       = "VTIGER_HTTP_TIMEOUT"
	maxRetriesEnvVar        = "VTIGER_MAX_RETRIES"
	retryDelayEnvVar        = "VTIGER_RETRY_DELAY"
	operationRetriesEnvVar  = "VTIGER_OPERATION_RETRIES"
	sessionDriverEnvVar     = "VTIGER_SESSION_DRIVER"
	sessionFileEnvVar       = "VTIGER_SESSION_FILE"
	boltPathEnvVar          = "VTIGER_BOLT_PATH"
	redisAddrEnvVar         = "VTIGER_REDIS_ADDR"
	redisPasswordEnvVar     = "VTIGER_REDIS_PASSWORD"
	redisDBEnvVar           = "VTIGER_REDIS_DB"
	sessionKeyEnvVar        = "VTIGER_SESSION_KEY"
	defaultEnv              = "DEV"
	defaultLogLevel         = "info"
	defaultHTTPTimeout      = 30 * time.Second
	defaultMaxRetries       = 3
	defaultRetryDelay       = 200 * time.Millisecond
	defaultOperationRetries = 10
	defaultSessionDriver    = "file"
	defaultSessionDir       = "./data"
	defaultBoltPath         = "./data/session.db"
	defaultRedisAddr        = "localhost:6379"
)

func (c mainConfig) GetEnv() string {
	return c.lookup(envEnvVar, defaultEnv)
}

func (c mainConfig) GetLogLevel() string {
	return c.lookup(logLevelEnvVar, defaultLogLevel)
}

// GetMetricsAddr returns the listen address for /metrics, or "" when disabled.
func (c mainConfig) GetMetricsAddr() string {
	return c.lookup(metricsAddrEnvVar, "")
}

// lookup resolves name from the environment, then the YAML file, then defaultValue.
func (c mainConfig) lookup(name, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	if value, ok := c.file[fileKey(name)]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (c mainConfig) lookupInt(name string, defaultValue int) (int, error) {
	value := c.lookup(name, "")
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not an integer", name, value)
	}
	return n, nil
}

func (c mainConfig) lookupBool(name string, defaultValue bool) (bool, error) {
	value := c.lookup(name, "")
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not a boolean", name, value)
	}
	return b, nil
}

func (c mainConfig) lookupDuration(name string, defaultValue time.Duration) (time.Duration, error) {
	value := c.lookup(name, "")
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not a duration", name, value)
	}
	return d, nil
}

// fileKey maps VTIGER_SESSION_DRIVER to session_driver.
func fileKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, "VTIGER_"))
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case uint64:
		return strconv.FormatUint(t, 10)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// GetEnv returns the environment variable or defaultValue when it is unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
