package config

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config is the full configuration surface of the client and the CLI.
type Config interface {
	EnvConfig
	ConnectionConfig
	RetryConfig
	StorageConfig
}

type EnvConfig interface {
	GetEnv() string
	GetLogLevel() string
	GetMetricsAddr() string
}

type ConnectionConfig interface {
	GetURL() string
	GetUsername() string
	GetAccessKey() string
	GetPersistConnection() bool
	GetInsecureTLS() bool
	GetHTTPTimeout() time.Duration
}

type RetryConfig interface {
	GetMaxRetries() int
	GetRetryDelay() time.Duration
	GetOperationRetries() int
}

type StorageConfig interface {
	GetSessionDriver() string
	GetSessionDir() string
	GetBoltPath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetSessionKey() string
}

// mainConfig resolves every key from the process environment first and the
// YAML file second.
type mainConfig struct {
	file map[string]string
}

var _ Config = mainConfig{}

// New returns a Config backed by the process environment only.
func New() Config {
	return mainConfig{}
}

// Load reads envFiles into the process environment (".env" when none are given; a
// missing default file is ignored) and then the YAML file named by VTIGER_CONFIG_FILE.
// Variables already set in the environment are never overridden.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "[config.Load] .env")
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, errors.Wrap(err, "[config.Load] env files")
	}

	path := GetEnv(configFileEnvVar, "")
	if path == "" {
		return mainConfig{}, nil
	}
	file, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return mainConfig{file: file}, nil
}

// loadFile reads a flat YAML mapping. Keys are the variable names without the
// VTIGER_ prefix, in lower case: url, username, session_driver, max_retries, ...
func loadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[config.loadFile] os.ReadFile")
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "[config.loadFile] %s", path)
	}
	file := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		file[k] = stringify(v)
	}
	return file, nil
}
