// Package config читает конфигурацию клиента из YAML с fallback на
// переменные окружения.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/gdmc-client/cache"
	"github.com/annel0/gdmc-client/gdmc"
)

// Config — корневая структура конфигурации клиента.
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Editor    EditorConfig    `yaml:"editor"`
	Cache     cache.Config    `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ClientConfig — параметры HTTP-клиента GDMC.
type ClientConfig struct {
	Host           string `yaml:"host"`
	Dimension      string `yaml:"dimension"`
	Retries        int    `yaml:"retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxBatchSize   int    `yaml:"max_batch_size"`
}

// EditorConfig — параметры сессии редактирования.
type EditorConfig struct {
	Buffering                 bool `yaml:"buffering"`
	BufferLimit               int  `yaml:"buffer_limit"`
	Caching                   bool `yaml:"caching"`
	CacheLimit                int  `yaml:"cache_limit"`
	FlushWorkers              int  `yaml:"flush_workers"`
	AcknowledgeUnorderedFlush bool `yaml:"acknowledge_unordered_flush"`
}

// TelemetryConfig — параметры трассировки.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// GetHost возвращает адрес сервера с приоритетом: config -> env -> default.
func (c *ClientConfig) GetHost() string {
	return getStringWithEnvFallback(c.Host, "GDMC_HOST", gdmc.DefaultHost)
}

// GetDimension возвращает измерение мира (пустое — overworld).
func (c *ClientConfig) GetDimension() string {
	return getStringWithEnvFallback(c.Dimension, "GDMC_DIMENSION", "")
}

// GetRetries возвращает число повторов с поддержкой fallback значений.
func (c *ClientConfig) GetRetries() int {
	return getIntWithEnvFallback(c.Retries, "GDMC_RETRIES", 4)
}

// GetTimeout возвращает таймаут HTTP-запросов.
func (c *ClientConfig) GetTimeout() time.Duration {
	return time.Duration(getIntWithEnvFallback(c.TimeoutSeconds, "GDMC_TIMEOUT_SECONDS", 30)) * time.Second
}

// GetMaxBatchSize возвращает предельный размер батча записи.
func (c *ClientConfig) GetMaxBatchSize() int {
	return getIntWithEnvFallback(c.MaxBatchSize, "GDMC_MAX_BATCH_SIZE", 4096)
}

// GetBufferLimit возвращает ёмкость буфера записи.
func (e *EditorConfig) GetBufferLimit() int {
	return getIntWithEnvFallback(e.BufferLimit, "GDMC_BUFFER_LIMIT", 1024)
}

// GetCacheLimit возвращает ёмкость кеша чтения.
func (e *EditorConfig) GetCacheLimit() int {
	return getIntWithEnvFallback(e.CacheLimit, "GDMC_CACHE_LIMIT", 8192)
}

// GetFlushWorkers возвращает число воркеров сброса.
func (e *EditorConfig) GetFlushWorkers() int {
	return getIntWithEnvFallback(e.FlushWorkers, "GDMC_FLUSH_WORKERS", 1)
}

// getStringWithEnvFallback: config -> env -> default.
func getStringWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

// getIntWithEnvFallback: config -> env -> default.
func getIntWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	if configVal > 0 {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if n, err := strconv.Atoi(envVal); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV GDMC_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GDMC_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
