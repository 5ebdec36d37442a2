package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/spotbot/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileEnv names an optional YAML file that supplies defaults. Environment
// variables always win over it.
const FileEnv = "SPOTBOT_CONFIG"

// Config holds all runtime configuration for the trading client.
type Config struct {
	APIKey             string
	APISecret          string
	BaseURL            string
	RecvWindow         time.Duration
	HTTPTimeout        time.Duration
	LogLevel           string
	LogFile            string
	Port               int
	CORSAllowedOrigins []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
}

// fileConfig is the YAML layout of the optional config file.
type fileConfig struct {
	Binance struct {
		APIKey      string `yaml:"api_key"`
		APISecret   string `yaml:"api_secret"`
		BaseURL     string `yaml:"base_url"`
		RecvWindow  string `yaml:"recv_window"`
		HTTPTimeout string `yaml:"http_timeout"`
	} `yaml:"binance"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Server struct {
		Port               int      `yaml:"port"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		ReadTimeout        string   `yaml:"read_timeout"`
		WriteTimeout       string   `yaml:"write_timeout"`
		IdleTimeout        string   `yaml:"idle_timeout"`
		ShutdownTimeout    string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
}

// source resolves a key from the environment first, then from the file.
type source map[string]string

func (fc *fileConfig) source() source {
	s := source{
		"BINANCE_API_KEY":      fc.Binance.APIKey,
		"BINANCE_API_SECRET":   fc.Binance.APISecret,
		"BINANCE_BASE_URL":     fc.Binance.BaseURL,
		"BINANCE_RECV_WINDOW":  fc.Binance.RecvWindow,
		"BINANCE_HTTP_TIMEOUT": fc.Binance.HTTPTimeout,
		"LOG_LEVEL":            fc.Logging.Level,
		"LOG_FILE":             fc.Logging.File,
		"CORS_ALLOWED_ORIGINS": strings.Join(fc.Server.CORSAllowedOrigins, ","),
		"READ_TIMEOUT":         fc.Server.ReadTimeout,
		"WRITE_TIMEOUT":        fc.Server.WriteTimeout,
		"IDLE_TIMEOUT":         fc.Server.IdleTimeout,
		"SHUTDOWN_TIMEOUT":     fc.Server.ShutdownTimeout,
	}
	if fc.Server.Port != 0 {
		s["PORT"] = strconv.Itoa(fc.Server.Port)
	}
	return s
}

func loadFile(path string) (source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{Key: FileEnv, Message: err.Error()}
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, &domain.ConfigError{Key: FileEnv, Message: fmt.Sprintf("parse %s: %v", path, err)}
	}
	return fc.source(), nil
}

// Load reads configuration from the optional file and environment
// variables, applies defaults, and validates values. Every failure is a
// *domain.ConfigError naming the offending key.
func Load() (*Config, error) {
	src := source{}
	if path := os.Getenv(FileEnv); path != "" {
		var err error
		if src, err = loadFile(path); err != nil {
			return nil, err
		}
	}

	apiKey := src.getStr("BINANCE_API_KEY", "")
	if apiKey == "" {
		return nil, &domain.ConfigError{Key: "BINANCE_API_KEY", Message: "is required"}
	}
	apiSecret := src.getStr("BINANCE_API_SECRET", "")
	if apiSecret == "" {
		return nil, &domain.ConfigError{Key: "BINANCE_API_SECRET", Message: "is required"}
	}

	baseURL := src.getStr("BINANCE_BASE_URL", "https://testnet.binance.vision")
	if !isValidBaseURL(baseURL) {
		return nil, &domain.ConfigError{Key: "BINANCE_BASE_URL", Message: fmt.Sprintf("%q must be an http(s) URL", baseURL)}
	}

	recvWindow, err := src.getDuration("BINANCE_RECV_WINDOW", 5*time.Second)
	if err != nil {
		return nil, err
	}
	if recvWindow <= 0 || recvWindow > time.Minute {
		return nil, &domain.ConfigError{Key: "BINANCE_RECV_WINDOW", Message: "must be between 1ms and 1m"}
	}

	httpTimeout, err := src.getDuration("BINANCE_HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	logLevel := src.getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, &domain.ConfigError{
			Key:     "LOG_LEVEL",
			Message: fmt.Sprintf("%q must be one of: debug, info, warn, error", logLevel),
		}
	}

	logFile := src.getStr("LOG_FILE", "logs/trading_bot.log")

	port, err := src.getInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port < 1 || port > 65535 {
		return nil, &domain.ConfigError{Key: "PORT", Message: fmt.Sprintf("%d is out of range", port)}
	}

	origins := splitList(src.getStr("CORS_ALLOWED_ORIGINS", "http://localhost:8080"))

	readTimeout, err := src.getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := src.getDuration("WRITE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	idleTimeout, err := src.getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := src.getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		APIKey:             apiKey,
		APISecret:          apiSecret,
		BaseURL:            baseURL,
		RecvWindow:         recvWindow,
		HTTPTimeout:        httpTimeout,
		LogLevel:           logLevel,
		LogFile:            logFile,
		Port:               port,
		CORSAllowedOrigins: origins,
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		IdleTimeout:        idleTimeout,
		ShutdownTimeout:    shutdownTimeout,
	}, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s[key]
}

func (s source) getStr(key, defaultVal string) string {
	v := s.lookup(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func (s source) getInt(key string, defaultVal int) (int, error) {
	v := s.lookup(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &domain.ConfigError{Key: key, Message: fmt.Sprintf("%q is not an integer", v)}
	}
	return n, nil
}

func (s source) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := s.lookup(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &domain.ConfigError{Key: key, Message: fmt.Sprintf("%q is not a duration", v)}
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
