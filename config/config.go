/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the complete application configuration
type Config struct {
	Backend       BackendConfig
	Chain         ChainConfig
	Notifications NotificationsConfig
	Cancel        CancelConfig
	Cache         CacheConfig
	Server        ServerConfig
	Database      DatabaseConfig
}

// BackendConfig holds limit-order REST API settings
type BackendConfig struct {
	BaseUrl   string
	ApiKey    string
	ApiSecret string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	RateBurst int

	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
}

// String masks sensitive credentials when printing
func (b BackendConfig) String() string {
	return fmt.Sprintf("BackendConfig{BaseUrl: %s, Timeout: %s, RateLimit: %v, ApiKey: [REDACTED], ApiSecret: [REDACTED]}",
		b.BaseUrl, b.Timeout, b.RateLimit)
}

// GoString masks sensitive credentials when using %#v format
func (b BackendConfig) GoString() string {
	return b.String()
}

// ChainConfig holds wallet and chain settings
type ChainConfig struct {
	ChainId            int64
	RpcUrl             string
	PrivateKey         string
	LimitOrderContract string
	ReceiptPollRate    time.Duration
}

// String masks the wallet key when printing
func (c ChainConfig) String() string {
	return fmt.Sprintf("ChainConfig{ChainId: %d, RpcUrl: %s, LimitOrderContract: %s, PrivateKey: [REDACTED]}",
		c.ChainId, c.RpcUrl, c.LimitOrderContract)
}

// GoString masks the wallet key when using %#v format
func (c ChainConfig) GoString() string {
	return c.String()
}

// NotificationsConfig holds push channel settings
type NotificationsConfig struct {
	WebSocketUrl   string
	ReconnectDelay time.Duration
}

// CancelConfig holds cancellation and edit-order settings
type CancelConfig struct {
	CountdownTick     time.Duration
	EditCancelTimeout time.Duration
	GaslessFeePercent string // e.g. "0.001" for 10 bps
	MaxSponsoredFee   string // in maker-token units after price scaling
}

// CacheConfig holds active making amount cache settings
type CacheConfig struct {
	RedisAddr string // empty selects the in-memory cache
	Ttl       time.Duration
}

// ServerConfig holds process settings
type ServerConfig struct {
	LogLevel    string
	LogJson     bool
	MetricsAddr string // empty disables the /metrics listener
}

// DatabaseConfig holds the local journal settings
type DatabaseConfig struct {
	Path string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no environment overrides are present
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseUrl:             "https://limit-order.example.com",
			Timeout:             30 * time.Second,
			RateLimit:           10,
			RateBurst:           5,
			BreakerMinRequests:  5,
			BreakerFailureRatio: 0.6,
			BreakerOpenTimeout:  30 * time.Second,
		},
		Chain: ChainConfig{
			ChainId:         1,
			RpcUrl:          "http://localhost:8545",
			ReceiptPollRate: 3 * time.Second,
		},
		Notifications: NotificationsConfig{
			WebSocketUrl:   "wss://limit-order.example.com/ws",
			ReconnectDelay: 5 * time.Second,
		},
		Cancel: CancelConfig{
			CountdownTick:     time.Second,
			EditCancelTimeout: 2 * time.Minute,
			GaslessFeePercent: "0.001",
			MaxSponsoredFee:   "50",
		},
		Cache: CacheConfig{
			Ttl: 30 * time.Second,
		},
		Server: ServerConfig{
			LogLevel: "info",
			LogJson:  false,
		},
		Database: DatabaseConfig{
			Path: "limit_orders.db",
		},
	}
}

func loadFromEnv(cfg *Config) {
	// Backend
	if v := os.Getenv("LIMIT_ORDER_API_URL"); v != "" {
		cfg.Backend.BaseUrl = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("LIMIT_ORDER_API_KEY"); v != "" {
		cfg.Backend.ApiKey = v
	}
	if v := os.Getenv("LIMIT_ORDER_API_SECRET"); v != "" {
		cfg.Backend.ApiSecret = v
	}
	if v := os.Getenv("LIMIT_ORDER_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	if v := os.Getenv("LIMIT_ORDER_API_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backend.RateLimit = f
		}
	}
	if v := os.Getenv("LIMIT_ORDER_API_RATE_BURST"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Backend.RateBurst = i
		}
	}
	if v := os.Getenv("LIMIT_ORDER_API_BREAKER_MIN_REQUESTS"); v != "" {
		if i, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Backend.BreakerMinRequests = uint32(i)
		}
	}
	if v := os.Getenv("LIMIT_ORDER_API_BREAKER_FAILURE_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backend.BreakerFailureRatio = f
		}
	}
	if v := os.Getenv("LIMIT_ORDER_API_BREAKER_OPEN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.BreakerOpenTimeout = d
		}
	}

	// Chain
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Chain.ChainId = i
		}
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Chain.RpcUrl = v
	}
	if v := os.Getenv("WALLET_PRIVATE_KEY"); v != "" {
		cfg.Chain.PrivateKey = strings.TrimPrefix(v, "0x")
	}
	if v := os.Getenv("LIMIT_ORDER_CONTRACT"); v != "" {
		cfg.Chain.LimitOrderContract = v
	}
	if v := os.Getenv("RECEIPT_POLL_RATE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Chain.ReceiptPollRate = d
		}
	}

	// Notifications
	if v := os.Getenv("NOTIFICATIONS_WEBSOCKET_URL"); v != "" {
		cfg.Notifications.WebSocketUrl = v
	}
	if v := os.Getenv("NOTIFICATIONS_RECONNECT_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Notifications.ReconnectDelay = d
		}
	}

	// Cancellation
	if v := os.Getenv("CANCEL_COUNTDOWN_TICK"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cancel.CountdownTick = d
		}
	}
	if v := os.Getenv("EDIT_CANCEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cancel.EditCancelTimeout = d
		}
	}
	if v := os.Getenv("GASLESS_FEE_PERCENT"); v != "" {
		cfg.Cancel.GaslessFeePercent = v
	}
	if v := os.Getenv("GASLESS_MAX_SPONSORED_FEE"); v != "" {
		cfg.Cancel.MaxSponsoredFee = v
	}

	// Cache
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.Ttl = d
		}
	}

	// Server
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.Server.LogJson = v == "true"
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Server.MetricsAddr = v
	}

	// Database
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backend.BaseUrl == "" {
		return fmt.Errorf("LIMIT_ORDER_API_URL is required")
	}
	if c.Backend.RateLimit <= 0 {
		return fmt.Errorf("LIMIT_ORDER_API_RATE_LIMIT must be positive")
	}
	if c.Chain.ChainId <= 0 {
		return fmt.Errorf("CHAIN_ID must be positive")
	}
	if c.Chain.PrivateKey == "" {
		return fmt.Errorf("WALLET_PRIVATE_KEY is required")
	}
	if c.Chain.LimitOrderContract == "" {
		return fmt.Errorf("LIMIT_ORDER_CONTRACT is required")
	}
	if !common.IsHexAddress(c.Chain.LimitOrderContract) {
		return fmt.Errorf("LIMIT_ORDER_CONTRACT is not a valid address: %s", c.Chain.LimitOrderContract)
	}

	if err := c.Cancel.Validate(); err != nil {
		return fmt.Errorf("cancel config: %w", err)
	}

	return nil
}

// Validate checks if the cancellation config is valid
func (c *CancelConfig) Validate() error {
	if c.CountdownTick <= 0 {
		return fmt.Errorf("CANCEL_COUNTDOWN_TICK must be positive")
	}
	if c.EditCancelTimeout <= 0 {
		return fmt.Errorf("EDIT_CANCEL_TIMEOUT must be positive")
	}
	if c.GaslessFeePercent == "" {
		return fmt.Errorf("GASLESS_FEE_PERCENT is required")
	}
	percent, err := decimal.NewFromString(c.GaslessFeePercent)
	if err != nil {
		return fmt.Errorf("invalid GASLESS_FEE_PERCENT: %w", err)
	}
	if percent.IsNegative() {
		return fmt.Errorf("GASLESS_FEE_PERCENT cannot be negative")
	}
	maxFee, err := decimal.NewFromString(c.MaxSponsoredFee)
	if err != nil {
		return fmt.Errorf("invalid GASLESS_MAX_SPONSORED_FEE: %w", err)
	}
	if maxFee.IsNegative() {
		return fmt.Errorf("GASLESS_MAX_SPONSORED_FEE cannot be negative")
	}
	return nil
}

// SetupLogger initializes the global Zap logger with structured JSON format
func SetupLogger(level string, useJSON bool) {
	zapConfig := zap.NewProductionConfig()
	if !useJSON {
		zapConfig.Encoding = "console"
	}

	// Use ISO8601 timestamps instead of epoch
	zapConfig.EncoderConfig.TimeKey = "ts"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Enable caller information (file:line)
	zapConfig.EncoderConfig.CallerKey = "caller"
	zapConfig.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	zapConfig.EncoderConfig.LevelKey = "level"
	zapConfig.EncoderConfig.MessageKey = "msg"
	zapConfig.EncoderConfig.StacktraceKey = "stacktrace"

	switch level {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := zapConfig.Build(zap.AddCallerSkip(0))
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zap.ReplaceGlobals(logger)
}
