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
	"strings"
	"testing"
	"time"
)

const testContract = "0x227B0c196eA8db17A665EA6824D972A64202E936"

func validConfig() Config {
	cfg := Default()
	cfg.Chain.PrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	cfg.Chain.LimitOrderContract = testContract
	return *cfg
}

func TestCancelConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CancelConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid",
			cfg: CancelConfig{
				CountdownTick:     time.Second,
				EditCancelTimeout: time.Minute,
				GaslessFeePercent: "0.001",
				MaxSponsoredFee:   "50",
			},
			wantErr: false,
		},
		{
			name: "zero tick",
			cfg: CancelConfig{
				EditCancelTimeout: time.Minute,
				GaslessFeePercent: "0.001",
				MaxSponsoredFee:   "50",
			},
			wantErr: true,
			errMsg:  "CANCEL_COUNTDOWN_TICK must be positive",
		},
		{
			name: "zero edit timeout",
			cfg: CancelConfig{
				CountdownTick:     time.Second,
				GaslessFeePercent: "0.001",
				MaxSponsoredFee:   "50",
			},
			wantErr: true,
			errMsg:  "EDIT_CANCEL_TIMEOUT must be positive",
		},
		{
			name: "missing fee percent",
			cfg: CancelConfig{
				CountdownTick:     time.Second,
				EditCancelTimeout: time.Minute,
				MaxSponsoredFee:   "50",
			},
			wantErr: true,
			errMsg:  "GASLESS_FEE_PERCENT is required",
		},
		{
			name: "invalid fee percent",
			cfg: CancelConfig{
				CountdownTick:     time.Second,
				EditCancelTimeout: time.Minute,
				GaslessFeePercent: "abc",
				MaxSponsoredFee:   "50",
			},
			wantErr: true,
		},
		{
			name: "negative fee percent",
			cfg: CancelConfig{
				CountdownTick:     time.Second,
				EditCancelTimeout: time.Minute,
				GaslessFeePercent: "-0.1",
				MaxSponsoredFee:   "50",
			},
			wantErr: true,
			errMsg:  "GASLESS_FEE_PERCENT cannot be negative",
		},
		{
			name: "negative sponsored fee",
			cfg: CancelConfig{
				CountdownTick:     time.Second,
				EditCancelTimeout: time.Minute,
				GaslessFeePercent: "0.001",
				MaxSponsoredFee:   "-1",
			},
			wantErr: true,
			errMsg:  "GASLESS_MAX_SPONSORED_FEE cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Validate() expected error, got nil")
				} else if tt.errMsg != "" && err.Error() != tt.errMsg {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing api url",
			mutate:  func(c *Config) { c.Backend.BaseUrl = "" },
			wantErr: true,
			errMsg:  "LIMIT_ORDER_API_URL is required",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.Backend.RateLimit = 0 },
			wantErr: true,
			errMsg:  "LIMIT_ORDER_API_RATE_LIMIT must be positive",
		},
		{
			name:    "zero chain id",
			mutate:  func(c *Config) { c.Chain.ChainId = 0 },
			wantErr: true,
			errMsg:  "CHAIN_ID must be positive",
		},
		{
			name:    "missing private key",
			mutate:  func(c *Config) { c.Chain.PrivateKey = "" },
			wantErr: true,
			errMsg:  "WALLET_PRIVATE_KEY is required",
		},
		{
			name:    "missing contract",
			mutate:  func(c *Config) { c.Chain.LimitOrderContract = "" },
			wantErr: true,
			errMsg:  "LIMIT_ORDER_CONTRACT is required",
		},
		{
			name:    "malformed contract",
			mutate:  func(c *Config) { c.Chain.LimitOrderContract = "0x1234" },
			wantErr: true,
			errMsg:  "LIMIT_ORDER_CONTRACT is not a valid address: 0x1234",
		},
		{
			name:    "invalid cancel config",
			mutate:  func(c *Config) { c.Cancel.GaslessFeePercent = "" },
			wantErr: true,
			errMsg:  "cancel config: GASLESS_FEE_PERCENT is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Validate() expected error, got nil")
				} else if tt.errMsg != "" && err.Error() != tt.errMsg {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LIMIT_ORDER_API_URL", "https://api.test/")
	t.Setenv("LIMIT_ORDER_API_KEY", "env-key")
	t.Setenv("CHAIN_ID", "137")
	t.Setenv("WALLET_PRIVATE_KEY", "0xabc")
	t.Setenv("EDIT_CANCEL_TIMEOUT", "45s")
	t.Setenv("LIMIT_ORDER_API_RATE_LIMIT", "2.5")
	t.Setenv("LOG_JSON", "true")

	cfg := Default()
	loadFromEnv(cfg)

	if cfg.Backend.BaseUrl != "https://api.test" {
		t.Errorf("Backend.BaseUrl = %q, want trailing slash trimmed", cfg.Backend.BaseUrl)
	}
	if cfg.Backend.ApiKey != "env-key" {
		t.Errorf("Backend.ApiKey = %q, want env-key", cfg.Backend.ApiKey)
	}
	if cfg.Chain.ChainId != 137 {
		t.Errorf("Chain.ChainId = %d, want 137", cfg.Chain.ChainId)
	}
	if cfg.Chain.PrivateKey != "abc" {
		t.Errorf("Chain.PrivateKey = %q, want 0x prefix stripped", cfg.Chain.PrivateKey)
	}
	if cfg.Cancel.EditCancelTimeout != 45*time.Second {
		t.Errorf("Cancel.EditCancelTimeout = %s, want 45s", cfg.Cancel.EditCancelTimeout)
	}
	if cfg.Backend.RateLimit != 2.5 {
		t.Errorf("Backend.RateLimit = %v, want 2.5", cfg.Backend.RateLimit)
	}
	if !cfg.Server.LogJson {
		t.Error("Server.LogJson = false, want true")
	}
}

func TestLoadFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("CHAIN_ID", "not-a-number")
	t.Setenv("CACHE_TTL", "soon")

	cfg := Default()
	loadFromEnv(cfg)

	if cfg.Chain.ChainId != 1 {
		t.Errorf("Chain.ChainId = %d, want default 1", cfg.Chain.ChainId)
	}
	if cfg.Cache.Ttl != 30*time.Second {
		t.Errorf("Cache.Ttl = %s, want default 30s", cfg.Cache.Ttl)
	}
}

func TestSecretsAreRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.ApiSecret = "super-secret"

	for _, out := range []string{
		fmt.Sprintf("%v", cfg.Backend),
		fmt.Sprintf("%#v", cfg.Backend),
		fmt.Sprintf("%v", cfg.Chain),
		fmt.Sprintf("%#v", cfg.Chain),
	} {
		if strings.Contains(out, "super-secret") || strings.Contains(out, cfg.Chain.PrivateKey) {
			t.Errorf("secret leaked in %q", out)
		}
	}
}
