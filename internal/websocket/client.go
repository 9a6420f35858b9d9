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

package websocket

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/limit-order-samples/limit-order-client-go/internal/metrics"
	"github.com/limit-order-samples/limit-order-client-go/internal/notify"
	"go.uber.org/zap"
)

// Config holds push channel connection settings
type Config struct {
	Url            string
	ApiKey         string
	ApiSecret      string
	ReconnectDelay time.Duration
}

// Subscriber implements notify.Subscriber with one connection per topic
type Subscriber struct {
	config Config
	dialer *websocket.Dialer
	now    func() time.Time
}

func NewSubscriber(config Config) *Subscriber {
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = 5 * time.Second
	}
	return &Subscriber{
		config: config,
		dialer: websocket.DefaultDialer,
		now:    time.Now,
	}
}

// Subscribe connects in the background and keeps reconnecting until the
// returned function is called or ctx ends
func (s *Subscriber) Subscribe(ctx context.Context, topic notify.Topic, key notify.Key, handler notify.Handler) (func(), error) {
	if s.config.Url == "" {
		return nil, fmt.Errorf("push channel url is not configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &channelClient{
		config:  s.config,
		dialer:  s.dialer,
		now:     s.now,
		topic:   topic,
		key:     key,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.run()
	return c.Stop, nil
}

// channelClient manages the connection for one topic and key
type channelClient struct {
	config  Config
	dialer  *websocket.Dialer
	now     func() time.Time
	topic   notify.Topic
	key     notify.Key
	handler notify.Handler

	mu     sync.Mutex
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop closes the connection and waits for the read loop to exit, after
// which the handler is never called again
func (c *channelClient) Stop() {
	c.cancel()
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
	<-c.done
}

func (c *channelClient) run() {
	defer close(c.done)

	for c.ctx.Err() == nil {
		if err := c.connect(); err != nil {
			zap.L().Error("Failed to connect",
				zap.String("channel", string(c.topic)),
				zap.Error(err))
			c.wait()
			continue
		}

		if err := c.subscribe(); err != nil {
			zap.L().Error("Failed to subscribe",
				zap.String("channel", string(c.topic)),
				zap.Error(err))
			c.close()
			c.wait()
			continue
		}

		c.readMessages()
		c.close()

		if c.ctx.Err() == nil {
			zap.L().Info("Reconnecting",
				zap.String("channel", string(c.topic)),
				zap.Duration("delay", c.config.ReconnectDelay))
			c.wait()
		}
	}
}

func (c *channelClient) wait() {
	metrics.StreamReconnects.WithLabelValues(string(c.topic)).Inc()
	select {
	case <-c.ctx.Done():
	case <-time.After(c.config.ReconnectDelay):
	}
}

func (c *channelClient) connect() error {
	zap.L().Debug("Connecting to push channel",
		zap.String("url", c.config.Url),
		zap.String("channel", string(c.topic)))

	conn, _, err := c.dialer.DialContext(c.ctx, c.config.Url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		conn.Close()
		return c.ctx.Err()
	}
	c.conn = conn
	return nil
}

func (c *channelClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *channelClient) subscribe() error {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	chainId := strconv.FormatInt(c.key.ChainId, 10)

	sub := subscribeMessage{
		Type:      "subscribe",
		Channel:   string(c.topic),
		Account:   c.key.Account,
		ChainId:   chainId,
		ApiKey:    c.config.ApiKey,
		Timestamp: timestamp,
		Signature: Sign(c.config.ApiSecret, signatureMessage(c.topic, c.config.ApiKey, c.key.Account, chainId, timestamp)),
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("connection closed")
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("failed to send subscription: %w", err)
	}

	zap.L().Info("Sent subscription request",
		zap.String("channel", string(c.topic)),
		zap.String("account", c.key.Account))
	return nil
}

func (c *channelClient) readMessages() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			// Don't log error if we're shutting down
			if c.ctx.Err() == nil {
				zap.L().Error("Error reading message",
					zap.String("channel", string(c.topic)),
					zap.Error(err))
			}
			return
		}

		if err := c.handleMessage(message); err != nil {
			zap.L().Error("Error handling message",
				zap.String("channel", string(c.topic)),
				zap.Error(err))
		}
	}
}

func (c *channelClient) handleMessage(message []byte) error {
	var msg envelope
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	switch msg.Type {
	case "subscriptions":
		zap.L().Info("Subscription confirmed", zap.String("channel", string(c.topic)))
		return nil
	case "error":
		return fmt.Errorf("push channel error: %s", msg.Message)
	}

	if msg.Channel != string(c.topic) {
		return nil
	}

	key := notify.Key{Account: msg.Account, ChainId: c.key.ChainId}
	if msg.ChainId != "" {
		chainId, err := strconv.ParseInt(msg.ChainId, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chain id %q: %w", msg.ChainId, err)
		}
		key.ChainId = chainId
	}
	if key.Account == "" {
		key.Account = c.key.Account
	}

	for _, event := range msg.Events {
		if c.ctx.Err() != nil {
			return nil
		}
		event.Topic = c.topic
		event.Key = key
		c.handler(event)
	}
	return nil
}

type subscribeMessage struct {
	Type      string `json:"type"`
	Channel   string `json:"channel"`
	Account   string `json:"account"`
	ChainId   string `json:"chainId"`
	ApiKey    string `json:"apiKey"`
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
}

type envelope struct {
	Type    string         `json:"type"`
	Message string         `json:"message,omitempty"`
	Channel string         `json:"channel"`
	Account string         `json:"account"`
	ChainId string         `json:"chainId"`
	Events  []notify.Event `json:"events"`
}

func signatureMessage(topic notify.Topic, apiKey, account, chainId, timestamp string) string {
	return string(topic) + apiKey + account + chainId + timestamp
}

// Sign returns the base64 HMAC-SHA256 of message
func Sign(secret, message string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
