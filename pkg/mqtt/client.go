// Package mqtt 提供 MQTT 客户端封装
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Config MQTT 配置
type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoReconnect  bool
	QoS            byte
}

// MessageHandler 消息处理器
type MessageHandler func(topic string, payload []byte)

// Client MQTT 客户端
type Client struct {
	config   *Config
	client   paho.Client
	handlers map[string]MessageHandler
	mu       sync.RWMutex
	log      *zap.Logger
}

// NewClient 创建 MQTT 客户端
func NewClient(config *Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		config:   config,
		handlers: make(map[string]MessageHandler),
		log:      log.Named("mqtt"),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetCleanSession(true)
	if config.KeepAlive > 0 {
		opts.SetKeepAlive(config.KeepAlive)
	}
	if config.ConnectTimeout > 0 {
		opts.SetConnectTimeout(config.ConnectTimeout)
	}
	opts.SetAutoReconnect(config.AutoReconnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.client = paho.NewClient(opts)
	return c
}

// Connect 连接 MQTT Broker
func (c *Client) Connect(ctx context.Context) error {
	if err := wait(ctx, c.client.Connect()); err != nil {
		return fmt.Errorf("mqtt connect error: %w", err)
	}
	c.log.Info("connected to broker", zap.String("broker", c.config.Broker))
	return nil
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
		c.log.Info("disconnected from broker")
	}
}

// IsConnected 检查是否已连接
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// Subscribe 订阅主题，filter 支持 + 和 # 通配符
func (c *Client) Subscribe(filter string, handler MessageHandler) error {
	c.mu.Lock()
	c.handlers[filter] = handler
	c.mu.Unlock()

	token := c.client.Subscribe(filter, c.config.QoS, c.dispatch)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe error: %w", token.Error())
	}
	c.log.Info("subscribed", zap.String("filter", filter))
	return nil
}

// Unsubscribe 取消订阅
func (c *Client) Unsubscribe(filters ...string) error {
	token := c.client.Unsubscribe(filters...)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt unsubscribe error: %w", token.Error())
	}

	c.mu.Lock()
	for _, f := range filters {
		delete(c.handlers, f)
	}
	c.mu.Unlock()
	return nil
}

// Publish 发布消息，payload 为 []byte、string 或可 JSON 序列化的值
func (c *Client) Publish(ctx context.Context, topic string, payload interface{}, retained bool) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	if err := wait(ctx, c.client.Publish(topic, c.config.QoS, retained, data)); err != nil {
		return fmt.Errorf("mqtt publish error: %w", err)
	}
	return nil
}

// dispatch 将收到的消息分发给匹配的处理器
func (c *Client) dispatch(_ paho.Client, msg paho.Message) {
	c.mu.RLock()
	var matched []MessageHandler
	for filter, h := range c.handlers {
		if MatchTopic(filter, msg.Topic()) {
			matched = append(matched, h)
		}
	}
	c.mu.RUnlock()

	for _, h := range matched {
		h(msg.Topic(), msg.Payload())
	}
}

// onConnect 连接成功回调，重连后重新订阅
func (c *Client) onConnect(client paho.Client) {
	c.mu.RLock()
	filters := make([]string, 0, len(c.handlers))
	for f := range c.handlers {
		filters = append(filters, f)
	}
	c.mu.RUnlock()

	for _, f := range filters {
		if token := client.Subscribe(f, c.config.QoS, c.dispatch); token.Wait() && token.Error() != nil {
			c.log.Warn("resubscribe failed", zap.String("filter", f), zap.Error(token.Error()))
		}
	}
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection lost", zap.Error(err))
}

func (c *Client) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	c.log.Info("reconnecting to broker")
}

// wait 等待 token 完成或 ctx 结束
func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	}
}

func encodePayload(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("mqtt marshal payload error: %w", err)
		}
		return data, nil
	}
}

// MatchTopic 判断主题是否匹配订阅过滤器
func MatchTopic(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, f := range fp {
		if f == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if f != "+" && f != tp[i] {
			return false
		}
	}
	return len(fp) == len(tp)
}
