// Package messaging carries payment orders, receipts and claim notices over
// NATS.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/okonomi/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

// MsgIDHeader deduplicates redelivered messages on the consumer side.
const MsgIDHeader = "Nats-Msg-Id"

var ErrNotConnected = errors.New("nats_not_connected")

// Publisher sends one JSON message to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

type Config struct {
	URL            string
	Name           string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// Client wraps a NATS connection and tracks its subscriptions.
type Client struct {
	conn *nats.Conn
	log  *zap.Logger

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	log = log.Named("messaging.nats")

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Client{
		conn: conn,
		log:  log,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish marshals data and sends it with correlation and message id
// headers.
func (c *Client) Publish(ctx context.Context, subject string, data any) error {
	if c.conn == nil || c.conn.IsClosed() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set(MsgIDHeader, ulid.Make().String())
	if id := correlation.ExtractCorrelationID(ctx); id != "" {
		msg.Header.Set(correlation.HeaderName, id)
	}
	return c.conn.PublishMsg(msg)
}

// QueueSubscribe registers handler on subject within queue. Registering the
// same pair twice is an error.
func (c *Client) QueueSubscribe(subject, queue string, handler nats.MsgHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := subject + ":" + queue
	if _, exists := c.subs[key]; exists {
		return fmt.Errorf("already subscribed to %s with queue %s", subject, queue)
	}

	sub, err := c.conn.QueueSubscribe(subject, queue, handler)
	if err != nil {
		return fmt.Errorf("queue subscribe %s: %w", subject, err)
	}
	c.subs[key] = sub
	return nil
}

// Drain lets in-flight handlers finish, then closes the connection.
func (c *Client) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.subs {
		delete(c.subs, key)
	}
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Drain()
}

func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// discardPublisher stands in when no NATS URL is configured outside
// production.
type discardPublisher struct {
	log *zap.Logger
}

func (p discardPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.log.Warn("nats disabled, message dropped", zap.String("subject", subject))
	return nil
}
