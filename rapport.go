package rapport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/rapport/internal/config"
	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/adapters/redis"
	"github.com/aretw0/rapport/pkg/adapters/remote"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/middleware"
	"github.com/aretw0/rapport/pkg/observability"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/aretw0/rapport/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Chat is a chat session wired with its answer client, metrics and optional publisher.
// It embeds the session.Controller, so Ask, Submit, SetInput, Snapshot and
// Subscribe are available directly.
type Chat struct {
	*session.Controller

	config   *config.Config
	logger   *slog.Logger
	client   ports.AnswerClient
	registry *prometheus.Registry
	metrics  *observability.Metrics

	publisher ports.StatePublisher
	redis     *redis.Publisher
	forwarded sync.WaitGroup
	closeOnce sync.Once
}

type options struct {
	config    *config.Config
	baseURL   string
	logger    *slog.Logger
	client    ports.AnswerClient
	hooks     []domain.LifecycleHooks
	sessionID string
	publisher ports.StatePublisher
	redact    []string
}

// Option configures a Chat.
type Option func(*options)

// WithConfig uses cfg instead of config.Default(). Redis publishing is enabled
// when cfg.Redis.Addr is set.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithBaseURL overrides the answer endpoint root.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithLogger configures a logger for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAnswerClient replaces the HTTP answer client.
func WithAnswerClient(client ports.AnswerClient) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithLifecycleHooks registers additional observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks)
	}
}

// WithSessionID sets the session identifier (default: config, then a random UUID).
func WithSessionID(id string) Option {
	return func(o *options) {
		o.sessionID = id
	}
}

// WithPublisher forwards every snapshot to pub. It takes precedence over the Redis configuration.
func WithPublisher(pub ports.StatePublisher) Option {
	return func(o *options) {
		o.publisher = pub
	}
}

// WithRedaction masks text matching the patterns in every published snapshot.
// The session itself keeps the original text.
func WithRedaction(patterns ...string) Option {
	return func(o *options) {
		o.redact = append(o.redact, patterns...)
	}
}

// New creates a Chat in the Idle phase with an empty transcript.
func New(opts ...Option) (*Chat, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.config
	if cfg == nil {
		cfg = config.Default()
	}
	if o.baseURL != "" {
		copied := *cfg
		copied.APIBaseURL = o.baseURL
		cfg = &copied
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	client := o.client
	if client == nil {
		client = remote.New(cfg.APIBaseURL, remote.WithLogger(logger))
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	hooks := append([]domain.LifecycleHooks{metrics.Hooks(), observability.LoggingHooks(logger)}, o.hooks...)

	sessionID := o.sessionID
	if sessionID == "" {
		sessionID = cfg.SessionID
	}

	ctrlOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLifecycleHooks(domain.ComposeHooks(hooks...)),
	}
	if sessionID != "" {
		ctrlOpts = append(ctrlOpts, session.WithSessionID(sessionID))
	}

	c := &Chat{
		Controller: session.NewController(client, ctrlOpts...),
		config:     cfg,
		logger:     logger,
		client:     client,
		registry:   registry,
		metrics:    metrics,
		publisher:  o.publisher,
	}

	if c.publisher == nil && cfg.RedisEnabled() {
		c.redis = redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		c.publisher = c.redis
	}
	if c.publisher != nil {
		if patterns := append(append([]string(nil), cfg.Redis.Redact...), o.redact...); len(patterns) > 0 {
			mw, err := middleware.NewPIIMiddleware(patterns)
			if err != nil {
				c.closeRedis()
				return nil, fmt.Errorf("redaction: %w", err)
			}
			c.publisher = middleware.Chain(c.publisher, mw)
		}

		sub, _ := c.Subscribe()
		c.forwarded.Add(1)
		go func() {
			defer c.forwarded.Done()
			// Ends when Close closes the subscription.
			session.Forward(context.Background(), sub, c.publisher, logger)
		}()
	}

	return c, nil
}

// Config returns the effective configuration.
func (c *Chat) Config() *config.Config {
	return c.config
}

// Metrics returns the exchange collectors of this chat.
func (c *Chat) Metrics() *observability.Metrics {
	return c.metrics
}

// MetricsHandler serves the chat's metrics in the prometheus exposition format.
func (c *Chat) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Close waits for an outstanding exchange, stops publishing and releases the
// Redis connection if the Chat opened one.
func (c *Chat) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.Controller.Close()
		c.forwarded.Wait()

		if c.redis != nil {
			if ferr := c.redis.Forget(context.Background(), c.SessionID()); ferr != nil {
				c.logger.Warn("Failed to forget session snapshot", "err", ferr)
			}
			if cerr := c.closeRedis(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}

func (c *Chat) closeRedis() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}
