package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/infrastructure/monitoring"
	"github.com/computeuse/backend/internal/infrastructure/resilience"
)

const (
	apiVersion        = "2023-06-01"
	promptCachingBeta = "prompt-caching-2024-07-31"
	messagesPath      = "/v1/messages"
)

// Config holds client construction options.
type Config struct {
	APIKey            string
	BaseURL           string
	MaxRetries        int
	Timeout           time.Duration
	RequestsPerSecond float64
	PromptCaching     bool
}

// DefaultConfig returns the stock client configuration (API key unset).
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://api.anthropic.com",
		MaxRetries:        3,
		Timeout:           60 * time.Second,
		RequestsPerSecond: 2,
		PromptCaching:     true,
	}
}

// APIError is a structured error returned by the Messages API.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic api error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// errorEnvelope matches the API's error body shape.
type errorEnvelope struct {
	Type  string   `json:"type"`
	Error APIError `json:"error"`
}

// Client talks to the Anthropic Messages API. Transport concerns are
// layered the same way as the outbound HTTP service: retryablehttp under
// resty, a token-bucket limiter in front, and a circuit breaker around the
// whole call so a failing upstream sheds load fast.
type Client struct {
	cfg     Config
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewClient creates a Messages API client. Metrics may be nil.
func NewClient(cfg Config, log *logging.Logger, metrics *monitoring.Metrics) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if log == nil {
		log = logging.NewDefault()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = nil // Disable logging

	restyClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(30 * time.Second).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json")
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	breaker := resilience.New("anthropic", resilience.Settings{
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("model API circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		cfg:     cfg,
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		log:     log,
		metrics: metrics,
	}
}

// Messages sends one request and decodes the response. Rate limiting and
// the circuit breaker both apply; API-level failures come back as *APIError.
func (c *Client) Messages(ctx context.Context, req *Request) (*Response, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	value, err := c.breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, req)
	})
	c.record(req.Model, value, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return value.(*Response), nil
}

func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	var result Response
	var apiErr errorEnvelope

	r := c.resty.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.cfg.APIKey).
		SetBody(req).
		SetResult(&result).
		SetError(&apiErr)
	if c.cfg.PromptCaching {
		r.SetHeader("anthropic-beta", promptCachingBeta)
	}

	resp, err := r.Post(messagesPath)
	if err != nil {
		return nil, fmt.Errorf("messages request failed: %w", err)
	}
	if resp.IsError() {
		e := apiErr.Error
		e.StatusCode = resp.StatusCode()
		if e.Message == "" {
			e.Message = resp.Status()
		}
		return nil, &e
	}

	return &result, nil
}

func (c *Client) record(model string, value interface{}, err error, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordModelRequest(model, status, elapsed)

	if resp, ok := value.(*Response); ok && resp != nil {
		c.metrics.AddModelTokens("input", int64(resp.Usage.InputTokens))
		c.metrics.AddModelTokens("output", int64(resp.Usage.OutputTokens))
		c.metrics.AddModelTokens("cache_read", int64(resp.Usage.CacheReadInputTokens))
		c.metrics.AddModelTokens("cache_write", int64(resp.Usage.CacheCreationInputTokens))
	}
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}
