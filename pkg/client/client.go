package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pario-ai/typedchat/pkg/budget"
	"github.com/pario-ai/typedchat/pkg/cache"
	"github.com/pario-ai/typedchat/pkg/config"
	"github.com/pario-ai/typedchat/pkg/metrics"
	"github.com/pario-ai/typedchat/pkg/models"
	"github.com/pario-ai/typedchat/pkg/tracker"
)

const (
	DefaultBaseURL             = "https://api.openai.com/v1/"
	DefaultChatCompletionsPath = "chat/completions"
	DefaultConcurrency         = 4
	DefaultTimeout             = 120 * time.Second
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	APIKey string
	Model  string

	BaseURL             string
	ChatCompletionsPath string

	// CacheCapacity bounds the in-memory cache.
	CacheCapacity int
	// CacheDirectory enables the disk mirror when non-empty.
	CacheDirectory string

	// Sampling is applied to every request built by the client.
	Sampling models.Sampling

	// Concurrency bounds the number of in-flight requests in ChatAll.
	Concurrency int
	// Timeout applies to the default HTTP client only.
	Timeout    time.Duration
	HTTPClient *http.Client

	// Logger receives debug and warn events. Nil disables logging.
	Logger *zerolog.Logger
	// Tracker, when set, records every live call in the usage ledger.
	Tracker tracker.Tracker
	// Budget, when set, refuses live calls once a policy is used up. Cache
	// hits are always served.
	Budget  *budget.Enforcer
	Metrics *metrics.Metrics
}

// Client sends chat-completion requests through a memory and disk cache.
// It is safe for concurrent use.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	sampling    models.Sampling
	concurrency int
	http        *http.Client

	memory *cache.Memory
	disk   *cache.Disk

	logger  zerolog.Logger
	tracker tracker.Tracker
	budget  *budget.Enforcer
	metrics *metrics.Metrics

	mu    sync.Mutex
	usage models.Usage
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, config.ErrMissingAPIKey
	}
	if opts.Model == "" {
		return nil, errors.New("model is required")
	}

	endpoint, err := joinEndpoint(
		withDefault(opts.BaseURL, DefaultBaseURL),
		withDefault(opts.ChatCompletionsPath, DefaultChatCompletionsPath),
	)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "typedchat").Logger()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	c := &Client{
		apiKey:      opts.APIKey,
		model:       opts.Model,
		endpoint:    endpoint,
		sampling:    opts.Sampling,
		concurrency: concurrency,
		http:        httpClient,
		memory:      cache.NewMemory(opts.CacheCapacity),
		logger:      logger,
		tracker:     opts.Tracker,
		budget:      opts.Budget,
		metrics:     opts.Metrics,
	}
	if opts.CacheDirectory != "" {
		c.disk = cache.NewDisk(opts.CacheDirectory, logger)
	}
	return c, nil
}

// FromEnv creates a Client for model with the API key taken from
// OPENAI_API_KEY or a .env file.
func FromEnv(model string) (*Client, error) {
	key, err := config.APIKeyFromEnv()
	if err != nil {
		return nil, err
	}
	return New(Options{APIKey: key, Model: model})
}

// FromConfig builds Options from cfg. Logger, Tracker and Metrics can be
// filled in on the returned Options before calling New.
func FromConfig(cfg *config.Config) (Options, error) {
	key, err := cfg.ResolveAPIKey()
	if err != nil {
		return Options{}, err
	}
	return Options{
		APIKey:              key,
		Model:               cfg.Model,
		BaseURL:             cfg.BaseURL,
		ChatCompletionsPath: cfg.ChatCompletionsPath,
		CacheCapacity:       cfg.Cache.Capacity,
		CacheDirectory:      cfg.Cache.Directory,
		Sampling:            cfg.Sampling,
		Concurrency:         cfg.Concurrency,
		Timeout:             cfg.Timeout,
	}, nil
}

// Model returns the default model.
func (c *Client) Model() string { return c.model }

// Endpoint returns the chat-completions URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Usage returns token usage summed over live API responses. Cache hits
// never change it.
func (c *Client) Usage() models.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// CacheStats reports the in-memory cache counters.
func (c *Client) CacheStats() models.CacheStats {
	return c.memory.Stats()
}

// DiskCache returns the disk mirror, or nil when it is disabled.
func (c *Client) DiskCache() *cache.Disk { return c.disk }

func (c *Client) addUsage(u models.Usage) {
	c.mu.Lock()
	c.usage = c.usage.Add(u)
	c.mu.Unlock()
}

func joinEndpoint(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: scheme and host are required", base)
	}
	return strings.TrimSuffix(u.JoinPath(path).String(), "/"), nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
