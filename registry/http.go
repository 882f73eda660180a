package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit breaker. Zero disables tripping.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// HTTPClient talks to the Qiita REST API.
type HTTPClient struct {
	base    *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var errNotFound = errors.New("not found")

// NewHTTPClient builds a client for the registry at cfg.BaseURL.
func NewHTTPClient(cfg HTTPConfig, logger *slog.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("registry base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("registry base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &HTTPClient{
		base:    base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "registry",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.FailureThreshold > 0 && counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// ListSamples implements Client.
func (c *HTTPClient) ListSamples(ctx context.Context, projectID string) ([]string, error) {
	var samples []string
	if err := c.get(ctx, fmt.Sprintf("/api/v1/study/%s/samples", url.PathEscape(projectID)), &samples); err != nil {
		return nil, Unavailable("list samples", projectID, err)
	}
	return samples, nil
}

// GetMetadataCategories implements Client.
func (c *HTTPClient) GetMetadataCategories(ctx context.Context, projectID string) (*CategoryInfo, error) {
	var info CategoryInfo
	if err := c.get(ctx, fmt.Sprintf("/api/v1/study/%s/samples/info", url.PathEscape(projectID)), &info); err != nil {
		return nil, Unavailable("metadata categories", projectID, err)
	}
	return &info, nil
}

// GetAliasCategory implements Client. A 404 means the category is absent.
func (c *HTTPClient) GetAliasCategory(ctx context.Context, projectID, category string) (*AliasCategory, error) {
	var table AliasCategory
	path := fmt.Sprintf("/api/v1/study/%s/samples/categories=%s", url.PathEscape(projectID), url.PathEscape(category))
	err := c.get(ctx, path, &table)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Unavailable("alias category", projectID, err)
	}
	return &table, nil
}

// UpdateJobStep implements JobStatusUpdater.
func (c *HTTPClient) UpdateJobStep(ctx context.Context, jobID, msg string) error {
	body, err := json.Marshal(map[string]string{"step": msg})
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/qiita_db/jobs/%s/step/", url.PathEscape(jobID))
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s %s: %w", method, path, errNotFound)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
		}
		if out == nil {
			return nil, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("%s %s: decoding response: %w", method, path, err)
		}
		return nil, nil
	})
	c.logger.Debug("registry request", "method", method, "path", path, "error", err)
	return err
}
