package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/resilience"
)

const userAgent = "devicesession-bridge/1.0"

// Config configures the agent client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Breaker      resilience.Settings
}

// DefaultConfig returns client defaults for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      10 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
		Breaker: resilience.Settings{
			FailureThreshold: 5,
			CoolDown:         10 * time.Second,
		},
	}
}

// AgentError is a non-2xx agent reply.
type AgentError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *AgentError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("agent returned %d", e.Status)
	}
	return fmt.Sprintf("agent returned %d: %s", e.Status, e.Message)
}

// Unwrap maps 404 to device.ErrNotFound.
func (e *AgentError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return device.ErrNotFound
	}
	return nil
}

// client wraps two resty clients sharing one breaker: probes retry, commands
// do not.
type client struct {
	probes   *resty.Client
	commands *resty.Client
	breaker  *resilience.Breaker
}

func newClient(name string, cfg Config) *client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = cfg.RetryMax
	retry.RetryWaitMin = cfg.RetryWaitMin
	retry.RetryWaitMax = cfg.RetryWaitMax
	retry.Logger = nil

	settings := cfg.Breaker
	if settings.IsFailure == nil {
		settings.IsFailure = isAgentFailure
	}

	return &client{
		probes:   configure(resty.NewWithClient(retry.StandardClient()), cfg),
		commands: configure(resty.New(), cfg),
		breaker:  resilience.New(name, settings),
	}
}

func configure(c *resty.Client, cfg Config) *resty.Client {
	return c.
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
}

// isAgentFailure counts transport errors and 5xx replies; 4xx replies mean
// the agent is healthy.
func isAgentFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Status >= http.StatusInternalServerError
	}
	return true
}

// do sends one request through the breaker and decodes the JSON reply into
// out. Bodies are decoded whatever Content-Type the agent sends.
func (c *client) do(ctx context.Context, rc *resty.Client, method, path string, body, out interface{}, query map[string][]string) error {
	return c.breaker.Do(ctx, func(ctx context.Context) error {
		req := rc.R().SetContext(ctx)
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}
		for k, vs := range query {
			for _, v := range vs {
				req.QueryParam.Add(k, v)
			}
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.IsError() {
			agentErr := &AgentError{Status: resp.StatusCode()}
			if raw := resp.Body(); len(raw) > 0 {
				_ = sonic.Unmarshal(raw, agentErr)
			}
			return fmt.Errorf("%s %s: %w", method, path, agentErr)
		}
		if out != nil {
			if err := sonic.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("%s %s: decode reply: %w", method, path, err)
			}
		}
		return nil
	})
}

func (c *client) probe(ctx context.Context, path string, out interface{}, query map[string][]string) error {
	return c.do(ctx, c.probes, http.MethodGet, path, nil, out, query)
}

func (c *client) command(ctx context.Context, method, path string, body interface{}) error {
	return c.do(ctx, c.commands, method, path, body, nil, nil)
}
