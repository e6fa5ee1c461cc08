package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/pario-ai/briefbench/pkg/models"
)

// Options configures a Client.
type Options struct {
	// StatusTimeout bounds listing and unload calls.
	StatusTimeout time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client talks to one Ollama server.
type Client struct {
	api           *api.Client
	base          *url.URL
	statusTimeout time.Duration
	logger        *zap.Logger
}

// UnloadReport counts the outcome of UnloadAll.
type UnloadReport struct {
	Attempted int
	Unloaded  int
	Failed    int
	// Err is set when the resident model list could not be read.
	Err error
}

// BaseURL turns a host[:port] into the server's base URL.
// A host that already carries a scheme is used as is.
func BaseURL(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("ollama host is required")
	}
	raw := host
	if !strings.Contains(host, "://") {
		raw = "http://" + host
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse ollama host %q: missing host", host)
	}
	return u, nil
}

// New creates a Client for host (host[:port]).
func New(host string, opts Options) (*Client, error) {
	base, err := BaseURL(host)
	if err != nil {
		return nil, err
	}
	if opts.StatusTimeout <= 0 {
		opts.StatusTimeout = 5 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		api:           api.NewClient(base, opts.HTTPClient),
		base:          base,
		statusTimeout: opts.StatusTimeout,
		logger:        opts.Logger,
	}, nil
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) installed(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	resp, err := c.api.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// CheckReachable verifies the server answers a model listing.
func (c *Client) CheckReachable(ctx context.Context) error {
	if _, err := c.installed(ctx); err != nil {
		return fmt.Errorf("%w at %s: %v", ErrUnreachable, c.base, err)
	}
	return nil
}

// CheckModelAvailable verifies model is installed. A missing model yields a
// *ModelNotFoundError listing what is installed.
func (c *Client) CheckModelAvailable(ctx context.Context, model string) error {
	names, err := c.installed(ctx)
	if err != nil {
		return fmt.Errorf("%w at %s: %v", ErrUnreachable, c.base, err)
	}
	for _, n := range names {
		if n == model {
			return nil
		}
	}
	return &ModelNotFoundError{Model: model, Available: names}
}

// ListResident returns the models currently loaded in memory.
func (c *Client) ListResident(ctx context.Context) ([]models.ModelDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	resp, err := c.api.ListRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resident models: %w", err)
	}
	out := make([]models.ModelDescriptor, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, models.ModelDescriptor{Name: m.Name, Resident: true})
	}
	return out, nil
}

// UnloadAll asks the server to evict every resident model and verifies the
// result. It never fails; problems are logged and counted.
func (c *Client) UnloadAll(ctx context.Context) UnloadReport {
	var report UnloadReport

	resident, err := c.ListResident(ctx)
	if err != nil {
		c.logger.Error("failed to get running models", zap.Error(err))
		report.Err = err
		return report
	}
	if len(resident) == 0 {
		c.logger.Info("no models currently loaded")
		return report
	}

	for _, m := range resident {
		report.Attempted++
		c.logger.Info("unloading model", zap.String("model", m.Name))
		if err := c.unload(ctx, m.Name); err != nil {
			c.logger.Warn("unload request failed", zap.String("model", m.Name), zap.Error(err))
		}
	}

	still, err := c.ListResident(ctx)
	if err != nil {
		c.logger.Warn("could not verify unload", zap.Error(err))
		report.Failed = report.Attempted
		report.Err = err
		return report
	}
	loaded := make(map[string]bool, len(still))
	for _, m := range still {
		loaded[m.Name] = true
	}
	for _, m := range resident {
		if loaded[m.Name] {
			report.Failed++
			c.logger.Warn("model still loaded", zap.String("model", m.Name))
		} else {
			report.Unloaded++
		}
	}

	if report.Failed > 0 {
		c.logger.Warn(fmt.Sprintf("failed to unload %d model(s)", report.Failed))
	} else {
		c.logger.Info("all models unloaded successfully")
	}
	return report
}

func (c *Client) unload(ctx context.Context, model string) error {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:     model,
		Prompt:    "",
		Stream:    &stream,
		KeepAlive: &api.Duration{Duration: 0},
	}
	return c.api.Generate(ctx, req, func(api.GenerateResponse) error { return nil })
}

// Generate runs a single non-streaming completion and returns the raw text.
func (c *Client) Generate(ctx context.Context, model, prompt string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
	}

	var text strings.Builder
	var done bool
	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		done = done || resp.Done
		return nil
	})
	if err != nil {
		var se api.StatusError
		if errors.As(err, &se) {
			return "", fmt.Errorf("%w: server returned %d: %s", ErrGeneration, se.StatusCode, se.ErrorMessage)
		}
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: invalid API response format (empty response field, done=%t)", ErrGeneration, done)
	}
	return text.String(), nil
}
