// Package http_request provides the 'http_request' action for webhook-style
// notifications from a pipeline, e.g. posting a job report to an external
// collector. Responses with status >= 400 fail the step.
package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/matrixci/internal/ctxlog"
	"github.com/vk/matrixci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the http_request action.
type Input struct {
	URL     string            `mci:"url"`
	Method  string            `mci:"method"`
	Body    string            `mci:"body"`
	Headers map[string]string `mci:"headers"`
}

// Output is the captured response.
type Output struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body,omitempty"`
}

var client = &http.Client{Timeout: 30 * time.Second}

// OnRunHttpRequest is the handler for the 'http_request' action.
func OnRunHttpRequest(ctx context.Context, input *Input) (any, error) {
	logger := ctxlog.FromContext(ctx)

	if input.URL == "" {
		return nil, fmt.Errorf("http_request: url is required")
	}
	method := strings.ToUpper(input.Method)
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, input.URL, strings.NewReader(input.Body))
	if err != nil {
		return nil, fmt.Errorf("http_request: %w", err)
	}
	for k, v := range input.Headers {
		req.Header.Set(k, v)
	}

	logger.Debug("Sending HTTP request.", "method", method, "url", input.URL)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http_request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("http_request: reading response: %w", err)
	}

	result := &Output{StatusCode: resp.StatusCode, Body: string(body)}
	if resp.StatusCode >= 400 {
		return result, fmt.Errorf("http_request: server returned %s", resp.Status)
	}
	return result, nil
}

// Register registers the handler with the action registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("http_request", &registry.RegisteredAction{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunHttpRequest,
	})
}
