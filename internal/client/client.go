// Package client calls a remote quantkit server.
package client

import (
	"context"
	"fmt"
	"time"

	"quantkit/internal/common"
	"quantkit/internal/service"

	"github.com/go-resty/resty/v2"
)

// Client is a thin REST client for the /v1 API.
type Client struct {
	base string
	rest *resty.Client
}

// New creates a client for the server at base.
func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetHeader("Content-Type", "application/json")
	return &Client{base: base, rest: r}
}

// RemoteError is a failure reported by the server. It unwraps to the
// sentinel matching its kind, so errors.Is works across the wire.
type RemoteError struct {
	Status  int
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("quantkit server: %d %s", e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	switch e.Kind {
	case "validation":
		return common.ErrValidation
	case "degenerate_input":
		return common.ErrDegenerateInput
	case "unsupported_method":
		return common.ErrUnsupportedMethod
	}
	return nil
}

func (c *Client) Probabilities(ctx context.Context, req service.ProbabilitiesRequest) (service.ProbabilitiesResponse, error) {
	var resp service.ProbabilitiesResponse
	return resp, c.post(ctx, "/v1/probabilities", req, &resp)
}

func (c *Client) Scale(ctx context.Context, req service.ScaleRequest) (service.ScaleResponse, error) {
	var resp service.ScaleResponse
	return resp, c.post(ctx, "/v1/scale", req, &resp)
}

func (c *Client) Select(ctx context.Context, req service.SelectRequest) (service.SelectResponse, error) {
	var resp service.SelectResponse
	return resp, c.post(ctx, "/v1/select", req, &resp)
}

func (c *Client) Sample(ctx context.Context, req service.SampleRequest) (service.SampleResponse, error) {
	var resp service.SampleResponse
	return resp, c.post(ctx, "/v1/sample", req, &resp)
}

func (c *Client) Confusion(ctx context.Context, req service.ConfusionRequest) (service.ConfusionResponse, error) {
	var resp service.ConfusionResponse
	return resp, c.post(ctx, "/v1/confusion", req, &resp)
}

// Health returns the server status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp service.HealthResponse
	res, err := c.rest.R().
		SetContext(ctx).
		SetResult(&resp).
		Get(c.base + "/health")
	if err != nil {
		return "", fmt.Errorf("health check: %w", err)
	}
	if res.IsError() {
		return "", &RemoteError{Status: res.StatusCode(), Kind: "internal", Message: res.Status()}
	}
	return resp.Status, nil
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	apiErr := &service.ErrorResponse{}
	res, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(apiErr).
		Post(c.base + path)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	if res.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = res.Status()
		}
		return &RemoteError{Status: res.StatusCode(), Kind: apiErr.Kind, Message: msg}
	}
	return nil
}
