// Package llm wraps the Anthropic SDK behind a one-method client so the
// extractor and its tests can swap in fakes.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"apptrack/internal/resilience"
)

// Client is the surface the pipeline needs from a language model.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request is a single-turn completion request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int64
}

// Response carries the concatenated text output.
type Response struct {
	Text string
}

type sdkClient struct {
	client  sdk.Client
	model   string
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient builds an SDK-backed client. requestsPerMin bounds the call
// rate so a busy mailbox cannot hammer the API while holding the run lock.
func NewClient(apiKey, model string, requestsPerMin float64, timeout time.Duration) Client {
	if requestsPerMin <= 0 {
		requestsPerMin = 30
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &sdkClient{
		client:  sdk.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(requestsPerMin/60), 1),
		timeout: timeout,
	}
}

func (c *sdkClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Response{}, eris.Wrap(err, "llm: rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, classifyErr(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return Response{Text: b.String()}, nil
}

// classifyErr tags retryable API failures so callers can apply the
// transient-vs-malformed policy.
func classifyErr(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(eris.Wrap(err, "llm: complete"), apiErr.StatusCode)
	}
	if resilience.IsTransient(err) {
		return resilience.NewTransientError(eris.Wrap(err, "llm: complete"), 0)
	}
	return eris.Wrap(err, "llm: complete")
}
