package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pario-ai/typedchat/pkg/budget"
	"github.com/pario-ai/typedchat/pkg/cache"
	"github.com/pario-ai/typedchat/pkg/models"
	"github.com/pario-ai/typedchat/pkg/pricing"
)

// Result is a decoded chat completion and where it came from.
type Result struct {
	// Content is the first choice's message content.
	Content  string
	Response openai.ChatCompletionResponse
	// Usage is what the response reports. For cache hits it describes the
	// original live call, not new spend.
	Usage  models.Usage
	Key    cache.Key
	Source models.CacheSource
}

// Complete resolves req through the memory cache, then the disk mirror, then
// the API. Only successful API responses are cached. An empty req.Model
// selects the client's model.
func (c *Client) Complete(ctx context.Context, req models.ChatRequest) (*Result, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	key := cache.Fingerprint(req)
	log := c.logger.With().Str("key", key.String()).Str("model", req.Model).Logger()

	if body, ok := c.memory.Get(key); ok {
		res, err := decodeCached(body)
		if err == nil {
			log.Debug().Msg("served from memory cache")
			c.countRequest(req.Model, models.SourceMemory, "ok")
			return res.from(key, models.SourceMemory), nil
		}
		c.reportCorrupt(log, models.SourceMemory, err)
	}

	if c.disk != nil {
		if body, ok := c.disk.Get(key); ok {
			res, err := decodeCached(body)
			if err == nil {
				if c.memory.Insert(key, body) {
					c.countEviction()
				}
				log.Debug().Msg("served from disk cache")
				c.countRequest(req.Model, models.SourceDisk, "ok")
				return res.from(key, models.SourceDisk), nil
			}
			c.reportCorrupt(log, models.SourceDisk, err)
		}
	}

	if c.budget != nil {
		err := c.budget.Check(ctx, req.Model)
		switch {
		case errors.Is(err, budget.ErrBudgetExceeded):
			c.countRequest(req.Model, models.SourceRemote, "rejected")
			return nil, err
		case err != nil:
			// An unreadable ledger does not block live calls.
			log.Warn().Err(err).Msg("budget check failed")
			c.countLedgerFailure("read")
		}
	}

	res, err := c.callRemote(ctx, req, key, log)
	if err != nil {
		c.countRequest(req.Model, models.SourceRemote, "error")
		return nil, err
	}
	c.countRequest(req.Model, models.SourceRemote, "ok")
	return res, nil
}

// ChatRaw sends messages with the client's model and sampling settings and
// returns the first choice's content. A nil format leaves the output
// unconstrained.
func (c *Client) ChatRaw(ctx context.Context, messages []models.ChatMessage, format *models.ResponseFormat) (string, error) {
	req := models.ChatRequest{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: format,
		Sampling:       c.sampling,
	}
	res, err := c.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// upstreamResult holds the response from a single API call.
type upstreamResult struct {
	statusCode int
	body       []byte
}

func (c *Client) callRemote(ctx context.Context, req models.ChatRequest, key cache.Key, log zerolog.Logger) (*Result, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	start := time.Now()
	up, err := c.post(ctx, reqBody)
	if c.metrics != nil {
		c.metrics.RemoteDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	resp, err := decodeUpstream(up, reqBody)
	if err != nil && !errors.Is(err, ErrNoChoices) {
		return nil, err
	}

	// The call succeeded and was billed even when it has no choices.
	usage := usageOf(resp.Usage)
	c.addUsage(usage)
	c.countTokens(req.Model, usage)
	c.record(ctx, log, req.Model, key, usage)

	if err != nil {
		return nil, err
	}

	body := string(up.body)
	if c.memory.Insert(key, body) {
		c.countEviction()
	}
	if c.disk != nil {
		if err := c.disk.Put(key, body); err != nil {
			log.Warn().Err(err).Msg("disk cache write failed")
			if c.metrics != nil {
				c.metrics.DiskWriteFailures.Inc()
			}
		}
	}

	log.Debug().Int("total_tokens", usage.TotalTokens).Msg("served from API")
	return &Result{
		Content:  resp.Choices[0].Message.Content,
		Response: resp,
		Usage:    usage,
		Key:      key,
		Source:   models.SourceRemote,
	}, nil
}

// post sends body to the chat-completions endpoint and reads the whole response.
func (c *Client) post(ctx context.Context, body []byte) (*upstreamResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &upstreamResult{
		statusCode: resp.StatusCode,
		body:       respBody,
	}, nil
}

// decodeUpstream classifies an API response. It returns ErrNoChoices together
// with the decoded response when the body is valid but empty.
func decodeUpstream(up *upstreamResult, reqBody []byte) (openai.ChatCompletionResponse, error) {
	if apiErr := parseErrorEnvelope(up.body); apiErr != nil {
		apiErr.StatusCode = up.statusCode
		apiErr.Request = string(reqBody)
		return openai.ChatCompletionResponse{}, apiErr
	}
	if up.statusCode < 200 || up.statusCode > 299 {
		return openai.ChatCompletionResponse{}, &StatusError{StatusCode: up.statusCode, Body: string(up.body)}
	}

	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal(up.body, &resp); err != nil {
		return openai.ChatCompletionResponse{}, &ParseError{Body: string(up.body), Err: err}
	}
	if len(resp.Choices) == 0 {
		return resp, ErrNoChoices
	}
	return resp, nil
}

// parseErrorEnvelope returns the error carried by an {"error": ...} body, or
// nil when body is not an error envelope.
func parseErrorEnvelope(body []byte) *APIError {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	raw := bytes.TrimSpace(env.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return &APIError{Message: msg}
	}
	// Decoded by hand: openai.APIError rejects envelopes without a message.
	var e struct {
		Type    string          `json:"type"`
		Code    any             `json:"code"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return &APIError{Message: string(raw)}
	}
	out := &APIError{Type: e.Type, Code: codeString(e.Code)}
	if err := json.Unmarshal(e.Message, &out.Message); err != nil {
		out.Message = string(raw)
	}
	return out
}

func codeString(code any) string {
	switch v := code.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// decodeCached decodes a body read from a cache layer. Anything that would
// not have been cached by callRemote is reported as corrupt.
func decodeCached(body string) (*Result, error) {
	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	return &Result{
		Content:  resp.Choices[0].Message.Content,
		Response: resp,
		Usage:    usageOf(resp.Usage),
	}, nil
}

func (r *Result) from(key cache.Key, source models.CacheSource) *Result {
	r.Key = key
	r.Source = source
	return r
}

func usageOf(u openai.Usage) models.Usage {
	out := models.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.PromptTokensDetails != nil {
		out.CachedTokens = u.PromptTokensDetails.CachedTokens
	}
	if u.CompletionTokensDetails != nil {
		out.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return out
}

// record writes a live call to the usage ledger. Failures are logged only.
func (c *Client) record(ctx context.Context, log zerolog.Logger, model string, key cache.Key, usage models.Usage) {
	if c.tracker == nil {
		return
	}
	cost, _ := pricing.Cost(model, usage)
	err := c.tracker.Record(ctx, models.UsageRecord{
		RequestID:        uuid.NewString(),
		Model:            model,
		Fingerprint:      key.String(),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		CachedTokens:     usage.CachedTokens,
		TotalTokens:      usage.TotalTokens,
		CostUSD:          cost,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("usage ledger write failed")
		c.countLedgerFailure("write")
	}
}

func (c *Client) reportCorrupt(log zerolog.Logger, source models.CacheSource, err error) {
	log.Debug().Err(err).Str("source", string(source)).Msg("ignoring corrupt cache entry")
	if c.metrics != nil {
		c.metrics.CorruptEntries.WithLabelValues(string(source)).Inc()
	}
}

func (c *Client) countRequest(model string, source models.CacheSource, status string) {
	if c.metrics != nil {
		c.metrics.Requests.WithLabelValues(model, string(source), status).Inc()
	}
}

func (c *Client) countTokens(model string, u models.Usage) {
	if c.metrics == nil {
		return
	}
	c.metrics.Tokens.WithLabelValues(model, "prompt").Add(float64(u.PromptTokens))
	c.metrics.Tokens.WithLabelValues(model, "completion").Add(float64(u.CompletionTokens))
	c.metrics.Tokens.WithLabelValues(model, "cached").Add(float64(u.CachedTokens))
}

func (c *Client) countLedgerFailure(op string) {
	if c.metrics != nil {
		c.metrics.LedgerFailures.WithLabelValues(op).Inc()
	}
}

func (c *Client) countEviction() {
	if c.metrics != nil {
		c.metrics.CacheEvictions.Inc()
	}
}
