package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/traderagent/internal/logger"
)

const (
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultModel         = "gpt-4o"
	DefaultFallbackModel = "gpt-4"

	defaultTimeout = 60 * time.Second
	defaultRetries = 2
	maxBackoff     = 8 * time.Second
)

// Config configures an OpenAI compatible chat completions client.
type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	FallbackModel string
	Timeout       time.Duration
	// MaxRetries bounds retries on 429 and 5xx. Zero means the default of
	// two; negative disables retries.
	MaxRetries int
	// RequestsPerMinute caps outgoing requests. Zero means unlimited.
	RequestsPerMinute float64
}

// APIError is a non-2xx reply from the completions endpoint.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("status=%d code=%s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("status=%d: %s", e.Status, e.Message)
}

func (e *APIError) retryable() bool {
	switch e.Status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// modelUnavailable reports whether err says the requested model cannot be
// used, in which case the fallback model is tried. Rate limits and server
// errors never count, even when their message names the model.
func modelUnavailable(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) || ae.retryable() {
		return false
	}
	switch {
	case ae.Code == "model_not_found", ae.Status == http.StatusNotFound:
		return true
	case ae.Status == http.StatusBadRequest:
		return strings.Contains(strings.ToLower(ae.Message), "model")
	}
	return false
}

// OpenAI asks a chat completions endpoint for a decision.
type OpenAI struct {
	cfg     Config
	url     string
	http    *http.Client
	limiter *rate.Limiter
	backoff time.Duration
}

var _ Oracle = (*OpenAI)(nil)

func NewOpenAI(cfg Config) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimSuffix(base, "/chat/completions")

	o := &OpenAI{
		cfg:     cfg,
		url:     base + "/chat/completions",
		http:    &http.Client{Timeout: cfg.Timeout},
		backoff: 800 * time.Millisecond,
	}
	if cfg.RequestsPerMinute > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	}
	return o, nil
}

// Decide builds the prompt for req and returns the model's reply, trimmed.
// If the primary model is unavailable the fallback model is asked once.
func (o *OpenAI) Decide(ctx context.Context, req Request) (string, error) {
	prompt := BuildPrompt(req)
	logger.Debugf("oracle: prompt for %s", o.cfg.Model)
	logger.DebugBlock(prompt)

	out, err := o.Complete(ctx, o.cfg.Model, prompt)
	if err != nil && o.cfg.FallbackModel != "" && o.cfg.FallbackModel != o.cfg.Model && modelUnavailable(err) {
		logger.Warnf("oracle: model %s unavailable (%v), falling back to %s", o.cfg.Model, err, o.cfg.FallbackModel)
		out, err = o.Complete(ctx, o.cfg.FallbackModel, prompt)
	}
	if err != nil {
		return "", err
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Complete sends a single user message to model and returns the content of
// the first choice.
func (o *OpenAI) Complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		content, wait, err := o.post(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err

		var ae *APIError
		if !errors.As(err, &ae) || !ae.retryable() || attempt == o.cfg.MaxRetries {
			break
		}
		if wait <= 0 {
			wait = min(o.backoff<<attempt, maxBackoff)
		}
		logger.Debugf("oracle: %v, retrying in %s", err, wait)
		if err := sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// post performs one request. On a non-2xx reply it also returns the wait
// requested by Retry-After.
func (o *OpenAI) post(ctx context.Context, body []byte) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("oracle read: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(gjson.GetBytes(raw, "error.message").String())
		if msg == "" {
			msg = resp.Status
		}
		var wait time.Duration
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, perr := strconv.Atoi(ra); perr == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		return "", wait, &APIError{
			Status:  resp.StatusCode,
			Message: msg,
			Code:    gjson.GetBytes(raw, "error.code").String(),
		}
	}

	if !gjson.ValidBytes(raw) {
		return "", 0, fmt.Errorf("oracle: invalid JSON response")
	}
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return "", 0, fmt.Errorf("oracle: response has no choices")
	}
	return content.String(), 0, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
