// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/flurchat/internal/model"
)

// Configuration constants for the chat endpoint.
const (
	// DefaultBaseURL is used when no API base is configured.
	DefaultBaseURL = "http://localhost:3001"

	// DefaultChatPath is the streaming chat route.
	DefaultChatPath = "/api/chat"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 4 * 1024
)

// ErrNoBody is returned when a successful response carries no body.
var ErrNoBody = errors.New("response has no body")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("chat endpoint returned %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("chat endpoint returned %s", e.Status)
}

// Opener starts a streamed chat request. Client implements it.
type Opener interface {
	Open(ctx context.Context, messages []model.APIMessage) (io.ReadCloser, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL  string
	ChatPath string

	// Model is sent only when non-empty.
	Model string

	// HeaderTimeout bounds the wait for response headers. Zero waits
	// indefinitely; the body is never subject to a timeout.
	HeaderTimeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the chat endpoint.
type Client struct {
	url   string
	model string
	http  *http.Client
}

// chatRequest is the outbound request body.
type chatRequest struct {
	Model    string                         `json:"model,omitempty"`
	Messages []openai.ChatCompletionMessage `json:"messages"`
}

// NewClient creates a chat endpoint client.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	path := cfg.ChatPath
	if path == "" {
		path = DefaultChatPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No client timeout: the body streams for as long as the model talks
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: cfg.HeaderTimeout,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		}
	}

	return &Client{
		url:   base + path,
		model: cfg.Model,
		http:  httpClient,
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Open posts messages and returns the streamed response body. The caller
// must close it. Non-2xx responses yield *StatusError and an empty body
// yields ErrNoBody.
func (c *Client) Open(ctx context.Context, messages []model.APIMessage) (io.ReadCloser, error) {
	wire := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		wire[i] = m.OpenAI()
	}

	bodyBytes, err := json.Marshal(chatRequest{Model: c.model, Messages: wire})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoBody
	}
	return resp.Body, nil
}
