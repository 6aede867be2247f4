/*
 * MailResponder - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

const (
	SystemPrompt   = "You are a helpful email assistant."
	Temperature    = 0.2
	DefaultTimeout = 60 * time.Second
	DefaultBaseURL = "https://api.openai.com/v1"
)

var (
	ErrNoChoices = errors.New("completion returned no choices")
	ErrNoAPIKey  = errors.New("no api key")
)

// Error is returned for every failed completion. StatusCode is zero when
// the request never got an HTTP response.
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion failed (http %v): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Options struct {
	APIKey string
	Model  string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

// Complete sends prompt as the single user turn and returns the trimmed
// text of the first choice. Failures are never retried.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if opts.APIKey == "" {
		return "", &Error{Err: ErrNoAPIKey}
	}

	oaCfg := openai.DefaultConfig(opts.APIKey)
	oaCfg.BaseURL = c.baseURL
	oaCfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(oaCfg)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log.WithFields(log.Fields{
		"model":      opts.Model,
		"prompt_len": len(prompt),
	}).Debug("completion_request")

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: Temperature,
	})
	if err != nil {
		return "", wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &Error{StatusCode: http.StatusOK, Err: ErrNoChoices}
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)

	log.WithFields(log.Fields{
		"model":             resp.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("completion_response")

	return text, nil
}

func wrapError(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	return &Error{Err: err}
}
