// Package ai answers member questions about the project over an
// OpenAI-compatible chat completions API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "paladin-guard-backend/internal/common/errors"
)

const systemPromptTemplate = "You are a helpful assistant for a crypto project community. " +
	"Answer questions using only the project information below. " +
	"If the answer is not covered, say you don't know.\n\nProject information:\n%s"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// Answer asks the model the user's question grounded on the group's
// training data. marketSummary, when non-empty, is appended so the
// model can answer price questions with live numbers.
func (c *Client) Answer(ctx context.Context, trainingData, marketSummary, question string) (string, error) {
	knowledge := trainingData
	if marketSummary != "" {
		knowledge += "\n\nCurrent market data:\n" + marketSummary
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPromptTemplate, knowledge)},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeExternalAPI, "ai request marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeExternalAPI, "ai request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeExternalAPI, "ai request")
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeExternalAPI, "ai response decode")
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("ai API returned status %d", resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", apperrors.New(apperrors.ErrCodeExternalAPI, msg)
	}
	if len(out.Choices) == 0 {
		return "", apperrors.New(apperrors.ErrCodeExternalAPI, "ai API returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
