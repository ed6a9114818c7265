package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	groqChatURL   = "https://api.groq.com/openai/v1/chat/completions"
	groqChatModel = "llama-3.3-70b-versatile"

	systemPrompt = "You turn dictated notes into polished, concise email replies. " +
		"Return only the email body, no subject line, no commentary."
)

// Groq generates text via Groq's OpenAI-compatible chat completions endpoint.
type Groq struct {
	client *http.Client
	apiURL string
	apiKey string
}

// NewGroqChat creates a Groq text-generation provider.
func NewGroqChat(apiKey string) *Groq {
	return &Groq{
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		apiURL: groqChatURL,
		apiKey: apiKey,
	}
}

// SetBaseURL overrides the endpoint, for tests.
func (g *Groq) SetBaseURL(url string) { g.apiURL = url }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete submits the prompt and returns the generated text.
func (g *Groq) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: groqChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("json.Marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("client.Do failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("io.ReadAll failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(raw))
	}

	var cResp chatResponse
	if err := json.Unmarshal(raw, &cResp); err != nil {
		return "", fmt.Errorf("groq response parse error: %w", err)
	}
	if len(cResp.Choices) == 0 {
		return "", fmt.Errorf("groq response contained no choices")
	}

	return cResp.Choices[0].Message.Content, nil
}
