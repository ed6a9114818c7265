package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	groqTranscriptionURL = "https://api.groq.com/openai/v1/audio/transcriptions"
	groqWhisperModel     = "whisper-large-v3-turbo"
)

var extensionByMIME = map[string]string{
	"audio/flac": "flac",
	"audio/wav":  "wav",
	"audio/mpeg": "mp3",
	"audio/webm": "webm",
	"audio/mp4":  "mp4",
	"audio/ogg":  "ogg",
}

// Groq transcribes audio via Groq's Whisper endpoint.
type Groq struct {
	client   *http.Client
	apiURL   string
	apiKey   string
	language string
}

// NewGroq creates a Groq transcription provider.
func NewGroq(apiKey, language string) *Groq {
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
		apiURL:   groqTranscriptionURL,
		apiKey:   apiKey,
		language: language,
	}
}

// SetBaseURL overrides the endpoint, for tests.
func (g *Groq) SetBaseURL(url string) { g.apiURL = url }

type groqResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio as multipart form data and returns the
// recognized text.
func (g *Groq) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ext, ok := extensionByMIME[mimeType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+ext)
	if err != nil {
		return "", fmt.Errorf("writer.CreateFormFile failed: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("part.Write failed: %w", err)
	}

	_ = writer.WriteField("model", groqWhisperModel)
	_ = writer.WriteField("response_format", "json")
	if g.language != "" {
		_ = writer.WriteField("language", g.language)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("writer.Close failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, &body)
	if err != nil {
		return "", fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("client.Do failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("io.ReadAll failed: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", ErrAuthFailure, resp.StatusCode)
	default:
		return "", fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(raw))
	}

	var gResp groqResponse
	if err := json.Unmarshal(raw, &gResp); err != nil {
		return "", fmt.Errorf("groq response parse error: %w", err)
	}

	return gResp.Text, nil
}
