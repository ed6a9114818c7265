// Package transcribe turns finalized audio buffers into text and runs the
// trigger-name side channel over the recognized text.
package transcribe

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrUnsupportedFormat indicates the buffer's MIME type is not accepted by
// the speech-to-text provider. Raised locally, before any network call.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrAuthFailure indicates the provider rejected our credentials.
var ErrAuthFailure = errors.New("transcription auth failure")

// supportedMIMETypes is the provider upload allow-list.
var supportedMIMETypes = map[string]bool{
	"audio/flac": true,
	"audio/wav":  true,
	"audio/mpeg": true,
	"audio/webm": true,
	"audio/mp4":  true,
	"audio/ogg":  true,
}

// Supported reports whether the MIME type may be submitted for transcription.
func Supported(mimeType string) bool {
	return supportedMIMETypes[mimeType]
}

// Provider is the external speech-to-text collaborator.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Pipeline validates buffers locally and submits them to a Provider.
type Pipeline struct {
	provider Provider
}

// NewPipeline creates a transcription pipeline over the given provider.
func NewPipeline(provider Provider) *Pipeline {
	return &Pipeline{provider: provider}
}

// Transcribe submits the audio for recognition. Buffers with a MIME type
// outside the allow-list fail fast with ErrUnsupportedFormat and never reach
// the network.
func (p *Pipeline) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if !Supported(mimeType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	text, err := p.provider.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return "", fmt.Errorf("provider.Transcribe failed: %w", err)
	}

	log.Debug().Int("audio_bytes", len(audio)).Str("mime", mimeType).Int("text_len", len(text)).
		Msg("transcription completed")

	return text, nil
}
