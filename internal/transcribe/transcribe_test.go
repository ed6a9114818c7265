package transcribe_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amoyroud/audiodraft/internal/addressing"
	"github.com/amoyroud/audiodraft/internal/transcribe"
)

type providerMock struct {
	TranscribeFunc func(ctx context.Context, audio []byte, mimeType string) (string, error)
	calls          atomic.Int32
}

func (m *providerMock) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	m.calls.Add(1)
	return m.TranscribeFunc(ctx, audio, mimeType)
}

func TestPipelineMIMEAllowList(t *testing.T) {
	cases := []struct {
		mime      string
		supported bool
	}{
		{mime: "audio/flac", supported: true},
		{mime: "audio/wav", supported: true},
		{mime: "audio/mpeg", supported: true},
		{mime: "audio/webm", supported: true},
		{mime: "audio/mp4", supported: true},
		{mime: "audio/ogg", supported: true},
		{mime: "audio/x-aiff", supported: false},
		{mime: "text/plain", supported: false},
		{mime: "", supported: false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q", tc.mime), func(t *testing.T) {
			provider := &providerMock{
				TranscribeFunc: func(context.Context, []byte, string) (string, error) {
					return "hello", nil
				},
			}
			pipeline := transcribe.NewPipeline(provider)

			text, err := pipeline.Transcribe(context.Background(), []byte("audio"), tc.mime)
			if tc.supported {
				require.NoError(t, err)
				assert.Equal(t, "hello", text)
				assert.Equal(t, int32(1), provider.calls.Load())
			} else {
				assert.ErrorIs(t, err, transcribe.ErrUnsupportedFormat)
				assert.Zero(t, provider.calls.Load(), "unsupported type must not reach the provider")
			}
		})
	}
}

func TestGroqTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-large-v3-turbo", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		switch r.Header.Get("Authorization") {
		case "Bearer good-key":
			_, _ = w.Write([]byte(`{"text":"please cc maria on this"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	good := transcribe.NewGroq("good-key", "en")
	good.SetBaseURL(srv.URL)
	text, err := good.Transcribe(context.Background(), []byte("fake-flac"), "audio/flac")
	require.NoError(t, err)
	assert.Equal(t, "please cc maria on this", text)

	bad := transcribe.NewGroq("bad-key", "en")
	bad.SetBaseURL(srv.URL)
	_, err = bad.Transcribe(context.Background(), []byte("fake-flac"), "audio/flac")
	assert.ErrorIs(t, err, transcribe.ErrAuthFailure)
}

func TestScanTrigger(t *testing.T) {
	cases := []struct {
		name       string
		transcript string
		trigger    string
		email      string
		added      bool
	}{
		{name: "exact", transcript: "please cc Maria on this", trigger: "Maria", email: "maria@x.com", added: true},
		{name: "case insensitive", transcript: "PLEASE CC MARIA ON THIS", trigger: "maria", email: "maria@x.com", added: true},
		{name: "no match", transcript: "no one mentioned", trigger: "Maria", email: "maria@x.com", added: false},
		{name: "empty trigger skipped", transcript: "anything", trigger: "", email: "maria@x.com", added: false},
		{name: "empty email skipped", transcript: "maria", trigger: "Maria", email: "", added: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			book := addressing.NewBook()
			got := transcribe.ScanTrigger(tc.transcript, tc.trigger, tc.email, book)
			assert.Equal(t, tc.added, got)
			if tc.added {
				require.Len(t, book.List(), 1)
				assert.Equal(t, tc.email, book.List()[0].Email)
			} else {
				assert.Empty(t, book.List())
			}
		})
	}
}

func TestScanTriggerIdempotent(t *testing.T) {
	book := addressing.NewBook()

	require.True(t, transcribe.ScanTrigger("cc maria please", "Maria", "maria@x.com", book))
	assert.False(t, transcribe.ScanTrigger("cc maria again", "Maria", "MARIA@X.COM", book))
	assert.Len(t, book.List(), 1)
}
