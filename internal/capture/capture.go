// Package capture wraps microphone access: device enumeration, PCM capture,
// level metering, encoding negotiation and buffer finalization.
package capture

import "errors"

const (
	// SampleRate is the capture rate in Hz. Speech models are trained on
	// 16 kHz audio; capturing higher only inflates upload size.
	SampleRate = 16000
	// Channels is the capture channel count (mono).
	Channels = 1
	// BitsPerSample is the PCM sample width.
	BitsPerSample = 16

	// MinCaptureBytes is the smallest finalized buffer worth transcribing.
	// Anything below this is too short to contain real speech and is
	// rejected locally instead of wasting a network call.
	MinCaptureBytes = 1600 // 50ms of 16kHz mono s16
)

// ErrPermissionDenied indicates the platform refused microphone access.
var ErrPermissionDenied = errors.New("microphone permission denied")

// ErrDeviceUnavailable indicates no usable capture device exists or the
// device is held by another process.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// ErrNoAudioCaptured indicates the finalized buffer was too small to contain
// speech.
var ErrNoAudioCaptured = errors.New("no audio captured")

// DataCallback receives raw little-endian s16 PCM as it is captured.
type DataCallback func(pcm []byte, frameCount uint32)

// Config describes the PCM stream a capture device must produce.
type Config struct {
	SampleRate uint32
	Channels   uint32
}

// DeviceInfo identifies one capture device.
type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// Context owns the platform audio backend.
type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config Config) (Device, error)
	Close()
}

// Device is one exclusive capture stream.
type Device interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}

// Buffer is a finalized recording tagged with its encoded MIME type.
type Buffer struct {
	Bytes    []byte
	MIMEType string
}
