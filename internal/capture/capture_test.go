package capture_test

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amoyroud/audiodraft/internal/capture"
)

// sinePCM generates n frames of a 440Hz tone as little-endian s16 mono.
func sinePCM(n int) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		sample := int16(0.3 * 32767 * math.Sin(2*math.Pi*440*float64(i)/capture.SampleRate))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

func TestNegotiatePreferenceOrder(t *testing.T) {
	desktop := capture.PreferredEncodings(false)
	require.NotEmpty(t, desktop)
	assert.Equal(t, capture.EncodingFLAC, desktop[0])

	constrained := capture.PreferredEncodings(true)
	require.NotEmpty(t, constrained)
	assert.Equal(t, capture.EncodingWAV, constrained[0])

	chosen, err := capture.Negotiate([]capture.Encoding{
		{Name: "opus", MIMEType: "audio/ogg"},
		capture.EncodingWAV,
	})
	require.NoError(t, err)
	assert.Equal(t, capture.EncodingWAV, chosen)

	_, err = capture.Negotiate([]capture.Encoding{{Name: "opus", MIMEType: "audio/ogg"}})
	assert.Error(t, err)
}

type meterMock struct {
	mu     sync.Mutex
	ticks  []float64
	levels []float64
}

func (m *meterMock) Tick(s float64) {
	m.mu.Lock()
	m.ticks = append(m.ticks, s)
	m.mu.Unlock()
}

func (m *meterMock) Level(l float64) {
	m.mu.Lock()
	m.levels = append(m.levels, l)
	m.mu.Unlock()
}

func TestRecorderProducesTaggedBuffer(t *testing.T) {
	cases := []struct {
		name     string
		encoding capture.Encoding
		mime     string
	}{
		{name: "wav", encoding: capture.EncodingWAV, mime: "audio/wav"},
		{name: "flac", encoding: capture.EncodingFLAC, mime: "audio/flac"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := capture.NewFakeContext(sinePCM(capture.SampleRate)) // 1s of tone
			dev, err := ctx.NewCapture(nil, capture.Config{SampleRate: capture.SampleRate, Channels: capture.Channels})
			require.NoError(t, err)

			meter := &meterMock{}
			rec, err := capture.NewRecorder(dev, tc.encoding, meter)
			require.NoError(t, err)
			require.NoError(t, rec.Start())

			buf, err := rec.Stop()
			require.NoError(t, err)
			assert.Equal(t, tc.mime, buf.MIMEType)
			assert.NotEmpty(t, buf.Bytes)

			meter.mu.Lock()
			defer meter.mu.Unlock()
			assert.NotEmpty(t, meter.levels, "levels should be reported per chunk")
			for _, l := range meter.levels {
				assert.GreaterOrEqual(t, l, 0.0)
				assert.LessOrEqual(t, l, 100.0)
			}
		})
	}
}

func TestRecorderRejectsTinyBuffer(t *testing.T) {
	// 500 bytes of PCM is below MinCaptureBytes: no buffer may be produced.
	ctx := capture.NewFakeContext(make([]byte, 500))
	dev, err := ctx.NewCapture(nil, capture.Config{SampleRate: capture.SampleRate, Channels: capture.Channels})
	require.NoError(t, err)

	rec, err := capture.NewRecorder(dev, capture.EncodingWAV, nil)
	require.NoError(t, err)
	require.NoError(t, rec.Start())

	_, err = rec.Stop()
	assert.ErrorIs(t, err, capture.ErrNoAudioCaptured)
}

func TestRecorderStartFailureReleasesDevice(t *testing.T) {
	ctx := capture.NewFakeContext(sinePCM(1000))
	dev, err := ctx.NewCapture(nil, capture.Config{SampleRate: capture.SampleRate, Channels: capture.Channels})
	require.NoError(t, err)
	dev.(*capture.FakeDevice).FailStartWith(capture.ErrPermissionDenied)

	rec, err := capture.NewRecorder(dev, capture.EncodingWAV, nil)
	require.NoError(t, err)

	err = rec.Start()
	assert.ErrorIs(t, err, capture.ErrPermissionDenied)
}

func TestWavEncoderHeader(t *testing.T) {
	enc, err := capture.NewEncoder(capture.EncodingWAV)
	require.NoError(t, err)

	samples := make([]int16, capture.BlockSize)
	require.NoError(t, enc.EncodeBlock(samples))
	require.NoError(t, enc.Close())

	data := enc.Bytes()
	require.Greater(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint32(len(data)-44), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, uint32(capture.SampleRate), binary.LittleEndian.Uint32(data[24:28]))
}
