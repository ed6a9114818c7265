package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Meter receives recording progress while capture is live: a duration tick
// once per second and a loudness level per captured chunk, normalized 0-100.
type Meter interface {
	Tick(seconds float64)
	Level(level float64)
}

// NopMeter discards all metering output.
type NopMeter struct{}

func (NopMeter) Tick(float64)  {}
func (NopMeter) Level(float64) {}

const levelGain = 300 // maps typical speech RMS (~0.05-0.3) onto 0-100

// Recorder owns one recording attempt on a capture device: it buffers PCM
// into the negotiated encoding, meters the live stream, and finalizes into a
// single tagged Buffer.
type Recorder struct {
	device   Device
	encoding Encoding
	meter    Meter

	enc        Encoder
	blockCh    chan []int16
	encodeDone chan struct{}
	tickStop   chan struct{}
	tickDone   chan struct{}

	mu        sync.Mutex
	sampleBuf []int16
	rawBytes  uint64
	stopped   bool
}

// NewRecorder prepares a recorder for the given device and encoding.
func NewRecorder(device Device, encoding Encoding, meter Meter) (*Recorder, error) {
	enc, err := NewEncoder(encoding)
	if err != nil {
		return nil, fmt.Errorf("NewEncoder failed: %w", err)
	}
	if meter == nil {
		meter = NopMeter{}
	}

	return &Recorder{
		device:     device,
		encoding:   encoding,
		meter:      meter,
		enc:        enc,
		blockCh:    make(chan []int16, 64),
		encodeDone: make(chan struct{}),
		tickStop:   make(chan struct{}),
		tickDone:   make(chan struct{}),
	}, nil
}

// Start begins capturing. The device is started before the caller is told
// anything succeeded, so a permission or device failure surfaces here as an
// error rather than as a stuck recording state.
func (r *Recorder) Start() error {
	go func() {
		defer close(r.encodeDone)
		for block := range r.blockCh {
			if err := r.enc.EncodeBlock(block); err != nil {
				log.Error().Err(err).Msg("encode block failed")
			}
		}
	}()

	r.device.SetCallback(r.onData)
	if err := r.device.Start(); err != nil {
		r.device.ClearCallback()
		close(r.blockCh)
		close(r.tickDone)
		return fmt.Errorf("device.Start failed: %w", err)
	}

	start := time.Now()
	go func() {
		defer close(r.tickDone)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-r.tickStop:
				return
			case <-ticker.C:
				r.meter.Tick(time.Since(start).Seconds())
			}
		}
	}()

	return nil
}

func (r *Recorder) onData(pcm []byte, _ uint32) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.rawBytes += uint64(len(pcm))
	for i := 0; i+1 < len(pcm); i += 2 {
		r.sampleBuf = append(r.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	var blocks [][]int16
	for len(r.sampleBuf) >= BlockSize {
		block := make([]int16, BlockSize)
		copy(block, r.sampleBuf[:BlockSize])
		r.sampleBuf = r.sampleBuf[BlockSize:]
		blocks = append(blocks, block)
	}
	r.mu.Unlock()

	for _, block := range blocks {
		r.blockCh <- block
	}

	if len(pcm) > 1 {
		var sumSquares float64
		for i := 0; i+1 < len(pcm); i += 2 {
			sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
			normalized := float64(sample) / 32768.0
			sumSquares += normalized * normalized
		}
		rms := math.Sqrt(sumSquares / float64(len(pcm)/2))
		r.meter.Level(math.Min(100, rms*levelGain))
	}
}

// Stop finalizes the recording and returns the encoded buffer. The device
// stream, callback and ticker are always released, even when finalization
// fails. A buffer below MinCaptureBytes returns ErrNoAudioCaptured.
// Stop is only valid after a successful Start, at most once.
func (r *Recorder) Stop() (Buffer, error) {
	r.device.Stop()
	r.device.ClearCallback()
	close(r.tickStop)
	<-r.tickDone

	r.mu.Lock()
	r.stopped = true
	rawBytes := r.rawBytes
	partial := r.sampleBuf
	r.sampleBuf = nil
	r.mu.Unlock()

	if len(partial) > 0 {
		r.blockCh <- partial
	}
	close(r.blockCh)
	<-r.encodeDone

	if err := r.enc.Close(); err != nil {
		return Buffer{}, fmt.Errorf("encoder close failed: %w", err)
	}

	if rawBytes < MinCaptureBytes {
		return Buffer{}, ErrNoAudioCaptured
	}

	return Buffer{Bytes: r.enc.Bytes(), MIMEType: r.encoding.MIMEType}, nil
}
