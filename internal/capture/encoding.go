package capture

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// BlockSize is the number of samples encoded per block.
const BlockSize = 4096

// Encoding names a supported on-wire audio format.
type Encoding struct {
	Name     string
	MIMEType string
}

var (
	// EncodingFLAC compresses roughly 2:1 at speech sample rates.
	EncodingFLAC = Encoding{Name: "flac", MIMEType: "audio/flac"}
	// EncodingWAV is uncompressed PCM with a RIFF header. Universally
	// supported and free to produce, at the cost of upload size.
	EncodingWAV = Encoding{Name: "wav", MIMEType: "audio/wav"}
)

// PreferredEncodings returns the candidate order to probe. Constrained
// devices put WAV first: skipping the FLAC encode keeps capture cheap where
// CPU is scarce, and WAV is accepted everywhere.
func PreferredEncodings(constrained bool) []Encoding {
	if constrained {
		return []Encoding{EncodingWAV, EncodingFLAC}
	}
	return []Encoding{EncodingFLAC, EncodingWAV}
}

// Negotiate returns the first candidate this build can encode.
func Negotiate(candidates []Encoding) (Encoding, error) {
	for _, c := range candidates {
		switch c.Name {
		case EncodingFLAC.Name, EncodingWAV.Name:
			return c, nil
		}
	}
	return Encoding{}, fmt.Errorf("no supported encoding among %d candidates", len(candidates))
}

// Encoder accumulates PCM blocks into an encoded byte stream.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

// NewEncoder creates an encoder for the negotiated encoding.
func NewEncoder(enc Encoding) (Encoder, error) {
	switch enc.Name {
	case EncodingFLAC.Name:
		return newFlacEncoder()
	case EncodingWAV.Name:
		return newWavEncoder(), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", enc.Name)
	}
}

type flacEncoder struct {
	buf         bytes.Buffer
	enc         *flac.Encoder
	totalFrames uint64
}

func newFlacEncoder() (*flacEncoder, error) {
	e := &flacEncoder{}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
		NSamples:      0,
	}
	enc, err := flac.NewEncoder(&e.buf, info)
	if err != nil {
		return nil, fmt.Errorf("flac.NewEncoder failed: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	e.enc = enc
	return e, nil
}

func (e *flacEncoder) EncodeBlock(block []int16) error {
	samples32 := make([]int32, len(block))
	for i, s := range block {
		samples32[i] = int32(s)
	}

	subframe := &frame.Subframe{
		SubHeader: frame.SubHeader{
			Pred: frame.PredVerbatim,
		},
		Samples:  samples32,
		NSamples: len(block),
	}

	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{subframe},
	}

	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("enc.WriteFrame failed: %w", err)
	}
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *flacEncoder) Close() error        { return e.enc.Close() }
func (e *flacEncoder) Bytes() []byte       { return e.buf.Bytes() }
func (e *flacEncoder) TotalFrames() uint64 { return e.totalFrames }

const wavHeaderSize = 44

type wavEncoder struct {
	buf         bytes.Buffer
	totalFrames uint64
}

func newWavEncoder() *wavEncoder {
	e := &wavEncoder{}
	// Header sizes are patched in Close once the data length is known.
	e.buf.Write(make([]byte, wavHeaderSize))
	return e
}

func (e *wavEncoder) EncodeBlock(block []int16) error {
	raw := make([]byte, len(block)*2)
	for i, s := range block {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	e.buf.Write(raw)
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *wavEncoder) Close() error {
	data := e.buf.Bytes()
	dataLen := uint32(len(data) - wavHeaderSize)

	copy(data[0:4], "RIFF")
	binary.LittleEndian.PutUint32(data[4:8], 36+dataLen)
	copy(data[8:12], "WAVE")
	copy(data[12:16], "fmt ")
	binary.LittleEndian.PutUint32(data[16:20], 16)
	binary.LittleEndian.PutUint16(data[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(data[22:24], Channels)
	binary.LittleEndian.PutUint32(data[24:28], SampleRate)
	binary.LittleEndian.PutUint32(data[28:32], SampleRate*Channels*BitsPerSample/8)
	binary.LittleEndian.PutUint16(data[32:34], Channels*BitsPerSample/8)
	binary.LittleEndian.PutUint16(data[34:36], BitsPerSample)
	copy(data[36:40], "data")
	binary.LittleEndian.PutUint32(data[40:44], dataLen)

	return nil
}

func (e *wavEncoder) Bytes() []byte       { return e.buf.Bytes() }
func (e *wavEncoder) TotalFrames() uint64 { return e.totalFrames }
