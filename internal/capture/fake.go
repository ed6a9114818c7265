package capture

import "sync"

const fakeChunkFrames = 1024

// FakeContext is an in-memory audio backend for tests. Every capture it
// creates replays the same canned PCM.
type FakeContext struct {
	pcm     []byte
	initErr error
}

// NewFakeContext creates a backend whose captures replay pcm (little-endian
// s16 mono).
func NewFakeContext(pcm []byte) *FakeContext {
	return &FakeContext{pcm: pcm}
}

// FailWith makes subsequent NewCapture calls fail with err.
func (f *FakeContext) FailWith(err error) { f.initErr = err }

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake mic"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ Config) (Device, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &FakeDevice{pcm: f.pcm}, nil
}

// FakeDevice replays canned PCM through the registered callback when started.
type FakeDevice struct {
	pcm      []byte
	startErr error

	mu sync.Mutex
	cb DataCallback
}

// FailStartWith makes Start fail with err.
func (d *FakeDevice) FailStartWith(err error) { d.startErr = err }

func (d *FakeDevice) SetCallback(cb DataCallback) {
	d.mu.Lock()
	d.cb = cb
	d.mu.Unlock()
}

func (d *FakeDevice) ClearCallback() {
	d.mu.Lock()
	d.cb = nil
	d.mu.Unlock()
}

// Start feeds the whole canned buffer synchronously, chunk by chunk. Tests
// drive Stop themselves afterwards.
func (d *FakeDevice) Start() error {
	if d.startErr != nil {
		return d.startErr
	}

	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb == nil {
		return nil
	}

	chunkBytes := fakeChunkFrames * 2
	for pos := 0; pos < len(d.pcm); pos += chunkBytes {
		end := min(pos+chunkBytes, len(d.pcm))
		chunk := make([]byte, end-pos)
		copy(chunk, d.pcm[pos:end])
		cb(chunk, uint32(len(chunk)/2))
	}

	return nil
}

func (d *FakeDevice) Stop()  {}
func (d *FakeDevice) Close() {}
