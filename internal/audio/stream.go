package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/mockprep/coach-gateway/internal/capture"
)

var (
	ErrStreamDetached = fmt.Errorf("%w: microphone stream is not attached", capture.ErrPermissionDenied)
	ErrDeviceBusy     = errors.New("capture device is already in use")
)

// StreamDevice is a microphone fed by the browser: little-endian PCM16 mono
// frames arrive over the WebSocket and are buffered while a capture runs.
// Frames written outside a running capture are dropped.
type StreamDevice struct {
	sampleRate int
	maxBytes   int

	mu       sync.Mutex
	attached bool
	active   *streamCapture
}

func NewStreamDevice(sampleRate, maxBytes int) *StreamDevice {
	return &StreamDevice{sampleRate: sampleRate, maxBytes: maxBytes}
}

// Attach marks the browser's microphone as granted.
func (d *StreamDevice) Attach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attached = true
}

// Detach marks the microphone as gone. A capture in progress fails on Stop.
func (d *StreamDevice) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attached = false
	if d.active != nil {
		d.active.err = ErrStreamDetached
	}
}

func (d *StreamDevice) Attached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attached
}

func (d *StreamDevice) Acquire(ctx context.Context) (capture.Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached {
		return nil, ErrStreamDetached
	}
	if d.active != nil {
		return nil, ErrDeviceBusy
	}
	d.active = &streamCapture{dev: d}
	return d.active, nil
}

// Write feeds one frame of PCM16 audio. It returns ErrAudioTooLarge once the
// running capture is full; the audio recorded so far is kept.
func (d *StreamDevice) Write(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.active
	if c == nil || !c.running {
		return nil
	}
	if d.maxBytes > 0 && c.size+len(frame) > d.maxBytes {
		c.truncated = true
		return ErrAudioTooLarge
	}
	c.size += len(frame)

	data := frame
	if c.carry != nil {
		data = append([]byte{*c.carry}, frame...)
		c.carry = nil
	}
	n := len(data) / bytesPerFrame * bytesPerFrame
	for i := 0; i < n; i += bytesPerFrame {
		c.samples = append(c.samples, int(int16(binary.LittleEndian.Uint16(data[i:]))))
	}
	if n < len(data) {
		b := data[n]
		c.carry = &b
	}
	return nil
}

type streamCapture struct {
	dev *StreamDevice

	running   bool
	stopped   bool
	released  bool
	truncated bool
	size      int
	samples   []int
	carry     *byte
	err       error
}

func (c *streamCapture) Start() error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.released || c.stopped {
		return errors.New("capture already finished")
	}
	if c.err != nil {
		return c.err
	}
	c.running = true
	return nil
}

func (c *streamCapture) Stop() (capture.Clip, error) {
	c.dev.mu.Lock()
	c.running = false
	c.stopped = true
	samples, err := c.samples, c.err
	c.samples = nil
	rate := c.dev.sampleRate
	c.dev.mu.Unlock()

	if err != nil {
		return capture.Clip{}, err
	}
	data, err := EncodeWAV(samples, rate)
	if err != nil {
		return capture.Clip{}, err
	}
	return capture.Clip{Data: data, Duration: Duration(len(samples), rate)}, nil
}

func (c *streamCapture) Release() error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.released {
		return nil
	}
	c.released = true
	c.running = false
	c.samples = nil
	if c.dev.active == c {
		c.dev.active = nil
	}
	return nil
}
