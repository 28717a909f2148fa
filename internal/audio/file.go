package audio

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/mockprep/coach-gateway/internal/capture"
)

// FileDevice replays a recorded WAV file as the captured answer. The terminal
// client selects the file with Use before starting a recording.
type FileDevice struct {
	maxBytes int

	mu   sync.Mutex
	path string
}

func NewFileDevice(maxBytes int) *FileDevice {
	return &FileDevice{maxBytes: maxBytes}
}

// Use selects the file the next capture returns.
func (d *FileDevice) Use(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = path
}

func (d *FileDevice) Acquire(ctx context.Context) (capture.Capture, error) {
	d.mu.Lock()
	path := d.path
	d.path = ""
	d.mu.Unlock()

	if path == "" {
		return nil, fmt.Errorf("%w: no recording selected", capture.ErrPermissionDenied)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", capture.ErrPermissionDenied, err)
	}
	if d.maxBytes > 0 && info.Size() > int64(d.maxBytes) {
		return nil, ErrAudioTooLarge
	}
	return &fileCapture{path: path}, nil
}

type fileCapture struct {
	path string
}

func (c *fileCapture) Start() error { return nil }

func (c *fileCapture) Stop() (capture.Clip, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return capture.Clip{}, fmt.Errorf("read recording: %w", err)
	}
	return DecodeClip(data)
}

func (c *fileCapture) Release() error { return nil }
