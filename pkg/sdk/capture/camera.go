package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/terraconstructs/rollcall/internal/telemetry"
)

// PermissionState tracks camera permission negotiation.
type PermissionState int

const (
	PermissionUnchecked PermissionState = iota
	PermissionRequesting
	PermissionGranted
	PermissionDenied
)

func (s PermissionState) String() string {
	switch s {
	case PermissionUnchecked:
		return "unchecked"
	case PermissionRequesting:
		return "requesting"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

var (
	ErrInsecureContext = errors.New("camera access requires a secure context")
	ErrUnsupported     = errors.New("camera API is not supported")
	ErrNoSource        = errors.New("no active video source")
	ErrEmptyCapture    = errors.New("capture produced no image data")
)

// Track is one media track of a stream.
type Track interface {
	Stop()
}

// Stream is an acquired media stream.
type Stream interface {
	Tracks() []Track
}

// Constraints select what GetUserMedia acquires.
type Constraints struct {
	Video      bool
	Audio      bool
	FacingMode string
}

// MediaDevices is the host's camera API.
type MediaDevices interface {
	// SecureContext reports whether the host runs in a secure context.
	SecureContext() bool
	// Supported reports whether the camera API exists at all.
	Supported() bool
	// GetUserMedia prompts for permission and acquires a stream.
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
}

// VideoSource is a live video element the caller renders.
type VideoSource interface {
	// Screenshot encodes the current frame as a data URL.
	Screenshot(format string, quality float64) (string, error)
}

// PhotoOptions controls photo encoding.
type PhotoOptions struct {
	Format  string
	Quality float64
}

// DefaultPhotoOptions encode JPEG at 0.92, the common browser default.
var DefaultPhotoOptions = PhotoOptions{Format: "image/jpeg", Quality: 0.92}

// Photo is the normalized result of a capture. The caller owns it; the
// camera keeps no reference to captured media.
type Photo struct {
	ID        uuid.UUID
	Success   bool
	Data      []byte
	URI       string
	Format    string
	Width     int
	Height    int
	Timestamp time.Time
	Err       error
}

// Camera negotiates camera permission and captures photos.
type Camera struct {
	devices MediaDevices
	logger  *slog.Logger
	metrics *telemetry.CaptureMetrics

	mu      sync.Mutex
	state   PermissionState
	lastErr error
}

// NewCamera returns a Camera in PermissionUnchecked.
func NewCamera(devices MediaDevices, opts ...Option) *Camera {
	logger, metrics := buildOptions(opts)
	return &Camera{devices: devices, logger: logger, metrics: metrics}
}

// State returns the current permission state.
func (c *Camera) State() PermissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns why the last check failed, if it did.
func (c *Camera) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Camera) set(state PermissionState, err error) {
	c.mu.Lock()
	c.state = state
	c.lastErr = err
	c.mu.Unlock()
}

// CheckAccessible reports whether the camera can be used. It acquires a
// throwaway stream only to trigger the permission prompt and stops every
// track before returning. A grant is remembered; a denial is retried on the
// next call.
//
// If ctx ends before the host answers, CheckAccessible returns false and the
// stream, once it arrives, is released in the background.
func (c *Camera) CheckAccessible(ctx context.Context) bool {
	if c.State() == PermissionGranted {
		return true
	}
	if c.devices == nil || !c.devices.Supported() {
		c.deny(ctx, ErrUnsupported)
		return false
	}
	if !c.devices.SecureContext() {
		c.deny(ctx, ErrInsecureContext)
		return false
	}

	c.set(PermissionRequesting, nil)

	type acquired struct {
		stream Stream
		err    error
	}
	done := make(chan acquired, 1)
	go func() {
		stream, err := c.devices.GetUserMedia(ctx, Constraints{Video: true})
		done <- acquired{stream: stream, err: err}
	}()

	select {
	case res := <-done:
		release(res.stream)
		if res.err != nil {
			c.deny(ctx, fmt.Errorf("camera permission: %w", res.err))
			return false
		}
		c.set(PermissionGranted, nil)
		c.metrics.RecordPermission(ctx, true)
		c.logger.Debug("camera permission granted")
		return true

	case <-ctx.Done():
		go func() {
			res := <-done
			release(res.stream)
		}()
		c.set(PermissionUnchecked, ctx.Err())
		return false
	}
}

func (c *Camera) deny(ctx context.Context, err error) {
	c.set(PermissionDenied, err)
	c.metrics.RecordPermission(ctx, false)
	c.logger.Info("camera not accessible", "error", err)
}

func release(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		if t != nil {
			t.Stop()
		}
	}
}

// CapturePhoto grabs the current frame of src. Failures are reported in the
// returned Photo rather than as an error.
func (c *Camera) CapturePhoto(ctx context.Context, src VideoSource, opts PhotoOptions) Photo {
	if opts.Format == "" {
		opts.Format = DefaultPhotoOptions.Format
	}
	if opts.Quality <= 0 || opts.Quality > 1 {
		opts.Quality = DefaultPhotoOptions.Quality
	}

	photo := Photo{ID: uuid.New(), Format: opts.Format, Timestamp: time.Now()}
	fail := func(err error) Photo {
		photo.Err = err
		c.metrics.RecordCapture(ctx, "photo", false)
		c.logger.Info("photo capture failed", "error", err)
		return photo
	}

	if src == nil {
		return fail(ErrNoSource)
	}
	uri, err := src.Screenshot(opts.Format, opts.Quality)
	if err != nil {
		return fail(fmt.Errorf("screenshot: %w", err))
	}
	if uri == "" {
		return fail(ErrEmptyCapture)
	}

	data, mediaType, err := DecodeDataURL(uri)
	if err != nil {
		return fail(err)
	}
	if len(data) == 0 {
		return fail(ErrEmptyCapture)
	}
	if mediaType != "" {
		photo.Format = mediaType
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		photo.Width, photo.Height = cfg.Width, cfg.Height
	}

	photo.Success = true
	photo.Data = data
	photo.URI = uri
	c.metrics.RecordCapture(ctx, "photo", true)
	return photo
}
