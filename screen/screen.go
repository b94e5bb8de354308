// Package screen provides screenshot capture.
//
// A Capturer produces an encodable image of one display, optionally resized
// to a target resolution, plus a reference the image can be found under.
// Capture calls are issued sequentially; implementations need not be safe
// for concurrent use.
package screen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // decoder registration
	"image/png"

	"golang.org/x/image/draw"

	"github.com/richinex/vlmpilot/model"
)

// ErrNoDisplay is returned when the requested display index does not exist.
var ErrNoDisplay = errors.New("no such display")

// Request selects a display and an optional target resolution.
type Request struct {
	Display int
	Resize  bool
	Width   int
	Height  int
}

// Shot is one captured screenshot.
type Shot struct {
	Image  model.Image
	Width  int
	Height int
}

// Capturer takes screenshots.
type Capturer interface {
	Capture(ctx context.Context, req Request) (Shot, error)
}

// Saver persists image bytes and returns a stable reference.
type Saver interface {
	Put(ctx context.Context, mediaType string, data []byte) (string, error)
}

// StoringCapturer saves every shot and replaces its reference with the
// saver's reference.
type StoringCapturer struct {
	Capturer
	Saver Saver
}

// NewStoringCapturer wraps c so that every shot is written to s.
func NewStoringCapturer(c Capturer, s Saver) *StoringCapturer {
	return &StoringCapturer{Capturer: c, Saver: s}
}

func (c *StoringCapturer) Capture(ctx context.Context, req Request) (Shot, error) {
	shot, err := c.Capturer.Capture(ctx, req)
	if err != nil {
		return Shot{}, err
	}
	ref, err := c.Saver.Put(ctx, shot.Image.MediaType, shot.Image.Data)
	if err != nil {
		return Shot{}, fmt.Errorf("failed to store screenshot: %w", err)
	}
	shot.Image.Ref = ref
	return shot, nil
}

// Finish applies req's resize to an encoded image and returns the shot.
// Images are re-encoded as PNG only when resized.
func Finish(data []byte, mediaType, ref string, req Request) (Shot, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Shot{}, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	shot := Shot{
		Image:  model.Image{MediaType: mediaType, Data: data, Ref: ref},
		Width:  cfg.Width,
		Height: cfg.Height,
	}
	if !req.Resize || (cfg.Width == req.Width && cfg.Height == req.Height) {
		return shot, nil
	}

	resized, err := Resize(data, req.Width, req.Height)
	if err != nil {
		return Shot{}, err
	}
	shot.Image.Data = resized
	shot.Image.MediaType = "image/png"
	shot.Width, shot.Height = req.Width, req.Height
	return shot, nil
}

// Resize scales an encoded PNG or JPEG image to width x height and returns
// it PNG-encoded.
func Resize(data []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
