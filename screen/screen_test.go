package screen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func framesDir(t *testing.T) string {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "001.png"), 64, 36, color.White)
	writePNG(t, filepath.Join(dir, "002.png"), 64, 36, color.Black)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	return dir
}

func TestFileCapturerReplaysFramesInOrder(t *testing.T) {
	c, err := NewFileCapturer(framesDir(t))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Frames())

	ctx := context.Background()
	var refs []string
	for i := 0; i < 3; i++ {
		shot, err := c.Capture(ctx, Request{})
		require.NoError(t, err)
		refs = append(refs, filepath.Base(shot.Image.Ref))
		assert.Equal(t, 64, shot.Width)
		assert.Equal(t, "image/png", shot.Image.MediaType)
	}
	assert.Equal(t, []string{"001.png", "002.png", "002.png"}, refs)
}

func TestFileCapturerResizes(t *testing.T) {
	c, err := NewFileCapturer(framesDir(t))
	require.NoError(t, err)

	shot, err := c.Capture(context.Background(), Request{Resize: true, Width: 1920, Height: 1080})
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(shot.Image.Data))
	require.NoError(t, err)
	assert.Equal(t, 1920, cfg.Width)
	assert.Equal(t, 1080, cfg.Height)
	assert.Equal(t, 1920, shot.Width)
	assert.Equal(t, 1080, shot.Height)
}

func TestFileCapturerUnknownDisplay(t *testing.T) {
	c, err := NewFileCapturer(framesDir(t))
	require.NoError(t, err)

	_, err = c.Capture(context.Background(), Request{Display: 1})
	assert.True(t, errors.Is(err, ErrNoDisplay))
}

func TestFileCapturerEmptyDir(t *testing.T) {
	_, err := NewFileCapturer(t.TempDir())
	assert.Error(t, err)
}

func TestResizeRejectsBadSize(t *testing.T) {
	_, err := Resize([]byte("x"), 0, 10)
	assert.Error(t, err)
}

type memSaver struct {
	puts int
}

func (s *memSaver) Put(_ context.Context, mediaType string, data []byte) (string, error) {
	s.puts++
	return "xxh64:fake", nil
}

type failingSaver struct{}

func (failingSaver) Put(context.Context, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func TestStoringCapturerReplacesRef(t *testing.T) {
	c, err := NewFileCapturer(framesDir(t))
	require.NoError(t, err)
	saver := &memSaver{}

	shot, err := NewStoringCapturer(c, saver).Capture(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "xxh64:fake", shot.Image.Ref)
	assert.Equal(t, 1, saver.puts)

	_, err = NewStoringCapturer(c, failingSaver{}).Capture(context.Background(), Request{})
	assert.ErrorContains(t, err, "disk full")
}

func TestBrowserDisplayIntegration(t *testing.T) {
	if os.Getenv("VLMPILOT_CHROME_TESTS") == "" {
		t.Skip("set VLMPILOT_CHROME_TESTS=1 to run against a local Chrome")
	}
	ctx := context.Background()
	b, err := NewBrowserDisplay(ctx, BrowserConfig{Width: 800, Height: 600, Headless: true}, nil)
	require.NoError(t, err)
	defer b.Close()

	shot, err := b.Capture(ctx, Request{Resize: true, Width: 400, Height: 300})
	require.NoError(t, err)
	assert.Equal(t, 400, shot.Width)
	require.NoError(t, b.Click(ctx, 10, 10))
	require.NoError(t, b.Scroll(ctx, 0, 100))
	require.NoError(t, b.Key(ctx, "escape"))
}
