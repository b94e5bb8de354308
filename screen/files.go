package screen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileCapturer replays image files from a directory as screenshots of
// display 0. Frames are served in name order; the last frame repeats once
// the sequence is exhausted.
type FileCapturer struct {
	frames []string

	mu   sync.Mutex
	next int
}

// NewFileCapturer loads the .png/.jpg/.jpeg frames in dir.
func NewFileCapturer(dir string) (*FileCapturer, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}

	var frames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			frames = append(frames, filepath.Join(dir, e.Name()))
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no image frames in %s", dir)
	}
	sort.Strings(frames)
	return &FileCapturer{frames: frames}, nil
}

// Frames returns the number of frames.
func (c *FileCapturer) Frames() int {
	return len(c.frames)
}

func (c *FileCapturer) Capture(ctx context.Context, req Request) (Shot, error) {
	if err := ctx.Err(); err != nil {
		return Shot{}, err
	}
	if req.Display != 0 {
		return Shot{}, fmt.Errorf("display %d: %w", req.Display, ErrNoDisplay)
	}

	c.mu.Lock()
	path := c.frames[c.next]
	if c.next < len(c.frames)-1 {
		c.next++
	}
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return Shot{}, fmt.Errorf("failed to read frame: %w", err)
	}

	mediaType := "image/png"
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".jpg" || ext == ".jpeg" {
		mediaType = "image/jpeg"
	}
	return Finish(data, mediaType, path, req)
}
