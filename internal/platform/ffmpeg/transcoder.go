// Package ffmpeg shells out to the ffmpeg binary to produce
// web-playable renditions of uploaded journal videos.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrBinaryNotFound indicates the configured ffmpeg binary is missing.
var ErrBinaryNotFound = errors.New("ffmpeg binary not found")

// Transcoder invokes ffmpeg as a subprocess.
type Transcoder struct {
	binaryPath string
	logger     *slog.Logger
}

// NewTranscoder creates a transcoder using the ffmpeg binary at
// binaryPath. An empty path resolves "ffmpeg" from PATH.
func NewTranscoder(binaryPath string, logger *slog.Logger) *Transcoder {
	if binaryPath == "" {
		binaryPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Transcoder{
		binaryPath: binaryPath,
		logger:     logger.With(slog.String("component", "ffmpeg_transcoder")),
	}
}

// Transcode converts the video at inputPath into an H.264/AAC MP4 next
// to the source file and returns the output path. The context bounds
// the subprocess lifetime.
func (t *Transcoder) Transcode(ctx context.Context, inputPath string) (string, error) {
	if _, err := exec.LookPath(t.binaryPath); err != nil {
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, t.binaryPath)
	}

	ext := filepath.Ext(inputPath)
	outputPath := strings.TrimSuffix(inputPath, ext) + "_web.mp4"

	args := []string{
		"-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		outputPath,
	}

	t.logger.Debug("running ffmpeg",
		slog.String("input", inputPath),
		slog.String("output", outputPath))

	cmd := exec.CommandContext(ctx, t.binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Remove the partial output so a retry starts clean.
		_ = os.Remove(outputPath)

		detail := lastLines(stderr.String(), 5)
		t.logger.Error("ffmpeg failed",
			slog.String("input", inputPath),
			slog.String("stderr", detail))
		return "", fmt.Errorf("ffmpeg failed for %s: %w: %s", filepath.Base(inputPath), err, detail)
	}

	return outputPath, nil
}

// lastLines returns up to n trailing non-empty lines of s. ffmpeg
// prints the actual error at the end of a long progress log.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			kept = append(kept, line)
		}
	}
	// reverse back into original order
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, " | ")
}
