// Package media shells out to ffmpeg for container transcoding.
//
// The renderer only speaks 16-bit PCM WAV. Inputs in other containers
// (mp3, ogg, flac, …) are transcoded to a working WAV before rendering, and
// the rendered WAV is transcoded back to the requested output container
// afterwards. ffmpeg absence or failure surfaces as
// [render.ErrUnsupportedFormat] so the caller sees a single error kind for
// every codec problem.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/MrWong99/bleeper/internal/render"
)

// ffmpegBin is the executable looked up on PATH. Overridable for tests.
var ffmpegBin = "ffmpeg"

// IsWAV reports whether path has a .wav extension (case-insensitive).
func IsWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// toWAVArgs builds the ffmpeg argument list for decoding any supported input
// into 16-bit PCM WAV at the source sample rate and channel count.
func toWAVArgs(inPath, outPath string) []string {
	return []string{
		"-y", "-i", inPath,
		"-map", "0:a:0",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outPath,
	}
}

// fromWAVArgs builds the ffmpeg argument list for encoding a WAV into the
// container implied by outPath's extension, letting ffmpeg pick the default
// codec for that container.
func fromWAVArgs(inPath, outPath string) []string {
	return []string{
		"-y", "-i", inPath,
		outPath,
	}
}

// ToWAV transcodes the audio file at inPath into a 16-bit PCM WAV at outPath.
func ToWAV(ctx context.Context, inPath, outPath string) error {
	return runFFmpeg(ctx, toWAVArgs(inPath, outPath))
}

// FromWAV transcodes the WAV at inPath into the container implied by
// outPath's extension.
func FromWAV(ctx context.Context, inPath, outPath string) error {
	return runFFmpeg(ctx, fromWAVArgs(inPath, outPath))
}

// runFFmpeg executes ffmpeg with args, mapping every failure (including a
// missing binary) to render.ErrUnsupportedFormat. ffmpeg's stderr tail is
// included in the error for diagnosis.
func runFFmpeg(ctx context.Context, args []string) error {
	if _, err := exec.LookPath(ffmpegBin); err != nil {
		return fmt.Errorf("media: ffmpeg not found on PATH: %w (%w)", err, render.ErrUnsupportedFormat)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegBin, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("media: ffmpeg %s: %w: %s (%w)",
			strings.Join(args, " "), err, lastLines(stderr.String(), 3), render.ErrUnsupportedFormat)
	}
	return nil
}

// lastLines returns the last n non-empty lines of s, joined by "; ".
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, strings.TrimSpace(l))
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "; ")
}
