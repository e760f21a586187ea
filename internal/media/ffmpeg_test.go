package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/bleeper/internal/render"
)

func TestIsWAV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"recording.wav", true},
		{"recording.WAV", true},
		{"/tmp/a/b/c.Wav", true},
		{"recording.mp3", false},
		{"recording.wav.mp3", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		if got := IsWAV(tt.path); got != tt.want {
			t.Errorf("IsWAV(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestToWAVArgs(t *testing.T) {
	t.Parallel()

	args := toWAVArgs("in.mp3", "out.wav")
	joined := strings.Join(args, " ")

	for _, want := range []string{"-y", "-i in.mp3", "-c:a pcm_s16le", "-f wav", "out.wav"} {
		if !strings.Contains(joined, want) {
			t.Errorf("toWAVArgs missing %q in %q", want, joined)
		}
	}
}

func TestFromWAVArgs(t *testing.T) {
	t.Parallel()

	args := fromWAVArgs("in.wav", "out.ogg")
	if args[len(args)-1] != "out.ogg" {
		t.Errorf("output path must be the final argument, got %v", args)
	}
}

func TestRunFFmpeg_MissingBinary(t *testing.T) {
	orig := ffmpegBin
	ffmpegBin = "ffmpeg-definitely-not-installed"
	defer func() { ffmpegBin = orig }()

	err := runFFmpeg(context.Background(), []string{"-version"})
	if !errors.Is(err, render.ErrUnsupportedFormat) {
		t.Errorf("runFFmpeg error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLastLines(t *testing.T) {
	t.Parallel()

	in := "one\n\ntwo\nthree\nfour\n"
	got := lastLines(in, 2)
	if got != "three; four" {
		t.Errorf("lastLines = %q, want %q", got, "three; four")
	}
	if got := lastLines("", 3); got != "" {
		t.Errorf("lastLines(empty) = %q, want empty", got)
	}
}
