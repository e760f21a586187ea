package render_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"

	"github.com/MrWong99/bleeper/internal/render"
	"github.com/MrWong99/bleeper/pkg/types"
)

// testBuffer returns a mono 16-bit buffer of the given length filled with a
// constant marker value, so overwritten spans are easy to spot.
func testBuffer(sampleRate, frames, marker int) *gaudio.IntBuffer {
	data := make([]int, frames)
	for i := range data {
		data[i] = marker
	}
	return &gaudio.IntBuffer{
		Data:           data,
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	buf := testBuffer(16000, 16000, 0)
	if got := render.Duration(buf); got != 1.0 {
		t.Errorf("Duration = %v, want 1.0", got)
	}

	stereo := &gaudio.IntBuffer{
		Data:           make([]int, 8000*2),
		Format:         &gaudio.Format{NumChannels: 2, SampleRate: 16000},
		SourceBitDepth: 16,
	}
	if got := render.Duration(stereo); got != 0.5 {
		t.Errorf("Duration(stereo) = %v, want 0.5", got)
	}

	if got := render.Duration(nil); got != 0 {
		t.Errorf("Duration(nil) = %v, want 0", got)
	}
}

func TestRedact_ReplacesOnlyInsideIntervals(t *testing.T) {
	t.Parallel()

	const (
		rate   = 16000
		marker = 1000
	)
	buf := testBuffer(rate, rate, marker) // 1 second
	r := render.New()

	r.Redact(buf, []types.RedactionInterval{{Start: 0.25, End: 0.5}})

	startIdx := rate / 4
	endIdx := rate / 2

	for i := 0; i < startIdx; i++ {
		if buf.Data[i] != marker {
			t.Fatalf("sample %d before interval changed: %d", i, buf.Data[i])
		}
	}
	for i := endIdx; i < rate; i++ {
		if buf.Data[i] != marker {
			t.Fatalf("sample %d after interval changed: %d", i, buf.Data[i])
		}
	}

	// Inside the interval the marker is gone and at least one sample swings
	// well away from zero (a tone, not silence).
	peak := 0
	for i := startIdx; i < endIdx; i++ {
		if abs := absInt(buf.Data[i]); abs > peak {
			peak = abs
		}
	}
	if peak == 0 {
		t.Fatal("interval contains only silence, want a tone")
	}

	// -3 dB of 16-bit full scale.
	maxAmp := int(32767 * math.Pow(10, -3.0/20))
	if peak > maxAmp {
		t.Errorf("tone peak %d exceeds -3 dB full scale %d", peak, maxAmp)
	}
	if peak < maxAmp/2 {
		t.Errorf("tone peak %d is implausibly quiet, want near %d", peak, maxAmp)
	}
}

func TestRedact_AdjacentIntervalsCoverContiguousSpan(t *testing.T) {
	t.Parallel()

	const rate = 8000
	buf := testBuffer(rate, rate, 500)
	r := render.New()

	// Zero-gap intervals, as the resolver may produce around merges.
	r.Redact(buf, []types.RedactionInterval{
		{Start: 0.1, End: 0.2},
		{Start: 0.2, End: 0.3},
	})

	for i := rate / 10; i < rate*3/10; i++ {
		if buf.Data[i] == 500 {
			t.Fatalf("sample %d inside [0.1, 0.3) still carries the marker", i)
		}
	}
}

func TestRedact_ClampsIntervalBeyondBuffer(t *testing.T) {
	t.Parallel()

	buf := testBuffer(8000, 8000, 500)
	r := render.New()

	// Must not panic or write out of range.
	r.Redact(buf, []types.RedactionInterval{{Start: 0.9, End: 2.0}})

	if buf.Data[len(buf.Data)-1] == 500 {
		t.Error("last sample still carries the marker, want tone")
	}
}

func TestRedact_StereoWritesAllChannels(t *testing.T) {
	t.Parallel()

	const rate = 8000
	frames := rate / 2
	data := make([]int, frames*2)
	for i := range data {
		data[i] = 700
	}
	buf := &gaudio.IntBuffer{
		Data:           data,
		Format:         &gaudio.Format{NumChannels: 2, SampleRate: rate},
		SourceBitDepth: 16,
	}

	render.New().Redact(buf, []types.RedactionInterval{{Start: 0.1, End: 0.2}})

	for frame := rate / 10; frame < rate/5; frame++ {
		l, r := buf.Data[frame*2], buf.Data[frame*2+1]
		if l != r {
			t.Fatalf("frame %d: channels diverge (%d vs %d)", frame, l, r)
		}
		if l == 700 {
			t.Fatalf("frame %d still carries the marker", frame)
		}
	}
}

func TestExportLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	buf := testBuffer(16000, 1600, 1234)
	if err := render.Export(path, buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	loaded, err := render.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Format.SampleRate != 16000 || loaded.Format.NumChannels != 1 {
		t.Errorf("roundtrip format = %+v, want 16000 Hz mono", loaded.Format)
	}
	if len(loaded.Data) != len(buf.Data) {
		t.Fatalf("roundtrip length = %d, want %d", len(loaded.Data), len(buf.Data))
	}
	for i, s := range loaded.Data {
		if s != 1234 {
			t.Fatalf("sample %d = %d, want 1234", i, s)
		}
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("output dir has %d entries, want only the exported file", len(entries))
	}
}

func TestLoad_RejectsNonWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-audio.wav")
	if err := os.WriteFile(path, []byte("definitely not a RIFF header"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := render.Load(path)
	if !errors.Is(err, render.ErrUnsupportedFormat) {
		t.Errorf("Load error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestWithToneGain_ClampsPositiveGain(t *testing.T) {
	t.Parallel()

	buf := testBuffer(8000, 8000, 0)
	r := render.New(render.WithToneGain(+6))

	r.Redact(buf, []types.RedactionInterval{{Start: 0, End: 1}})

	for i, s := range buf.Data {
		if absInt(s) > 32767 {
			t.Fatalf("sample %d = %d exceeds 16-bit range; positive gain not clamped", i, s)
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestExport_RejectsMissingFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")

	tests := []struct {
		name string
		buf  *gaudio.IntBuffer
	}{
		{name: "nil buffer", buf: nil},
		{name: "nil format", buf: &gaudio.IntBuffer{Data: []int{1, 2, 3}}},
		{
			name: "zero sample rate",
			buf:  &gaudio.IntBuffer{Data: []int{1}, Format: &gaudio.Format{NumChannels: 1}},
		},
	}
	for _, tt := range tests {
		if err := render.Export(out, tt.buf); !errors.Is(err, render.ErrUnsupportedFormat) {
			t.Fatalf("%s: Export error = %v, want ErrUnsupportedFormat", tt.name, err)
		}
	}

	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Error("Export wrote a file despite the missing format")
	}
}
