// Package render applies resolved redaction intervals to decoded audio.
//
// The renderer owns all sample-level work in the pipeline: it loads a WAV
// file into an in-memory PCM buffer, replaces every sample inside each
// interval with a synthesized tone, and exports the result. It never decides
// WHAT to redact — the interval list arrives fully resolved (sorted,
// non-overlapping, clamped) from the match resolver.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/MrWong99/bleeper/pkg/types"
)

// ErrUnsupportedFormat indicates the input could not be decoded or the output
// could not be encoded by the underlying codec.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

const (
	// DefaultToneHz is the beep frequency in Hz.
	DefaultToneHz = 1000.0

	// DefaultToneGainDB softens the beep relative to full scale.
	DefaultToneGainDB = -3.0

	// wavFormatPCM is the RIFF audio format tag for uncompressed PCM.
	wavFormatPCM = 1
)

// Option is a functional option for configuring a Renderer.
type Option func(*Renderer)

// WithToneFrequency sets the beep frequency in Hz. Defaults to 1000 Hz.
func WithToneFrequency(hz float64) Option {
	return func(r *Renderer) {
		if hz > 0 {
			r.toneHz = hz
		}
	}
}

// WithToneGain sets the beep gain in dB relative to full scale. Values above
// 0 are clamped to 0 to avoid clipping. Defaults to -3 dB.
func WithToneGain(db float64) Option {
	return func(r *Renderer) {
		if db > 0 {
			db = 0
		}
		r.toneGainDB = db
	}
}

// Renderer replaces interval-targeted spans of a PCM buffer with a tone.
// A Renderer is read-only after construction and safe for concurrent use.
type Renderer struct {
	toneHz     float64
	toneGainDB float64
}

// New returns a Renderer configured with the supplied options.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		toneHz:     DefaultToneHz,
		toneGainDB: DefaultToneGainDB,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Load decodes the WAV file at path into an in-memory PCM buffer.
// Returns ErrUnsupportedFormat when the file is not a decodable WAV.
func Load(path string) (*audio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("render: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("render: %q: %w", path, ErrUnsupportedFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("render: decode %q: %w (%w)", path, err, ErrUnsupportedFormat)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("render: %q: missing PCM format: %w", path, ErrUnsupportedFormat)
	}
	return buf, nil
}

// Duration returns the buffer's play time in seconds.
func Duration(buf *audio.IntBuffer) float64 {
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return 0
	}
	frames := len(buf.Data) / buf.Format.NumChannels
	return float64(frames) / float64(buf.Format.SampleRate)
}

// Redact replaces every sample inside each interval with the configured tone,
// in place. Intervals must be sorted and non-overlapping — the resolver
// guarantees this — and are applied independently: samples outside an
// interval are never touched. Interval bounds beyond the buffer are clamped
// to the last frame.
func (r *Renderer) Redact(buf *audio.IntBuffer, intervals []types.RedactionInterval) {
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return
	}
	rate := buf.Format.SampleRate
	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels

	amp := toneAmplitude(buf.SourceBitDepth, r.toneGainDB)

	for _, iv := range intervals {
		startFrame := int(iv.Start * float64(rate))
		endFrame := int(iv.End * float64(rate))
		if startFrame < 0 {
			startFrame = 0
		}
		if endFrame > frames {
			endFrame = frames
		}
		writeTone(buf.Data, startFrame, endFrame, channels, rate, r.toneHz, amp)
	}
}

// Export writes buf as a WAV file to path. The file is written to a
// temporary sibling first and renamed into place on success, so a failed run
// never leaves a partial output file behind. Returns ErrUnsupportedFormat
// when encoding fails.
func Export(path string, buf *audio.IntBuffer) error {
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return fmt.Errorf("render: export %q: missing PCM format: %w", path, ErrUnsupportedFormat)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("render: create temp output: %w", err)
	}
	tmpName := tmp.Name()

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	enc := wav.NewEncoder(tmp, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, wavFormatPCM)

	if err := enc.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("render: encode %q: %w (%w)", path, err, ErrUnsupportedFormat)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("render: finalize %q: %w (%w)", path, err, ErrUnsupportedFormat)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("render: close temp output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("render: rename output into place: %w", err)
	}
	return nil
}
