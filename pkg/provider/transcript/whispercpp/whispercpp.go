// Package whispercpp provides a transcript provider backed by the
// whisper.cpp CGO bindings, eliminating the HTTP round-trip entirely.
//
// The ggml model is loaded once at construction and shared across all runs;
// each Transcribe call creates its own whisper context, so concurrent runs do
// not interfere. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The caller owns the Provider and must call Close to release the model.
package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/bleeper/pkg/audio"
	"github.com/MrWong99/bleeper/pkg/provider/transcript"
	"github.com/MrWong99/bleeper/pkg/types"
)

const defaultLanguage = "en"

// Compile-time assertion that Provider implements transcript.Provider.
var _ transcript.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// Provider implements transcript.Provider using the whisper.cpp Go bindings.
type Provider struct {
	model    whisperlib.Model
	language string
}

// New creates a Provider that loads the ggml model from modelPath. The model
// is loaded once and shared across all runs. Call Close when the provider is
// no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whispercpp: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: load model %q: %w", modelPath, err)
	}
	p := &Provider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements transcript.Provider. audioPath must point at a
// decodable WAV file.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (types.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return types.Transcript{}, err
	}

	buf, err := audio.LoadWAV(audioPath)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whispercpp: %w: %w", transcript.ErrTranscriptionFailed, err)
	}
	samples := audio.ForSTT(buf)
	if len(samples) == 0 {
		return types.Transcript{}, fmt.Errorf("whispercpp: %w: audio contains no samples", transcript.ErrTranscriptionFailed)
	}

	// Each whisper context is NOT thread-safe, but the model can be shared
	// across goroutines, so a fresh context per run is both correct and cheap
	// relative to inference itself.
	wctx, err := p.model.NewContext()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whispercpp: %w: create context: %w", transcript.ErrTranscriptionFailed, err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		return types.Transcript{}, fmt.Errorf("whispercpp: %w: set language %q: %w", transcript.ErrTranscriptionFailed, p.language, err)
	}
	wctx.SetTokenTimestamps(true)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return types.Transcript{}, fmt.Errorf("whispercpp: %w: process audio: %w", transcript.ErrTranscriptionFailed, err)
	}

	t := types.Transcript{Language: p.language}
	for {
		if err := ctx.Err(); err != nil {
			return types.Transcript{}, err
		}
		seg, err := wctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return types.Transcript{}, fmt.Errorf("whispercpp: %w: read segment: %w", transcript.ErrTranscriptionFailed, err)
		}
		for _, tok := range seg.Tokens {
			text := strings.TrimSpace(tok.Text)
			if text == "" || isSpecialToken(text) {
				continue
			}
			t.Tokens = append(t.Tokens, types.WordToken{
				Text:       text,
				Start:      tok.Start.Seconds(),
				End:        tok.End.Seconds(),
				Confidence: float64(tok.P),
			})
		}
	}
	return t, nil
}

// isSpecialToken reports whether text is a whisper marker token such as
// [_BEG_] or [_TT_150] rather than recognised speech.
func isSpecialToken(text string) bool {
	return strings.HasPrefix(text, "[_") && strings.HasSuffix(text, "]")
}
