// Package transcript defines the Provider interface for word-timestamped
// speech-to-text backends.
//
// A transcript provider consumes an audio file and returns the ordered
// sequence of word tokens with start/end timestamps that drives the match
// resolver. The provider is the only pluggable collaborator in the pipeline:
// any component exposing Transcribe can be substituted without touching the
// resolver or renderer.
//
// Providers are constructed once and may be reused across runs. Backends
// that hold resources (loaded models, connections) additionally implement
// io.Closer; the caller owns the handle and must release it when done.
package transcript

import (
	"context"
	"errors"

	"github.com/MrWong99/bleeper/pkg/types"
)

// ErrTranscriptionFailed indicates the backend could not produce a
// transcript for the input (unsupported audio, empty audio, backend error).
// All provider failures wrap this sentinel so callers can distinguish "bad
// input" from "processing failed" with a single errors.Is check.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Provider is the abstraction over any word-timestamped STT backend.
//
// Implementations must be safe for concurrent use — the CLI runs multiple
// files against one shared provider handle.
type Provider interface {
	// Transcribe runs speech recognition on the audio file at audioPath and
	// returns the full word-level transcript. The path always points at a
	// 16-bit PCM WAV file; the pipeline transcodes other containers before
	// calling.
	//
	// Transcribe blocks until recognition completes or ctx is cancelled.
	// Cancellation discards the in-flight result. Failures wrap
	// ErrTranscriptionFailed.
	Transcribe(ctx context.Context, audioPath string) (types.Transcript, error)
}
