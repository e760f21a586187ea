// Package resilience provides automatic failover across transcript backends.
//
// A local whisper server being down should not fail a run when a cloud
// backend is configured as well. The fallback chain tries each backend in
// order and returns the first successful transcript. Context cancellation is
// never retried — a cancelled run stays cancelled.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/bleeper/pkg/provider/transcript"
	"github.com/MrWong99/bleeper/pkg/types"
)

// Compile-time interface assertion.
var _ transcript.Provider = (*TranscriptFallback)(nil)

// TranscriptFallback implements [transcript.Provider] with ordered failover
// across multiple backends. Safe for concurrent use — the chain is fixed at
// construction time and the backends handle their own synchronisation.
type TranscriptFallback struct {
	backends []namedBackend
}

type namedBackend struct {
	name     string
	provider transcript.Provider
}

// NewTranscriptFallback creates a fallback chain with primary as the
// preferred backend. name is a short label used in logs ("whisper",
// "openai").
func NewTranscriptFallback(name string, primary transcript.Provider) *TranscriptFallback {
	return &TranscriptFallback{
		backends: []namedBackend{{name: name, provider: primary}},
	}
}

// AddFallback registers an additional backend, tried after all previously
// registered ones. Not safe to call concurrently with Transcribe.
func (f *TranscriptFallback) AddFallback(name string, provider transcript.Provider) {
	f.backends = append(f.backends, namedBackend{name: name, provider: provider})
}

// Transcribe tries each backend in order and returns the first successful
// transcript. When every backend fails, the errors are joined and returned;
// the result still satisfies errors.Is(err, transcript.ErrTranscriptionFailed)
// because each backend wraps that sentinel.
func (f *TranscriptFallback) Transcribe(ctx context.Context, audioPath string) (types.Transcript, error) {
	var errs []error
	for i, b := range f.backends {
		t, err := b.provider.Transcribe(ctx, audioPath)
		if err == nil {
			if i > 0 {
				slog.Info("transcript fallback succeeded", "backend", b.name, "attempt", i+1)
			}
			return t, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return types.Transcript{}, err
		}
		slog.Warn("transcript backend failed", "backend", b.name, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
	}
	return types.Transcript{}, fmt.Errorf("resilience: all %d transcript backends failed: %w", len(f.backends), errors.Join(errs...))
}
