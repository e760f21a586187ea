// Package mock provides a canned transcript.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/bleeper/pkg/provider/transcript"
	"github.com/MrWong99/bleeper/pkg/types"
)

// Compile-time interface assertion.
var _ transcript.Provider = (*Provider)(nil)

// Provider returns a fixed Transcript (or error) from every Transcribe call
// and records the paths it was called with. Safe for concurrent use.
type Provider struct {
	// Transcript is returned from Transcribe when Err is nil.
	Transcript types.Transcript

	// Err, when non-nil, is returned from every Transcribe call.
	Err error

	mu    sync.Mutex
	calls []string
}

// Transcribe implements transcript.Provider.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (types.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return types.Transcript{}, err
	}
	p.mu.Lock()
	p.calls = append(p.calls, audioPath)
	p.mu.Unlock()

	if p.Err != nil {
		return types.Transcript{}, p.Err
	}
	return p.Transcript, nil
}

// Calls returns a copy of the audio paths passed to Transcribe so far.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}
