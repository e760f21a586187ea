// Package types defines the shared types used across all bleeper packages.
//
// These types form the lingua franca between transcript providers, the match
// resolver, and the renderer. They are intentionally minimal — each package
// defines its own domain types, but cross-cutting data structures live here
// to avoid circular imports.
package types

// WordToken is one transcribed word with timestamps. The Text field carries
// the literal word as produced by the transcription engine and may include
// casing and punctuation artifacts ("Damn!", " hello").
type WordToken struct {
	// Text is the literal word string from the transcription engine.
	Text string

	// Start and End are offsets into the audio, in seconds. Start <= End.
	Start float64
	End   float64

	// Confidence is the per-word recognition confidence (0.0–1.0). Zero when
	// the provider does not report word confidence.
	Confidence float64
}

// Duration returns the token's length in seconds.
func (t WordToken) Duration() float64 {
	return t.End - t.Start
}

// Transcript is the full word-level output of one transcription run.
// Tokens are ordered by non-decreasing Start and fall within
// [0, audio duration]. A Transcript is immutable once produced and is held
// only for the duration of a single redaction run.
type Transcript struct {
	// Tokens is the ordered word sequence.
	Tokens []WordToken

	// Language is the BCP-47 language tag detected or configured by the
	// provider. May be empty.
	Language string

	// Duration is the audio length in seconds as reported by the provider.
	// Zero when the provider does not report it; callers then derive the
	// duration from the decoded audio instead.
	Duration float64
}

// Text joins all token texts with single spaces. Useful for logging and for
// showing the user what was recognised.
func (t Transcript) Text() string {
	n := 0
	for _, tok := range t.Tokens {
		n += len(tok.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, tok := range t.Tokens {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, tok.Text...)
	}
	return string(buf)
}

// RedactionInterval is a resolved time range to overlay with a tone.
// Start < End; both are clamped to [0, audio duration]. A resolved interval
// list is sorted by Start and pairwise non-overlapping.
type RedactionInterval struct {
	Start float64
	End   float64
}

// Duration returns the interval's length in seconds.
func (r RedactionInterval) Duration() float64 {
	return r.End - r.Start
}
