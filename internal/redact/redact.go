// Package redact implements the word-match-to-redaction-interval engine.
//
// Given the ordered word tokens of a transcript and a TargetSpec describing
// which words to redact, the resolver produces a minimal, sorted,
// non-overlapping list of time intervals to overlay with a tone. Matching is
// pure text work on token timestamps — the resolver never touches audio
// samples.
package redact

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/MrWong99/bleeper/pkg/types"
)

// Sentinel errors returned by Resolve input validation. Wrap-checked with
// errors.Is by callers.
var (
	// ErrInvalidSpec indicates a malformed TargetSpec (negative padding or an
	// unknown match mode).
	ErrInvalidSpec = errors.New("invalid target spec")

	// ErrInvalidDuration indicates a non-positive audio duration.
	ErrInvalidDuration = errors.New("invalid audio duration")
)

// MatchMode selects how target words are compared against transcript tokens.
type MatchMode string

const (
	// ModeExact matches when the normalized token text equals a target word,
	// case-insensitively, after leading/trailing punctuation is stripped.
	ModeExact MatchMode = "exact"

	// ModeSubstring matches when any target word is a case-insensitive
	// substring of the normalized token text.
	ModeSubstring MatchMode = "substring"

	// ModeFuzzy matches phonetically similar tokens (Double Metaphone
	// candidate filtering ranked by Jaro-Winkler similarity). Requires a
	// WordMatcher to be set on the TargetSpec.
	ModeFuzzy MatchMode = "fuzzy"
)

// IsValid reports whether m is a recognised match mode.
func (m MatchMode) IsValid() bool {
	switch m {
	case ModeExact, ModeSubstring, ModeFuzzy:
		return true
	}
	return false
}

// WordMatcher decides whether a normalized token matches any of the target
// words under a non-literal comparison (e.g. phonetic similarity). Used by
// ModeFuzzy; see the fuzzy subpackage for the default implementation.
type WordMatcher interface {
	// Matches reports whether token should be treated as an occurrence of
	// any word in targets. token and targets are already lower-cased and
	// punctuation-stripped.
	Matches(token string, targets []string) bool
}

// TargetSpec is the user's redaction request: which words to find and how
// much slack to leave around each hit.
type TargetSpec struct {
	// Words lists the words to redact. Duplicates and empty entries are
	// ignored. An empty list matches nothing.
	Words []string

	// Mode selects the comparison policy. The zero value defaults to
	// ModeExact.
	Mode MatchMode

	// Pad is extra time, in seconds, added before and after each matched
	// token to avoid clipping the start or end of the spoken word. Must be
	// non-negative. Default 0.
	Pad float64

	// Matcher performs the comparison when Mode is ModeFuzzy. Ignored for
	// other modes.
	Matcher WordMatcher
}

// normalizedWords returns the deduplicated, lower-cased, punctuation-stripped
// word list. Entries that are empty after normalization are dropped.
func (s TargetSpec) normalizedWords() []string {
	seen := make(map[string]struct{}, len(s.Words))
	out := make([]string, 0, len(s.Words))
	for _, w := range s.Words {
		n := Normalize(w)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// validate checks the spec for fail-fast errors. It does not consider an
// empty word list an error — that simply matches nothing.
func (s TargetSpec) validate() error {
	if s.Pad < 0 {
		return fmt.Errorf("%w: pad %.3f is negative", ErrInvalidSpec, s.Pad)
	}
	if s.Mode != "" && !s.Mode.IsValid() {
		return fmt.Errorf("%w: unknown match mode %q", ErrInvalidSpec, s.Mode)
	}
	if s.mode() == ModeFuzzy && s.Matcher == nil {
		return fmt.Errorf("%w: fuzzy mode requires a matcher", ErrInvalidSpec)
	}
	return nil
}

// mode returns the effective match mode, defaulting to ModeExact.
func (s TargetSpec) mode() MatchMode {
	if s.Mode == "" {
		return ModeExact
	}
	return s.Mode
}

// Normalize strips leading and trailing punctuation and symbol runes from
// word and lower-cases the remainder. Interior punctuation (apostrophes,
// hyphens) is preserved so contractions like "don't" survive intact.
func Normalize(word string) string {
	trimmed := strings.TrimFunc(strings.TrimSpace(word), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	return strings.ToLower(trimmed)
}

// Match reports whether token matches spec. It has no side effects and does
// not validate the spec — Resolve does that once per run. Tokens that are
// empty after normalization never match, and an empty word set matches
// nothing.
func Match(token types.WordToken, spec TargetSpec) bool {
	return matchNormalized(Normalize(token.Text), spec.normalizedWords(), spec.mode(), spec.Matcher)
}

// matchNormalized is the comparison core shared by Match and Resolve.
// text and targets must already be normalized.
func matchNormalized(text string, targets []string, mode MatchMode, matcher WordMatcher) bool {
	if text == "" || len(targets) == 0 {
		return false
	}
	switch mode {
	case ModeSubstring:
		for _, w := range targets {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	case ModeFuzzy:
		if matcher == nil {
			return false
		}
		return matcher.Matches(text, targets)
	default: // ModeExact
		for _, w := range targets {
			if text == w {
				return true
			}
		}
		return false
	}
}

// Resolve converts the ordered token sequence into a sorted, non-overlapping
// list of redaction intervals.
//
// tokens must already be ordered by non-decreasing Start; Resolve does not
// re-sort the input, but a token whose End is slightly less than a previous
// token's End is handled correctly because intervals are formed independently
// before the merge step. duration is the audio length in seconds, used for
// clamping.
//
// Returns ErrInvalidSpec for a negative pad or unknown mode and
// ErrInvalidDuration for a non-positive duration. A transcript with no
// matches yields an empty (nil) list, which is a valid, non-error outcome.
func Resolve(tokens []types.WordToken, spec TargetSpec, duration float64) ([]types.RedactionInterval, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %.3f", ErrInvalidDuration, duration)
	}

	targets := spec.normalizedWords()
	if len(targets) == 0 {
		return nil, nil
	}
	mode := spec.mode()

	// Pass 1: padded, clamped raw intervals for every matching token.
	var raw []types.RedactionInterval
	for _, tok := range tokens {
		if !matchNormalized(Normalize(tok.Text), targets, mode, spec.Matcher) {
			continue
		}
		raw = append(raw, types.RedactionInterval{
			Start: max(0, tok.Start-spec.Pad),
			End:   min(duration, tok.End+spec.Pad),
		})
	}
	if len(raw) == 0 {
		return nil, nil
	}

	// Pass 2: stable sort by start. Ties keep original token order, so a
	// token with a slightly earlier End than its predecessor cannot shuffle
	// the merge below.
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].Start < raw[j].Start })

	// Pass 3: merge touching or overlapping intervals.
	merged := make([]types.RedactionInterval, 0, len(raw))
	cur := raw[0]
	for _, iv := range raw[1:] {
		if iv.Start <= cur.End {
			cur.End = max(cur.End, iv.End)
			continue
		}
		merged = append(merged, cur)
		cur = iv
	}
	merged = append(merged, cur)

	// Pass 4: drop zero-length intervals produced by clamping at the audio
	// boundaries.
	out := merged[:0]
	for _, iv := range merged {
		if iv.End > iv.Start {
			out = append(out, iv)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// CountMatches returns the number of tokens matching spec. The word list is
// normalized once for the whole pass, unlike calling Match per token.
func CountMatches(tokens []types.WordToken, spec TargetSpec) int {
	targets := spec.normalizedWords()
	if len(targets) == 0 {
		return 0
	}
	mode := spec.mode()

	count := 0
	for _, tok := range tokens {
		if matchNormalized(Normalize(tok.Text), targets, mode, spec.Matcher) {
			count++
		}
	}
	return count
}

// TotalSeconds sums the durations of all intervals. Used for run reporting
// and metrics.
func TotalSeconds(intervals []types.RedactionInterval) float64 {
	var total float64
	for _, iv := range intervals {
		total += iv.Duration()
	}
	return total
}
