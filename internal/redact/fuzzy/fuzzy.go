// Package fuzzy implements the [redact.WordMatcher] interface using Double
// Metaphone phonetic encoding combined with Jaro-Winkler string similarity.
//
// Transcription engines routinely mangle exactly the words users most want to
// redact — proper nouns and slurred profanity ("dammit" → "dam it",
// "Kowalski" → "coal ski"). The matcher proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     the token and for each target word. A target whose code set overlaps
//     the token's becomes a phonetic candidate.
//
//  2. Jaro-Winkler ranking: a phonetic candidate is accepted when its
//     Jaro-Winkler similarity to the token exceeds the configured threshold.
//     Targets with no phonetic overlap are still accepted at a higher fuzzy
//     threshold, which catches spelling-level variants the phonetic pass
//     misses.
package fuzzy

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.82
	defaultFuzzyThreshold    = 0.90
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched target to be accepted. Default: 0.82.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required for a
// target with no phonetic overlap. Default: 0.90.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher is a phonetic word matcher. All methods are safe for concurrent
// use — the Matcher is read-only after construction.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a new [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Matches reports whether token is phonetically or near-textually equal to
// any of the targets. token and targets are expected to be lower-cased and
// punctuation-stripped already; the matcher tolerates stray whitespace.
func (m *Matcher) Matches(token string, targets []string) bool {
	token = strings.TrimSpace(token)
	if token == "" || len(targets) == 0 {
		return false
	}

	tokenCodes := metaphoneCodes(token)

	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if token == target {
			return true
		}

		score := matchr.JaroWinkler(token, target, false)
		if codesOverlap(tokenCodes, metaphoneCodes(target)) {
			if score >= m.phoneticThreshold {
				return true
			}
		} else if score >= m.fuzzyThreshold {
			return true
		}
	}
	return false
}

// metaphoneCodes returns the set of Double Metaphone codes for word. Empty
// codes (word too short or no consonants) are excluded.
func metaphoneCodes(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
