// Package textx provides transcript text utilities: whitespace
// normalization, repeated n-gram collapsing, Devanagari romanization and
// script filtering.
package textx

import (
	"strings"
	"unicode"
)

// NormalizeWhitespace collapses all whitespace runs into single spaces and
// trims the ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanTranscript normalizes whitespace and collapses repeated word n-grams.
// It is idempotent: CleanTranscript(CleanTranscript(x)) == CleanTranscript(x).
func CleanTranscript(s string) string {
	normalized := NormalizeWhitespace(s)
	if normalized == "" {
		return ""
	}
	return NormalizeWhitespace(collapseRepeatedNgrams(normalized))
}

// collapseRepeatedNgrams removes immediately repeated word n-grams with
// window sizes from 12 down to 1, iterating until no collapse applies, then
// drops adjacent case-insensitive duplicate words. Noisy speech-to-text
// output tends to loop on short phrases; this keeps one occurrence.
func collapseRepeatedNgrams(s string) string {
	words := strings.Split(s, " ")
	if len(words) < 2 {
		return s
	}

	maxN := len(words) / 2
	if maxN > 12 {
		maxN = 12
	}

	changed := true
	for changed {
		changed = false
		for n := maxN; n >= 1; n-- {
			compact := make([]string, 0, len(words))
			i := 0
			for i < len(words) {
				if i+2*n <= len(words) && equalSegments(words[i:i+n], words[i+n:i+2*n]) {
					segment := words[i : i+n]
					compact = append(compact, segment...)
					i += n
					for i+n <= len(words) && equalSegments(words[i:i+n], segment) {
						i += n
					}
					changed = true
					continue
				}
				compact = append(compact, words[i])
				i++
			}
			words = compact
		}
	}

	deduped := words[:0]
	for _, w := range words {
		if len(deduped) > 0 && strings.EqualFold(deduped[len(deduped)-1], w) {
			continue
		}
		deduped = append(deduped, w)
	}

	return strings.Join(deduped, " ")
}

func equalSegments(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// LooksLikeUnsupportedMarker reports whether the transcript is a refusal
// marker from a transcription backend rather than real speech.
func LooksLikeUnsupportedMarker(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range []string{
		"unsupported language",
		"cannot transcribe",
		"unable to transcribe",
		"only hindi or english",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsLatinScript reports whether every alphabetic rune in s is an ASCII Latin
// letter. Non-alphabetic runes (digits, punctuation) are ignored.
func IsLatinScript(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// IsLowQuality flags transcripts dominated by repetition: fewer than three
// words, a low unique-word ratio on long transcripts, or a single word
// repeated six or more times in a row.
func IsLowQuality(s string) bool {
	words := strings.Fields(s)
	if len(words) < 3 {
		return true
	}

	lower := make([]string, len(words))
	unique := make(map[string]struct{}, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
		unique[lower[i]] = struct{}{}
	}
	if len(words) >= 20 && float64(len(unique))/float64(len(lower)) < 0.22 {
		return true
	}

	longest, current := 1, 1
	for i := 1; i < len(lower); i++ {
		if lower[i] == lower[i-1] {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
	}
	return longest >= 6
}
