package usecase

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/meetngreet/interview-backend/internal/domain"
	"github.com/meetngreet/interview-backend/pkg/textx"
)

// videoContainerExts are formats the local recognizer is skipped for; it is
// unreliable on container formats on some platforms. The hosted API handles
// them fine.
var videoContainerExts = map[string]bool{
	".webm": true, ".mp4": true, ".mkv": true, ".mov": true, ".avi": true, ".mpeg": true, ".mpg": true,
}

// localLanguages are the language codes the local recognizer output is
// accepted for.
var localLanguages = map[string]bool{"en": true, "hi": true, "": true}

// Heuristic weights for candidate selection.
const (
	hostedBonus    = 0.05
	localBonus     = 0.03
	lengthCapWords = 60
	lengthDivisor  = 600.0
	qualityPenalty = 0.25
)

// TranscriptionService produces one cleaned transcript for a media file by
// racing the local recognizer, the hosted API, and the client hint, then
// picking the best surviving candidate.
type TranscriptionService struct {
	Local  domain.LocalRecognizer
	Hosted domain.SpeechTranscriber
}

type transcriptCandidate struct {
	text  string
	bonus float64
}

// Transcribe returns the best transcript for the media file, or the cleaned
// hint, or an empty string. Every external call is guarded; it never fails.
func (s TranscriptionService) Transcribe(ctx domain.Context, mediaPath, filename, hint string) string {
	var candidates []transcriptCandidate

	ext := strings.ToLower(filepath.Ext(filename))
	if mediaPath != "" && s.Local != nil && s.Local.Available() && !videoContainerExts[ext] {
		if text, lang, err := s.Local.Recognize(ctx, mediaPath); err != nil {
			slog.Warn("local transcription failed", slog.String("media", mediaPath), slog.Any("error", err))
		} else if !localLanguages[strings.ToLower(lang)] {
			slog.Debug("local transcript dropped for language", slog.String("language", lang))
		} else if cleaned := prepareCandidate(text); cleaned != "" {
			candidates = append(candidates, transcriptCandidate{text: cleaned, bonus: localBonus})
		}
	}

	if mediaPath != "" && s.Hosted != nil && s.Hosted.Configured() {
		if text, err := s.Hosted.TranscribeFile(ctx, mediaPath, filename); err != nil {
			slog.Warn("hosted transcription failed", slog.String("media", mediaPath), slog.Any("error", err))
		} else if cleaned := prepareCandidate(text); cleaned != "" {
			candidates = append(candidates, transcriptCandidate{text: cleaned, bonus: hostedBonus})
		}
	}

	cleanedHint := prepareCandidate(hint)
	if cleanedHint != "" {
		candidates = append(candidates, transcriptCandidate{text: cleanedHint, bonus: localBonus})
	}

	if best := pickBest(candidates); best != "" {
		return best
	}
	return cleanedHint
}

// prepareCandidate cleans one raw transcript and applies the marker and
// script filters. Devanagari is romanized first so genuine Hindi speech
// survives; any other non-Latin script is rejected outright.
func prepareCandidate(raw string) string {
	cleaned := textx.CleanTranscript(raw)
	if cleaned == "" {
		return ""
	}
	if textx.HasDevanagari(cleaned) {
		cleaned = textx.CleanTranscript(textx.Romanize(cleaned))
	}
	if textx.LooksLikeUnsupportedMarker(cleaned) || !textx.IsLatinScript(cleaned) {
		return ""
	}
	return cleaned
}

// pickBest scores each candidate: source bonus + capped length bonus - a
// penalty for repetitive low-quality text.
func pickBest(candidates []transcriptCandidate) string {
	best := ""
	bestScore := -1.0
	for _, c := range candidates {
		words := len(strings.Fields(c.text))
		if words > lengthCapWords {
			words = lengthCapWords
		}
		score := c.bonus + float64(words)/lengthDivisor
		if textx.IsLowQuality(c.text) {
			score -= qualityPenalty
		}
		if score > bestScore {
			bestScore = score
			best = c.text
		}
	}
	return best
}
