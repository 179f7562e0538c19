package usecase

import (
	"log/slog"
	"math"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// frameSampleStep picks every 12th decoded frame for analysis.
const frameSampleStep = 12

// defaultVideoMetrics is the neutral signal used when analysis is
// unavailable or fails.
func defaultVideoMetrics() domain.VideoMetrics {
	return domain.VideoMetrics{
		FacePresenceRatio: 0.5,
		SmileRatio:        0.5,
		GazeCenterRatio:   0.5,
		SeriousnessRatio:  0.5,
	}
}

// VideoAnalyzer derives the four delivery ratios from detector output.
type VideoAnalyzer struct {
	Detector domain.FrameDetector
}

// Analyze returns the metrics for a media file, degrading to defaults when
// the detector is unavailable or errors. It never fails.
func (a VideoAnalyzer) Analyze(ctx domain.Context, mediaPath string) domain.VideoMetrics {
	if a.Detector == nil || !a.Detector.Available() {
		return defaultVideoMetrics()
	}
	frames, err := a.Detector.Detect(ctx, mediaPath)
	if err != nil {
		slog.Warn("video analysis failed", slog.String("media", mediaPath), slog.Any("error", err))
		return defaultVideoMetrics()
	}
	return ComputeVideoMetrics(frames)
}

// ComputeVideoMetrics samples every 12th frame and accumulates face, smile,
// and gaze counts. A face is "centered" when its horizontal center is within
// 20% of the frame center. Seriousness is the complement of the smile ratio
// capped at 0.85. All ratios are clamped to [0,1] and rounded to 3 decimals.
func ComputeVideoMetrics(frames []domain.FrameObservation) domain.VideoMetrics {
	var sampled, withFace, smiling, centered int
	for _, f := range frames {
		if f.Index%frameSampleStep != 0 {
			continue
		}
		sampled++
		if f.Face == nil {
			continue
		}
		withFace++
		if f.Face.Smile {
			smiling++
		}
		if math.Abs(f.Face.CenterX-0.5) <= 0.2 {
			centered++
		}
	}
	if sampled == 0 {
		return defaultVideoMetrics()
	}

	// When no face was seen the denominator degrades to 1, yielding zero
	// smile and gaze ratios and full seriousness.
	faceFrames := math.Max(float64(withFace), 1)
	facePresence := float64(withFace) / float64(sampled)
	smileRatio := float64(smiling) / faceFrames
	gazeCenter := float64(centered) / faceFrames
	seriousness := 1 - math.Min(smileRatio, 0.85)

	return domain.VideoMetrics{
		FacePresenceRatio: round3(clamp01(facePresence)),
		SmileRatio:        round3(clamp01(smileRatio)),
		GazeCenterRatio:   round3(clamp01(gazeCenter)),
		SeriousnessRatio:  round3(clamp01(seriousness)),
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
