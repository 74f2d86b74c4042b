package game

import (
	"time"

	"github.com/SuryaXyz-art/Type-Arena/internal/models"
)

// Anti-cheat plausibility ceilings. MaxReportedWPM is a universal
// per-update cap on the client-reported value; MaxImpliedWPM bounds the
// WPM implied by a completion claim's elapsed time, with margin above the
// hard cap to tolerate network latency.
const (
	MaxReportedWPM = 300
	MaxImpliedWPM  = 350
)

// Verdict is the outcome of validating a single progress report.
type Verdict struct {
	Accept       bool
	Finish       bool  // the report is an accepted completion claim
	FinishTimeMs int64 // ms since race start, set when Finish is true
}

// ValidateProgress applies the anti-cheat policy to one progress report.
// It is pure: the caller applies the verdict to the player.
//
// A report is rejected outright when the claimed WPM exceeds the hard
// cap. A completion claim (progress >= 100 on an unfinished player) is
// additionally checked against the WPM implied by the race text length
// and elapsed time. Non-completion updates are adopted verbatim;
// progress is deliberately not required to be monotonic.
func ValidateProgress(room *models.Room, player *models.Player, progress, wpm float64, now time.Time) Verdict {
	if wpm > MaxReportedWPM {
		return Verdict{}
	}

	if progress >= 100 && !player.Finished {
		var startMs int64
		if room.StartTimeMs != nil {
			startMs = *room.StartTimeMs
		}
		elapsedMs := now.UnixMilli() - startMs
		elapsedMinutes := float64(elapsedMs) / 60000.0
		wordCount := float64(len(room.Text)) / 5.0

		// elapsedMinutes of zero divides to +Inf, which also rejects.
		if wordCount/elapsedMinutes > MaxImpliedWPM {
			return Verdict{}
		}

		return Verdict{Accept: true, Finish: true, FinishTimeMs: elapsedMs}
	}

	return Verdict{Accept: true}
}
