package render

import (
	"fmt"
	"math"
)

// frameAwareSeconds snaps a timestamp to the frame grid for the NTSC rates
// that need it. Subtitles landing between frames shift visibly in NLE
// timelines; snapping keeps them cut-accurate.
func frameAwareSeconds(seconds, fps float64) float64 {
	switch {
	case fps == 0:
		return seconds
	case math.Abs(fps-29.97) < 0.1:
		return math.Round(seconds*29.97) / 29.97
	case math.Abs(fps-23.976) < 0.1:
		return math.Round(seconds*23.976) / 23.976
	default:
		return seconds
	}
}

// rationalTime converts seconds to the FCPXML rational time format using the
// given frame duration. The 1001/30000 NTSC case rounds to whole frames so
// every emitted value is an exact frame boundary.
func rationalTime(seconds float64, frameDuration string, timebase int) string {
	if frameDuration == "1001/30000" {
		frames := math.Round(seconds * 30000 / 1001)
		return fmt.Sprintf("%d/30000s", int64(frames)*1001)
	}
	return fmt.Sprintf("%d/%ds", int64(math.Round(seconds*float64(timebase))), timebase)
}

// ittTime converts seconds to the HH:MM:SS.mmm timecode TTML uses, snapping
// to the frame grid first when fps is an NTSC rate.
func ittTime(seconds, fps float64) string {
	s := frameAwareSeconds(seconds, fps)
	hours := int(s) / 3600
	minutes := (int(s) % 3600) / 60
	secs := int(s) % 60
	millis := int(math.Round((s - math.Floor(s)) * 1000))
	if millis == 1000 {
		millis = 0
		secs++
		if secs == 60 {
			secs = 0
			minutes++
			if minutes == 60 {
				minutes = 0
				hours++
			}
		}
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}

// readableTimecode formats seconds as MM:SS, or HH:MM:SS past the first
// hour, for human-facing transcripts.
func readableTimecode(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// formatSettings picks the FCPXML format resource name and frame duration
// for the raster and rate. Unrecognised combinations fall back to 1080p
// NTSC, matching what Final Cut assumes for untagged media.
func formatSettings(width, height int, fps float64) (name, frameDuration string, timebase int) {
	if width == 0 {
		width = 1920
	}
	if height == 0 {
		height = 1080
	}
	if width == 1920 && height == 1080 {
		switch {
		case math.Abs(fps-30.0) < 0.1 && math.Abs(fps-29.97) >= 0.1:
			return "FFVideoFormat1080p30", "1/30", 30
		case math.Abs(fps-25.0) < 0.1:
			return "FFVideoFormat1080p25", "1/25", 25
		case math.Abs(fps-24.0) < 0.1 && math.Abs(fps-23.976) >= 0.1:
			return "FFVideoFormat1080p24", "1/24", 24
		}
	}
	return "FFVideoFormat1080p2997", "1001/30000", 30000
}
