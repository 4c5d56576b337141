package subtitles

import (
	"fmt"
	"strings"
)

// ComposeSRT renders cues in the standard index / time-range / text block
// format.
func ComposeSRT(cues []Cue) string {
	var b strings.Builder
	for _, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue.Index, FormatTimestamp(cue.StartMS), FormatTimestamp(cue.EndMS), cue.Text)
	}
	return b.String()
}

// FormatTimestamp renders milliseconds as the SRT HH:MM:SS,mmm form.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
