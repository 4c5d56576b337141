package subtitles

import (
	"sort"
	"unicode/utf8"
)

// Event is one word timing observation from the speech service: the word's
// rune offset in the narration text and its audio interval.
type Event struct {
	TextOffset int
	Text       string
	StartMS    int64
	EndMS      int64
}

// Cue is one subtitle interval.
type Cue struct {
	Index   int
	StartMS int64
	EndMS   int64
	Text    string
}

// Build derives the cue track for narration text. totalMS is the audio
// duration; when events exist their span may exceed the estimate, in which
// case the later bound wins so the final cue still covers the full audio.
func Build(text string, events []Event, totalMS int64, maxWords int) []Cue {
	segments := SegmentText(text, maxWords)
	if len(segments) == 0 {
		return nil
	}
	if len(events) == 0 {
		return Uniform(segments, totalMS)
	}

	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TextOffset < sorted[j].TextOffset })

	if last := sorted[len(sorted)-1].EndMS; last > totalMS {
		totalMS = last
	}

	cues := make([]Cue, 0, len(segments))
	var prevEnd int64
	for i, seg := range segments {
		start := timeAt(sorted, seg.Start, totalMS)
		end := timeAt(sorted, seg.End, totalMS)
		if start < prevEnd {
			start = prevEnd
		}
		if end < start {
			end = start
		}
		if i == len(segments)-1 {
			end = totalMS
		}
		cues = append(cues, Cue{Index: i + 1, StartMS: start, EndMS: end, Text: seg.Text})
		prevEnd = end
	}
	return cues
}

// Uniform divides totalMS across segments in proportion to character count.
// The integer arithmetic keeps boundaries exact: the last cue ends at
// totalMS and adjacent cues share boundaries.
func Uniform(segments []Segment, totalMS int64) []Cue {
	if len(segments) == 0 {
		return nil
	}

	var totalWeight int64
	weights := make([]int64, len(segments))
	for i, seg := range segments {
		w := int64(utf8.RuneCountInString(seg.Text))
		if w <= 0 {
			w = 1
		}
		weights[i] = w
		totalWeight += w
	}

	cues := make([]Cue, 0, len(segments))
	var cumWeight, prevEnd int64
	for i, seg := range segments {
		cumWeight += weights[i]
		end := totalMS * cumWeight / totalWeight
		cues = append(cues, Cue{Index: i + 1, StartMS: prevEnd, EndMS: end, Text: seg.Text})
		prevEnd = end
	}
	return cues
}

// timeAt maps a rune offset to an audio time. Offsets inside a recorded
// word interpolate within that word's interval; offsets between events
// interpolate linearly across the gap; offsets before the first or after
// the last event clamp to the track bounds.
func timeAt(events []Event, offset int, totalMS int64) int64 {
	first := events[0]
	if offset <= first.TextOffset {
		return 0
	}
	last := events[len(events)-1]
	lastEnd := last.TextOffset + utf8.RuneCountInString(last.Text)
	if offset >= lastEnd {
		return totalMS
	}

	for i, ev := range events {
		evEnd := ev.TextOffset + utf8.RuneCountInString(ev.Text)
		if offset >= ev.TextOffset && offset < evEnd {
			span := evEnd - ev.TextOffset
			if span <= 0 {
				return ev.StartMS
			}
			return ev.StartMS + (ev.EndMS-ev.StartMS)*int64(offset-ev.TextOffset)/int64(span)
		}
		if i+1 < len(events) && offset >= evEnd && offset < events[i+1].TextOffset {
			next := events[i+1]
			gap := next.TextOffset - evEnd
			if gap <= 0 {
				return ev.EndMS
			}
			return ev.EndMS + (next.StartMS-ev.EndMS)*int64(offset-evEnd)/int64(gap)
		}
	}
	return totalMS
}
