// Package subtitles derives time-aligned SRT cues for narration audio.
//
// Cue text comes from segmenting the narration into display-sized chunks;
// cue timing comes from the word timing events the speech service reports.
// When an offset falls between recorded events the time is linearly
// interpolated; when no events exist at all, the total audio duration is
// divided across chunks in proportion to their character counts. Either
// way the produced cues are non-overlapping, monotonically increasing, and
// end exactly at the audio duration.
package subtitles
