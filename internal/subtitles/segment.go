package subtitles

import (
	"strings"
	"unicode"
)

// Segment is one display chunk of the narration text. Start and End are
// rune offsets into the original text, [Start, End).
type Segment struct {
	Text  string
	Start int
	End   int
}

// Sentence-final punctuation always closes a segment.
var hardBreaks = map[rune]bool{
	'。': true, '！': true, '？': true,
	'.': true, '!': true, '?': true,
}

type word struct {
	start int
	end   int
}

// SegmentText splits narration into display-sized chunks: up to maxWords
// words per chunk, closing early at sentence-final punctuation. A CJK rune
// counts as one word; latin words are whitespace-delimited. Punctuation
// attaches to the preceding word.
func SegmentText(text string, maxWords int) []Segment {
	if maxWords <= 0 {
		maxWords = 10
	}

	runes := []rune(text)
	words := splitWords(runes)
	if len(words) == 0 {
		return nil
	}

	var segments []Segment
	segStart := -1
	count := 0
	var lastEnd int

	flush := func(end int) {
		if segStart < 0 {
			return
		}
		segText := strings.TrimSpace(string(runes[segStart:end]))
		if segText != "" {
			segments = append(segments, Segment{Text: segText, Start: segStart, End: end})
		}
		segStart = -1
		count = 0
	}

	for _, w := range words {
		if segStart < 0 {
			segStart = w.start
		}
		count++
		lastEnd = w.end

		if count >= maxWords || endsSentence(runes, w.end) {
			flush(w.end)
		}
	}
	flush(lastEnd)

	return segments
}

func endsSentence(runes []rune, end int) bool {
	return end > 0 && hardBreaks[runes[end-1]]
}

// splitWords tokenizes the rune stream. Each word's end offset includes any
// punctuation that immediately follows it.
func splitWords(runes []rune) []word {
	var words []word
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isCJK(r):
			start := i
			i++
			i = absorbPunct(runes, i)
			words = append(words, word{start: start, end: i})
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// Leading punctuation attaches to the previous word when one
			// exists, otherwise it starts its own.
			start := i
			i = absorbPunct(runes, i)
			if len(words) > 0 && words[len(words)-1].end == start {
				words[len(words)-1].end = i
			} else {
				words = append(words, word{start: start, end: i})
			}
		default:
			start := i
			for i < len(runes) && !unicode.IsSpace(runes[i]) && !isCJK(runes[i]) && !unicode.IsPunct(runes[i]) && !unicode.IsSymbol(runes[i]) {
				i++
			}
			i = absorbPunct(runes, i)
			words = append(words, word{start: start, end: i})
		}
	}
	return words
}

func absorbPunct(runes []rune, i int) int {
	for i < len(runes) && (unicode.IsPunct(runes[i]) || unicode.IsSymbol(runes[i])) {
		i++
	}
	return i
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
