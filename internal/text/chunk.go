// Package text splits scripts into provider-safe chunks.
//
// The upstream synthesis API enforces a hard per-request character ceiling,
// so long scripts are cut into ordered pieces that each fit under the limit
// without ever breaking a word. Splitting prefers paragraph breaks, then
// word boundaries, and only hard-splits a single token when that token alone
// exceeds the limit.
package text

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkLimit is the production chunk size. The provider rejects
// requests over 500 characters; 450 leaves margin for encoding overhead.
const DefaultChunkLimit = 450

// Chunk splits input into ordered chunks of at most limit runes each.
//
// Limits are counted in runes, not bytes: scripts here are routinely
// Devanagari, Tamil or other multi-byte text, and a byte-indexed hard split
// would corrupt a character mid-sequence.
//
// Empty or whitespace-only input yields no chunks. Input that already fits
// the limit yields exactly one trimmed chunk. No chunk is ever empty.
func Chunk(input string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	if utf8.RuneCountInString(trimmed) <= limit {
		return []string{trimmed}
	}

	var chunks []string

	var lines []string

	lineLen := 0

	flushLines := func() {
		if len(lines) == 0 {
			return
		}

		joined := strings.TrimSpace(strings.Join(lines, "\n"))
		if joined != "" {
			chunks = append(chunks, joined)
		}

		lines = lines[:0]
		lineLen = 0
	}

	// Paragraph breaks first: lines are accumulated until the next one
	// would push the buffer past the limit.
	for _, line := range strings.Split(input, "\n") {
		runes := utf8.RuneCountInString(line)

		if lineLen+runes+1 > limit {
			flushLines()
		}

		if runes > limit {
			flushLines()

			chunks = append(chunks, chunkWords(line, limit)...)

			continue
		}

		if lineLen > 0 {
			lineLen++
		}

		lines = append(lines, line)
		lineLen += runes
	}

	flushLines()

	return chunks
}

// chunkWords splits a single over-long line at word boundaries, falling back
// to a rune-sliced hard split for any token that alone exceeds the limit.
func chunkWords(line string, limit int) []string {
	var chunks []string

	var words []string

	wordLen := 0

	flushWords := func() {
		if len(words) == 0 {
			return
		}

		chunks = append(chunks, strings.Join(words, " "))
		words = words[:0]
		wordLen = 0
	}

	for _, word := range strings.Fields(line) {
		runes := utf8.RuneCountInString(word)

		if runes > limit {
			// Pathological token (URL, unbroken run). Hard-split it;
			// natural language essentially never produces these.
			flushWords()

			chunks = append(chunks, splitRunes(word, limit)...)

			continue
		}

		if wordLen > 0 && wordLen+1+runes > limit {
			flushWords()
		}

		if wordLen > 0 {
			wordLen++
		}

		words = append(words, word)
		wordLen += runes
	}

	flushWords()

	return chunks
}

// splitRunes cuts word into fixed-size slices of limit runes each.
func splitRunes(word string, limit int) []string {
	runes := []rune(word)

	parts := make([]string, 0, (len(runes)+limit-1)/limit)

	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}

		parts = append(parts, string(runes[start:end]))
	}

	return parts
}

// TruncateWords returns the first n whitespace-delimited words of input,
// joined by single spaces. Used to cut a script down for preview synthesis.
func TruncateWords(input string, n int) string {
	words := strings.Fields(input)
	if len(words) > n {
		words = words[:n]
	}

	return strings.Join(words, " ")
}

// WordCount reports the number of whitespace-delimited words in input.
func WordCount(input string) int {
	return len(strings.Fields(input))
}
