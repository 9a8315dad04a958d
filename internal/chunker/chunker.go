// Package chunker splits source text into bounded word windows that overlap so
// each window keeps some context from the one before it.
package chunker

import (
	"regexp"
	"strings"

	"github.com/xxxsen/studygen/internal/model"
)

const (
	DefaultChunkSize   = 800
	DefaultOverlapSize = 100
	// BoundaryWindow is how far, in words, a cut may move from the ideal end
	// to land on a sentence boundary.
	BoundaryWindow = 50
)

type Options struct {
	ChunkSize   int
	OverlapSize int
}

func (o Options) normalize() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.OverlapSize < 0 {
		o.OverlapSize = 0
	}
	return o
}

var (
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	spaceRuns    = regexp.MustCompile(`[ \t]+`)
)

// Normalize unifies line endings, collapses 3+ newlines to 2 and runs of
// spaces or tabs to a single space.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Chunk splits text into ordered chunks. Text with no words yields no chunks.
func Chunk(text string, opts Options) []model.TextChunk {
	opts = opts.normalize()
	normalized := Normalize(text)
	words := strings.Fields(normalized)
	spans := split(words, opts)
	chunks := make([]model.TextChunk, 0, len(spans))
	for i, sp := range spans {
		chunkText := strings.Join(words[sp.start:sp.end], " ")
		if len(spans) == 1 {
			chunkText = normalized
		}
		chunks = append(chunks, model.TextChunk{
			Index:     i,
			Text:      chunkText,
			WordCount: sp.end - sp.start,
			StartWord: sp.start,
			EndWord:   sp.end,
		})
	}
	return chunks
}

// EstimateChunkCount reports how many chunks Chunk would produce for the same input.
func EstimateChunkCount(text string, opts Options) int {
	opts = opts.normalize()
	return len(split(strings.Fields(Normalize(text)), opts))
}

type span struct {
	start int
	end   int
}

func split(words []string, opts Options) []span {
	total := len(words)
	if total == 0 {
		return nil
	}
	if total <= opts.ChunkSize {
		return []span{{start: 0, end: total}}
	}
	var spans []span
	start := 0
	for start < total {
		idealEnd := start + opts.ChunkSize
		if idealEnd >= total {
			spans = append(spans, span{start: start, end: total})
			break
		}
		end := sentenceBoundary(words, start, idealEnd)
		spans = append(spans, span{start: start, end: end})
		next := end - opts.OverlapSize
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// sentenceBoundary returns an exclusive end index near idealEnd that follows a
// word closing a sentence. Positions at or after idealEnd are preferred. When
// nothing qualifies the cut happens at idealEnd.
func sentenceBoundary(words []string, start, idealEnd int) int {
	total := len(words)
	upper := idealEnd + BoundaryWindow
	if upper > total-1 {
		upper = total - 1
	}
	for end := idealEnd; end <= upper; end++ {
		if endsSentence(words[end-1]) {
			return end
		}
	}
	lower := idealEnd - BoundaryWindow
	if lower < start+1 {
		lower = start + 1
	}
	for end := idealEnd - 1; end >= lower; end-- {
		if endsSentence(words[end-1]) {
			return end
		}
	}
	return idealEnd
}

func endsSentence(word string) bool {
	if word == "" {
		return false
	}
	switch word[len(word)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
