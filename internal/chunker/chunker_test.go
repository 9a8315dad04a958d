package chunker

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeWords(n int, sentenceEvery int) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		w := fmt.Sprintf("w%d", i)
		if sentenceEvery > 0 && (i+1)%sentenceEvery == 0 {
			w += "."
		}
		parts = append(parts, w)
	}
	return strings.Join(parts, " ")
}

func TestNormalize(t *testing.T) {
	in := "a\r\nb\r\n\r\n\r\n\r\nc\t\t d   e"
	require.Equal(t, "a\nb\n\nc d e", Normalize(in))
}

func TestChunkEmptyText(t *testing.T) {
	require.Empty(t, Chunk("   \n\t", Options{}))
	require.Equal(t, 0, EstimateChunkCount("", Options{}))
}

func TestChunkSingleChunkShortcut(t *testing.T) {
	for _, n := range []int{1, 10, 799, 800} {
		chunks := Chunk(makeWords(n, 7), Options{})
		require.Len(t, chunks, 1, "words=%d", n)
		require.Equal(t, 0, chunks[0].StartWord)
		require.Equal(t, n, chunks[0].EndWord)
		require.Equal(t, n, chunks[0].WordCount)
	}
}

func TestChunkSingleChunkKeepsParagraphs(t *testing.T) {
	chunks := Chunk("First line.\n\n\n\nSecond   line.", Options{})
	require.Len(t, chunks, 1)
	require.Equal(t, "First line.\n\nSecond line.", chunks[0].Text)
}

func TestChunkTwoThousandWords(t *testing.T) {
	for _, every := range []int{0, 9, 37, 120} {
		text := makeWords(2000, every)
		chunks := Chunk(text, Options{ChunkSize: 800, OverlapSize: 100})
		require.Len(t, chunks, 3, "sentenceEvery=%d", every)
		require.Equal(t, 3, EstimateChunkCount(text, Options{ChunkSize: 800, OverlapSize: 100}))
	}
}

func TestChunkPrefersSentenceEndAfterIdeal(t *testing.T) {
	words := strings.Fields(makeWords(300, 0))
	words[109] += "."
	words[89] += "."
	chunks := Chunk(strings.Join(words, " "), Options{ChunkSize: 100, OverlapSize: 10})
	require.Equal(t, 110, chunks[0].EndWord)
	require.Equal(t, 100, chunks[1].StartWord)
}

func TestChunkFallsBackToEarlierSentenceEnd(t *testing.T) {
	words := strings.Fields(makeWords(300, 0))
	words[79] += "!"
	chunks := Chunk(strings.Join(words, " "), Options{ChunkSize: 100, OverlapSize: 10})
	require.Equal(t, 80, chunks[0].EndWord)
}

func TestChunkCutsAtIdealWithoutPunctuation(t *testing.T) {
	chunks := Chunk(makeWords(250, 0), Options{ChunkSize: 100, OverlapSize: 10})
	require.Equal(t, 100, chunks[0].EndWord)
	require.Equal(t, 90, chunks[1].StartWord)
}

func TestChunkOverlapNotLargerThanProgress(t *testing.T) {
	chunks := Chunk(makeWords(50, 0), Options{ChunkSize: 10, OverlapSize: 10})
	for i := 1; i < len(chunks); i++ {
		require.Greater(t, chunks[i].StartWord, chunks[i-1].StartWord)
	}
	require.Equal(t, 50, chunks[len(chunks)-1].EndWord)
}

func TestChunkProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 200; iter++ {
		n := r.IntN(3000) + 1
		every := r.IntN(60)
		opts := Options{ChunkSize: r.IntN(400) + 20}
		opts.OverlapSize = r.IntN(opts.ChunkSize)
		text := makeWords(n, every)
		chunks := Chunk(text, opts)

		require.Equal(t, len(chunks), EstimateChunkCount(text, opts))
		require.Equal(t, 0, chunks[0].StartWord)
		require.Equal(t, n, chunks[len(chunks)-1].EndWord)

		covered := make([]int, n)
		for i, c := range chunks {
			require.Equal(t, i, c.Index)
			require.Equal(t, c.EndWord-c.StartWord, c.WordCount)
			require.Len(t, strings.Fields(c.Text), c.WordCount)
			if len(chunks) > 1 {
				require.LessOrEqual(t, c.WordCount, opts.ChunkSize+BoundaryWindow)
			}
			if i > 0 {
				require.LessOrEqual(t, c.StartWord, chunks[i-1].EndWord, "gap before chunk %d", i)
				require.Greater(t, c.StartWord, chunks[i-1].StartWord)
			}
			for w := c.StartWord; w < c.EndWord; w++ {
				covered[w]++
			}
		}
		for w, count := range covered {
			require.GreaterOrEqual(t, count, 1, "word %d not covered", w)
		}
	}
}
