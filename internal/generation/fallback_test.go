package generation

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) *FallbackGenerator {
	return NewFallbackGenerator(rand.New(rand.NewPCG(seed, seed)))
}

const biologyText = "The mitochondria is the powerhouse of the cell. It produces ATP."

func TestFallback_NonEmpty(t *testing.T) {
	res := seeded(1).Generate(biologyText)
	require.GreaterOrEqual(t, len(res.Flashcards), 1)
	require.Equal(t, "The mitochondria is the powerhouse of the cell.", res.Flashcards[0].Answer)
	require.Contains(t, res.Flashcards[0].Question, "mitochondria")
}

func TestFallback_Empty(t *testing.T) {
	res := seeded(1).Generate("   ")
	require.Equal(t, 0, res.Total())
	require.NotNil(t, res.MCQs)
}

func TestFallback_FragmentsWhenNoSentence(t *testing.T) {
	res := seeded(1).Generate("Cells divide.\nAtoms bond.")
	require.NotEmpty(t, res.Flashcards)
	require.Equal(t, "Cells divide", res.Flashcards[0].Answer)
}

func TestFallback_GuardCardForStopWordsOnly(t *testing.T) {
	res := seeded(1).Generate("It is what it is and so it was.")
	require.Len(t, res.Flashcards, 1)
	require.Equal(t, "It is what it is and so it was.", res.Flashcards[0].Answer)
}

func TestFallback_FillBlank(t *testing.T) {
	res := seeded(3).Generate("Photosynthesis converts sunlight into chemical energy.")
	require.Len(t, res.FillBlanks, 1)
	fb := res.FillBlanks[0]
	require.Equal(t, 1, strings.Count(fb.Sentence, blankMarker))
	require.Contains(t, []string{"Photosynthesis", "converts", "sunlight"}, fb.Answer)
	require.Equal(t, "Photosynthesis converts sunlight into chemical energy.", strings.Replace(fb.Sentence, blankMarker, fb.Answer, 1))
}

func TestFallback_MCQ(t *testing.T) {
	sentence := "Photosynthesis converts sunlight into chemical energy inside chloroplasts."
	for seed := uint64(0); seed < 20; seed++ {
		res := seeded(seed).Generate(sentence)
		require.Len(t, res.MCQs, 1)
		mcq := res.MCQs[0]
		require.Len(t, mcq.Options, 4)
		require.Equal(t, "Photosynthesis", mcq.Options[mcq.CorrectIndex])
		require.Equal(t, sentence, mcq.Explanation)
	}
}

func TestFallback_MCQPlaceholders(t *testing.T) {
	res := seeded(1).Generate("Gravity gravity gravity pulls matter.")
	require.Len(t, res.MCQs, 1)
	joined := strings.Join(res.MCQs[0].Options, "|")
	require.Contains(t, joined, "Option ")
	require.Len(t, res.MCQs[0].Options, 4)
}

func TestFallback_Caps(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("Enzymes accelerate biochemical reactions inside living organisms. ")
	}
	res := seeded(1).Generate(b.String())
	require.Len(t, res.Flashcards, maxFallbackFlashcards)
	require.Len(t, res.FillBlanks, maxFallbackFillBlanks)
	require.Len(t, res.MCQs, maxFallbackMCQs)
	require.Len(t, res.ShortAnswers, maxFallbackShortAnswers)
}

func TestFallback_SameSeedSameOutput(t *testing.T) {
	text := "Enzymes accelerate biochemical reactions inside living organisms. Proteins fold into complex three dimensional structures."
	require.Equal(t, seeded(9).Generate(text), seeded(9).Generate(text))
}

func TestExtractSentences_LengthBounds(t *testing.T) {
	long := strings.Repeat("x", 601) + "."
	got := extractSentences("Short one. This sentence is long enough to keep. " + long)
	require.Equal(t, []string{"This sentence is long enough to keep."}, got)
}
