package generation

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/studygen/internal/model"
)

const (
	blankMarker = "_____"

	maxFallbackFlashcards   = 25
	maxFallbackFillBlanks   = 15
	maxFallbackMCQs         = 10
	maxFallbackShortAnswers = 5

	minSentenceChars = 15
	maxSentenceChars = 600
	minFragmentChars = 10
	minImportantLen  = 4
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonAlnum      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	fragmentSplit = regexp.MustCompile(`[.\n]`)
)

var stopWords = toSet(
	"the", "a", "an", "and", "or", "but", "if", "then", "else", "when", "where", "while",
	"of", "at", "by", "for", "with", "about", "against", "between", "into", "through",
	"during", "before", "after", "above", "below", "to", "from", "up", "down", "in", "out",
	"on", "off", "over", "under", "again", "further", "once", "here", "there", "why", "how",
	"all", "any", "both", "each", "few", "more", "most", "other", "some", "such", "no", "nor",
	"not", "only", "own", "same", "so", "than", "too", "very", "can", "will", "just", "should",
	"now", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had", "having",
	"do", "does", "did", "doing", "this", "that", "these", "those", "it", "its", "they", "them",
	"their", "theirs", "what", "which", "who", "whom", "whose", "we", "our", "ours", "you",
	"your", "yours", "he", "him", "his", "she", "her", "hers", "i", "me", "my", "mine",
	"also", "would", "could", "may", "might", "must", "shall", "because", "as", "until",
	"upon", "within", "without", "among", "many", "much", "every", "either", "neither",
	"however", "therefore", "thus", "hence", "another", "often", "usually", "like", "into",
	"onto", "whether", "since", "unless", "although", "though", "etc",
)

func toSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

// FallbackGenerator builds study items from raw text with simple heuristics.
// It needs no network and is used whenever the model path yields nothing.
type FallbackGenerator struct {
	rng *rand.Rand
}

func NewFallbackGenerator(rng *rand.Rand) *FallbackGenerator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &FallbackGenerator{rng: rng}
}

func (g *FallbackGenerator) Generate(text string) model.ChunkResult {
	result := model.EmptyChunkResult()
	sentences := extractSentences(text)
	if len(sentences) == 0 {
		return result
	}
	keywords := make([][]string, len(sentences))
	for i, s := range sentences {
		keywords[i] = importantWords(s)
	}

	for i, s := range sentences {
		if len(result.Flashcards) >= maxFallbackFlashcards {
			break
		}
		if len(keywords[i]) == 0 {
			continue
		}
		result.Flashcards = append(result.Flashcards, model.Flashcard{
			Question: fmt.Sprintf("What does the text explain about %s?", strings.Join(topWords(keywords[i], 3), ", ")),
			Answer:   s,
		})
	}

	for i, s := range sentences {
		if len(result.FillBlanks) >= maxFallbackFillBlanks {
			break
		}
		words := keywords[i]
		if len(words) == 0 {
			continue
		}
		pick := words[g.rng.IntN(min(3, len(words)))]
		blanked, answer, ok := blankOut(s, pick)
		if !ok {
			continue
		}
		result.FillBlanks = append(result.FillBlanks, model.FillBlank{
			Sentence:    blanked,
			Answer:      answer,
			Explanation: s,
		})
	}

	for i, s := range sentences {
		if len(result.MCQs) >= maxFallbackMCQs {
			break
		}
		if len(keywords[i]) < 4 {
			continue
		}
		result.MCQs = append(result.MCQs, g.buildMCQ(s, keywords[i]))
	}

	for i, s := range sentences {
		if len(result.ShortAnswers) >= maxFallbackShortAnswers {
			break
		}
		if len(keywords[i]) == 0 {
			continue
		}
		result.ShortAnswers = append(result.ShortAnswers, model.ShortAnswer{
			Question:        fmt.Sprintf("Explain %s as described in the text.", strings.Join(topWords(keywords[i], 2), " and ")),
			SuggestedAnswer: s,
		})
	}

	if result.Total() == 0 {
		result.Flashcards = append(result.Flashcards, model.Flashcard{
			Question: "What does this passage state?",
			Answer:   sentences[0],
		})
	}
	return result
}

func (g *FallbackGenerator) buildMCQ(sentence string, words []string) model.MCQ {
	correct := words[0]
	opts := []string{correct}
	seen := map[string]bool{strings.ToLower(correct): true}
	for _, w := range words[1:] {
		if len(opts) == 4 {
			break
		}
		key := strings.ToLower(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		opts = append(opts, w)
	}
	for len(opts) < 4 {
		opts = append(opts, fmt.Sprintf("Option %d", len(opts)+1))
	}
	g.rng.Shuffle(len(opts), func(i, j int) {
		opts[i], opts[j] = opts[j], opts[i]
	})
	correctIndex := 0
	for i, o := range opts {
		if o == correct {
			correctIndex = i
			break
		}
	}
	question := fmt.Sprintf("Which term is most closely related to the following statement? %q", sentence)
	if blanked, _, ok := blankOut(sentence, correct); ok {
		question = fmt.Sprintf("Which term best completes the statement? %q", blanked)
	}
	return model.MCQ{
		Question:     question,
		Options:      opts,
		CorrectIndex: correctIndex,
		Explanation:  sentence,
	}
}

// extractSentences splits on sentence-ending punctuation followed by
// whitespace. If no sentence has a usable length, it falls back to splitting on
// periods and newlines.
func extractSentences(text string) []string {
	normalized := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	var out []string
	for _, s := range splitSentences(normalized) {
		n := utf8.RuneCountInString(s)
		if n >= minSentenceChars && n <= maxSentenceChars {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, frag := range fragmentSplit.Split(text, -1) {
		frag = strings.TrimSpace(whitespaceRun.ReplaceAllString(frag, " "))
		if utf8.RuneCountInString(frag) > minFragmentChars {
			out = append(out, frag)
		}
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func importantWords(sentence string) []string {
	cleaned := nonAlnum.ReplaceAllString(sentence, "")
	var out []string
	for _, w := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(w) < minImportantLen {
			continue
		}
		if _, stop := stopWords[strings.ToLower(w)]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

func topWords(words []string, n int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for _, w := range words {
		key := strings.ToLower(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
		if len(out) == n {
			break
		}
	}
	return out
}

// blankOut replaces the first case-insensitive whole-word occurrence of word
// with the blank marker and returns the replaced text as the answer.
func blankOut(sentence, word string) (string, string, bool) {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return "", "", false
	}
	loc := re.FindStringIndex(sentence)
	if loc == nil {
		return "", "", false
	}
	return sentence[:loc[0]] + blankMarker + sentence[loc[1]:], sentence[loc[0]:loc[1]], true
}
