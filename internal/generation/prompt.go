package generation

import (
	"fmt"
	"strings"
)

const hostedSystemPrompt = `You are an expert educator who turns course material into study items.
Respond ONLY with a single valid JSON object. No markdown, no commentary.`

// Local models are small and run with a bounded context window, so they get a
// stricter format reminder and smaller item counts.
const localSystemPrompt = `You are a teacher writing study items from course notes.
Output one JSON object and nothing else. Do not wrap it in code fences. Keep every string short.`

const hostedCounts = "5-10 flashcards, 3-6 mcqs with 4 options each, 3-6 fillBlanks, 2-4 shortAnswers."

const localCounts = "3-6 flashcards, 2-4 mcqs with 4 options each, 2-4 fillBlanks, 1-3 shortAnswers."

const taskPrompt = `Create study material from section %d of %d of a document.

Return JSON with exactly this shape:
{
  "flashcards": [{"question": "...", "answer": "..."}],
  "mcqs": [{"question": "...", "options": ["...", "...", "...", "..."], "correctIndex": 0, "explanation": "..."}],
  "fillBlanks": [{"sentence": "A sentence with _____ for the missing term.", "answer": "...", "explanation": "..."}],
  "shortAnswers": [{"question": "...", "suggestedAnswer": "..."}]
}

Rules:
- Use only facts stated in the content.
- %s
- correctIndex is the 0-based index of the right option.
- Each fillBlanks sentence contains exactly one "_____".
- Use the same language as the content.
%s
CONTENT:
%s`

type promptVariant struct {
	system string
	counts string
}

var (
	hostedVariant = promptVariant{system: hostedSystemPrompt, counts: hostedCounts}
	localVariant  = promptVariant{system: localSystemPrompt, counts: localCounts}
)

func promptFor(provider string) promptVariant {
	if strings.EqualFold(provider, "ollama") {
		return localVariant
	}
	return hostedVariant
}

func (v promptVariant) build(text string, chunkIndex, totalChunks int, customInstructions string) string {
	extra := ""
	if ci := strings.TrimSpace(customInstructions); ci != "" {
		extra = "\nAdditional instructions from the user:\n" + ci + "\n"
	}
	return fmt.Sprintf(taskPrompt, chunkIndex+1, totalChunks, v.counts, extra, text)
}
