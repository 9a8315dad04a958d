package generation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_NotJSON(t *testing.T) {
	res := Parse("not json at all")
	require.NotNil(t, res.Flashcards)
	require.Empty(t, res.Flashcards)
	require.Empty(t, res.MCQs)
	require.Empty(t, res.FillBlanks)
	require.Empty(t, res.ShortAnswers)
}

func TestParse_FencedWithProse(t *testing.T) {
	raw := "Sure! Here you go:\n```json\n{\"flashcards\":[{\"question\":\"Q1\",\"answer\":\"A1\"}]}\n```\nHope it helps."
	res := Parse(raw)
	require.Len(t, res.Flashcards, 1)
	require.Equal(t, "Q1", res.Flashcards[0].Question)
	require.Equal(t, "A1", res.Flashcards[0].Answer)
}

func TestParse_DropsIncompleteEntries(t *testing.T) {
	raw := `{
		"flashcards": [{"question": "Q"}, {"question": "Q2", "answer": "A2"}, "junk", {"question": "  ", "answer": "x"}],
		"fillBlanks": [{"sentence": "The _____ is red."}, {"sentence": "The _____ is blue.", "answer": "sky"}],
		"shortAnswers": [{"suggestedAnswer": "orphan"}, {"question": "Why?"}]
	}`
	res := Parse(raw)
	require.Len(t, res.Flashcards, 1)
	require.Equal(t, "Q2", res.Flashcards[0].Question)
	require.Len(t, res.FillBlanks, 1)
	require.Equal(t, "sky", res.FillBlanks[0].Answer)
	require.Empty(t, res.FillBlanks[0].Explanation)
	require.Len(t, res.ShortAnswers, 1)
	require.Equal(t, "Why?", res.ShortAnswers[0].Question)
	require.Equal(t, "", res.ShortAnswers[0].SuggestedAnswer)
}

func TestParse_MCQ(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		count   int
		index   int
		options []string
	}{
		{
			name:    "two options defaults",
			raw:     `{"mcqs":[{"question":"Q","options":["a","b"]}]}`,
			count:   1,
			index:   0,
			options: []string{"a", "b"},
		},
		{
			name:    "index kept",
			raw:     `{"mcqs":[{"question":"Q","options":["a","b","c"],"correctIndex":2}]}`,
			count:   1,
			index:   2,
			options: []string{"a", "b", "c"},
		},
		{
			name:    "index out of range",
			raw:     `{"mcqs":[{"question":"Q","options":["a","b"],"correctIndex":7}]}`,
			count:   1,
			index:   0,
			options: []string{"a", "b"},
		},
		{
			name:    "numeric options stringified",
			raw:     `{"mcqs":[{"question":"Q","options":[1,2.5,"x"],"correctIndex":"1"}]}`,
			count:   1,
			index:   1,
			options: []string{"1", "2.5", "x"},
		},
		{
			name:  "single option dropped",
			raw:   `{"mcqs":[{"question":"Q","options":["a"]}]}`,
			count: 0,
		},
		{
			name:  "options not array",
			raw:   `{"mcqs":[{"question":"Q","options":"a,b"}]}`,
			count: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw)
			require.Len(t, res.MCQs, tt.count)
			if tt.count == 0 {
				return
			}
			require.Equal(t, tt.index, res.MCQs[0].CorrectIndex)
			require.Equal(t, tt.options, res.MCQs[0].Options)
			require.Equal(t, "", res.MCQs[0].Explanation)
		})
	}
}

func TestParse_WrongTypedArrayIsolated(t *testing.T) {
	res := Parse(`{"flashcards": "oops", "shortAnswers": [{"question":"Q","suggestedAnswer":"A"}]}`)
	require.Empty(t, res.Flashcards)
	require.Len(t, res.ShortAnswers, 1)
}
