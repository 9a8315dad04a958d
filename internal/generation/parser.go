package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xxxsen/studygen/internal/model"
)

var (
	fenceMarker = regexp.MustCompile("```[a-zA-Z]*")
	jsonObject  = regexp.MustCompile(`(?s)\{.*\}`)
)

// Parse extracts study items from raw model output. It never fails: anything
// it cannot read yields empty collections, and entries missing required fields
// are dropped one by one.
func Parse(raw string) model.ChunkResult {
	result := model.EmptyChunkResult()
	clean := fenceMarker.ReplaceAllString(raw, "")
	match := jsonObject.FindString(clean)
	if match == "" {
		return result
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(match), &doc); err != nil {
		return result
	}
	for _, entry := range objects(doc["flashcards"]) {
		q, a := str(entry, "question"), str(entry, "answer")
		if q == "" || a == "" {
			continue
		}
		result.Flashcards = append(result.Flashcards, model.Flashcard{Question: q, Answer: a})
	}
	for _, entry := range objects(doc["mcqs"]) {
		q := str(entry, "question")
		opts, ok := options(entry["options"])
		if q == "" || !ok {
			continue
		}
		idx := integer(entry["correctIndex"])
		if idx < 0 || idx >= len(opts) {
			idx = 0
		}
		result.MCQs = append(result.MCQs, model.MCQ{
			Question:     q,
			Options:      opts,
			CorrectIndex: idx,
			Explanation:  str(entry, "explanation"),
		})
	}
	for _, entry := range objects(doc["fillBlanks"]) {
		s, a := str(entry, "sentence"), str(entry, "answer")
		if s == "" || a == "" {
			continue
		}
		result.FillBlanks = append(result.FillBlanks, model.FillBlank{Sentence: s, Answer: a, Explanation: str(entry, "explanation")})
	}
	for _, entry := range objects(doc["shortAnswers"]) {
		q := str(entry, "question")
		if q == "" {
			continue
		}
		result.ShortAnswers = append(result.ShortAnswers, model.ShortAnswer{Question: q, SuggestedAnswer: str(entry, "suggestedAnswer")})
	}
	return result
}

// objects decodes an array of JSON objects, skipping elements that are not objects.
func objects(raw json.RawMessage) []map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		var m map[string]interface{}
		if err := json.Unmarshal(item, &m); err != nil || m == nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

func str(m map[string]interface{}, key string) string {
	v, ok := m[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func options(v interface{}) ([]string, bool) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) < 2 {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		switch val := item.(type) {
		case string:
			out = append(out, strings.TrimSpace(val))
		case nil:
			out = append(out, "")
		default:
			out = append(out, fmt.Sprint(val))
		}
	}
	return out, true
}

func integer(v interface{}) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
