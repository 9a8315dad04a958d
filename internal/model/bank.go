package model

type StudyBank struct {
	ID              string        `json:"id"`
	FileName        string        `json:"fileName"`
	CreatedAt       string        `json:"createdAt"`
	TotalChunks     int           `json:"totalChunks"`
	ProcessedChunks int           `json:"processedChunks"`
	Flashcards      []Flashcard   `json:"flashcards"`
	MCQs            []MCQ         `json:"mcqs"`
	FillBlanks      []FillBlank   `json:"fillBlanks"`
	ShortAnswers    []ShortAnswer `json:"shortAnswers"`
	IsProcessing    bool          `json:"isProcessing"`
	RawText         string        `json:"rawText,omitempty"`
}

// Clone returns a deep copy so snapshots handed to persistence never alias
// the aggregator's slices.
func (b *StudyBank) Clone() *StudyBank {
	if b == nil {
		return nil
	}
	out := *b
	out.Flashcards = append(make([]Flashcard, 0, len(b.Flashcards)), b.Flashcards...)
	out.MCQs = make([]MCQ, len(b.MCQs))
	for i, q := range b.MCQs {
		q.Options = append([]string(nil), q.Options...)
		out.MCQs[i] = q
	}
	out.FillBlanks = append(make([]FillBlank, 0, len(b.FillBlanks)), b.FillBlanks...)
	out.ShortAnswers = append(make([]ShortAnswer, 0, len(b.ShortAnswers)), b.ShortAnswers...)
	return &out
}

// Trimmed drops the raw source text, used when the fast-path mirror is short on space.
func (b *StudyBank) Trimmed() *StudyBank {
	out := b.Clone()
	out.RawText = ""
	return out
}

// Normalize replaces nil item slices with empty ones so encoded banks always
// carry arrays.
func (b *StudyBank) Normalize() {
	if b.Flashcards == nil {
		b.Flashcards = []Flashcard{}
	}
	if b.MCQs == nil {
		b.MCQs = []MCQ{}
	}
	if b.FillBlanks == nil {
		b.FillBlanks = []FillBlank{}
	}
	if b.ShortAnswers == nil {
		b.ShortAnswers = []ShortAnswer{}
	}
}

func (b *StudyBank) ItemCount() int {
	return len(b.Flashcards) + len(b.MCQs) + len(b.FillBlanks) + len(b.ShortAnswers)
}

func CloneBanks(banks []*StudyBank) []*StudyBank {
	out := make([]*StudyBank, 0, len(banks))
	for _, b := range banks {
		out = append(out, b.Clone())
	}
	return out
}
