package model

type Flashcard struct {
	ID         string `json:"id"`
	ChunkIndex int    `json:"chunkIndex"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

type MCQ struct {
	ID           string   `json:"id"`
	ChunkIndex   int      `json:"chunkIndex"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

type FillBlank struct {
	ID          string `json:"id"`
	ChunkIndex  int    `json:"chunkIndex"`
	Sentence    string `json:"sentence"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation,omitempty"`
}

type ShortAnswer struct {
	ID              string `json:"id"`
	ChunkIndex      int    `json:"chunkIndex"`
	Question        string `json:"question"`
	SuggestedAnswer string `json:"suggestedAnswer"`
}

// ChunkResult is what generation returns for one chunk. Items carry no id or
// chunk index yet; those are assigned when the result is appended to a bank.
type ChunkResult struct {
	Flashcards   []Flashcard   `json:"flashcards"`
	MCQs         []MCQ         `json:"mcqs"`
	FillBlanks   []FillBlank   `json:"fillBlanks"`
	ShortAnswers []ShortAnswer `json:"shortAnswers"`
}

func EmptyChunkResult() ChunkResult {
	return ChunkResult{
		Flashcards:   []Flashcard{},
		MCQs:         []MCQ{},
		FillBlanks:   []FillBlank{},
		ShortAnswers: []ShortAnswer{},
	}
}

func (r ChunkResult) Total() int {
	return len(r.Flashcards) + len(r.MCQs) + len(r.FillBlanks) + len(r.ShortAnswers)
}
