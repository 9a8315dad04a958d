package model

type TextChunk struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	WordCount int    `json:"wordCount"`
	StartWord int    `json:"startWord"`
	EndWord   int    `json:"endWord"`
}
