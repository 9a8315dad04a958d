package model

type ProcessingStatus struct {
	IsProcessing bool   `json:"isProcessing"`
	CurrentChunk int    `json:"currentChunk"`
	TotalChunks  int    `json:"totalChunks"`
	Message      string `json:"message"`
}

func IdleStatus() ProcessingStatus {
	return ProcessingStatus{}
}
