package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/studygen/internal/model"
	"github.com/xxxsen/studygen/internal/pkg/response"
)

type BankReader interface {
	List() []*model.StudyBank
	Get(id string) (*model.StudyBank, error)
	Delete(ctx context.Context, id string) error
	Status() model.ProcessingStatus
}

type BankHandler struct {
	banks BankReader
}

func NewBankHandler(banks BankReader) *BankHandler {
	return &BankHandler{banks: banks}
}

type bankSummary struct {
	ID              string `json:"id"`
	FileName        string `json:"fileName"`
	CreatedAt       string `json:"createdAt"`
	TotalChunks     int    `json:"totalChunks"`
	ProcessedChunks int    `json:"processedChunks"`
	IsProcessing    bool   `json:"isProcessing"`
	Items           int    `json:"items"`
}

func (h *BankHandler) List(c *gin.Context) {
	banks := h.banks.List()
	out := make([]bankSummary, 0, len(banks))
	for _, b := range banks {
		out = append(out, bankSummary{
			ID:              b.ID,
			FileName:        b.FileName,
			CreatedAt:       b.CreatedAt,
			TotalChunks:     b.TotalChunks,
			ProcessedChunks: b.ProcessedChunks,
			IsProcessing:    b.IsProcessing,
			Items:           b.ItemCount(),
		})
	}
	response.Success(c, gin.H{"banks": out})
}

func (h *BankHandler) Get(c *gin.Context) {
	bank, err := h.banks.Get(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, bank)
}

func (h *BankHandler) Delete(c *gin.Context) {
	if err := h.banks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": c.Param("id")})
}

func (h *BankHandler) Processing(c *gin.Context) {
	response.Success(c, h.banks.Status())
}
