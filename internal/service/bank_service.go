package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/studygen/internal/chunker"
	"github.com/xxxsen/studygen/internal/model"
	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
	"github.com/xxxsen/studygen/internal/store"
)

type BankStore interface {
	SaveAll(ctx context.Context, banks []*model.StudyBank) error
	SaveIncremental(ctx context.Context, bank *model.StudyBank) error
	LoadAll(ctx context.Context) ([]*model.StudyBank, error)
	Delete(ctx context.Context, id string) error
}

type ChunkProcessor interface {
	ProcessChunk(ctx context.Context, text string, chunkIndex, totalChunks int, onProgress func(text string)) model.ChunkResult
}

type StatusListener func(status model.ProcessingStatus)

type BankServiceConfig struct {
	Chunk        chunker.Options
	ChunkDelay   time.Duration
	SaveDebounce time.Duration
	KeepRawText  bool
}

// BankService owns the in-memory bank collection and the processing status.
// All mutation goes through it; persistence gets cloned snapshots.
type BankService struct {
	mu        sync.Mutex
	banks     []*model.StudyBank
	status    model.ProcessingStatus
	store     BankStore
	processor ChunkProcessor
	cfg       BankServiceConfig
	debouncer *store.Debouncer
	listeners []StatusListener
	now       func() time.Time
}

func NewBankService(bankStore BankStore, processor ChunkProcessor, cfg BankServiceConfig) *BankService {
	return &BankService{
		banks:     []*model.StudyBank{},
		store:     bankStore,
		processor: processor,
		cfg:       cfg,
		debouncer: store.NewDebouncer(cfg.SaveDebounce),
		now:       time.Now,
	}
}

// Load replaces the in-memory collection with the persisted one.
func (s *BankService) Load(ctx context.Context) error {
	banks, err := s.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.banks = banks
	s.mu.Unlock()
	return nil
}

func (s *BankService) OnStatus(fn StatusListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *BankService) Status() model.ProcessingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *BankService) List() []*model.StudyBank {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneBanks(s.banks)
}

func (s *BankService) Get(id string) (*model.StudyBank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.findLocked(id); b != nil {
		return b.Clone(), nil
	}
	return nil, appErr.ErrNotFound
}

func (s *BankService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, b := range s.banks {
		if b.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return appErr.ErrNotFound
	}
	if s.banks[idx].IsProcessing {
		s.mu.Unlock()
		return fmt.Errorf("bank %s is being processed: %w", id, appErr.ErrBusy)
	}
	s.banks = append(s.banks[:idx], s.banks[idx+1:]...)
	s.mu.Unlock()
	if err := s.store.Delete(ctx, id); err != nil && !appErr.IsNotFound(err) {
		logutil.GetLogger(ctx).Error("delete bank from store failed", zap.String("bank_id", id), zap.Error(err))
		return err
	}
	return nil
}

// Process chunks text and generates study items chunk by chunk into a new
// bank. Results are appended and saved after every chunk, so an interrupted
// run keeps what it had. Only one run may be active.
func (s *BankService) Process(ctx context.Context, fileName, text string) (*model.StudyBank, error) {
	if strings.TrimSpace(text) == "" {
		return nil, appErr.ErrEmptyContent
	}
	chunks := chunker.Chunk(text, s.cfg.Chunk)
	if len(chunks) == 0 {
		return nil, appErr.ErrEmptyContent
	}
	logger := logutil.GetLogger(ctx).With(zap.String("file", fileName), zap.Int("chunks", len(chunks)))

	s.mu.Lock()
	if s.status.IsProcessing {
		s.mu.Unlock()
		return nil, appErr.ErrBusy
	}
	now := s.now()
	bank := &model.StudyBank{
		ID:           newBankID(fileName, now),
		FileName:     fileName,
		CreatedAt:    now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		TotalChunks:  len(chunks),
		IsProcessing: true,
	}
	bank.Normalize()
	if s.cfg.KeepRawText {
		bank.RawText = text
	}
	s.banks = append(s.banks, bank)
	snapshot := bank.Clone()
	// claim the run before releasing the lock
	s.status = model.ProcessingStatus{
		IsProcessing: true,
		TotalChunks:  len(chunks),
		Message:      fmt.Sprintf("Split into %d chunks", len(chunks)),
	}
	started := s.status
	s.mu.Unlock()

	logger = logger.With(zap.String("bank_id", bank.ID))
	logger.Info("start processing document")
	s.setStatus(started)
	s.persist(ctx, snapshot)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			logger.Warn("processing interrupted", zap.Int("processed", i), zap.Error(err))
			s.abort(context.WithoutCancel(ctx), bank.ID)
			return nil, err
		}
		s.setStatus(model.ProcessingStatus{
			IsProcessing: true,
			CurrentChunk: i + 1,
			TotalChunks:  len(chunks),
			Message:      fmt.Sprintf("Processing chunk %d of %d", i+1, len(chunks)),
		})
		idx := i
		result := s.processor.ProcessChunk(ctx, chunk.Text, idx, len(chunks), func(partial string) {
			s.setStatus(model.ProcessingStatus{
				IsProcessing: true,
				CurrentChunk: idx + 1,
				TotalChunks:  len(chunks),
				Message:      fmt.Sprintf("Generating chunk %d of %d (%d chars)", idx+1, len(chunks), len(partial)),
			})
		})
		snapshot, err := s.AppendChunkResults(bank.ID, idx, result)
		if err != nil {
			logger.Error("append chunk results failed, stop processing", zap.Int("chunk", idx), zap.Error(err))
			s.abort(ctx, bank.ID)
			return nil, err
		}
		logger.Debug("chunk appended", zap.Int("chunk", idx), zap.Int("items", result.Total()))
		s.persist(ctx, snapshot)
		if i == len(chunks)-1 || s.cfg.ChunkDelay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			logger.Warn("processing interrupted", zap.Int("processed", idx+1), zap.Error(ctx.Err()))
			s.abort(context.WithoutCancel(ctx), bank.ID)
			return nil, ctx.Err()
		case <-time.After(s.cfg.ChunkDelay):
		}
	}

	final, err := s.finish(bank.ID)
	if err != nil {
		s.abort(ctx, bank.ID)
		return nil, err
	}
	s.persist(ctx, final)
	s.setStatus(model.IdleStatus())
	logger.Info("document processed", zap.Int("items", final.ItemCount()))
	return final, nil
}

// AppendChunkResults adds one chunk's items to a bank, assigning ids and the
// chunk index, and returns a snapshot of the updated bank.
func (s *BankService) AppendChunkResults(bankID string, chunkIndex int, result model.ChunkResult) (*model.StudyBank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bank := s.findLocked(bankID)
	if bank == nil {
		return nil, fmt.Errorf("bank %s: %w", bankID, appErr.ErrNotFound)
	}
	if chunkIndex < 0 || chunkIndex >= bank.TotalChunks || bank.ProcessedChunks >= bank.TotalChunks {
		return nil, fmt.Errorf("chunk %d of bank %s out of range: %w", chunkIndex, bankID, appErr.ErrInvalid)
	}
	for _, item := range result.Flashcards {
		item.ID, item.ChunkIndex = newItemID(), chunkIndex
		bank.Flashcards = append(bank.Flashcards, item)
	}
	for _, item := range result.MCQs {
		item.ID, item.ChunkIndex = newItemID(), chunkIndex
		bank.MCQs = append(bank.MCQs, item)
	}
	for _, item := range result.FillBlanks {
		item.ID, item.ChunkIndex = newItemID(), chunkIndex
		bank.FillBlanks = append(bank.FillBlanks, item)
	}
	for _, item := range result.ShortAnswers {
		item.ID, item.ChunkIndex = newItemID(), chunkIndex
		bank.ShortAnswers = append(bank.ShortAnswers, item)
	}
	bank.ProcessedChunks++
	return bank.Clone(), nil
}

func (s *BankService) finish(bankID string) (*model.StudyBank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bank := s.findLocked(bankID)
	if bank == nil {
		return nil, fmt.Errorf("bank %s: %w", bankID, appErr.ErrNotFound)
	}
	bank.IsProcessing = false
	return bank.Clone(), nil
}

// abort clears the processing state after an unrecoverable error, keeping the
// chunks appended so far.
func (s *BankService) abort(ctx context.Context, bankID string) {
	s.mu.Lock()
	var snapshot *model.StudyBank
	if bank := s.findLocked(bankID); bank != nil {
		bank.IsProcessing = false
		snapshot = bank.Clone()
	}
	s.mu.Unlock()
	if snapshot != nil {
		s.persist(ctx, snapshot)
	}
	s.setStatus(model.IdleStatus())
}

// persist saves the bank right away and schedules a full save of the
// collection once writes go quiet.
func (s *BankService) persist(ctx context.Context, snapshot *model.StudyBank) {
	if err := s.store.SaveIncremental(ctx, snapshot); err != nil {
		logutil.GetLogger(ctx).Error("incremental save failed", zap.String("bank_id", snapshot.ID), zap.Error(err))
	}
	bg := context.WithoutCancel(ctx)
	s.debouncer.Trigger(func() {
		s.saveAll(bg)
	})
}

func (s *BankService) saveAll(ctx context.Context) {
	banks := s.List()
	if err := s.store.SaveAll(ctx, banks); err != nil {
		logutil.GetLogger(ctx).Error("full save failed", zap.Int("banks", len(banks)), zap.Error(err))
	}
}

// Flush runs any pending full save now.
func (s *BankService) Flush() {
	s.debouncer.Flush()
}

func (s *BankService) Close() {
	s.debouncer.Flush()
	s.debouncer.Stop()
}

func (s *BankService) setStatus(status model.ProcessingStatus) {
	s.mu.Lock()
	s.status = status
	listeners := append([]StatusListener(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(status)
	}
}

func (s *BankService) findLocked(id string) *model.StudyBank {
	for _, b := range s.banks {
		if b.ID == id {
			return b
		}
	}
	return nil
}
