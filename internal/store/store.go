package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/studygen/internal/model"
	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

const providerSettingsKey = "provider_settings"

type BankRepository interface {
	Upsert(ctx context.Context, bank *model.StudyBank) error
	ReplaceAll(ctx context.Context, banks []*model.StudyBank) error
	List(ctx context.Context) ([]*model.StudyBank, error)
	Get(ctx context.Context, id string) (*model.StudyBank, error)
	Delete(ctx context.Context, id string) error
	ClearProcessing(ctx context.Context) (int64, error)
}

type SettingsRepository interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
}

// Store persists the bank collection to a durable repository and a fast-path
// mirror. The durable side wins on reads; the mirror keeps working when the
// durable side does not.
type Store struct {
	banks    BankRepository
	settings SettingsRepository
	mirror   *Mirror
}

func New(banks BankRepository, settings SettingsRepository, mirror *Mirror) *Store {
	return &Store{banks: banks, settings: settings, mirror: mirror}
}

// SaveAll writes the whole collection to both backends. A durable failure
// degrades to a mirror-only write, and a mirror over quota is retried once
// with the raw text dropped. It only fails when nothing could be written.
func (s *Store) SaveAll(ctx context.Context, banks []*model.StudyBank) error {
	logger := logutil.GetLogger(ctx)
	var durableErr error
	if s.banks != nil {
		if durableErr = s.banks.ReplaceAll(ctx, banks); durableErr != nil {
			logger.Error("save banks to durable store failed, use mirror only", zap.Int("banks", len(banks)), zap.Error(durableErr))
		}
	} else {
		durableErr = errors.New("no durable store")
	}
	mirrorErr := s.writeMirror(ctx, banks)
	if mirrorErr != nil {
		logger.Error("save banks to mirror failed", zap.Int("banks", len(banks)), zap.Error(mirrorErr))
	}
	if durableErr != nil && mirrorErr != nil {
		return fmt.Errorf("save banks: %w", errors.Join(durableErr, mirrorErr))
	}
	return nil
}

func (s *Store) writeMirror(ctx context.Context, banks []*model.StudyBank) error {
	err := s.mirror.Write(banks)
	if !appErr.IsQuotaExceeded(err) {
		return err
	}
	logutil.GetLogger(ctx).Warn("mirror over quota, retry without raw text", zap.Error(err))
	return s.mirror.Write(trimAll(banks))
}

func trimAll(banks []*model.StudyBank) []*model.StudyBank {
	out := make([]*model.StudyBank, 0, len(banks))
	for _, b := range banks {
		out = append(out, b.Trimmed())
	}
	return out
}

// LoadAll reads from the durable store, falling back to the mirror (and
// migrating it) when the durable store is empty or unreadable. Stale
// processing flags are cleared.
func (s *Store) LoadAll(ctx context.Context) ([]*model.StudyBank, error) {
	logger := logutil.GetLogger(ctx)
	if s.banks != nil {
		if cleared, err := s.banks.ClearProcessing(ctx); err != nil {
			logger.Error("clear stale processing flags failed", zap.Error(err))
		} else if cleared > 0 {
			logger.Info("cleared stale processing flags", zap.Int64("banks", cleared))
		}
		banks, err := s.banks.List(ctx)
		if err == nil && len(banks) > 0 {
			return s.clearStale(ctx, banks), nil
		}
		if err != nil {
			logger.Error("load banks from durable store failed, read mirror", zap.Error(err))
			banks, err := s.mirror.Read()
			if err != nil {
				return nil, err
			}
			return s.clearStale(ctx, banks), nil
		}
		if _, err := s.MigrateMirror(ctx); err != nil {
			logger.Error("migrate mirror into durable store failed", zap.Error(err))
		}
	}
	banks, err := s.mirror.Read()
	if err != nil {
		return nil, err
	}
	return s.clearStale(ctx, banks), nil
}

// LoadAllSync reads only the mirror. It may be stale and exists for a quick
// first listing before the durable store is consulted.
func (s *Store) LoadAllSync() ([]*model.StudyBank, error) {
	banks, err := s.mirror.Read()
	if err != nil {
		return nil, err
	}
	for _, b := range banks {
		b.IsProcessing = false
	}
	return banks, nil
}

func (s *Store) clearStale(ctx context.Context, banks []*model.StudyBank) []*model.StudyBank {
	for _, b := range banks {
		if !b.IsProcessing {
			continue
		}
		b.IsProcessing = false
		logutil.GetLogger(ctx).Info("clear stale processing flag", zap.String("bank_id", b.ID),
			zap.Int("processed", b.ProcessedChunks), zap.Int("total", b.TotalChunks))
	}
	return banks
}

// MigrateMirror copies the mirror into the durable store when the durable
// store holds no banks. It returns the number of banks migrated.
func (s *Store) MigrateMirror(ctx context.Context) (int, error) {
	if s.banks == nil {
		return 0, nil
	}
	existing, err := s.banks.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	banks, err := s.mirror.Read()
	if err != nil {
		return 0, err
	}
	if len(banks) == 0 {
		return 0, nil
	}
	for _, b := range banks {
		b.IsProcessing = false
	}
	if err := s.banks.ReplaceAll(ctx, banks); err != nil {
		return 0, err
	}
	logutil.GetLogger(ctx).Info("migrated mirror into durable store", zap.Int("banks", len(banks)))
	return len(banks), nil
}

// ResyncMirror rewrites the mirror from the durable store.
func (s *Store) ResyncMirror(ctx context.Context) (int, error) {
	if s.banks == nil {
		return 0, nil
	}
	banks, err := s.banks.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.writeMirror(ctx, banks); err != nil {
		return 0, err
	}
	return len(banks), nil
}

// SaveIncremental upserts one bank into the durable store and into the mirror
// collection. Durable failures leave the mirror write as the best effort.
func (s *Store) SaveIncremental(ctx context.Context, bank *model.StudyBank) error {
	logger := logutil.GetLogger(ctx)
	var durableErr error
	if s.banks != nil {
		if durableErr = s.banks.Upsert(ctx, bank); durableErr != nil {
			logger.Error("incremental save to durable store failed, use mirror only", zap.String("bank_id", bank.ID), zap.Error(durableErr))
		}
	} else {
		durableErr = errors.New("no durable store")
	}
	mirrorErr := s.mirror.Update(func(banks []*model.StudyBank) []*model.StudyBank {
		return upsertBank(banks, bank)
	})
	if appErr.IsQuotaExceeded(mirrorErr) {
		logger.Warn("mirror over quota, retry without raw text", zap.String("bank_id", bank.ID))
		mirrorErr = s.mirror.Update(func(banks []*model.StudyBank) []*model.StudyBank {
			return trimAll(upsertBank(banks, bank))
		})
	}
	if mirrorErr != nil {
		logger.Error("incremental save to mirror failed", zap.String("bank_id", bank.ID), zap.Error(mirrorErr))
	}
	if durableErr != nil && mirrorErr != nil {
		return fmt.Errorf("save bank %s: %w", bank.ID, errors.Join(durableErr, mirrorErr))
	}
	return nil
}

func upsertBank(banks []*model.StudyBank, bank *model.StudyBank) []*model.StudyBank {
	for i, b := range banks {
		if b.ID == bank.ID {
			banks[i] = bank
			return banks
		}
	}
	return append(banks, bank)
}

func (s *Store) Get(ctx context.Context, id string) (*model.StudyBank, error) {
	if s.banks != nil {
		bank, err := s.banks.Get(ctx, id)
		if err == nil {
			return bank, nil
		}
		if !appErr.IsNotFound(err) {
			logutil.GetLogger(ctx).Error("get bank from durable store failed, read mirror", zap.String("bank_id", id), zap.Error(err))
		}
	}
	banks, err := s.mirror.Read()
	if err != nil {
		return nil, err
	}
	for _, b := range banks {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, appErr.ErrNotFound
}

// Delete removes the bank from both backends. Missing banks are not an error
// on either side as long as one side had it.
func (s *Store) Delete(ctx context.Context, id string) error {
	found := false
	if s.banks != nil {
		err := s.banks.Delete(ctx, id)
		switch {
		case err == nil:
			found = true
		case appErr.IsNotFound(err):
		default:
			return err
		}
	}
	err := s.mirror.Update(func(banks []*model.StudyBank) []*model.StudyBank {
		out := banks[:0]
		for _, b := range banks {
			if b.ID == id {
				found = true
				continue
			}
			out = append(out, b)
		}
		return out
	})
	if err != nil {
		return err
	}
	if !found {
		return appErr.ErrNotFound
	}
	return nil
}

func (s *Store) SaveSettings(ctx context.Context, settings model.ProviderSettings) error {
	if s.settings == nil {
		return errors.New("no settings store")
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.settings.Put(ctx, providerSettingsKey, string(raw))
}

// LoadSettings returns the saved provider settings. ok is false when nothing
// has been saved yet.
func (s *Store) LoadSettings(ctx context.Context) (model.ProviderSettings, bool, error) {
	var settings model.ProviderSettings
	if s.settings == nil {
		return settings, false, nil
	}
	raw, err := s.settings.Get(ctx, providerSettingsKey)
	if err != nil {
		if appErr.IsNotFound(err) {
			return settings, false, nil
		}
		return settings, false, err
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return settings, false, fmt.Errorf("decode provider settings: %w", err)
	}
	return settings, true, nil
}
