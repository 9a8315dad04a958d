package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xxxsen/studygen/internal/model"
	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

// Mirror is the fast-path copy of the bank collection: one JSON array in one
// file, bounded by maxBytes.
type Mirror struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
}

func NewMirror(path string, maxBytes int64) *Mirror {
	return &Mirror{path: path, maxBytes: maxBytes}
}

func (m *Mirror) Path() string {
	return m.path
}

// Read returns the mirrored banks. A missing file is an empty collection.
func (m *Mirror) Read() ([]*model.StudyBank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readLocked()
}

func (m *Mirror) readLocked() ([]*model.StudyBank, error) {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*model.StudyBank{}, nil
		}
		return nil, fmt.Errorf("read mirror: %w", err)
	}
	if len(raw) == 0 {
		return []*model.StudyBank{}, nil
	}
	var banks []*model.StudyBank
	if err := json.Unmarshal(raw, &banks); err != nil {
		return nil, fmt.Errorf("decode mirror: %w", err)
	}
	out := make([]*model.StudyBank, 0, len(banks))
	for _, b := range banks {
		if b == nil {
			continue
		}
		b.Normalize()
		out = append(out, b)
	}
	return out, nil
}

// Write replaces the mirror content. It fails with ErrQuotaExceeded when the
// encoded collection is larger than the limit.
func (m *Mirror) Write(banks []*model.StudyBank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked(banks)
}

func (m *Mirror) writeLocked(banks []*model.StudyBank) error {
	if banks == nil {
		banks = []*model.StudyBank{}
	}
	raw, err := json.Marshal(banks)
	if err != nil {
		return fmt.Errorf("encode mirror: %w", err)
	}
	if m.maxBytes > 0 && int64(len(raw)) > m.maxBytes {
		return fmt.Errorf("mirror needs %d bytes, limit %d: %w", len(raw), m.maxBytes, appErr.ErrQuotaExceeded)
	}
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mirror dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".mirror-*.json")
	if err != nil {
		return fmt.Errorf("create mirror temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write mirror: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close mirror: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace mirror: %w", err)
	}
	return nil
}

// Update applies fn to the current content and writes the result under one lock.
func (m *Mirror) Update(fn func(banks []*model.StudyBank) []*model.StudyBank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	banks, err := m.readLocked()
	if err != nil {
		// A corrupt mirror is rebuilt from what the caller supplies.
		banks = []*model.StudyBank{}
	}
	return m.writeLocked(fn(banks))
}
