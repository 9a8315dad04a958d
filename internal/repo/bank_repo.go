package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/studygen/internal/model"
	"github.com/xxxsen/studygen/internal/pkg/dbutil"
	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

const bankTable = "study_banks"

var bankColumns = []string{"id", "file_name", "created_at", "is_processing", "data", "mtime"}

type bankRow struct {
	ID           string `db:"id"`
	FileName     string `db:"file_name"`
	CreatedAt    string `db:"created_at"`
	IsProcessing bool   `db:"is_processing"`
	Data         string `db:"data"`
	Mtime        int64  `db:"mtime"`
}

func (r bankRow) decode() (*model.StudyBank, error) {
	bank := &model.StudyBank{}
	if err := json.Unmarshal([]byte(r.Data), bank); err != nil {
		return nil, fmt.Errorf("decode bank %s: %w", r.ID, err)
	}
	bank.ID = r.ID
	bank.IsProcessing = r.IsProcessing
	bank.Normalize()
	return bank, nil
}

func bankData(bank *model.StudyBank) (map[string]interface{}, error) {
	raw, err := json.Marshal(bank)
	if err != nil {
		return nil, fmt.Errorf("encode bank %s: %w", bank.ID, err)
	}
	return map[string]interface{}{
		"id":            bank.ID,
		"file_name":     bank.FileName,
		"created_at":    bank.CreatedAt,
		"is_processing": bank.IsProcessing,
		"data":          string(raw),
		"mtime":         time.Now().UnixMilli(),
	}, nil
}

type BankRepo struct {
	db *sqlx.DB
}

func NewBankRepo(db *sqlx.DB) *BankRepo {
	return &BankRepo{db: db}
}

// Upsert writes a single bank, replacing any previous version.
func (r *BankRepo) Upsert(ctx context.Context, bank *model.StudyBank) error {
	data, err := bankData(bank)
	if err != nil {
		return err
	}
	sqlStr, args, err := builder.BuildReplaceInsert(bankTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ReplaceAll makes the table hold exactly banks, atomically.
func (r *BankRepo) ReplaceAll(ctx context.Context, banks []*model.StudyBank) error {
	rows := make([]map[string]interface{}, 0, len(banks))
	for _, bank := range banks {
		data, err := bankData(bank)
		if err != nil {
			return err
		}
		rows = append(rows, data)
	}
	return dbutil.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+bankTable); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		sqlStr, args, err := builder.BuildReplaceInsert(bankTable, rows)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, sqlStr, args...)
		return err
	})
}

// List returns every bank, oldest first.
func (r *BankRepo) List(ctx context.Context) ([]*model.StudyBank, error) {
	where := map[string]interface{}{"_orderby": "created_at asc, id asc"}
	sqlStr, args, err := builder.BuildSelect(bankTable, where, bankColumns)
	if err != nil {
		return nil, err
	}
	var rows []bankRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	banks := make([]*model.StudyBank, 0, len(rows))
	for _, row := range rows {
		bank, err := row.decode()
		if err != nil {
			return nil, err
		}
		banks = append(banks, bank)
	}
	return banks, nil
}

func (r *BankRepo) Get(ctx context.Context, id string) (*model.StudyBank, error) {
	where := map[string]interface{}{"id": id, "_limit": []uint{0, 1}}
	sqlStr, args, err := builder.BuildSelect(bankTable, where, bankColumns)
	if err != nil {
		return nil, err
	}
	var row bankRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return row.decode()
}

func (r *BankRepo) Delete(ctx context.Context, id string) error {
	sqlStr, args, err := builder.BuildDelete(bankTable, map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// ClearProcessing resets stale processing flags left by an interrupted run.
func (r *BankRepo) ClearProcessing(ctx context.Context) (int64, error) {
	where := map[string]interface{}{"is_processing": true}
	sqlStr, args, err := builder.BuildSelect(bankTable, where, bankColumns)
	if err != nil {
		return 0, err
	}
	var rows []bankRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return 0, err
	}
	var cleared int64
	for _, row := range rows {
		bank, err := row.decode()
		if err != nil {
			return cleared, err
		}
		bank.IsProcessing = false
		if err := r.Upsert(ctx, bank); err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}
