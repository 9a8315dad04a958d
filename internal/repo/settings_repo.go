package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

const settingsTable = "settings"

type SettingsRepo struct {
	db *sqlx.DB
}

func NewSettingsRepo(db *sqlx.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Put(ctx context.Context, key, value string) error {
	data := map[string]interface{}{
		"key":   key,
		"value": value,
		"mtime": time.Now().UnixMilli(),
	}
	sqlStr, args, err := builder.BuildReplaceInsert(settingsTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	where := map[string]interface{}{"key": key}
	sqlStr, args, err := builder.BuildSelect(settingsTable, where, []string{"value"})
	if err != nil {
		return "", err
	}
	var value string
	if err := r.db.GetContext(ctx, &value, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErr.ErrNotFound
		}
		return "", err
	}
	return value, nil
}
