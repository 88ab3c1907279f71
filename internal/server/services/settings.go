package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/dbx"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/repomanager"
)

// SettingsService reads and writes system settings. Nothing is cached:
// every read goes to the database.
type SettingsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSettingsService(db *sql.DB, m repomanager.RepositoryManager) *SettingsService {
	return &SettingsService{db: db, repomanager: m}
}

// Get returns the setting or common.ErrorNotFound.
func (s *SettingsService) Get(ctx context.Context, key string) (*models.Setting, error) {
	return s.repomanager.Settings(s.db).Get(ctx, key)
}

// Set inserts or overwrites a setting. Boolean settings only accept
// "true" or "false".
func (s *SettingsService) Set(ctx context.Context, key, value string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: setting key is required", common.ErrorValidation)
	}
	if key == common.SettingPaymentEnabled && value != "true" && value != "false" {
		return nil, fmt.Errorf("%w: %s must be \"true\" or \"false\"", common.ErrorValidation, key)
	}
	return s.repomanager.Settings(s.db).Upsert(ctx, key, value)
}

func (s *SettingsService) All(ctx context.Context) ([]*models.Setting, error) {
	return s.repomanager.Settings(s.db).List(ctx)
}

// PaymentEnabled reports whether contributions are accepted right now. A
// missing row counts as disabled.
func (s *SettingsService) PaymentEnabled(ctx context.Context, db dbx.DBTX) (bool, error) {
	setting, err := s.repomanager.Settings(db).Get(ctx, common.SettingPaymentEnabled)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return setting.Value == "true", nil
}
