package sql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/support/util/exception"
)

// FrameworkStore is the GORM-backed read-only framework store.
type FrameworkStore struct {
	db *gorm.DB
}

// NewFrameworkStore creates a framework store over the given connection.
func NewFrameworkStore(db *gorm.DB) *FrameworkStore {
	return &FrameworkStore{db: db}
}

// GetByID returns the framework definition, or port.ErrFrameworkNotFound.
func (s *FrameworkStore) GetByID(ctx context.Context, frameworkID string) (*model.Framework, error) {
	var entity FrameworkEntity
	err := s.db.WithContext(ctx).Where("id = ?", frameworkID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, port.ErrFrameworkNotFound
		}
		return nil, exception.NewBatchError(moduleName, "failed to load framework "+frameworkID, err, false, false)
	}
	return toFrameworkModel(&entity), nil
}

var _ port.FrameworkStore = (*FrameworkStore)(nil)

// SettingsStore is the GORM-backed per-account settings store.
type SettingsStore struct {
	db *gorm.DB
}

// NewSettingsStore creates a settings store over the given connection.
func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetSetting returns the setting value, or port.ErrSettingNotFound.
func (s *SettingsStore) GetSetting(ctx context.Context, accountID, name string) (string, error) {
	var entity SettingEntity
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND name = ?", accountID, name).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", port.ErrSettingNotFound
		}
		return "", exception.NewBatchError(moduleName, "failed to load setting "+name, err, false, false)
	}
	return entity.Value, nil
}

var _ port.SettingsStore = (*SettingsStore)(nil)
