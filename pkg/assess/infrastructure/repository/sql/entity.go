// Package sql implements the job repository and the framework and
// settings stores on a relational database through GORM. The job's
// config, progress and result log are stored as JSON documents; their
// model types implement Valuer/Scanner.
package sql

import (
	"time"

	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
)

// BatchJobEntity is the GORM entity of the assessment_batch_job table.
type BatchJobEntity struct {
	ID            string                   `gorm:"column:id;primaryKey;type:varchar(36)"`
	AccountID     string                   `gorm:"column:account_id;type:varchar(64);index:idx_batch_job_account"`
	Status        string                   `gorm:"column:status;type:varchar(16)"`
	Config        model.BatchJobConfig     `gorm:"column:config;type:text"`
	Progress      model.BatchJobProgress   `gorm:"column:progress;type:text"`
	RecentResults model.AssessmentItemList `gorm:"column:recent_results;type:text"`
	ErrorMessage  string                   `gorm:"column:error_message;type:text"`
	CreatedBy     string                   `gorm:"column:created_by;type:varchar(64)"`
	CreatedAt     time.Time                `gorm:"column:created_at"`
	UpdatedAt     time.Time                `gorm:"column:updated_at"`
	CompletedAt   *time.Time               `gorm:"column:completed_at"`
}

// TableName specifies the table name for GORM.
func (BatchJobEntity) TableName() string {
	return "assessment_batch_job"
}

// FrameworkEntity is the GORM entity of the assessment_framework table.
type FrameworkEntity struct {
	ID        string                  `gorm:"column:id;primaryKey;type:varchar(64)"`
	Name      string                  `gorm:"column:name;type:varchar(255)"`
	Document  model.FrameworkDocument `gorm:"column:document;type:text"`
	UpdatedAt time.Time               `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM.
func (FrameworkEntity) TableName() string {
	return "assessment_framework"
}

// SettingEntity is the GORM entity of the account_setting table.
type SettingEntity struct {
	AccountID string    `gorm:"column:account_id;primaryKey;type:varchar(64)"`
	Name      string    `gorm:"column:name;primaryKey;type:varchar(128)"`
	Value     string    `gorm:"column:value;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM.
func (SettingEntity) TableName() string {
	return "account_setting"
}
