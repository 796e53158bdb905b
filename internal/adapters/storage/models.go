package storage

import "time"

// SessionModel is the GORM model for sessions table
type SessionModel struct {
	Args        string    `gorm:"default:''"`
	Command     string    `gorm:"not null;default:''"`
	CreatedAt   time.Time
	ExecutionID string    `gorm:"not null;index:idx_execution_id"`
	LastOutput  string    `gorm:"default:''"`
	LastUpdated time.Time `gorm:"not null;index:idx_last_updated"`
	State       string    `gorm:"not null;default:'busy';check:state IN ('busy','waiting_input','pending_auto_approval','idle','exited')"`
	Tool        string    `gorm:"not null;default:''"`
	UpdatedAt   time.Time
	WorkDir     string    `gorm:"primaryKey"`
}

// TableName specifies the table name for GORM
func (SessionModel) TableName() string { return "sessions" }
