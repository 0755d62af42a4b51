package models

import "time"

// LogEntry is one audit record. Accounts live in a flat file, not the audit
// database, so UserID is the plain account id with no foreign key.
type LogEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	Level     string    `json:"level" gorm:"index"`
	Message   string    `json:"message"`
	Source    string    `json:"source" gorm:"index"`
	UserID    string    `json:"user_id,omitempty" gorm:"index"`
	Data      string    `json:"data"`
}
