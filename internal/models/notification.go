package models

import "time"

// Notification is a message addressed to one user.
type Notification struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user" gorm:"index;not null;type:varchar(36)"`
	Message   string    `json:"message" gorm:"not null;type:text"`
	IsRead    bool      `json:"is_read" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
