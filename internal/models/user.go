package models

import "time"

// User represents a customer or vendor account.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password  string    `json:"password,omitempty" gorm:"type:varchar(255)" validate:"required,min=6"`
	IsVendor  bool      `json:"is_vendor" gorm:"not null;default:false"`
	Address   string    `json:"address,omitempty" gorm:"type:varchar(255)" validate:"omitempty,max=255"`
	Phone     string    `json:"phone,omitempty" gorm:"type:varchar(20)" validate:"omitempty,max=20"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
