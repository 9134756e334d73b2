package database

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OpenInMemory opens a private, migrated in-memory SQLite database.
func OpenInMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.New().String())
	return Open("sqlite", dsn)
}
