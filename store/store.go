// Package store persists users and posts with gorm.
package store

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogly/blogly/models"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate key")
)

// Models lists every table owned by this package, for AutoMigrate.
func Models() []interface{} {
	return []interface{}{&models.User{}, &models.Post{}}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func newID() string {
	return uuid.NewString()
}
