package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/blogly/blogly/models"
)

// UserStore is the credential store.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts u, assigning a fresh id when u has none.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

// FindByID returns the user with id or ErrNotFound.
func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByUsername returns the user named username or ErrNotFound.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}
