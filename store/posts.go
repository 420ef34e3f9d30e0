package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/blogly/blogly/models"
)

// filterColumns maps the query keys clients may filter on to columns.
// Other keys are ignored.
var filterColumns = map[string]string{
	"id":      "id",
	"title":   "title",
	"summary": "summary",
	"content": "content",
	"cover":   "cover",
	"author":  "author_id",
}

// KnownFilter keeps only the filter entries List applies.
func KnownFilter(filter map[string]string) map[string]string {
	out := make(map[string]string, len(filter))
	for key, value := range filter {
		if _, ok := filterColumns[key]; ok {
			out[key] = value
		}
	}
	return out
}

// PostStore persists posts. Reads always attach the author and order newest first.
type PostStore struct {
	db *gorm.DB
}

// NewPostStore creates a PostStore.
func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{db: db}
}

func (s *PostStore) withAuthor(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Author")
}

// Create inserts p and reloads it with its author.
func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	if p.ID == "" {
		p.ID = newID()
	}
	p.Author = nil
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return translate(err)
	}
	return translate(s.withAuthor(ctx).Where("id = ?", p.ID).First(p).Error)
}

// FindByID returns the post with id or ErrNotFound.
func (s *PostStore) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := s.withAuthor(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// List returns one page of posts matching every filter entry, newest first.
// page is 1-based.
func (s *PostStore) List(ctx context.Context, filter map[string]string, page, limit int) ([]models.Post, error) {
	q := s.withAuthor(ctx)
	for key, value := range filter {
		if col, ok := filterColumns[key]; ok {
			q = q.Where(map[string]interface{}{col: value})
		}
	}
	var posts []models.Post
	err := q.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

// Update replaces the editable fields and the cover of post id.
func (s *PostStore) Update(ctx context.Context, id string, fields models.PostFields, cover string) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(map[string]interface{}{
		"title":   fields.Title,
		"summary": fields.Summary,
		"content": fields.Content,
		"cover":   cover,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows when nothing changed
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return translate(err)
		}
		if n == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// Delete removes post id.
func (s *PostStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
