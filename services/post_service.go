package services

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/blogly/blogly/config"
	"github.com/blogly/blogly/media"
	"github.com/blogly/blogly/models"
	"github.com/blogly/blogly/store"
	"github.com/blogly/blogly/utils"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20

	postDetailPrefix = "cache:post:detail:"
	postListPrefix   = "cache:posts:list:"
)

var (
	ErrPostNotFound  = utils.NewNotFound(40401, "No Post found with that ID")
	ErrPostIDMissing = utils.NewValidation(40014, "Please provide the id of the post")
)

// CreatePost is the input of PostService.Create. Cover is nil when no file was sent.
type CreatePost struct {
	Fields   models.PostFields
	AuthorID string
	Cover    io.Reader
}

// UpdatePost is the input of PostService.Update. Nil fields keep their stored value.
type UpdatePost struct {
	ID      string
	Title   *string
	Summary *string
	Content *string
	Cover   io.Reader
}

// PostService implements post CRUD on top of the post store, the media pipeline and the read cache.
type PostService struct {
	posts *store.PostStore
	users *store.UserStore
	media *media.Pipeline
	cache *utils.Cache
	cfg   *config.AppConfig
	log   *zap.Logger
}

func NewPostService(cfg *config.AppConfig, posts *store.PostStore, users *store.UserStore, pipeline *media.Pipeline, cache *utils.Cache, log *zap.Logger) *PostService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostService{posts: posts, users: users, media: pipeline, cache: cache, cfg: cfg, log: log}
}

// Create validates the fields, uploads the cover and stores the post.
// The author is actor unless an admin names another existing user.
func (s *PostService) Create(ctx context.Context, actor *models.User, in CreatePost) (*models.Post, error) {
	in.Fields.Normalize(utils.Sanitize)
	verrs := in.Fields.Validate()
	if in.Cover == nil {
		verrs = append(verrs, models.FieldError{Field: "file", Message: "Please upload a cover image."})
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	authorID, err := s.resolveAuthor(ctx, actor, in.AuthorID)
	if err != nil {
		return nil, err
	}

	key, err := s.media.Upload(ctx, in.Cover)
	if err != nil {
		return nil, err
	}
	post := &models.Post{Cover: key, AuthorID: authorID}
	post.Apply(in.Fields)
	if err := s.posts.Create(ctx, post); err != nil {
		s.discardCover(ctx, key)
		return nil, err
	}

	s.cache.InvalidateByPrefix(ctx, postListPrefix)
	s.log.Info("post created", zap.String("post_id", post.ID), zap.String("author_id", authorID))
	if err := s.withURL(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) resolveAuthor(ctx context.Context, actor *models.User, requested string) (string, error) {
	if requested == "" || requested == actor.ID {
		return actor.ID, nil
	}
	if !s.cfg.IsAdmin(actor.Username) {
		return "", models.Invalid("author", "You can only publish posts as yourself.")
	}
	if _, err := s.users.FindByID(ctx, requested); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", models.Invalid("author", "No user found with that author id.")
		}
		return "", err
	}
	return requested, nil
}

// List returns one page of posts, newest first. Unknown filter keys are ignored.
func (s *PostService) List(ctx context.Context, filter map[string]string, page, limit int) ([]models.Post, error) {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	// unknown keys would only multiply cache entries for the same page
	filter = store.KnownFilter(filter)
	key := listKey(filter, page, limit)
	var posts []models.Post
	if !s.cache.GetJSON(ctx, key, &posts) {
		var err error
		posts, err = s.posts.List(ctx, filter, page, limit)
		if err != nil {
			return nil, err
		}
		s.cache.SetJSON(ctx, key, posts)
	}

	for i := range posts {
		if err := s.withURL(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// Get returns a single post.
func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if !s.cache.GetJSON(ctx, postDetailPrefix+id, &post) {
		p, err := s.posts.FindByID(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		post = *p
		s.cache.SetJSON(ctx, postDetailPrefix+id, post)
	}
	if err := s.withURL(ctx, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Update edits a post owned by actor. A new cover replaces the old object
// only after the row has been written.
func (s *PostService) Update(ctx context.Context, actor *models.User, in UpdatePost) error {
	if in.ID == "" {
		return ErrPostIDMissing
	}
	// ownership is always checked against the database, never the cache
	post, err := s.posts.FindByID(ctx, in.ID)
	if err != nil {
		return notFound(err)
	}
	if err := AuthorizeOwner(actor, post); err != nil {
		return err
	}

	fields := post.Fields()
	if in.Title != nil {
		fields.Title = *in.Title
	}
	if in.Summary != nil {
		fields.Summary = *in.Summary
	}
	if in.Content != nil {
		fields.Content = *in.Content
	}
	fields.Normalize(utils.Sanitize)
	if verrs := fields.Validate(); verrs != nil {
		return verrs
	}

	cover := post.Cover
	if in.Cover != nil {
		if cover, err = s.media.Upload(ctx, in.Cover); err != nil {
			return err
		}
	}
	if err := s.posts.Update(ctx, post.ID, fields, cover); err != nil {
		if cover != post.Cover {
			s.discardCover(ctx, cover)
		}
		return notFound(err)
	}
	if cover != post.Cover {
		s.discardCover(ctx, post.Cover)
	}

	s.invalidate(ctx, post.ID)
	s.log.Info("post updated", zap.String("post_id", post.ID), zap.String("user_id", actor.ID))
	return nil
}

// Delete removes a post owned by actor together with its cover object.
func (s *PostService) Delete(ctx context.Context, actor *models.User, id string) error {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if err := AuthorizeOwner(actor, post); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return notFound(err)
	}
	s.invalidate(ctx, post.ID)
	s.discardCover(ctx, post.Cover)
	s.log.Info("post deleted", zap.String("post_id", post.ID), zap.String("user_id", actor.ID))
	return nil
}

func (s *PostService) withURL(ctx context.Context, p *models.Post) error {
	u, err := s.media.URL(ctx, p.Cover)
	if err != nil {
		return err
	}
	p.ImageURL = u
	return nil
}

// discardCover deletes an object the database no longer points at. Failures only leak storage.
func (s *PostService) discardCover(ctx context.Context, key string) {
	if err := s.media.Delete(ctx, key); err != nil {
		s.log.Warn("cover cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *PostService) invalidate(ctx context.Context, id string) {
	s.cache.InvalidateByPrefix(ctx, postDetailPrefix+id)
	s.cache.InvalidateByPrefix(ctx, postListPrefix)
}

func listKey(filter map[string]string, page, limit int) string {
	q := url.Values{}
	for k, v := range filter {
		q.Set(k, v)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	// Encode sorts by key
	return postListPrefix + q.Encode()
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}
