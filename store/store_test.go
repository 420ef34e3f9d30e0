package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blogly/blogly/models"
)

func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would otherwise get its own empty in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

func seedUser(t *testing.T, users *UserStore, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "hash"}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func seedPost(t *testing.T, posts *PostStore, author *models.User, i int, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:     fmt.Sprintf("Post number %03d", i),
		Summary:   strings.Repeat("s", 50),
		Content:   strings.Repeat("c", 1000),
		Cover:     fmt.Sprintf("cover-%d", i),
		AuthorID:  author.ID,
		CreatedAt: at,
	}
	require.NoError(t, posts.Create(context.Background(), p))
	return p
}

func TestUserStore_CreateAndFind(t *testing.T) {
	users := NewUserStore(InitTestDB(t))
	ctx := context.Background()

	u := seedUser(t, users, "alice")
	require.Len(t, u.ID, 36)

	byID, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)

	byName, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	_, err = users.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = users.FindByUsername(ctx, "bob")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserStore_DuplicateUsername(t *testing.T) {
	users := NewUserStore(InitTestDB(t))
	seedUser(t, users, "alice")

	err := users.Create(context.Background(), &models.User{Username: "alice", PasswordHash: "x"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestPostStore_CreateAttachesAuthor(t *testing.T) {
	db := InitTestDB(t)
	users, posts := NewUserStore(db), NewPostStore(db)
	author := seedUser(t, users, "alice")

	p := seedPost(t, posts, author, 1, time.Now().UTC())
	require.NotEmpty(t, p.ID)
	require.NotNil(t, p.Author)
	require.Equal(t, "alice", p.Author.Username)

	got, err := posts.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, author.ID, got.Author.ID)

	_, err = posts.FindByID(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostStore_ListOrderAndPagination(t *testing.T) {
	db := InitTestDB(t)
	users, posts := NewUserStore(db), NewPostStore(db)
	author := seedUser(t, users, "alice")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		seedPost(t, posts, author, i, base.Add(time.Duration(i)*time.Minute))
	}
	ctx := context.Background()

	first, err := posts.List(ctx, nil, 1, 20)
	require.NoError(t, err)
	require.Len(t, first, 20)
	require.Equal(t, "Post number 024", first[0].Title)
	for i := 1; i < len(first); i++ {
		require.True(t, first[i-1].CreatedAt.After(first[i].CreatedAt))
	}
	require.NotNil(t, first[0].Author)

	second, err := posts.List(ctx, nil, 2, 10)
	require.NoError(t, err)
	require.Len(t, second, 10)
	require.Equal(t, "Post number 014", second[0].Title)
	require.Equal(t, "Post number 005", second[9].Title)
}

func TestPostStore_ListFilter(t *testing.T) {
	db := InitTestDB(t)
	users, posts := NewUserStore(db), NewPostStore(db)
	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bobby")
	now := time.Now().UTC()
	seedPost(t, posts, alice, 1, now)
	seedPost(t, posts, bob, 2, now.Add(time.Second))
	seedPost(t, posts, bob, 3, now.Add(2*time.Second))
	ctx := context.Background()

	got, err := posts.List(ctx, map[string]string{"author": bob.ID}, 1, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = posts.List(ctx, map[string]string{"title": "Post number 001"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, alice.ID, got[0].Author.ID)

	// unknown keys are ignored rather than reaching SQL
	got, err = posts.List(ctx, map[string]string{"1=1; DROP TABLE posts; --": "x"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestPostStore_UpdateAndDelete(t *testing.T) {
	db := InitTestDB(t)
	users, posts := NewUserStore(db), NewPostStore(db)
	author := seedUser(t, users, "alice")
	p := seedPost(t, posts, author, 1, time.Now().UTC())
	ctx := context.Background()

	fields := p.Fields()
	fields.Title = "A brand new title"
	require.NoError(t, posts.Update(ctx, p.ID, fields, "new-cover"))

	got, err := posts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "A brand new title", got.Title)
	require.Equal(t, "new-cover", got.Cover)
	require.Equal(t, author.ID, got.AuthorID)

	require.ErrorIs(t, posts.Update(ctx, "missing", fields, "x"), ErrNotFound)

	require.NoError(t, posts.Delete(ctx, p.ID))
	_, err = posts.FindByID(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, posts.Delete(ctx, p.ID), ErrNotFound)
}
