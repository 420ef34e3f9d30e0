package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/blogly/blogly/config"
	"github.com/blogly/blogly/middleware"
	"github.com/blogly/blogly/models"
	"github.com/blogly/blogly/services"
	"github.com/blogly/blogly/utils"
)

const coverField = "file"

var errNoSession = utils.NewUnauthenticated(40110, "You are not logged in! Please log in to get access")

// PostController exposes post CRUD over HTTP.
type PostController struct {
	posts *services.PostService
	cfg   *config.AppConfig
}

// NewPostController creates a new PostController instance.
func NewPostController(cfg *config.AppConfig, posts *services.PostService) *PostController {
	return &PostController{posts: posts, cfg: cfg}
}

// CreatePost stores a post with its cover image. Expects multipart form data.
func (p *PostController) CreatePost(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Fail(ctx, errNoSession)
		return
	}
	cover, err := p.openCover(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if cover != nil {
		defer cover.Close()
	}

	in := services.CreatePost{
		Fields: models.PostFields{
			Title:   ctx.PostForm("title"),
			Summary: ctx.PostForm("summary"),
			Content: ctx.PostForm("content"),
		},
		AuthorID: strings.TrimSpace(ctx.PostForm("author")),
	}
	if cover != nil {
		in.Cover = cover
	}
	post, err := p.posts.Create(ctx.Request.Context(), user, in)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, http.StatusCreated, gin.H{"data": gin.H{"post": post}})
}

// UpdatePost edits the post named by the id form field. Omitted fields are kept.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Fail(ctx, errNoSession)
		return
	}
	cover, err := p.openCover(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if cover != nil {
		defer cover.Close()
	}

	in := services.UpdatePost{
		ID:      strings.TrimSpace(ctx.PostForm("id")),
		Title:   optionalForm(ctx, "title"),
		Summary: optionalForm(ctx, "summary"),
		Content: optionalForm(ctx, "content"),
	}
	if cover != nil {
		in.Cover = cover
	}
	if err := p.posts.Update(ctx.Request.Context(), user, in); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, http.StatusOK, nil)
}

// ListPosts returns a page of posts. Query keys other than page and limit filter by equality.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"))
	filter := map[string]string{}
	for key, values := range ctx.Request.URL.Query() {
		if key == "page" || key == "limit" || len(values) == 0 {
			continue
		}
		filter[key] = values[0]
	}

	posts, err := p.posts.List(ctx.Request.Context(), filter, page, limit)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, http.StatusOK, gin.H{
		"results": len(posts),
		"posts":   posts,
	})
}

// GetPost returns a single post.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.posts.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, http.StatusOK, gin.H{"data": gin.H{"post": post}})
}

// DeletePost removes a post and its cover.
func (p *PostController) DeletePost(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Fail(ctx, errNoSession)
		return
	}
	if err := p.posts.Delete(ctx.Request.Context(), user, ctx.Param("id")); err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// openCover returns the uploaded cover, or nil when the request carries none.
func (p *PostController) openCover(ctx *gin.Context) (io.ReadCloser, error) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, p.cfg.UploadMaxBytes())

	header, err := ctx.FormFile(coverField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
			return nil, utils.NewValidation(40015, fmt.Sprintf("File is too large. The limit is %d MB.", p.cfg.UploadMaxMB))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, nil
		default:
			return nil, errBadPayload.Wrap(err)
		}
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	return f, nil
}

func optionalForm(ctx *gin.Context, key string) *string {
	v, ok := ctx.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

func parsePagination(pageStr, limitStr string) (int, int) {
	page, limit := services.DefaultPage, services.DefaultLimit
	if n, err := strconv.Atoi(strings.TrimSpace(pageStr)); err == nil && n > 0 {
		page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(limitStr)); err == nil && n > 0 {
		limit = n
	}
	return page, limit
}
