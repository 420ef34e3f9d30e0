package routes

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blogly/blogly/config"
	"github.com/blogly/blogly/media"
	"github.com/blogly/blogly/services"
	"github.com/blogly/blogly/store"
	"github.com/blogly/blogly/utils"
)

type testApp struct {
	router  *gin.Engine
	objects *media.MemoryStore
}

func newTestApp(t *testing.T, perHour int) *testApp {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(store.Models()...))

	cfg := &config.AppConfig{
		GinMode:              "test",
		AllowedOrigins:       []string{"http://localhost:5173"},
		RateLimitPerHour:     perHour,
		UploadMaxMB:          1,
		JWTCookieExpiresDays: 90,
	}
	users, posts := store.NewUserStore(db), store.NewPostStore(db)
	objects := media.NewMemoryStore()
	issuer := utils.NewSessionIssuer("router-secret", time.Hour)
	auth := services.NewAuthService(users, &utils.PasswordHasher{Cost: bcrypt.MinCost}, issuer, nil)
	pipeline := media.NewPipeline(objects, time.Hour, nil)
	postSvc := services.NewPostService(cfg, posts, users, pipeline, utils.NewCache(nil, 0, nil), nil)

	return &testApp{
		router:  SetupRouter(Deps{Config: cfg, Auth: auth, Posts: postSvc}),
		objects: objects,
	}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, withFile bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withFile {
		fw, err := mw.CreateFormFile("file", "cover.png")
		require.NoError(t, err)
		require.NoError(t, png.Encode(fw, image.NewRGBA(image.Rect(0, 0, 32, 24))))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (a *testApp) signup(t *testing.T, username string) (token, userID string) {
	t.Helper()
	w := a.do(jsonRequest(http.MethodPost, "/api/v1/users", map[string]string{
		"username": username, "password": "password123", "passwordConfirm": "password123",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	return body["token"].(string), user["id"].(string)
}

func postFields() map[string]string {
	return map[string]string{
		"title":   "Hello from the router",
		"summary": strings.Repeat("a summary ", 6),
		"content": strings.Repeat("some content ", 80),
	}
}

func (a *testApp) createPost(t *testing.T, token string) string {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/api/v1/posts", postFields(), true)
	req.Header.Set("Authorization", "Bearer "+token)
	w := a.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode(t, w)["data"].(map[string]interface{})["post"].(map[string]interface{})
	return post["id"].(string)
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignupLoginLogout(t *testing.T) {
	app := newTestApp(t, 100)

	w := app.do(jsonRequest(http.MethodPost, "/api/v1/users", map[string]string{
		"username": "alice", "password": "password123", "passwordConfirm": "password123",
	}))
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	require.Equal(t, "success", body["status"])
	require.NotEmpty(t, body["token"])
	user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	require.NotContains(t, user, "passwordHash")

	jwtCookie := cookieNamed(w, "jwt")
	require.NotNil(t, jwtCookie)
	require.Equal(t, body["token"], jwtCookie.Value)
	require.Equal(t, http.SameSiteNoneMode, jwtCookie.SameSite)
	require.Equal(t, user["id"], cookieNamed(w, "userId").Value)

	w = app.do(jsonRequest(http.MethodPost, "/api/v1/users", map[string]string{
		"username": "bobby", "password": "password123", "passwordConfirm": "nope-nope",
	}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "fail", decode(t, w)["status"])

	w = app.do(jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "alice", "password": "password123"}))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, cookieNamed(w, "jwt"))

	w = app.do(jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "alice", "password": "wrong-password"}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Incorrect username or password", decode(t, w)["message"])

	w = app.do(jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "alice"}))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "loggedout", cookieNamed(w, "jwt").Value)
}

func TestAccessGuard(t *testing.T) {
	app := newTestApp(t, 100)
	token, _ := app.signup(t, "alice")

	w := app.do(multipartRequest(t, http.MethodPost, "/api/v1/posts", postFields(), true))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "You are not logged in! Please log in to get access", decode(t, w)["message"])

	req := multipartRequest(t, http.MethodPost, "/api/v1/posts", postFields(), true)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
	w = app.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// an empty Bearer header is not rescued by a valid cookie
	req = multipartRequest(t, http.MethodPost, "/api/v1/posts", postFields(), true)
	req.Header.Set("Authorization", "Bearer")
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
	w = app.do(req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = multipartRequest(t, http.MethodPost, "/api/v1/posts", postFields(), true)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	w = app.do(req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = multipartRequest(t, http.MethodPost, "/api/v1/posts", postFields(), true)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "loggedout"})
	w = app.do(req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostLifecycle(t *testing.T) {
	app := newTestApp(t, 100)
	aliceToken, aliceID := app.signup(t, "alice")
	bobToken, _ := app.signup(t, "bobby")
	id := app.createPost(t, aliceToken)

	w := app.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts?author="+aliceID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.EqualValues(t, 1, body["results"])
	listed := body["posts"].([]interface{})[0].(map[string]interface{})
	require.NotEmpty(t, listed["imageUrl"])
	require.Equal(t, "alice", listed["author"].(map[string]interface{})["username"])

	w = app.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts/post/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts/post/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "No Post found with that ID", decode(t, w)["message"])

	req := multipartRequest(t, http.MethodPut, "/api/v1/posts", map[string]string{"id": id, "title": "Bob rewrote this"}, true)
	req.Header.Set("Authorization", "Bearer "+bobToken)
	w = app.do(req)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "You are not author of this post!", decode(t, w)["message"])
	require.Equal(t, 1, app.objects.Len())

	req = multipartRequest(t, http.MethodPut, "/api/v1/posts", map[string]string{"id": id, "title": "Alice rewrote this"}, false)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	w = app.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts/post/"+id, nil))
	post := decode(t, w)["data"].(map[string]interface{})["post"].(map[string]interface{})
	require.Equal(t, "Alice rewrote this", post["title"])

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/posts/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+bobToken)
	require.Equal(t, http.StatusNotFound, app.do(req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/posts/missing", nil)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	require.Equal(t, http.StatusNotFound, app.do(req).Code)
	require.Empty(t, app.objects.Deleted())

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/posts/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	require.Equal(t, http.StatusNoContent, app.do(req).Code)
	require.Zero(t, app.objects.Len())
}

func TestCreatePost_Validation(t *testing.T) {
	app := newTestApp(t, 100)
	token, _ := app.signup(t, "alice")

	fields := postFields()
	fields["title"] = "Nine char"
	req := multipartRequest(t, http.MethodPost, "/api/v1/posts", fields, true)
	req.Header.Set("Authorization", "Bearer "+token)
	w := app.do(req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEmpty(t, decode(t, w)["errors"])

	req = multipartRequest(t, http.MethodPost, "/api/v1/posts", postFields(), false)
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusBadRequest, app.do(req).Code)
	require.Zero(t, app.objects.Len())
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, 2)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, app.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)).Code)
	}
	w := app.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	require.Equal(t, http.StatusOK, app.do(req).Code)

	// only /api is limited
	require.Equal(t, http.StatusOK, app.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestNoRoute(t *testing.T) {
	app := newTestApp(t, 100)
	w := app.do(httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "fail", decode(t, w)["status"])
}
