package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blogly/blogly/config"
	"github.com/blogly/blogly/middleware"
	"github.com/blogly/blogly/models"
	"github.com/blogly/blogly/services"
	"github.com/blogly/blogly/utils"
)

const (
	userIDCookie  = "userId"
	loggedOutMark = "loggedout"
)

var errBadPayload = utils.NewValidation(40000, "Invalid request payload")

// UserController handles signup, login and logout.
type UserController struct {
	auth *services.AuthService
	cfg  *config.AppConfig
}

// NewUserController creates a UserController.
func NewUserController(cfg *config.AppConfig, auth *services.AuthService) *UserController {
	return &UserController{auth: auth, cfg: cfg}
}

// Signup creates an account and starts a session for it.
func (u *UserController) Signup(ctx *gin.Context) {
	var req models.Signup
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, errBadPayload.Wrap(err))
		return
	}

	user, token, err := u.auth.Signup(ctx.Request.Context(), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	u.sendSession(ctx, http.StatusCreated, user, token)
}

// Login starts a session for existing credentials.
func (u *UserController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, errBadPayload.Wrap(err))
		return
	}

	user, token, err := u.auth.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	u.sendSession(ctx, http.StatusOK, user, token)
}

// Logout overwrites the session cookie. Tokens stay valid until they expire.
func (u *UserController) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.SetCookie(middleware.SessionCookie, loggedOutMark, 0, "/", u.cfg.CookieDomain, secureRequest(ctx), true)
	utils.Success(ctx, http.StatusOK, nil)
}

func (u *UserController) sendSession(ctx *gin.Context, status int, user *models.User, token string) {
	maxAge := int(u.cfg.CookieMaxAge().Seconds())
	secure := secureRequest(ctx)
	ctx.SetSameSite(http.SameSiteNoneMode)
	ctx.SetCookie(middleware.SessionCookie, token, maxAge, "/", u.cfg.CookieDomain, secure, true)
	// readable by the frontend; never trusted by the server
	ctx.SetCookie(userIDCookie, user.ID, maxAge, "/", u.cfg.CookieDomain, secure, false)

	utils.Success(ctx, status, gin.H{
		"token": token,
		"data":  gin.H{"user": user},
	})
}

func secureRequest(ctx *gin.Context) bool {
	return ctx.Request.TLS != nil || ctx.GetHeader("X-Forwarded-Proto") == "https"
}
