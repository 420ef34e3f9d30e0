package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/blogly/blogly/config"
	"github.com/blogly/blogly/controllers"
	"github.com/blogly/blogly/middleware"
	"github.com/blogly/blogly/services"
	"github.com/blogly/blogly/utils"
)

// Deps are the services the HTTP layer is built from.
type Deps struct {
	Config *config.AppConfig
	Auth   *services.AuthService
	Posts  *services.PostService

	// AccessLog receives one entry per request; nil disables access logging.
	AccessLog *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if d.AccessLog != nil {
		r.Use(utils.Ginzap(d.AccessLog, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(d.AccessLog, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.MaxMultipartMemory = 8 << 20

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, http.StatusOK, gin.H{"message": "ok"})
	})

	userController := controllers.NewUserController(cfg, d.Auth)
	postController := controllers.NewPostController(cfg, d.Posts)
	requireAuth := middleware.AuthRequired(d.Auth)

	api := r.Group("/api", middleware.NewRateLimiter(cfg.RateLimitPerHour).Middleware())
	v1 := api.Group("/v1")

	usersGroup := v1.Group("/users")
	usersGroup.POST("", userController.Signup)
	usersGroup.POST("/login", userController.Login)
	usersGroup.POST("/logout", userController.Logout)

	postsGroup := v1.Group("/posts")
	postsGroup.GET("", postController.ListPosts)
	postsGroup.GET("/post/:id", postController.GetPost)
	postsGroup.POST("", requireAuth, postController.CreatePost)
	postsGroup.PUT("", requireAuth, postController.UpdatePost)
	postsGroup.DELETE("/:id", requireAuth, postController.DeletePost)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "Can't find "+ctx.Request.URL.Path+" on this server!")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"status": "fail", "message": "not found"})
	})

	return r
}
