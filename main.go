package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/blogly/blogly/config"
	"github.com/blogly/blogly/media"
	"github.com/blogly/blogly/routes"
	"github.com/blogly/blogly/services"
	"github.com/blogly/blogly/store"
	"github.com/blogly/blogly/utils"
)

func main() {
	cfg, err := config.Load(config.DefaultEnvFile, config.DefaultJSONFile)
	if err != nil {
		panic(err)
	}

	// Initialize logger early
	log, err := utils.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDatabase(cfg, log, store.Models()...)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	objects, err := media.NewS3Store(ctx, cfg)
	if err != nil {
		log.Fatal("object storage init failed", zap.Error(err))
	}
	pipeline := media.NewPipeline(objects, cfg.S3PresignTTL, log)

	rc := utils.NewRedis(cfg, log)
	if rc != nil {
		defer rc.Close()
	}
	cache := utils.NewCache(rc, cfg.CacheTTL, log)

	users := store.NewUserStore(db)
	posts := store.NewPostStore(db)
	issuer := utils.NewSessionIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)

	deps := routes.Deps{
		Config: cfg,
		Auth:   services.NewAuthService(users, utils.NewPasswordHasher(), issuer, log),
		Posts:  services.NewPostService(cfg, posts, users, pipeline, cache, log),
	}
	accessLog, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		log.Warn("access log disabled", zap.Error(err))
	} else {
		defer accessLog.Sync()
		deps.AccessLog = accessLog
	}
	r := routes.SetupRouter(deps)

	log.Info("starting server", zap.String("port", cfg.AppPort), zap.String("db_driver", cfg.DBDriver))
	if err := utils.GraceServer(ctx, ":"+cfg.AppPort, r, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}
