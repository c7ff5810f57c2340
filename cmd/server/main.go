package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"user-center/config"
	"user-center/internal/handler"
	"user-center/internal/model"
	"user-center/internal/repository"
	"user-center/internal/router"
	"user-center/internal/service"
	"user-center/internal/session"
	dbPkg "user-center/pkg/db"
	"user-center/pkg/logger"
	"user-center/pkg/password"
	redisPkg "user-center/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer logger.Sync()

	log.Info("=== 用户中心启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("database_host", cfg.Database.Host),
		zap.Int("database_port", cfg.Database.Port),
		zap.String("database_name", cfg.Database.Database),
		zap.String("session_store", cfg.Session.Store),
		zap.String("tag_mode", cfg.Search.TagMode),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	if _, err := dbPkg.InitDB(cfg.Database); err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	if err := dbPkg.AutoMigrate(&model.User{}); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	checks := map[string]router.HealthCheck{"db": dbPkg.HealthCheck}

	// 4. 会话存储
	var redisClient *redis.Client
	if cfg.Session.Store == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := redisPkg.InitRedis(ctx, cfg.Redis)
		cancel()
		if err != nil {
			log.Fatal("Redis连接失败", zap.Error(err))
		}
		defer func() {
			if err := redisPkg.Close(); err != nil {
				log.Error("关闭Redis连接失败", zap.Error(err))
			}
		}()
		redisClient = client
		checks["redis"] = redisPkg.HealthCheck
		log.Info("Redis连接成功")
	}
	sessions, err := session.NewStore(cfg.Session, redisClient)
	if err != nil {
		log.Fatal("会话存储初始化失败", zap.Error(err))
	}

	// 5. 初始化业务服务
	hasher, err := password.NewHasher(cfg.Password.Salt, cfg.Password.Algorithm)
	if err != nil {
		log.Fatal("密码摘要配置错误", zap.Error(err))
	}
	userRepo := repository.NewUserRepository(dbPkg.GetDB())
	userSvc := service.NewUserService(userRepo, sessions, hasher)
	userHandler := handler.NewUserHandler(userSvc, cfg.Search.TagMode)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 6. 创建路由与HTTP服务器
	engine := router.New(cfg, router.Deps{User: userHandler, Checks: checks})
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 7. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}
