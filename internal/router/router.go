package router

import (
	"context"
	"time"

	"user-center/config"
	"user-center/internal/handler"
	"user-center/internal/session"
	"user-center/pkg/logger"
	"user-center/pkg/ratelimit"
	"user-center/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck 单个依赖的健康检查
type HealthCheck func(ctx context.Context) error

// Deps 路由依赖
type Deps struct {
	User   *handler.UserHandler
	Checks map[string]HealthCheck // 健康检查项，如 db/redis
}

// New 创建Gin路由
func New(cfg *config.Config, deps Deps) *gin.Engine {
	router := gin.New()

	router.Use(logger.RequestLogger())
	router.Use(logger.Recovery())
	router.Use(newCORS(cfg.CORS))

	setupBasicRoutes(router, deps.Checks)

	users := router.Group(cfg.Server.BasePath)
	users.Use(session.Middleware(cfg.Session))

	var limit []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limit = append(limit, ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware())
	}
	deps.User.RegisterRoutes(users, limit...)

	return router
}

func newCORS(cfg config.CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine, checks map[string]HealthCheck) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		components := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				// 错误详情只写日志，不对外暴露
				logger.Warn("健康检查失败", zap.String("component", name), zap.Error(err))
				status = name + "-down"
				components[name] = "down"
				continue
			}
			components[name] = "ok"
		}
		response.Success(c, gin.H{
			"status":     status,
			"components": components,
			"time":       time.Now().Format(time.RFC3339),
		})
	})

	// 根路径
	router.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "欢迎使用用户中心",
			"version": "1.0.0",
		})
	})
}
