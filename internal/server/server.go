package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	ginprometheus "github.com/zsais/go-gin-prometheus"

	_ "reel/docs"
	"reel/internal/config"
	"reel/internal/handler"
	generationHandler "reel/internal/handler/generation"
	"reel/internal/pkg/storage"
	"reel/internal/pkg/storage/local"
	"reel/internal/server/middleware"
	"reel/internal/service/pipeline"
)

// Server HTTP 服务器
type Server struct {
	cfg     *config.Config
	engine  *gin.Engine
	svc     *pipeline.Service
	storage storage.Storage
	health  *handler.HealthHandler
}

// New 创建服务器实例
func New(cfg *config.Config, svc *pipeline.Service, store storage.Storage, health *handler.HealthHandler) *Server {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	if health == nil {
		health = handler.NewHealthHandler()
	}

	srv := &Server{
		cfg:     cfg,
		engine:  gin.New(),
		svc:     svc,
		storage: store,
		health:  health,
	}
	srv.setupRoutes()
	return srv
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS(s.cfg.Server.CORSAllowedOrigins))

	// 请求指标，/metrics 同时暴露流水线指标
	ginprometheus.NewPrometheus("gin").Use(s.engine)

	// 健康检查
	s.engine.GET("/health", s.health.Health)
	s.engine.GET("/ready", s.health.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 本地存储的素材由本服务直接提供
	if ls, ok := s.storage.(*local.LocalStorage); ok {
		prefix := assetsPrefix(s.cfg.Storage.Local)
		s.engine.Static(prefix, ls.BasePath())
		log.Info().Str("prefix", prefix).Str("dir", ls.BasePath()).Msg("serving local assets")
	}

	// API v1
	v1 := s.engine.Group("/api/v1")
	generationHandler.NewHandler(s.svc).Register(v1)
}

// assetsPrefix 从 base_url 中取出静态路由前缀
func assetsPrefix(cfg *config.LocalConfig) string {
	if cfg == nil || cfg.BaseURL == "" {
		return "/assets"
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/assets"
	}
	return u.Path
}

// Run 启动服务器，ctx 取消后停止接收请求并关闭流水线
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		s.svc.Shutdown(shutdownCtx)
		return err
	case err := <-errCh:
		s.svc.Shutdown(context.Background())
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
