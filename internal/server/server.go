package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	_ "github.com/ivnvMkhl/icon-offerer-cf/docs"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/ai"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/ai/prompt"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/captcha"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/handler"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/model"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/server/middleware"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/service"
)

// shutdownTimeout 优雅关闭等待时间
const shutdownTimeout = 10 * time.Second

const (
	rootPath  = "/"
	iconsPath = "/api/v1/icons"
)

// suggestPaths 图标查询挂载的路径
var suggestPaths = map[string]bool{rootPath: true, iconsPath: true}

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
}

// New 创建服务器实例
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	completer, err := ai.NewCompleter(ctx, &cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	verifier := captcha.NewVerifier(&cfg.Captcha, nil)
	if verifier.Mode() == config.VerificationBypassed {
		log.Warn().Msg("SmartCaptcha test mode enabled, tokens are not verified")
	}

	iconSvc := service.NewIconService(prompt.NewBuilder(&cfg.AI), completer)

	srv := &Server{
		cfg:    cfg,
		engine: engine,
	}

	// 设置路由
	srv.setupRoutes(handler.NewIconHandler(cfg, verifier, iconSvc))

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(iconHandler *handler.IconHandler) {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())
	if s.cfg.Metrics.Enabled {
		s.engine.Use(middleware.Metrics())
	}

	// 健康检查
	healthHandler := handler.NewHealthHandler(s.cfg)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	if s.cfg.Server.Swagger {
		s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// 指标与业务共用端口
	if s.cfg.Metrics.Enabled && s.cfg.Metrics.Addr == "" {
		s.engine.GET(s.cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 图标查询：接受任意方法，由处理器决定预检、405 或处理
	// 根路径对应函数运行时的调用方式
	s.engine.Any(rootPath, iconHandler.Suggest)

	v1 := s.engine.Group("/api/v1")
	{
		v1.Any("/icons", iconHandler.Suggest)
	}

	// Any 只注册标准方法，其余方法（如 PROPFIND）落到 NoRoute，同样交给处理器返回 405
	s.engine.NoRoute(func(c *gin.Context) {
		if suggestPaths[c.Request.URL.Path] {
			iconHandler.Suggest(c)
			return
		}
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "Not Found",
			Message: "Endpoint does not exist",
			Details: c.Request.URL.Path,
		})
	})
}

// Run 启动服务器，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	servers := []*http.Server{{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}}

	// 独立的指标端口
	if s.cfg.Metrics.Enabled && s.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle(s.cfg.Metrics.Path, promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              s.cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
		log.Info().Str("addr", s.cfg.Metrics.Addr).Str("path", s.cfg.Metrics.Path).Msg("serving metrics")
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	// 等待关闭信号或错误
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// Engine 获取 Gin 引擎 (用于测试与函数运行时)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
