// Package api 本地控制接口：会话查询与操作、状态推送、诊断
package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"lanlink-core/internal/constants"
	"lanlink-core/internal/core/dispose"
	coreerrors "lanlink-core/internal/core/errors"
	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/core/safe"
	"lanlink-core/internal/diagnostics"
	"lanlink-core/internal/health"
	"lanlink-core/internal/session"
)

// SessionService 接口需要的会话操作
type SessionService interface {
	State() session.State
	Identity() (session.Identity, bool)
	Subscribe(ctx context.Context) <-chan session.State
	Connect(ctx context.Context, req session.ConnectOptions) error
	Disconnect(ctx context.Context) error
	ClearError()
}

// DiagnosticsFunc 执行一次诊断
type DiagnosticsFunc func(ctx context.Context) []diagnostics.StepResult

// Config 接口配置
type Config struct {
	Listen    string
	RateLimit float64 // 修改类接口每秒请求数，0 表示不限
	Burst     int
	// MetricsHandler 非空时挂载到 /metrics
	MetricsHandler http.Handler
	Diagnostics    DiagnosticsFunc
	// Health 为空时 /health 只报告会话状态
	Health *health.CompositeHealthChecker
	Logger corelog.Logger
}

// Server 本地控制接口
type Server struct {
	*dispose.ManagerBase

	config   Config
	session  SessionService
	logger   corelog.Logger
	router   *mux.Router
	server   *http.Server
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	started  time.Time

	// diagMu 同一时间只跑一次诊断
	diagMu sync.Mutex

	mu       sync.Mutex
	listener net.Listener
}

// NewServer 创建接口服务
func NewServer(ctx context.Context, cfg Config, svc SessionService) *Server {
	if cfg.Listen == "" {
		cfg.Listen = constants.DefaultAPIListen
	}
	if cfg.Logger == nil {
		cfg.Logger = corelog.Component("api")
	}

	s := &Server{
		ManagerBase: dispose.NewManager("APIServer", ctx),
		config:      cfg,
		session:     svc,
		logger:      cfg.Logger,
		router:      mux.NewRouter(),
		started:     time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkLocalOrigin,
		},
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.AddCleanHandler(func() error {
		s.logger.Infof("APIServer: shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})
	return s
}

// Handler 路由，测试与嵌入使用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 监听端口并在后台服务，端口被占用时直接返回错误
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeConfigError, "failed to listen on %s", s.config.Listen)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Infof("APIServer: listening on http://%s%s", ln.Addr(), constants.APIPrefix)
	safe.Go("api-server", func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("APIServer: serve error: %v", err)
		}
	})
	return nil
}

// Addr 实际监听地址，未启动时为空
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) registerRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc(constants.PathHealth, s.handleHealth).Methods(http.MethodGet)
	if s.config.MetricsHandler != nil {
		s.router.Handle(constants.PathMetrics, s.config.MetricsHandler).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix(constants.APIPrefix).Subrouter()
	api.HandleFunc(constants.PathSession, s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc(constants.PathSessionPeers, s.handleGetPeers).Methods(http.MethodGet)
	api.HandleFunc(constants.PathSessionStream, s.handleStream).Methods(http.MethodGet)

	// 限流挂在单条路由上，方法不匹配时 mux 才能返回 405
	post := func(path string, h http.HandlerFunc) {
		api.Handle(path, s.rateLimitMiddleware(h)).Methods(http.MethodPost)
	}
	post(constants.PathSessionConnect, s.handleConnect)
	post(constants.PathSessionLeave, s.handleDisconnect)
	post(constants.PathSessionClear, s.handleClearError)
	post(constants.PathDiagnostics, s.handleDiagnostics)
}
