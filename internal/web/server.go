// Package web exposes the query API over HTTP: plugin metadata,
// chart-ready sample logs, health, and a websocket feed of poll
// cycle results.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/perchlab/perch/internal/query"
	"github.com/perchlab/perch/internal/scheduler"
)

// SampleCounter reports the total number of stored samples, used by
// the health endpoint.
type SampleCounter interface {
	TotalSampleCount(ctx context.Context) (int64, error)
}

// CycleFeed delivers poll cycle results to websocket clients.
type CycleFeed interface {
	Subscribe() chan scheduler.CycleResult
	Unsubscribe(ch chan scheduler.CycleResult)
}

// Config holds server settings.
type Config struct {
	Addr          string
	TrustedSubnet string
	AuthKey       string
}

// Server provides the HTTP API for querying plugin samples.
type Server struct {
	conf      Config
	handler   *query.Handler
	counter   SampleCounter
	feed      CycleFeed
	logger    *zap.Logger
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server. counter and feed are
// optional; without a feed the websocket route is not registered.
func NewServer(conf Config, handler *query.Handler, counter SampleCounter, feed CycleFeed, logger *zap.Logger) *Server {
	if conf.Addr == "" {
		conf.Addr = "0.0.0.0:8015"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		conf:    conf,
		handler: handler,
		counter: counter,
		feed:    feed,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.logger))

	trusted, err := TrustedCIDR(s.conf.TrustedSubnet)
	if err != nil {
		return nil, err
	}
	r.Use(trusted)
	r.Use(SharedSecret(s.conf.AuthKey))

	r.GET("/plugins/list", s.handleList)
	r.GET("/plugins/all", s.handleAll)
	r.GET("/plugins/:name", s.handlePlugin)
	r.GET("/api/health", s.handleHealth)
	if s.feed != nil {
		r.GET("/ws", s.handleWebsocket)
	}
	return r, nil
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	r, err := s.Router()
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.conf.Addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()
	s.logger.Info("http api listening", zap.String("addr", s.conf.Addr))

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
