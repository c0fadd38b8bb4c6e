// Package api serves the ledger browser HTTP surface.
package api

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"coin-ledger/internal/auth"
	"coin-ledger/internal/ledger"
	"coin-ledger/internal/observability"
	"coin-ledger/internal/reporting"
	"coin-ledger/internal/storage"
	"coin-ledger/internal/verification"
)

// Default live feed timings.
const (
	DefaultFeedInterval = 2 * time.Second
	DefaultPingInterval = 30 * time.Second
)

// Options contains configuration for creating a Server.
type Options struct {
	Ledger  storage.LedgerStore
	Auditor *verification.Auditor
	Auth    *auth.Service
	Logger  logrus.FieldLogger

	// StaticDir holds the browser bundle. Empty disables static serving.
	StaticDir string
	// CORSOrigins lists allowed origins; empty or "*" allows all.
	CORSOrigins []string

	FeedInterval time.Duration
	PingInterval time.Duration
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	ledger    storage.LedgerStore
	query     *ledger.Query
	auditor   *verification.Auditor
	auth      *auth.Service
	generator *reporting.Generator
	log       logrus.FieldLogger

	staticDir    string
	origins      []string
	feedInterval time.Duration
	pingInterval time.Duration

	started     time.Time
	subscribers atomic.Int64

	// ctx ends live feed connections on Close; hijacked connections are
	// not tracked by http.Server.Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	engine *gin.Engine
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	if opts.FeedInterval <= 0 {
		opts.FeedInterval = DefaultFeedInterval
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ledger:       opts.Ledger,
		query:        ledger.NewQuery(opts.Ledger),
		auditor:      opts.Auditor,
		auth:         opts.Auth,
		generator:    reporting.NewGenerator(opts.Ledger, opts.Auditor),
		log:          log.WithField("component", "api"),
		staticDir:    opts.StaticDir,
		origins:      opts.CORSOrigins,
		feedInterval: opts.FeedInterval,
		pingInterval: opts.PingInterval,
		started:      time.Now(),
		ctx:          ctx,
		cancel:       cancel,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Close ends all live feed connections.
func (s *Server) Close() {
	s.cancel()
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(s.log), cors.New(s.corsConfig()))

	r.GET("/health", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	api := r.Group("/api")
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)
	api.GET("/transactions", s.handleTransactions)
	api.GET("/transactions.csv", s.handleTransactionsCSV)
	api.GET("/audit", s.handleAudit)
	api.GET("/audit/runs", s.handleAuditRuns)
	api.GET("/report", s.handleReport)
	api.GET("/ws/transactions", s.handleFeed)

	r.NoRoute(s.handleNoRoute)
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if s.allowAllOrigins() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.origins
	}
	return cfg
}

func (s *Server) allowAllOrigins() bool {
	if len(s.origins) == 0 {
		return true
	}
	for _, o := range s.origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// allowOrigin applies the CORS origin list to websocket upgrades.
func (s *Server) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.allowAllOrigins() {
		return true
	}
	for _, o := range s.origins {
		if o == origin {
			return true
		}
	}
	return false
}
