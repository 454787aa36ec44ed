package web

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/On-Jun9/ShutterGate/internal/config"
	"github.com/On-Jun9/ShutterGate/internal/log"
	"github.com/On-Jun9/ShutterGate/internal/pipeline"
)

type Server struct {
	router   *mux.Router
	hub      *Hub
	version  string
	logger   *log.Logger
	profiles *config.ProfileManager
	limiter  *RateLimiter
	now      func() time.Time

	mu       sync.RWMutex
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	store    pipeline.Store
}

// NewServer validates cfg and builds the pipeline that serves /api/validate.
func NewServer(cfg *config.Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Nop()
	}
	profiles, err := config.NewProfileManager()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   mux.NewRouter(),
		hub:      NewHub(),
		version:  "unknown",
		logger:   logger,
		profiles: profiles,
		now:      time.Now,
	}
	if err := s.setConfig(cfg); err != nil {
		return nil, err
	}
	s.limiter = NewRateLimiter(&RateLimitConfig{
		RequestsPerSecond: cfg.Web.RateLimitRPS,
		BurstSize:         cfg.Web.RateLimitBurst,
		CleanupInterval:   time.Minute,
		MaxAge:            5 * time.Minute,
	})

	go s.hub.Run()

	s.setupRoutes()
	return s, nil
}

func (s *Server) SetVersion(v string) {
	s.version = v
}

// SetStore hands accepted uploads to st.
func (s *Server) SetStore(st pipeline.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = st
	s.pipeline.SetStore(st)
}

// SetProfileManager replaces the default ~/.shuttergate/profiles store.
func (s *Server) SetProfileManager(pm *config.ProfileManager) {
	s.profiles = pm
}

// setConfig swaps in cfg and a pipeline built from it.
func (s *Server) setConfig(cfg *config.Config) error {
	p, err := pipeline.New(cfg, s.logger)
	if err != nil {
		return err
	}
	p.SetProgressCallback(s.broadcastProgress)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		p.SetStore(s.store)
	}
	s.cfg = cfg
	s.pipeline = p
	return nil
}

func (s *Server) current() (*config.Config, *pipeline.Pipeline) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.pipeline
}

func (s *Server) setupRoutes() {
	s.router.Use(MetricsMiddleware)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/version", s.handleVersion).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/schedule/validate", s.handleValidateSchedule).Methods("POST")
	api.Handle("/validate", s.limiter.Middleware(http.HandlerFunc(s.handleValidate))).Methods("POST")
	api.HandleFunc("/ws", s.handleWebSocket)

	// Profile routes
	api.HandleFunc("/profiles", s.handleListProfiles).Methods("GET")
	api.HandleFunc("/profiles", s.handleSaveProfile).Methods("POST")
	api.HandleFunc("/profiles/{name}", s.handleLoadProfile).Methods("GET")
	api.HandleFunc("/profiles/{name}", s.handleDeleteProfile).Methods("DELETE")
	api.HandleFunc("/profiles/{name}/apply", s.handleApplyProfile).Methods("POST")
}

func (s *Server) Start(addr string) error {
	fmt.Printf("Starting ShutterGate API at http://%s\n", addr)
	return http.ListenAndServe(addr, s.router)
}

// Close stops background work started by NewServer.
func (s *Server) Close() {
	s.limiter.Stop()
}
