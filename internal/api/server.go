package api

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"memo-bell/internal/config"
	"memo-bell/internal/music"
	"memo-bell/internal/scheduler"
	"memo-bell/internal/store"
)

type Server struct {
	cfg    *config.Config
	store  *store.Store
	music  *music.Service
	router *gin.Engine

	// Clock overrides the time source in tests; nil means real time.
	Clock scheduler.Clock

	// OnStateChanged fires after any successful mutation; the list
	// view shell refreshes off this.
	OnStateChanged func()
}

func New(cfg *config.Config, st *store.Store, mus *music.Service) *Server {
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.TestMode)
	}

	s := &Server{
		cfg:    cfg,
		store:  st,
		music:  mus,
		router: gin.Default(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	// CORS Configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}

	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	// Wrong-method requests must answer 405, not gin's default 404.
	s.router.HandleMethodNotAllowed = true

	// Dashboard pass-through
	s.router.GET("/", s.Dashboard)

	// Health Check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "memo-bell"})
	})

	s.router.GET("/_metrics", gin.WrapH(promhttp.Handler()))

	// Schedule CRUD
	s.router.GET("/api/schedules", s.ListSchedules)
	s.router.POST("/api/schedules", s.CreateSchedule)
	s.router.DELETE("/api/schedules", s.DeleteSchedule)

	// Music lookups
	s.router.GET("/api/music/search", s.SearchMusic)
	s.router.GET("/api/music/comments", s.MusicComments)
	s.router.GET("/api/music/lyric", s.MusicLyric)
}

// Dashboard serves the static dashboard page when the file exists.
// Pure file pass-through; the page itself is not part of the core.
func (s *Server) Dashboard(c *gin.Context) {
	path := s.cfg.Server.DashboardFile
	if _, err := os.Stat(path); err != nil {
		c.String(http.StatusNotFound, "dashboard file %s not found", path)
		return
	}
	c.File(path)
}

// Handler exposes the router for an http.Server owner.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server on the configured address
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) stateChanged() {
	if s.OnStateChanged != nil {
		s.OnStateChanged()
	}
}
