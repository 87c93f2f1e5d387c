package ui

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"duvidapp/app"
	"duvidapp/internal"
	"duvidapp/internal/api"
	"duvidapp/models"
	"duvidapp/ui/middleware"

	"github.com/gin-gonic/gin"
)

// Deps are the collaborators a Server needs
type Deps struct {
	Workspaces *app.WorkspaceManager
	Hub        *api.SSEHub
	// Metrics serves /metrics when set
	Metrics      http.Handler
	Logger       *internal.Logger
	CookieName   string
	SecureCookie bool
}

// Server represents the DuvidApp web server
type Server struct {
	router    *gin.Engine
	deps      Deps
	files     fs.FS
	templates *template.Template
	logger    *internal.Logger
}

// NewServer parses the templates under ui/templates in files and registers the
// routes
func NewServer(deps Deps, files fs.FS) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = internal.DefaultLogger
	}
	if deps.CookieName == "" {
		deps.CookieName = "duvidapp_sid"
	}

	s := &Server{
		router: gin.New(),
		deps:   deps,
		files:  files,
		logger: deps.Logger.WithField("component", "ui"),
	}

	if err := s.parseTemplates(); err != nil {
		return nil, err
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting DuvidApp UI on http://%s", addr)
	return s.router.Run(addr)
}

func (s *Server) parseTemplates() error {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"initials": models.Initials,
		"timeAgo":  timeAgo,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "—"
			}
			return t.Local().Format("02/01/2006 15:04")
		},
		"join":      strings.Join,
		"pct":       func(v float64) string { return fmt.Sprintf("%.0f%%", v) },
		"roleLabel": models.Role.Label,
		"hasTag": func(selected []string, tag string) bool {
			for _, t := range selected {
				if t == tag {
					return true
				}
			}
			return false
		},
	}

	templatesFS, err := fs.Sub(s.files, "ui/templates")
	if err != nil {
		return fmt.Errorf("failed to create templates filesystem: %w", err)
	}

	files, err := fs.Glob(templatesFS, "*.html")
	if err != nil {
		return fmt.Errorf("failed to glob templates: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no templates found under ui/templates")
	}

	s.templates = template.New("").Funcs(funcMap)
	for _, file := range files {
		content, err := fs.ReadFile(templatesFS, file)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", file, err)
		}
		if _, err := s.templates.New(file).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", file, err)
		}
	}
	s.logger.Debug("[TemplateInit] Parsed %d templates", len(files))
	return nil
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestLogger(s.deps.Logger))

	if staticFS, err := fs.Sub(s.files, "ui/static"); err == nil {
		s.router.StaticFS("/static", http.FS(staticFS))
	} else {
		s.logger.Warn("[Static] No static files: %v", err)
	}
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "workspaces": s.deps.Workspaces.Len()})
	})
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}

	web := s.router.Group("/")
	web.Use(middleware.Workspaces(s.deps.Workspaces, s.deps.CookieName, s.deps.SecureCookie))

	// public pages
	web.GET("/login", s.handleLoginPage)
	web.POST("/login", s.handleLogin)
	web.GET("/register", s.handleRegisterPage)
	web.POST("/register", s.handleRegister)
	web.POST("/logout", s.handleLogout)
	web.POST("/toasts/:id/dismiss", s.handleDismissToast)
	web.POST("/modal/close", s.handleCloseModal)
	if s.deps.Hub != nil {
		web.GET("/events", s.deps.Hub.HandleSSE)
	}

	pages := web.Group("/")
	pages.Use(middleware.RequireLogin(false))
	pages.GET("/", s.handleIndex)
	pages.POST("/filters/reset", s.handleResetFilters)
	pages.POST("/refresh", s.handleRefresh)
	pages.GET("/questions/new", s.handleNewQuestionPage)
	pages.POST("/questions", s.handleCreateQuestion)
	pages.GET("/questions/:id", s.handleQuestion)
	pages.POST("/questions/:id/vote", s.handleVoteQuestion)
	pages.POST("/questions/:id/answers", s.handleCreateAnswer)
	pages.POST("/answers/:id/edit", s.handleEditAnswer)
	pages.POST("/answers/:id/confirm-delete", s.handleConfirmDeleteAnswer)
	pages.POST("/answers/:id/delete", s.handleDeleteAnswer)
	pages.POST("/answers/:id/verify", s.handleVerifyAnswer)
	pages.POST("/answers/:id/like", s.handleLikeAnswer)
	pages.POST("/answers/:id/dislike", s.handleDislikeAnswer)
	pages.GET("/profile", s.handleProfilePage)
	pages.POST("/profile", s.handleUpdateProfile)
	pages.GET("/export.xlsx", s.handleExport)

	jsonAPI := web.Group("/api")
	jsonAPI.Use(middleware.RequireLogin(true))
	jsonAPI.GET("/questions", s.handleAPIQuestions)
	jsonAPI.GET("/questions/:id", s.handleAPIQuestion)
	jsonAPI.GET("/dashboard", s.handleAPIDashboard)
	jsonAPI.GET("/toasts", s.handleAPIToasts)
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "agora mesmo"
	case d < time.Hour:
		return fmt.Sprintf("há %d min", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("há %d h", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("há %d dias", int(d.Hours()/24))
	default:
		return t.Local().Format("02/01/2006")
	}
}
