package middleware

import (
	"net/http"
	"time"

	"duvidapp/app"
	"duvidapp/internal"
	"duvidapp/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WorkspaceKey is the gin context key holding the *app.Workspace of a request
const WorkspaceKey = "workspace"

const cookieMaxAge = 30 * 24 * time.Hour

// Workspaces assigns every browser a workspace through a session cookie. Cookie
// values that are not UUIDs are replaced, so clients cannot pick another
// workspace's token key.
func Workspaces(manager *app.WorkspaceManager, cookieName string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = manager.NewID()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, id, int(cookieMaxAge.Seconds()), "/", "", secure, true)

		c.Set(api.WorkspaceIDKey, id)
		c.Set(WorkspaceKey, manager.Get(c.Request.Context(), id))
		c.Next()
	}
}

// Current returns the workspace attached by Workspaces
func Current(c *gin.Context) *app.Workspace {
	if v, ok := c.Get(WorkspaceKey); ok {
		if w, ok := v.(*app.Workspace); ok {
			return w
		}
	}
	return nil
}

// RequireLogin redirects anonymous browsers to the login page. JSON routes get
// a 401 instead.
func RequireLogin(jsonResponse bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		w := Current(c)
		if w != nil && w.Session.IsAuthenticated() {
			c.Next()
			return
		}
		if jsonResponse {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Você não está autenticado."})
			return
		}
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
	}
}

// RequestLogger logs one line per request
func RequestLogger(logger *internal.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	logger = logger.WithField("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("[HTTP] %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
