package ui

import (
	"bytes"
	stderrors "errors"
	"net/http"
	"strings"

	"duvidapp/internal/errors"
	"duvidapp/ui/middleware"

	"github.com/gin-gonic/gin"
)

// render executes a page template with the workspace chrome (user, toasts,
// modal) merged into data
func (s *Server) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if w := middleware.Current(c); w != nil {
		if user, ok := w.Session.User(); ok {
			data["User"] = user
		}
		data["Toasts"] = w.Notifications.Toasts()
		if modal, ok := w.Notifications.Modal(); ok {
			data["Modal"] = modal
		}
		data["Path"] = c.Request.URL.RequestURI()
	}

	// render to a buffer so template errors never leave half a page behind
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Template error for %s: %v", name, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Template rendering failed"})
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// back redirects to the form's "redirect" field when it is a local path
func (s *Server) back(c *gin.Context, fallback string) {
	c.Redirect(http.StatusSeeOther, localPath(c.PostForm("redirect"), fallback))
}

func localPath(target, fallback string) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\") {
		return target
	}
	return fallback
}

// formError is the inline text for a failed form submission
func formError(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return errors.UserMessage(err)
}

// optionalField returns nil for absent or blank form fields
func optionalField(c *gin.Context, name string) *string {
	v, ok := c.GetPostForm(name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
