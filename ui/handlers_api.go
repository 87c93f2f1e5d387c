package ui

import (
	"net/http"

	"duvidapp/internal/export"
	"duvidapp/ui/middleware"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleAPIQuestions(c *gin.Context) {
	w := middleware.Current(c)
	applyQueryFilters(c, w)
	if err := w.EnsureLoaded(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": formError(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"questions": w.Questions.List(),
		"filters":   w.Questions.Filters(),
		"total":     len(w.Questions.All()),
		"fetchedAt": w.Questions.FetchedAt(),
	})
}

func (s *Server) handleAPIQuestion(c *gin.Context) {
	w := middleware.Current(c)
	_ = w.EnsureLoaded(c.Request.Context())

	q, ok := w.Questions.GetByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dúvida não encontrada"})
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) handleAPIDashboard(c *gin.Context) {
	w := middleware.Current(c)
	_ = w.EnsureLoaded(c.Request.Context())
	c.JSON(http.StatusOK, w.Stats())
}

func (s *Server) handleAPIToasts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"toasts": middleware.Current(c).Notifications.Toasts()})
}

func (s *Server) handleExport(c *gin.Context) {
	w := middleware.Current(c)
	_ = w.EnsureLoaded(c.Request.Context())

	c.Header("Content-Disposition", `attachment; filename="duvidas.xlsx"`)
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := export.WriteQuestionsXLSX(c.Writer, w.Questions.All()); err != nil {
		s.logger.Error("[Export] Failed to write spreadsheet: %v", err)
	}
}
