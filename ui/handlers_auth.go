package ui

import (
	"net/http"
	"net/url"
	"strings"

	"duvidapp/internal/errors"
	"duvidapp/internal/profile"
	"duvidapp/internal/session"
	"duvidapp/models"
	"duvidapp/ui/middleware"

	"github.com/gin-gonic/gin"
)

const msgPasswordMismatch = "As senhas não coincidem"

func (s *Server) handleLoginPage(c *gin.Context) {
	w := middleware.Current(c)
	if w.Session.IsAuthenticated() {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	s.render(c, http.StatusOK, "login.html", gin.H{
		"Title":      "Entrar",
		"Email":      c.Query("email"),
		"Registered": c.Query("registered") == "1",
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	w := middleware.Current(c)
	email := strings.TrimSpace(c.PostForm("email"))

	if err := w.Login(c.Request.Context(), email, c.PostForm("password")); err != nil {
		status := http.StatusUnauthorized
		if errors.IsNetwork(err) {
			status = http.StatusBadGateway
		}
		s.render(c, status, "login.html", gin.H{
			"Title": "Entrar",
			"Email": email,
			"Error": formError(err),
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleRegisterPage(c *gin.Context) {
	s.render(c, http.StatusOK, "register.html", gin.H{
		"Title": "Criar Conta",
		"Role":  string(models.RoleStudent),
	})
}

func (s *Server) handleRegister(c *gin.Context) {
	w := middleware.Current(c)
	in := session.RegisterInput{
		Name:     c.PostForm("name"),
		Email:    strings.TrimSpace(c.PostForm("email")),
		Password: c.PostForm("password"),
		Role:     models.Role(c.PostForm("role")),
	}
	data := gin.H{
		"Title": "Criar Conta",
		"Name":  in.Name,
		"Email": in.Email,
		"Role":  string(in.Role),
	}

	if in.Password != c.PostForm("confirm_password") {
		data["Error"] = msgPasswordMismatch
		s.render(c, http.StatusUnprocessableEntity, "register.html", data)
		return
	}

	result := w.Session.Register(c.Request.Context(), in)
	if !result.Success {
		status := http.StatusUnprocessableEntity
		if errors.IsConflict(result.Err) {
			status = http.StatusConflict
		}
		data["Error"] = result.Message
		s.render(c, status, "register.html", data)
		return
	}
	c.Redirect(http.StatusSeeOther, "/login?registered=1&email="+url.QueryEscape(in.Email))
}

func (s *Server) handleLogout(c *gin.Context) {
	middleware.Current(c).Logout(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/login")
}

func (s *Server) handleProfilePage(c *gin.Context) {
	s.render(c, http.StatusOK, "profile.html", gin.H{"Title": "Meu Perfil"})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	w := middleware.Current(c)
	in := profile.UpdateInput{
		Name:            optionalField(c, "name"),
		Email:           optionalField(c, "email"),
		Password:        optionalField(c, "password"),
		CurrentPassword: optionalField(c, "current_password"),
	}
	// the form is prefilled, so unchanged values are not updates
	if user, ok := w.Session.User(); ok {
		if in.Name != nil && strings.TrimSpace(*in.Name) == user.Name {
			in.Name = nil
		}
		if in.Email != nil && strings.EqualFold(strings.TrimSpace(*in.Email), user.Email) {
			in.Email = nil
		}
	}

	if in.Password != nil && c.PostForm("confirm_password") != *in.Password {
		s.render(c, http.StatusUnprocessableEntity, "profile.html", gin.H{"Title": "Meu Perfil", "Error": msgPasswordMismatch})
		return
	}

	if err := w.Profile.Update(c.Request.Context(), in); err != nil {
		if errors.IsValidation(err) {
			s.render(c, http.StatusUnprocessableEntity, "profile.html", gin.H{"Title": "Meu Perfil", "Error": formError(err)})
			return
		}
		// the toast explains the failure
		s.render(c, statusFor(err), "profile.html", gin.H{"Title": "Meu Perfil"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/profile")
}

func (s *Server) handleDismissToast(c *gin.Context) {
	middleware.Current(c).Notifications.Dismiss(c.Param("id"))
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.Status(http.StatusNoContent)
		return
	}
	s.back(c, "/")
}

func (s *Server) handleCloseModal(c *gin.Context) {
	middleware.Current(c).Notifications.CloseModal()
	s.back(c, "/")
}

// statusFor maps a failed store call onto a response status
func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.IsUnauthenticated(err):
		return http.StatusUnauthorized
	case errors.GetCode(err) == errors.CodeForbidden:
		return http.StatusForbidden
	case errors.GetCode(err) == errors.CodeNotFound:
		return http.StatusNotFound
	}
	if httpErr, ok := errors.AsHTTPError(err); ok && httpErr.Status >= 400 && httpErr.Status < 500 {
		return httpErr.Status
	}
	return http.StatusBadGateway
}
