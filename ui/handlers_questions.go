package ui

import (
	"net/http"
	"net/url"

	"duvidapp/app"
	"duvidapp/internal/answers"
	"duvidapp/internal/errors"
	"duvidapp/internal/notify"
	"duvidapp/internal/questions"
	"duvidapp/internal/validation"
	"duvidapp/models"
	"duvidapp/ui/middleware"

	"github.com/gin-gonic/gin"
)

const popularTagLimit = 10

type option struct {
	Value string
	Label string
}

var sortOptions = []option{
	{string(models.SortNewest), "Mais recentes"},
	{string(models.SortOldest), "Mais antigas"},
	{string(models.SortMostViewed), "Mais vistas"},
	{string(models.SortMostAnswered), "Mais respondidas"},
}

var statusOptions = []option{
	{string(models.StatusAll), "Todas"},
	{string(models.StatusResolved), "Resolvidas"},
	{string(models.StatusUnresolved), "Pendentes"},
}

// answerView is an answer plus what the current user may do with it
type answerView struct {
	models.Answer
	CanEdit bool
	MyVote  models.VoteType
}

// applyQueryFilters replaces the list filters when the request carries any
// filter parameter
func applyQueryFilters(c *gin.Context, w *app.Workspace) {
	query := c.Request.URL.Query()
	if !query.Has("search") && !query.Has("tag") && !query.Has("tags") && !query.Has("sort") && !query.Has("status") && !query.Has("mine") {
		return
	}

	tags := query["tag"]
	if raw := query.Get("tags"); raw != "" {
		tags = append(tags, validation.SplitTags(raw)...)
	}
	f := models.QuestionFilters{
		SearchTerm: query.Get("search"),
		Tags:       tags,
		SortBy:     models.SortBy(query.Get("sort")),
		Status:     models.Status(query.Get("status")),
	}
	if query.Get("mine") == "1" {
		if user, ok := w.Session.User(); ok {
			f.AuthorID = user.ID
		}
	}
	w.Questions.SetFilters(f)
}

func (s *Server) handleIndex(c *gin.Context) {
	w := middleware.Current(c)
	applyQueryFilters(c, w)
	// a failed load has raised its toast; render what is cached
	_ = w.EnsureLoaded(c.Request.Context())

	s.render(c, http.StatusOK, "index.html", gin.H{
		"Title":         "Dúvidas da Turma",
		"Questions":     w.Questions.List(),
		"Filters":       w.Questions.Filters(),
		"PopularTags":   w.Questions.PopularTags(popularTagLimit),
		"Stats":         w.Stats(),
		"FetchedAt":     w.Questions.FetchedAt(),
		"SortOptions":   sortOptions,
		"StatusOptions": statusOptions,
	})
}

func (s *Server) handleResetFilters(c *gin.Context) {
	middleware.Current(c).Questions.ResetFilters()
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleRefresh(c *gin.Context) {
	_ = middleware.Current(c).Questions.Refetch(c.Request.Context())
	s.back(c, "/")
}

func (s *Server) handleNewQuestionPage(c *gin.Context) {
	s.render(c, http.StatusOK, "question_new.html", gin.H{"Title": "Nova Dúvida"})
}

func (s *Server) handleCreateQuestion(c *gin.Context) {
	w := middleware.Current(c)
	in := questions.NewQuestion{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
		Tags:    validation.SplitTags(c.PostForm("tags")),
	}

	if err := w.Questions.AddQuestion(c.Request.Context(), in); err != nil {
		data := gin.H{
			"Title":       "Nova Dúvida",
			"FormTitle":   in.Title,
			"FormContent": in.Content,
			"FormTags":    c.PostForm("tags"),
		}
		if errors.IsValidation(err) {
			data["Error"] = formError(err)
		}
		s.render(c, statusFor(err), "question_new.html", data)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleQuestion(c *gin.Context) {
	w := middleware.Current(c)
	id := c.Param("id")
	ctx := c.Request.Context()

	_ = w.EnsureLoaded(ctx)
	// answer load failures are toasted; the cached answers still render
	_ = w.OpenQuestion(ctx, id)
	s.renderQuestion(c, w, id, http.StatusOK, nil)
}

// renderQuestion renders the detail page of id, with extra merged into the
// template data
func (s *Server) renderQuestion(c *gin.Context, w *app.Workspace, id string, status int, extra gin.H) {
	q, ok := w.Questions.GetByID(id)
	if !ok {
		s.render(c, http.StatusNotFound, "not_found.html", gin.H{"Title": "Dúvida não encontrada"})
		return
	}

	user, _ := w.Session.User()
	views := make([]answerView, 0, len(q.Answers))
	for _, a := range q.Answers {
		vote, _ := a.UserVote(user.ID)
		views = append(views, answerView{
			Answer:  a,
			CanEdit: user.IsTeacher() || a.AuthorID == user.ID,
			MyVote:  vote,
		})
	}
	myVote, _ := w.Questions.UserVote(id)

	data := gin.H{
		"Title":     q.Title,
		"Question":  q,
		"Answers":   views,
		"MyVote":    myVote.Type,
		"CanVerify": user.IsTeacher() || q.Author.ID == user.ID,
		"Redirect":  "/questions/" + url.PathEscape(id),
	}
	// template comparisons need concrete values
	data["EditAnswerID"] = ""
	data["VerifyAnswerID"] = ""
	for k, v := range extra {
		data[k] = v
	}
	s.render(c, status, "question.html", data)
}

func (s *Server) handleVoteQuestion(c *gin.Context) {
	w := middleware.Current(c)
	id := c.Param("id")
	t := models.VoteUp
	if c.PostForm("type") == string(models.VoteDown) {
		t = models.VoteDown
	}
	_ = w.Questions.Vote(c.Request.Context(), id, t)
	s.back(c, "/questions/"+url.PathEscape(id))
}

func (s *Server) handleCreateAnswer(c *gin.Context) {
	w := middleware.Current(c)
	id := c.Param("id")
	content := c.PostForm("content")

	err := w.Answers.AddAnswer(c.Request.Context(), answers.NewAnswer{QuestionID: id, Content: content})
	if errors.IsValidation(err) {
		s.renderQuestion(c, w, id, http.StatusUnprocessableEntity, gin.H{
			"AnswerError": formError(err),
			"AnswerDraft": content,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/questions/"+url.PathEscape(id))
}

func (s *Server) handleEditAnswer(c *gin.Context) {
	w := middleware.Current(c)
	answerID := c.Param("id")

	err := w.Answers.UpdateAnswer(c.Request.Context(), answerID, c.PostForm("content"))
	if errors.IsValidation(err) {
		if questionID := c.PostForm("question_id"); questionID != "" {
			s.renderQuestion(c, w, questionID, http.StatusUnprocessableEntity, gin.H{
				"EditError":    formError(err),
				"EditAnswerID": answerID,
			})
			return
		}
	}
	s.back(c, "/")
}

func (s *Server) handleConfirmDeleteAnswer(c *gin.Context) {
	w := middleware.Current(c)
	w.Notifications.OpenModal(notify.Modal{
		Kind:    "confirm_delete_answer",
		Title:   "Remover resposta",
		Message: "Tem certeza que deseja remover esta resposta? Essa ação não pode ser desfeita.",
		Data: map[string]string{
			"answer_id": c.Param("id"),
			"redirect":  localPath(c.PostForm("redirect"), "/"),
		},
	})
	s.back(c, "/")
}

func (s *Server) handleDeleteAnswer(c *gin.Context) {
	w := middleware.Current(c)
	w.Notifications.CloseModal()
	_ = w.Answers.DeleteAnswer(c.Request.Context(), c.Param("id"))
	s.back(c, "/")
}

func (s *Server) handleVerifyAnswer(c *gin.Context) {
	w := middleware.Current(c)
	answerID := c.Param("id")

	err := w.Answers.VerifyAnswer(c.Request.Context(), answerID, c.PostForm("comment"))
	if errors.IsValidation(err) {
		if questionID := c.PostForm("question_id"); questionID != "" {
			s.renderQuestion(c, w, questionID, http.StatusUnprocessableEntity, gin.H{
				"VerifyError":    formError(err),
				"VerifyAnswerID": answerID,
			})
			return
		}
	}
	s.back(c, "/")
}

func (s *Server) handleLikeAnswer(c *gin.Context) {
	_ = middleware.Current(c).Answers.LikeAnswer(c.Request.Context(), c.Param("id"))
	s.back(c, "/")
}

func (s *Server) handleDislikeAnswer(c *gin.Context) {
	_ = middleware.Current(c).Answers.DislikeAnswer(c.Request.Context(), c.Param("id"))
	s.back(c, "/")
}
