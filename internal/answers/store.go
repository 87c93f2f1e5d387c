// Package answers performs every answer read and write of a workspace. The
// answer lists themselves live in the question cache, so the list and detail
// views always see the same answers.
package answers

import (
	"context"
	"slices"
	"sync"
	"time"

	"duvidapp/internal"
	"duvidapp/internal/errors"
	"duvidapp/internal/notify"
	"duvidapp/internal/optimistic"
	"duvidapp/internal/questions"
	"duvidapp/internal/validation"
	"duvidapp/models"
	"duvidapp/ports"
)

// Backend is the part of the remote API the answer store needs
type Backend interface {
	ListAnswers(ctx context.Context, token, questionID string) ([]models.Answer, error)
	CreateAnswer(ctx context.Context, token, questionID, content string) error
	UpdateAnswer(ctx context.Context, token, answerID, content string) error
	DeleteAnswer(ctx context.Context, token, answerID string) error
	VerifyAnswer(ctx context.Context, token, answerID, comment string) error
	LikeAnswer(ctx context.Context, token, answerID string) error
	DislikeAnswer(ctx context.Context, token, answerID string) error
}

// QuestionWriter is the question cache the answers are read from and written to
type QuestionWriter interface {
	All() []models.Question
	GetByID(id string) (models.Question, bool)
	UpdateQuestion(id string, patch questions.QuestionPatch) bool
	UpdateAnswers(id string, fn func([]models.Answer) []models.Answer) bool
}

// NewAnswer is the answer form
type NewAnswer struct {
	QuestionID string
	Content    string
}

// Config configures a Store
type Config struct {
	Validator *validation.Validator
	Logger    *internal.Logger
	Clock     func() time.Time
}

// Store remembers which questions had their answers fetched individually
type Store struct {
	backend   Backend
	session   ports.SessionReader
	notifier  ports.Notifier
	questions QuestionWriter
	validator *validation.Validator
	logger    *internal.Logger
	now       func() time.Time

	mu     sync.RWMutex
	loaded map[string]struct{}
}

// New creates an answer store writing through qs
func New(backend Backend, session ports.SessionReader, notifier ports.Notifier, qs QuestionWriter, cfg Config) *Store {
	s := &Store{
		backend:   backend,
		session:   session,
		notifier:  notifier,
		questions: qs,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		now:       cfg.Clock,
		loaded:    make(map[string]struct{}),
	}
	if s.validator == nil {
		s.validator = validation.Default()
	}
	if s.logger == nil {
		s.logger = internal.DefaultLogger
	}
	s.logger = s.logger.WithField("component", "answers")
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Load fetches the answers of one question into the question cache
func (s *Store) Load(ctx context.Context, questionID string) error {
	token, err := s.token()
	if err != nil {
		return err
	}

	list, err := s.backend.ListAnswers(ctx, token, questionID)
	if err != nil {
		s.logger.Warn("[Answers] Load of %s failed: %v", questionID, err)
		return notify.ReportError(s.notifier, err, "Falha ao carregar as respostas.")
	}

	if !s.questions.UpdateQuestion(questionID, questions.QuestionPatch{Answers: list}) {
		return notify.ReportError(s.notifier, errors.NotFound("question "+questionID), "Dúvida não encontrada.")
	}

	s.mu.Lock()
	s.loaded[questionID] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Answers returns the answers of a question as the question cache holds them
func (s *Store) Answers(questionID string) []models.Answer {
	q, ok := s.questions.GetByID(questionID)
	if !ok {
		return nil
	}
	return q.Answers
}

// Loaded reports whether the answers of a question have been fetched on their
// own since the last Reset
func (s *Store) Loaded(questionID string) bool {
	if _, ok := s.questions.GetByID(questionID); !ok {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loaded[questionID]
	return ok
}

// Reset forgets which questions were loaded
func (s *Store) Reset() {
	s.mu.Lock()
	s.loaded = make(map[string]struct{})
	s.mu.Unlock()
}

// AddAnswer posts an answer and reloads that question's answers
func (s *Store) AddAnswer(ctx context.Context, in NewAnswer) error {
	form, err := s.validator.Answer(in.Content)
	if err != nil {
		return err
	}
	token, err := s.token()
	if err != nil {
		return err
	}

	if err := s.backend.CreateAnswer(ctx, token, in.QuestionID, form.Content); err != nil {
		s.logger.Warn("[Answers] Create on %s failed: %v", in.QuestionID, err)
		return notify.ReportError(s.notifier, err, "Erro ao enviar resposta. Tente novamente.")
	}

	s.notifier.ShowToast("Resposta enviada com sucesso!", ports.SeveritySuccess)
	// a failed reload has already raised its own toast
	_ = s.Load(ctx, in.QuestionID)
	return nil
}

// UpdateAnswer edits an answer. Only its author or a teacher may do so.
func (s *Store) UpdateAnswer(ctx context.Context, answerID, content string) error {
	form, err := s.validator.Answer(content)
	if err != nil {
		return err
	}
	token, err := s.token()
	if err != nil {
		return err
	}
	questionID, answer, err := s.authorize(answerID, false)
	if err != nil {
		return err
	}

	if err := s.backend.UpdateAnswer(ctx, token, answerID, form.Content); err != nil {
		return notify.ReportError(s.notifier, err, "Erro ao atualizar a resposta.")
	}

	answer.Content = form.Content
	answer.UpdatedAt = s.now()
	s.replace(questionID, answer)
	s.notifier.ShowToast("Resposta atualizada!", ports.SeveritySuccess)
	return nil
}

// DeleteAnswer removes an answer. Only its author or a teacher may do so.
func (s *Store) DeleteAnswer(ctx context.Context, answerID string) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	questionID, _, err := s.authorize(answerID, false)
	if err != nil {
		return err
	}

	if err := s.backend.DeleteAnswer(ctx, token, answerID); err != nil {
		return notify.ReportError(s.notifier, err, "Erro ao remover a resposta.")
	}

	s.questions.UpdateAnswers(questionID, func(list []models.Answer) []models.Answer {
		return slices.DeleteFunc(list, func(a models.Answer) bool { return a.ID == answerID })
	})
	s.notifier.ShowToast("Resposta removida.", ports.SeveritySuccess)
	return nil
}

// VerifyAnswer marks an answer as the correct one. Teachers and the question's
// author may verify; any previously correct sibling is demoted once the backend
// confirms.
func (s *Store) VerifyAnswer(ctx context.Context, answerID, comment string) error {
	comment, err := s.validator.VerificationComment(comment)
	if err != nil {
		return err
	}
	token, err := s.token()
	if err != nil {
		return err
	}
	questionID, _, err := s.authorize(answerID, true)
	if err != nil {
		return err
	}

	if err := s.backend.VerifyAnswer(ctx, token, answerID, comment); err != nil {
		return notify.ReportError(s.notifier, err, "Erro ao verificar a resposta.")
	}

	now := s.now()
	s.questions.UpdateAnswers(questionID, func(list []models.Answer) []models.Answer {
		models.MarkCorrect(list, answerID, comment, now)
		return list
	})
	s.notifier.ShowToast("Resposta verificada como correta!", ports.SeveritySuccess)
	return nil
}

// LikeAnswer toggles the current user's like
func (s *Store) LikeAnswer(ctx context.Context, answerID string) error {
	return s.toggle(ctx, answerID, models.VoteUp)
}

// DislikeAnswer toggles the current user's dislike
func (s *Store) DislikeAnswer(ctx context.Context, answerID string) error {
	return s.toggle(ctx, answerID, models.VoteDown)
}

// VoteAnswer maps an up vote to a like and a down vote to a dislike
func (s *Store) VoteAnswer(ctx context.Context, answerID string, t models.VoteType) error {
	if t == models.VoteDown {
		return s.DislikeAnswer(ctx, answerID)
	}
	return s.LikeAnswer(ctx, answerID)
}

func (s *Store) toggle(ctx context.Context, answerID string, t models.VoteType) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	user, _ := s.session.User()

	questionID, previous, ok := s.find(answerID)
	if !ok {
		return notify.ReportError(s.notifier, errors.NotFound("answer "+answerID), "Resposta não encontrada.")
	}

	commit := s.backend.LikeAnswer
	if t == models.VoteDown {
		commit = s.backend.DislikeAnswer
	}

	err = optimistic.Run(ctx, optimistic.Op{
		Apply: func() {
			s.questions.UpdateAnswers(questionID, func(list []models.Answer) []models.Answer {
				if idx := indexOf(list, answerID); idx >= 0 {
					list[idx].ToggleVote(user.ID, t)
				}
				return list
			})
		},
		Commit: func(ctx context.Context) error {
			return commit(ctx, token, answerID)
		},
		Revert: func() {
			s.replace(questionID, previous)
		},
	})
	if err != nil {
		s.logger.Warn("[Answers] Vote on %s rolled back: %v", answerID, err)
		return notify.ReportError(s.notifier, err, "Não foi possível registrar seu voto.")
	}
	return nil
}

// authorize checks the current user may change answerID. With verify set the
// question's author is allowed too; otherwise the answer's author is.
func (s *Store) authorize(answerID string, verify bool) (string, models.Answer, error) {
	questionID, answer, ok := s.find(answerID)
	if !ok {
		return "", models.Answer{}, notify.ReportError(s.notifier, errors.NotFound("answer "+answerID), "Resposta não encontrada.")
	}

	user, _ := s.session.User()
	allowed := user.IsTeacher()
	if verify {
		if q, ok := s.questions.GetByID(questionID); ok && q.Author.ID == user.ID {
			allowed = true
		}
	} else if answer.AuthorID == user.ID {
		allowed = true
	}
	if !allowed {
		msg := "Você não tem permissão para alterar esta resposta."
		if verify {
			msg = "Apenas professores ou o autor da dúvida podem verificar respostas."
		}
		return "", models.Answer{}, notify.ReportError(s.notifier, errors.Forbidden(msg), msg)
	}
	return questionID, answer, nil
}

func (s *Store) token() (string, error) {
	token := s.session.Token()
	if token == "" {
		return "", notify.ReportError(s.notifier, errors.Unauthenticated("sessão expirada, faça login novamente"), "")
	}
	return token, nil
}

func (s *Store) find(answerID string) (string, models.Answer, bool) {
	for _, q := range s.questions.All() {
		if idx := indexOf(q.Answers, answerID); idx >= 0 {
			return q.ID, q.Answers[idx], true
		}
	}
	return "", models.Answer{}, false
}

// replace swaps one answer of a question for answer, keeping its siblings as
// the cache currently holds them
func (s *Store) replace(questionID string, answer models.Answer) {
	s.questions.UpdateAnswers(questionID, func(list []models.Answer) []models.Answer {
		if idx := indexOf(list, answer.ID); idx >= 0 {
			list[idx] = answer.Clone()
		}
		return list
	})
}

func indexOf(list []models.Answer, answerID string) int {
	return slices.IndexFunc(list, func(a models.Answer) bool { return a.ID == answerID })
}
