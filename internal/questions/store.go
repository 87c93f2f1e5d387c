// Package questions holds the question cache of a workspace and the list view
// configuration applied to it.
package questions

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"duvidapp/internal"
	"duvidapp/internal/errors"
	"duvidapp/internal/notify"
	"duvidapp/internal/optimistic"
	"duvidapp/internal/remote"
	"duvidapp/internal/validation"
	"duvidapp/models"
	"duvidapp/ports"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Backend is the part of the remote API the question store needs
type Backend interface {
	ListQuestions(ctx context.Context, token string) ([]models.Question, error)
	ListAnswers(ctx context.Context, token, questionID string) ([]models.Answer, error)
	CreateQuestion(ctx context.Context, token string, req remote.CreateQuestionRequest) error
	UpdateQuestionLikes(ctx context.Context, token, questionID string, likes int) error
}

// NewQuestion is the new-question form
type NewQuestion struct {
	Title   string
	Content string
	Tags    []string
}

// QuestionPatch is a local merge patch. Nil fields are left untouched; a non-nil
// Answers replaces the whole answer list.
type QuestionPatch struct {
	Title   *string
	Content *string
	Tags    []string
	Views   *uint
	Likes   *int
	Answers []models.Answer
}

// FilterPatch changes some filter fields and keeps the rest. A non-nil empty
// Tags clears the tag selection.
type FilterPatch struct {
	Tags       []string
	SearchTerm *string
	SortBy     *models.SortBy
	Status     *models.Status
	AuthorID   *string
}

// Config configures a Store
type Config struct {
	// AnswerConcurrency bounds the per-question answer requests of Refetch
	AnswerConcurrency int
	// Votes persists the user's question votes; nil keeps them in memory only
	Votes     ports.VoteStore
	Validator *validation.Validator
	Logger    *internal.Logger
	Clock     func() time.Time
}

// Store is the single writer of the question cache
type Store struct {
	backend     Backend
	session     ports.SessionReader
	notifier    ports.Notifier
	validator   *validation.Validator
	logger      *internal.Logger
	now         func() time.Time
	concurrency int
	voteStore   ports.VoteStore

	mu        sync.RWMutex
	questions []models.Question
	filters   models.QuestionFilters
	votes     map[voteKey]models.Vote
	votesOf   string // user whose persisted votes are merged into votes
	loading   bool
	fetchedAt time.Time
}

type voteKey struct {
	userID     string
	questionID string
}

// New creates an empty question store with default filters
func New(backend Backend, session ports.SessionReader, notifier ports.Notifier, cfg Config) *Store {
	s := &Store{
		backend:     backend,
		session:     session,
		notifier:    notifier,
		validator:   cfg.Validator,
		logger:      cfg.Logger,
		now:         cfg.Clock,
		concurrency: cfg.AnswerConcurrency,
		voteStore:   cfg.Votes,
		filters:     models.DefaultFilters(),
		votes:       make(map[voteKey]models.Vote),
	}
	if s.validator == nil {
		s.validator = validation.Default()
	}
	if s.logger == nil {
		s.logger = internal.DefaultLogger
	}
	s.logger = s.logger.WithField("component", "questions")
	if s.now == nil {
		s.now = time.Now
	}
	if s.concurrency < 1 {
		s.concurrency = 8
	}
	return s
}

// List returns the filtered and sorted projection of the cache
func (s *Store) List() []models.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Apply(s.questions, s.filters)
}

// All returns every cached question in cache order, ignoring filters
func (s *Store) All() []models.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Clone()
	}
	return out
}

// Loading reports whether a refetch is in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// FetchedAt returns when the cache was last filled successfully
func (s *Store) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Filters returns the current list configuration
func (s *Store) Filters() models.QuestionFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.filters
	f.Tags = slices.Clone(f.Tags)
	return f
}

// SetFilters replaces the list configuration. Unknown sort or status values fall
// back to the defaults.
func (s *Store) SetFilters(f models.QuestionFilters) {
	if !f.SortBy.Valid() {
		f.SortBy = models.SortNewest
	}
	if !f.Status.Valid() {
		f.Status = models.StatusAll
	}
	f.Tags = validation.NormalizeTags(f.Tags)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
}

// PatchFilters updates only the fields set in p
func (s *Store) PatchFilters(p FilterPatch) {
	f := s.Filters()
	if p.Tags != nil {
		f.Tags = p.Tags
	}
	if p.SearchTerm != nil {
		f.SearchTerm = *p.SearchTerm
	}
	if p.SortBy != nil {
		f.SortBy = *p.SortBy
	}
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.AuthorID != nil {
		f.AuthorID = *p.AuthorID
	}
	s.SetFilters(f)
}

// ResetFilters restores the default list configuration
func (s *Store) ResetFilters() {
	s.SetFilters(models.DefaultFilters())
}

// Refetch replaces the cache with the backend's questions and their answers. On
// failure the cache is emptied rather than left stale.
func (s *Store) Refetch(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	token := s.session.Token()
	if token == "" {
		s.clear()
		return notify.ReportError(s.notifier, errors.Unauthenticated("sessão expirada, faça login novamente"), "")
	}

	questions, err := s.backend.ListQuestions(ctx, token)
	if err != nil {
		s.logger.Warn("[Questions] Refetch failed: %v", err)
		s.clear()
		return notify.ReportError(s.notifier, err, "Falha ao buscar as dúvidas do servidor.")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range questions {
		g.Go(func() error {
			answers, err := s.backend.ListAnswers(gctx, token, questions[i].ID)
			if err != nil {
				// one missing answer list must not hide the whole collection
				s.logger.Warn("[Questions] Answers of %s unavailable: %v", questions[i].ID, err)
				answers = []models.Answer{}
			}
			questions[i].Answers = answers
			questions[i].Normalize()
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.questions = questions
	s.fetchedAt = s.now()
	s.mu.Unlock()

	if user, ok := s.session.User(); ok {
		s.loadVotes(ctx, user.ID)
	}
	s.logger.Debug("[Questions] Cached %d questions", len(questions))
	return nil
}

// GetByID returns a copy of a cached question
func (s *Store) GetByID(id string) (models.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.questions[idx].Clone(), true
	}
	return models.Question{}, false
}

// AddQuestion validates and posts a new question, then refetches the collection.
// Validation failures are returned without a toast and without network I/O.
func (s *Store) AddQuestion(ctx context.Context, in NewQuestion) error {
	form, err := s.validator.Question(in.Title, in.Content, in.Tags)
	if err != nil {
		return err
	}

	token := s.session.Token()
	if token == "" {
		return notify.ReportError(s.notifier, errors.Unauthenticated("sessão expirada, faça login novamente"), "")
	}

	err = s.backend.CreateQuestion(ctx, token, remote.CreateQuestionRequest{
		Title:   form.Title,
		Content: form.Content,
		Tags:    form.Tags,
	})
	if err != nil {
		s.logger.Warn("[Questions] Create failed: %v", err)
		return notify.ReportError(s.notifier, err, "Erro ao criar dúvida. Tente novamente.")
	}

	s.notifier.ShowToast("Dúvida publicada com sucesso!", ports.SeveritySuccess)
	// a failed refetch has already raised its own toast
	_ = s.Refetch(ctx)
	return nil
}

// UpdateQuestion merges patch into a cached question. It is the only way other
// stores change the cache; it never touches the network.
func (s *Store) UpdateQuestion(id string, patch QuestionPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	q := &s.questions[idx]
	if patch.Title != nil {
		q.Title = *patch.Title
	}
	if patch.Content != nil {
		q.Content = *patch.Content
	}
	if patch.Tags != nil {
		q.Tags = slices.Clone(patch.Tags)
	}
	if patch.Views != nil {
		q.Views = *patch.Views
	}
	if patch.Likes != nil {
		q.Likes = *patch.Likes
	}
	if patch.Answers != nil {
		q.Answers = make([]models.Answer, len(patch.Answers))
		for i, a := range patch.Answers {
			q.Answers[i] = a.Clone()
		}
	}
	q.UpdatedAt = s.now()
	q.Normalize()
	return true
}

// UpdateAnswers rewrites the answer list of a cached question under the cache
// lock. fn receives a private copy and must not call back into the store.
func (s *Store) UpdateAnswers(id string, fn func([]models.Answer) []models.Answer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	q := &s.questions[idx]
	list := make([]models.Answer, len(q.Answers))
	for i, a := range q.Answers {
		list[i] = a.Clone()
	}
	list = fn(list)
	if list == nil {
		list = []models.Answer{}
	}
	q.Answers = list
	q.UpdatedAt = s.now()
	q.Normalize()
	return true
}

// IncrementViews bumps the local view counter when a question is opened
func (s *Store) IncrementViews(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.questions[idx].Views++
	return true
}

// Like is Vote with an up vote
func (s *Store) Like(ctx context.Context, questionID string) error {
	return s.Vote(ctx, questionID, models.VoteUp)
}

// Vote toggles the current user's vote on a question. The like count and the
// vote record change together before the backend is told; a failed write puts
// both back and raises one error toast.
func (s *Store) Vote(ctx context.Context, questionID string, t models.VoteType) error {
	token := s.session.Token()
	user, ok := s.session.User()
	if token == "" || !ok {
		return notify.ReportError(s.notifier, errors.Unauthenticated("sessão expirada, faça login novamente"), "")
	}

	s.loadVotes(ctx, user.ID)

	key := voteKey{userID: user.ID, questionID: questionID}
	var (
		prevLikes int
		prevVote  models.Vote
		hadVote   bool
		newLikes  int
		found     bool
	)

	err := optimistic.Run(ctx, optimistic.Op{
		Apply: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			idx := s.indexLocked(questionID)
			if idx < 0 {
				return
			}
			found = true
			q := &s.questions[idx]
			prevLikes = q.Likes
			prevVote, hadVote = s.votes[key]

			switch {
			case !hadVote:
				q.Likes += t.Delta()
				s.votes[key] = models.Vote{
					ID:         uuid.NewString(),
					UserID:     user.ID,
					QuestionID: questionID,
					Type:       t,
					CreatedAt:  s.now(),
				}
			case prevVote.Type == t:
				q.Likes -= t.Delta()
				delete(s.votes, key)
			default:
				q.Likes += t.Delta() - prevVote.Type.Delta()
				replaced := prevVote
				replaced.Type = t
				s.votes[key] = replaced
			}
			newLikes = q.Likes
		},
		Commit: func(ctx context.Context) error {
			if !found {
				return errors.NotFound("question " + questionID)
			}
			return s.backend.UpdateQuestionLikes(ctx, token, questionID, newLikes)
		},
		Revert: func() {
			if !found {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			if idx := s.indexLocked(questionID); idx >= 0 {
				s.questions[idx].Likes = prevLikes
			}
			if hadVote {
				s.votes[key] = prevVote
			} else {
				delete(s.votes, key)
			}
		},
	})
	if err != nil {
		s.logger.Warn("[Questions] Vote on %s rolled back: %v", questionID, err)
		return notify.ReportError(s.notifier, err, "Não foi possível registrar seu voto.")
	}
	s.saveVotes(ctx, user.ID)
	return nil
}

// loadVotes merges the persisted votes of userID into the local record once
// per user. Votes already recorded locally win.
func (s *Store) loadVotes(ctx context.Context, userID string) {
	if s.voteStore == nil {
		return
	}
	s.mu.RLock()
	done := s.votesOf == userID
	s.mu.RUnlock()
	if done {
		return
	}

	votes, err := s.voteStore.LoadVotes(ctx, userID)
	if err != nil {
		s.logger.Warn("[Questions] Stored votes of %s unavailable: %v", userID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range votes {
		key := voteKey{userID: userID, questionID: v.QuestionID}
		if _, ok := s.votes[key]; !ok {
			s.votes[key] = v
		}
	}
	s.votesOf = userID
}

// saveVotes writes every local vote of userID to the vote store. A failed write
// is logged only; the backend already holds the new like count.
func (s *Store) saveVotes(ctx context.Context, userID string) {
	if s.voteStore == nil {
		return
	}
	s.mu.RLock()
	var mine []models.Vote
	for key, v := range s.votes {
		if key.userID == userID {
			mine = append(mine, v)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(mine, func(a, b models.Vote) int { return cmp.Compare(a.QuestionID, b.QuestionID) })

	if err := s.voteStore.SaveVotes(ctx, userID, mine); err != nil {
		s.logger.Warn("[Questions] Saving votes of %s failed: %v", userID, err)
	}
}

// UserVote returns the current user's vote on a question
func (s *Store) UserVote(questionID string) (models.Vote, bool) {
	user, ok := s.session.User()
	if !ok {
		return models.Vote{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.votes[voteKey{userID: user.ID, questionID: questionID}]
	return v, ok
}

// Votes returns every locally recorded question vote, ordered by question id
func (s *Store) Votes() []models.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Vote, 0, len(s.votes))
	for _, v := range s.votes {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b models.Vote) int {
		return cmp.Or(cmp.Compare(a.QuestionID, b.QuestionID), cmp.Compare(a.UserID, b.UserID))
	})
	return out
}

// PopularTags counts tags over the whole cache
func (s *Store) PopularTags(limit int) []TagCount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CountTags(s.questions, limit)
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.questions, func(q models.Question) bool { return q.ID == id })
}

// Reset drops everything cached for the previous user: questions, votes and
// filters
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = nil
	s.votes = make(map[voteKey]models.Vote)
	s.votesOf = ""
	s.filters = models.DefaultFilters()
	s.fetchedAt = time.Time{}
}

func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = nil
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}
