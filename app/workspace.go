package app

import (
	"context"
	"sync/atomic"
	"time"

	"duvidapp/internal"
	"duvidapp/internal/answers"
	"duvidapp/internal/dashboard"
	"duvidapp/internal/notify"
	"duvidapp/internal/profile"
	"duvidapp/internal/questions"
	"duvidapp/internal/session"
	"duvidapp/internal/validation"
	"duvidapp/ports"
)

// Backend is everything a workspace needs from the remote API.
// *remote.Client satisfies it.
type Backend interface {
	session.Backend
	questions.Backend
	answers.Backend
	profile.Backend
}

// WorkspaceConfig holds the settings shared by every workspace
type WorkspaceConfig struct {
	Tokens            ports.TokenStore
	Votes             ports.VoteStore
	ToastTTL          time.Duration
	AnswerConcurrency int
	Validator         *validation.Validator
	Logger            *internal.Logger
	Clock             func() time.Time
}

// Workspace is one client's view of DuvidApp: its session, notifications and
// caches. A browser session or a CLI run owns exactly one.
type Workspace struct {
	ID            string
	Session       *session.Store
	Notifications *notify.Center
	Questions     *questions.Store
	Answers       *answers.Store
	Profile       *profile.Service

	now      func() time.Time
	lastSeen atomic.Int64
}

// NewWorkspace builds the stores of a workspace and restores its persisted
// session, keyed by id
func NewWorkspace(ctx context.Context, id string, backend Backend, cfg WorkspaceConfig) *Workspace {
	logger := cfg.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	logger = logger.WithField("workspace", id)
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	validator := cfg.Validator
	if validator == nil {
		validator = validation.Default()
	}

	center := notify.NewCenter(cfg.ToastTTL)
	sess := session.New(ctx, backend, session.Config{
		Key:       id,
		Tokens:    cfg.Tokens,
		Validator: validator,
		Logger:    logger,
		Clock:     now,
	})
	qs := questions.New(backend, sess, center, questions.Config{
		AnswerConcurrency: cfg.AnswerConcurrency,
		Votes:             cfg.Votes,
		Validator:         validator,
		Logger:            logger,
		Clock:             now,
	})

	w := &Workspace{
		ID:            id,
		Session:       sess,
		Notifications: center,
		Questions:     qs,
		Answers: answers.New(backend, sess, center, qs, answers.Config{
			Validator: validator,
			Logger:    logger,
			Clock:     now,
		}),
		Profile: profile.NewService(backend, sess, center, logger),
		now:     now,
	}
	w.Touch()
	return w
}

// Touch records activity
func (w *Workspace) Touch() {
	w.lastSeen.Store(w.now().UnixNano())
}

// LastSeen returns the time of the last recorded activity
func (w *Workspace) LastSeen() time.Time {
	return time.Unix(0, w.lastSeen.Load())
}

// Login signs in and loads the question collection
func (w *Workspace) Login(ctx context.Context, email, password string) error {
	if err := w.Session.Login(ctx, email, password); err != nil {
		return err
	}
	// a failed refetch has already raised its toast; the login itself worked
	_ = w.Questions.Refetch(ctx)
	return nil
}

// Logout ends the session and forgets everything cached for the user
func (w *Workspace) Logout(ctx context.Context) {
	w.Session.Logout(ctx)
	w.Questions.Reset()
	w.Answers.Reset()
}

// EnsureLoaded fetches the question collection once per session
func (w *Workspace) EnsureLoaded(ctx context.Context) error {
	if !w.Session.IsAuthenticated() || !w.Questions.FetchedAt().IsZero() {
		return nil
	}
	return w.Questions.Refetch(ctx)
}

// OpenQuestion counts a view and makes sure the question's answers are loaded
func (w *Workspace) OpenQuestion(ctx context.Context, questionID string) error {
	if _, ok := w.Questions.GetByID(questionID); !ok {
		return nil
	}
	w.Questions.IncrementViews(questionID)
	if w.Answers.Loaded(questionID) {
		return nil
	}
	return w.Answers.Load(ctx, questionID)
}

// Stats summarizes the cached collection
func (w *Workspace) Stats() dashboard.Stats {
	return dashboard.Compute(w.Questions.All(), w.now())
}

// Close stops the workspace's timers
func (w *Workspace) Close() {
	w.Notifications.Close()
}
