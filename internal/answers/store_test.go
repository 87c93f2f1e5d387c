package answers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duvidapp/internal/errors"
	"duvidapp/internal/notify"
	"duvidapp/internal/questions"
	"duvidapp/internal/remote"
	"duvidapp/internal/session"
	"duvidapp/internal/testkit"
	"duvidapp/models"
	"duvidapp/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	teacherEmail = "professor@duvidapp.dev"
	joaoEmail    = "joao@duvidapp.dev"
	anaEmail     = "ana@duvidapp.dev"
)

type env struct {
	backend   *testkit.Backend
	client    *remote.Client
	users     map[string]string
	center    *notify.Center
	questions *questions.Store
	answers   *Store
	reactID   string
}

func newEnv(t *testing.T, email string) *env {
	t.Helper()
	backend := testkit.NewBackend()
	users := backend.Seed()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client := remote.NewClient(remote.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	sess := session.New(context.Background(), client, session.Config{Key: email})
	require.NoError(t, sess.Login(context.Background(), email, "senha123"))

	center := notify.NewCenter(time.Minute)
	t.Cleanup(center.Close)

	qs := questions.New(client, sess, center, questions.Config{})
	require.NoError(t, qs.Refetch(context.Background()))

	e := &env{
		backend:   backend,
		client:    client,
		users:     users,
		center:    center,
		questions: qs,
		answers:   New(client, sess, center, qs, Config{}),
	}
	for _, q := range qs.All() {
		if q.Author.ID == users[joaoEmail] {
			e.reactID = q.ID
		}
	}
	require.NotEmpty(t, e.reactID)
	require.NoError(t, e.answers.Load(context.Background(), e.reactID))
	return e
}

func (e *env) toasts(severity ports.Severity) []string {
	var out []string
	for _, toast := range e.center.Toasts() {
		if toast.Severity == severity {
			out = append(out, toast.Message)
		}
	}
	return out
}

func TestLoad_ReconcilesQuestion(t *testing.T) {
	e := newEnv(t, anaEmail)

	list := e.answers.Answers(e.reactID)
	require.Len(t, list, 1)
	assert.True(t, e.answers.Loaded(e.reactID))

	q, ok := e.questions.GetByID(e.reactID)
	require.True(t, ok)
	assert.Equal(t, list, q.Answers)
}

func TestAddAnswer(t *testing.T) {
	e := newEnv(t, anaEmail)

	err := e.answers.AddAnswer(context.Background(), NewAnswer{
		QuestionID: e.reactID,
		Content:    "  Use um provider no topo da árvore.  ",
	})
	require.NoError(t, err)

	list := e.answers.Answers(e.reactID)
	require.Len(t, list, 2)
	assert.Equal(t, "Use um provider no topo da árvore.", list[1].Content)
	assert.Equal(t, []string{"Resposta enviada com sucesso!"}, e.toasts(ports.SeveritySuccess))

	q, _ := e.questions.GetByID(e.reactID)
	assert.Equal(t, 2, q.AnswerCount())
}

func TestAddAnswer_TooShort(t *testing.T) {
	e := newEnv(t, anaEmail)
	before := e.backend.RequestCount()

	err := e.answers.AddAnswer(context.Background(), NewAnswer{QuestionID: e.reactID, Content: "curta"})
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, before, e.backend.RequestCount())
	assert.Empty(t, e.center.Toasts())
}

func TestUpdateAnswer_AuthorOnly(t *testing.T) {
	e := newEnv(t, joaoEmail)
	answerID := e.answers.Answers(e.reactID)[0].ID
	before := e.backend.RequestCount()

	err := e.answers.UpdateAnswer(context.Background(), answerID, "Tentando editar a resposta da Ana")
	require.Error(t, err)
	assert.Equal(t, before, e.backend.RequestCount(), "gate runs before the network")
	assert.Equal(t, []string{"Você não tem permissão para alterar esta resposta."}, e.toasts(ports.SeverityError))
}

func TestUpdateAnswer(t *testing.T) {
	e := newEnv(t, anaEmail)
	answerID := e.answers.Answers(e.reactID)[0].ID

	require.NoError(t, e.answers.UpdateAnswer(context.Background(), answerID, "Conteúdo revisado pela autora"))

	assert.Equal(t, "Conteúdo revisado pela autora", e.answers.Answers(e.reactID)[0].Content)
	q, _ := e.questions.GetByID(e.reactID)
	assert.Equal(t, "Conteúdo revisado pela autora", q.Answers[0].Content)
}

func TestUpdateAnswer_BackendRejects(t *testing.T) {
	e := newEnv(t, teacherEmail)
	answerID := e.answers.Answers(e.reactID)[0].ID
	original := e.answers.Answers(e.reactID)[0].Content

	// the backend only lets authors edit, even when the client allows teachers
	err := e.answers.UpdateAnswer(context.Background(), answerID, "Correção feita pela professora")
	require.Error(t, err)
	assert.Equal(t, original, e.answers.Answers(e.reactID)[0].Content)
	assert.Equal(t, []string{"Apenas o autor pode editar a resposta"}, e.toasts(ports.SeverityError))
}

func TestDeleteAnswer_Teacher(t *testing.T) {
	e := newEnv(t, teacherEmail)
	answerID := e.answers.Answers(e.reactID)[0].ID

	require.NoError(t, e.answers.DeleteAnswer(context.Background(), answerID))

	assert.Empty(t, e.answers.Answers(e.reactID))
	assert.False(t, e.backend.AnswerExists(answerID))
	q, _ := e.questions.GetByID(e.reactID)
	assert.Equal(t, 0, q.AnswerCount())
}

func TestVerifyAnswer_DemotesSiblings(t *testing.T) {
	e := newEnv(t, teacherEmail)
	first := e.answers.Answers(e.reactID)[0].ID
	second := e.backend.SeedAnswer(e.reactID, e.users[anaEmail], "Outra abordagem usando cookies httpOnly.")
	require.NoError(t, e.answers.Load(context.Background(), e.reactID))

	require.NoError(t, e.answers.VerifyAnswer(context.Background(), first, "Boa resposta"))
	require.NoError(t, e.answers.VerifyAnswer(context.Background(), second, ""))

	correct := 0
	for _, a := range e.answers.Answers(e.reactID) {
		if a.IsCorrect {
			correct++
			assert.Equal(t, second, a.ID)
		}
		assert.True(t, a.IsVerified)
	}
	assert.Equal(t, 1, correct)

	q, _ := e.questions.GetByID(e.reactID)
	assert.True(t, q.IsResolved)
}

func TestVerifyAnswer_QuestionAuthorAllowed(t *testing.T) {
	e := newEnv(t, joaoEmail)
	answerID := e.answers.Answers(e.reactID)[0].ID

	require.NoError(t, e.answers.VerifyAnswer(context.Background(), answerID, ""))
	assert.True(t, e.answers.Answers(e.reactID)[0].IsCorrect)
}

func TestVerifyAnswer_OthersRejected(t *testing.T) {
	e := newEnv(t, anaEmail)
	answerID := e.answers.Answers(e.reactID)[0].ID

	err := e.answers.VerifyAnswer(context.Background(), answerID, "")
	require.Error(t, err)
	assert.False(t, e.answers.Answers(e.reactID)[0].IsVerified)
}

func TestLikeDislike(t *testing.T) {
	e := newEnv(t, joaoEmail)
	answerID := e.answers.Answers(e.reactID)[0].ID
	joao := e.users[joaoEmail]
	ctx := context.Background()

	require.NoError(t, e.answers.LikeAnswer(ctx, answerID))
	a := e.answers.Answers(e.reactID)[0]
	assert.Equal(t, 1, a.Votes)
	vote, ok := a.UserVote(joao)
	require.True(t, ok)
	assert.Equal(t, models.VoteUp, vote)

	require.NoError(t, e.answers.VoteAnswer(ctx, answerID, models.VoteDown))
	a = e.answers.Answers(e.reactID)[0]
	assert.Equal(t, -1, a.Votes)

	require.NoError(t, e.answers.DislikeAnswer(ctx, answerID))
	a = e.answers.Answers(e.reactID)[0]
	assert.Equal(t, 0, a.Votes)
	_, ok = a.UserVote(joao)
	assert.False(t, ok)

	// server agrees with the local view
	remoteList, err := e.client.ListAnswers(ctx, e.backend.IssueToken(joao, time.Hour), e.reactID)
	require.NoError(t, err)
	assert.Equal(t, 0, remoteList[0].Votes)
}

func TestLike_FailureRollsBack(t *testing.T) {
	e := newEnv(t, joaoEmail)
	before := e.answers.Answers(e.reactID)

	e.backend.FailNext(http.MethodPatch, "/resposta/", http.StatusBadGateway, "", 1)
	err := e.answers.LikeAnswer(context.Background(), before[0].ID)

	require.Error(t, err)
	assert.Equal(t, before, e.answers.Answers(e.reactID))
	q, _ := e.questions.GetByID(e.reactID)
	assert.Equal(t, before, q.Answers)
	assert.Len(t, e.toasts(ports.SeverityError), 1)
}

func TestMutationsAfterRefetch_KeepRefetchedAnswers(t *testing.T) {
	ctx := context.Background()
	mutations := map[string]func(e *env, answerID string) error{
		"like": func(e *env, answerID string) error {
			return e.answers.LikeAnswer(ctx, answerID)
		},
		"verify": func(e *env, answerID string) error {
			return e.answers.VerifyAnswer(ctx, answerID, "")
		},
		"update": func(e *env, answerID string) error {
			return e.answers.UpdateAnswer(ctx, answerID, "Texto revisado depois da atualização")
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, teacherEmail)
			first := e.answers.Answers(e.reactID)[0].ID
			teacherAnswer := e.backend.SeedAnswer(e.reactID, e.users[teacherEmail], "Resposta chegou por outro cliente.")
			require.NoError(t, e.questions.Refetch(ctx))

			target := first
			if name == "update" {
				// the backend only lets authors edit
				target = teacherAnswer
			}
			require.NoError(t, mutate(e, target))

			q, _ := e.questions.GetByID(e.reactID)
			assert.Equal(t, 2, q.AnswerCount())
			assert.Equal(t, q.Answers, e.answers.Answers(e.reactID))
		})
	}
}

func TestDeleteAfterRefetch_KeepsSiblings(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, teacherEmail)
	first := e.answers.Answers(e.reactID)[0].ID
	second := e.backend.SeedAnswer(e.reactID, e.users[anaEmail], "Resposta que chegou depois do carregamento.")
	require.NoError(t, e.questions.Refetch(ctx))

	require.NoError(t, e.answers.DeleteAnswer(ctx, first))

	q, _ := e.questions.GetByID(e.reactID)
	require.Len(t, q.Answers, 1)
	assert.Equal(t, second, q.Answers[0].ID)
	assert.Equal(t, q.Answers, e.answers.Answers(e.reactID))
}

func TestAnswersUnknownQuestion(t *testing.T) {
	e := newEnv(t, anaEmail)

	assert.Nil(t, e.answers.Answers("missing"))
	assert.False(t, e.answers.Loaded("missing"))
}
