package testkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// Backend is an in-memory implementation of the DuvidApp REST API. It issues
// real HS256 tokens and supports failure injection so client behaviour can be
// exercised end to end without the real service.
type Backend struct {
	mu sync.Mutex

	router   *chi.Mux
	secret   []byte
	seq      int
	now      func() time.Time
	tokenTTL time.Duration

	users     map[string]*user
	questions []*question
	answers   map[string][]*answer

	failures []failure
	requests []string
}

type user struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
}

type question struct {
	ID        string
	Title     string
	Content   string
	Tags      []string
	AuthorID  string
	Likes     int
	Viewing   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type answer struct {
	ID         string
	QuestionID string
	Content    string
	AuthorID   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Verified   bool
	Correct    bool
	Comment    string
	Likes      []string
	Dislikes   []string
}

type failure struct {
	method    string
	prefix    string
	status    int
	message   string
	remaining int
}

type ctxKey struct{}

// NewBackend creates an empty backend
func NewBackend() *Backend {
	b := &Backend{
		secret:   []byte("duvidapp-testkit-secret"),
		now:      time.Now,
		tokenTTL: 24 * time.Hour,
		users:    make(map[string]*user),
		answers:  make(map[string][]*answer),
	}
	b.router = b.routes()
	return b
}

// ServeHTTP makes Backend usable with httptest.NewServer
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(b.record)
	r.Use(b.injectFailures)

	r.Post("/auth/login", b.handleLogin)
	r.Post("/auth/register", b.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)

		r.Get("/duvida", b.handleListQuestions)
		r.Post("/duvida", b.handleCreateQuestion)
		r.Put("/duvida/{id}", b.handleUpdateQuestion)

		r.Get("/resposta/{questionID}", b.handleListAnswers)
		r.Post("/resposta", b.handleCreateAnswer)
		r.Put("/resposta/{id}", b.handleUpdateAnswer)
		r.Delete("/resposta/{id}", b.handleDeleteAnswer)
		r.Patch("/resposta/{id}/verify", b.handleVerifyAnswer)
		r.Patch("/resposta/{id}/like", b.handleVoteAnswer(true))
		r.Patch("/resposta/{id}/dislike", b.handleVoteAnswer(false))

		r.Put("/user/{id}", b.handleUpdateUser)
	})

	return r
}

// SetClock overrides the time source used for timestamps and token expiry
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// FailNext makes the next times matching requests fail with status. A message of
// "" produces a body without a message field.
func (b *Backend) FailNext(method, pathPrefix string, status int, message string, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, failure{
		method:    method,
		prefix:    pathPrefix,
		status:    status,
		message:   message,
		remaining: times,
	})
}

// Requests returns every "METHOD /path" received so far
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

// RequestCount returns how many requests have been received
func (b *Backend) RequestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// AddUser registers an account directly and returns its id. role uses the
// backend vocabulary: "admin" or "user".
func (b *Backend) AddUser(name, email, password, role string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(name, email, password, role)
}

func (b *Backend) addUserLocked(name, email, password, role string) string {
	id := b.nextIDLocked("user")
	b.users[id] = &user{ID: id, Name: name, Email: email, Password: password, Role: role}
	return id
}

// IssueToken signs a token for userID that expires after ttl (negative ttl
// produces an already expired token)
func (b *Backend) IssueToken(userID string, ttl time.Duration) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueTokenLocked(b.users[userID], ttl)
}

func (b *Backend) issueTokenLocked(u *user, ttl time.Duration) string {
	if u == nil {
		return ""
	}
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
		"iat":   b.now().Unix(),
		"exp":   b.now().Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(fmt.Sprintf("testkit: sign token: %v", err))
	}
	return signed
}

// SeedQuestion stores a question directly and returns its id
func (b *Backend) SeedQuestion(authorID, title, content string, tags []string, createdAt time.Time) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextIDLocked("duvida")
	b.questions = append(b.questions, &question{
		ID:        id,
		Title:     title,
		Content:   content,
		Tags:      slices.Clone(tags),
		AuthorID:  authorID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	return id
}

// SetViews overrides the view counter of a question
func (b *Backend) SetViews(questionID string, views int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q := b.findQuestionLocked(questionID); q != nil {
		q.Viewing = views
	}
}

// SeedAnswer stores an answer directly and returns its id
func (b *Backend) SeedAnswer(questionID, authorID, content string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextIDLocked("resposta")
	now := b.now()
	b.answers[questionID] = append(b.answers[questionID], &answer{
		ID:         id,
		QuestionID: questionID,
		Content:    content,
		AuthorID:   authorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	return id
}

// QuestionLikes returns the stored like count of a question
func (b *Backend) QuestionLikes(questionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q := b.findQuestionLocked(questionID); q != nil {
		return q.Likes
	}
	return 0
}

// AnswerExists reports whether an answer is still stored
func (b *Backend) AnswerExists(answerID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, a := b.findAnswerLocked(answerID)
	return a != nil
}

// Seed fills the backend with a small classroom: a teacher, two students and a
// few questions. It returns the ids of the created users keyed by email.
func (b *Backend) Seed() map[string]string {
	ids := map[string]string{
		"professor@duvidapp.dev": b.AddUser("Prof. Marina Souza", "professor@duvidapp.dev", "senha123", "admin"),
		"joao@duvidapp.dev":      b.AddUser("João Silva", "joao@duvidapp.dev", "senha123", "user"),
		"ana@duvidapp.dev":       b.AddUser("Ana Costa", "ana@duvidapp.dev", "senha123", "user"),
	}

	react := b.SeedQuestion(ids["joao@duvidapp.dev"],
		"Como implementar autenticação em React?",
		"Estou tentando implementar um sistema de autenticação em minha aplicação React. Já tentei usar Context API, mas estou tendo dificuldades com o gerenciamento de estado.",
		[]string{"react", "javascript", "autenticacao"},
		time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC))
	b.SetViews(react, 45)

	vars := b.SeedQuestion(ids["ana@duvidapp.dev"],
		"Diferença entre let, const e var em JavaScript",
		"Estou estudando JavaScript e tenho dúvidas sobre quando usar let, const e var. Qual é a diferença prática entre eles?",
		[]string{"javascript", "fundamentos"},
		time.Date(2025, 6, 30, 15, 0, 0, 0, time.UTC))
	b.SetViews(vars, 67)

	b.SeedAnswer(vars, ids["joao@duvidapp.dev"], "`var` tem escopo de função, enquanto `let` e `const` têm escopo de bloco.")
	b.SeedAnswer(react, ids["ana@duvidapp.dev"], "Guarde o token em um cookie e exponha o usuário por um contexto.")

	return ids
}

func (b *Backend) nextIDLocked(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s_%04d", prefix, b.seq)
}

func (b *Backend) findQuestionLocked(id string) *question {
	for _, q := range b.questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (b *Backend) findAnswerLocked(id string) (int, *answer) {
	for _, list := range b.answers {
		for i, a := range list {
			if a.ID == id {
				return i, a
			}
		}
	}
	return -1, nil
}

// --- middleware ---

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		var hit *failure
		for i := range b.failures {
			f := &b.failures[i]
			if f.remaining > 0 && f.method == r.Method && strings.HasPrefix(r.URL.Path, f.prefix) {
				f.remaining--
				hit = f
				break
			}
		}
		var status int
		var message string
		if hit != nil {
			status, message = hit.status, hit.message
		}
		b.mu.Unlock()

		if hit == nil {
			next.ServeHTTP(w, r)
			return
		}
		if message == "" {
			writeJSON(w, status, map[string]any{"statusCode": status})
			return
		}
		writeError(w, status, message)
	})
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return b.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.clock))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		sub, _ := claims.GetSubject()
		b.mu.Lock()
		u, exists := b.users[sub]
		b.mu.Unlock()
		if !exists {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u.ID)))
	})
}

func (b *Backend) clock() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now()
}

func currentUserID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// --- auth ---

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, req.Email) && u.Password == req.Password {
			writeJSON(w, http.StatusCreated, map[string]string{
				"access_token": b.issueTokenLocked(u, b.tokenTTL),
			})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Credenciais inválidas")
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Dados de cadastro incompletos")
		return
	}
	if req.Role != "admin" && req.Role != "user" {
		writeError(w, http.StatusBadRequest, "role must be one of the following values: admin, user")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, req.Email) {
			writeError(w, http.StatusConflict, "Este email já está em uso.")
			return
		}
	}
	id := b.addUserLocked(req.Name, req.Email, req.Password, req.Role)
	writeJSON(w, http.StatusCreated, map[string]string{"_id": id})
}

// --- questions ---

func (b *Backend) questionJSONLocked(q *question) map[string]any {
	author := map[string]any{"id": q.AuthorID, "name": "", "role": "user"}
	if u := b.users[q.AuthorID]; u != nil {
		author["name"] = u.Name
		author["role"] = u.Role
	}
	resolved := false
	for _, a := range b.answers[q.ID] {
		if a.Verified {
			resolved = true
		}
	}
	return map[string]any{
		"_id":        q.ID,
		"title":      q.Title,
		"content":    q.Content,
		"tags":       q.Tags,
		"likes":      q.Likes,
		"viewing":    q.Viewing,
		"createdAt":  q.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":  q.UpdatedAt.Format(time.RFC3339Nano),
		"author":     author,
		"isResolved": resolved,
	}
}

func (b *Backend) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, 0, len(b.questions))
	for _, q := range b.questions {
		out = append(out, b.questionJSONLocked(q))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "Título e conteúdo são obrigatórios")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	q := &question{
		ID:        b.nextIDLocked("duvida"),
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		AuthorID:  currentUserID(r),
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.questions = append(b.questions, q)
	writeJSON(w, http.StatusCreated, b.questionJSONLocked(q))
}

func (b *Backend) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Likes   *int    `json:"likes"`
		Title   *string `json:"title"`
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.findQuestionLocked(chi.URLParam(r, "id"))
	if q == nil {
		writeError(w, http.StatusNotFound, "Dúvida não encontrada")
		return
	}
	if req.Likes != nil {
		q.Likes = *req.Likes
	}
	if req.Title != nil {
		q.Title = *req.Title
	}
	if req.Content != nil {
		q.Content = *req.Content
	}
	q.UpdatedAt = b.now()
	writeJSON(w, http.StatusOK, b.questionJSONLocked(q))
}

// --- answers ---

func (b *Backend) answerJSONLocked(a *answer) map[string]any {
	author := map[string]any{"id": a.AuthorID, "name": ""}
	if u := b.users[a.AuthorID]; u != nil {
		author["name"] = u.Name
	}
	out := map[string]any{
		"_id":        a.ID,
		"duvidaId":   a.QuestionID,
		"content":    a.Content,
		"author":     author,
		"createdAt":  a.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":  a.UpdatedAt.Format(time.RFC3339Nano),
		"isVerified": a.Verified,
		"isCorrect":  a.Correct,
		"likes":      nonNil(a.Likes),
		"dislikes":   nonNil(a.Dislikes),
	}
	if a.Comment != "" {
		out["verificationComment"] = a.Comment
	}
	return out
}

func (b *Backend) handleListAnswers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	qid := chi.URLParam(r, "questionID")
	if b.findQuestionLocked(qid) == nil {
		writeError(w, http.StatusNotFound, "Dúvida não encontrada")
		return
	}
	out := make([]map[string]any, 0, len(b.answers[qid]))
	for _, a := range b.answers[qid] {
		out = append(out, b.answerJSONLocked(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleCreateAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DuvidaID string `json:"duvidaId"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "Conteúdo é obrigatório")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findQuestionLocked(req.DuvidaID) == nil {
		writeError(w, http.StatusNotFound, "Dúvida não encontrada")
		return
	}
	now := b.now()
	a := &answer{
		ID:         b.nextIDLocked("resposta"),
		QuestionID: req.DuvidaID,
		Content:    req.Content,
		AuthorID:   currentUserID(r),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.answers[req.DuvidaID] = append(b.answers[req.DuvidaID], a)
	writeJSON(w, http.StatusCreated, b.answerJSONLocked(a))
}

func (b *Backend) handleUpdateAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "Conteúdo é obrigatório")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	_, a := b.findAnswerLocked(chi.URLParam(r, "id"))
	if a == nil {
		writeError(w, http.StatusNotFound, "Resposta não encontrada")
		return
	}
	if a.AuthorID != currentUserID(r) {
		writeError(w, http.StatusForbidden, "Apenas o autor pode editar a resposta")
		return
	}
	a.Content = req.Content
	a.UpdatedAt = b.now()
	writeJSON(w, http.StatusOK, b.answerJSONLocked(a))
}

func (b *Backend) handleDeleteAnswer(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx, a := b.findAnswerLocked(chi.URLParam(r, "id"))
	if a == nil {
		writeError(w, http.StatusNotFound, "Resposta não encontrada")
		return
	}
	caller := b.users[currentUserID(r)]
	if a.AuthorID != caller.ID && caller.Role != "admin" {
		writeError(w, http.StatusForbidden, "Sem permissão para remover a resposta")
		return
	}
	b.answers[a.QuestionID] = slices.Delete(b.answers[a.QuestionID], idx, idx+1)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleVerifyAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment string `json:"comment"`
	}
	// body is optional
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	_, a := b.findAnswerLocked(chi.URLParam(r, "id"))
	if a == nil {
		writeError(w, http.StatusNotFound, "Resposta não encontrada")
		return
	}
	caller := b.users[currentUserID(r)]
	q := b.findQuestionLocked(a.QuestionID)
	if caller.Role != "admin" && (q == nil || q.AuthorID != caller.ID) {
		writeError(w, http.StatusForbidden, "Apenas professores ou o autor da dúvida podem verificar respostas")
		return
	}
	for _, sibling := range b.answers[a.QuestionID] {
		sibling.Correct = false
	}
	a.Verified = true
	a.Correct = true
	a.Comment = req.Comment
	a.UpdatedAt = b.now()
	writeJSON(w, http.StatusOK, b.answerJSONLocked(a))
}

func (b *Backend) handleVoteAnswer(like bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		_, a := b.findAnswerLocked(chi.URLParam(r, "id"))
		if a == nil {
			writeError(w, http.StatusNotFound, "Resposta não encontrada")
			return
		}
		uid := currentUserID(r)
		hadLike := slices.Contains(a.Likes, uid)
		hadDislike := slices.Contains(a.Dislikes, uid)
		a.Likes = slices.DeleteFunc(a.Likes, func(id string) bool { return id == uid })
		a.Dislikes = slices.DeleteFunc(a.Dislikes, func(id string) bool { return id == uid })
		switch {
		case like && !hadLike:
			a.Likes = append(a.Likes, uid)
		case !like && !hadDislike:
			a.Dislikes = append(a.Dislikes, uid)
		}
		writeJSON(w, http.StatusOK, b.answerJSONLocked(a))
	}
}

// --- users ---

func (b *Backend) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            *string `json:"name"`
		Email           *string `json:"email"`
		Password        *string `json:"password"`
		CurrentPassword *string `json:"currentPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	if id != currentUserID(r) {
		writeError(w, http.StatusForbidden, "Você só pode alterar o próprio perfil")
		return
	}
	u := b.users[id]
	if req.Password != nil {
		if req.CurrentPassword == nil || *req.CurrentPassword != u.Password {
			writeError(w, http.StatusBadRequest, "Senha atual incorreta")
			return
		}
		u.Password = *req.Password
	}
	if req.Email != nil && !strings.EqualFold(*req.Email, u.Email) {
		for _, other := range b.users {
			if other.ID != u.ID && strings.EqualFold(other.Email, *req.Email) {
				writeError(w, http.StatusConflict, "Este email já está em uso.")
				return
			}
		}
		u.Email = *req.Email
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"_id":   u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"statusCode": status,
		"message":    message,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
