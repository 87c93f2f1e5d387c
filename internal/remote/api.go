package remote

import (
	"context"
	"net/http"
	"net/url"

	"duvidapp/internal/errors"
	"duvidapp/models"

	"github.com/tidwall/gjson"
)

// RegisterRequest is the body of POST /auth/register, already in backend vocabulary
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateQuestionRequest is the body of POST /duvida
type CreateQuestionRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// UpdateUserRequest is the body of PUT /user/:id; nil fields are omitted
type UpdateUserRequest struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Password        *string `json:"password,omitempty"`
	CurrentPassword *string `json:"currentPassword,omitempty"`
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := c.Request(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return "", err
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		return "", errors.InvalidInput("login response carried no access_token")
	}
	return token, nil
}

// Register creates an account. A 409 surfaces as an HTTPError with that status.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	_, err := c.Request(ctx, http.MethodPost, "/auth/register", req, "")
	return err
}

// ListQuestions fetches every question. Answers are not included.
func (c *Client) ListQuestions(ctx context.Context, token string) ([]models.Question, error) {
	body, err := c.Request(ctx, http.MethodGet, "/duvida", nil, token)
	if err != nil {
		return nil, err
	}
	return decodeQuestions(body)
}

// CreateQuestion posts a new question
func (c *Client) CreateQuestion(ctx context.Context, token string, req CreateQuestionRequest) error {
	_, err := c.Request(ctx, http.MethodPost, "/duvida", req, token)
	return err
}

// UpdateQuestionLikes syncs a question's like count
func (c *Client) UpdateQuestionLikes(ctx context.Context, token, questionID string, likes int) error {
	_, err := c.Request(ctx, http.MethodPut, "/duvida/"+url.PathEscape(questionID), map[string]int{
		"likes": likes,
	}, token)
	return err
}

// ListAnswers fetches the answers of one question
func (c *Client) ListAnswers(ctx context.Context, token, questionID string) ([]models.Answer, error) {
	body, err := c.Request(ctx, http.MethodGet, "/resposta/"+url.PathEscape(questionID), nil, token)
	if err != nil {
		return nil, err
	}
	return decodeAnswers(body, questionID)
}

// CreateAnswer posts an answer to a question
func (c *Client) CreateAnswer(ctx context.Context, token, questionID, content string) error {
	_, err := c.Request(ctx, http.MethodPost, "/resposta", map[string]string{
		"duvidaId": questionID,
		"content":  content,
	}, token)
	return err
}

// UpdateAnswer edits an answer's content
func (c *Client) UpdateAnswer(ctx context.Context, token, answerID, content string) error {
	_, err := c.Request(ctx, http.MethodPut, "/resposta/"+url.PathEscape(answerID), map[string]string{
		"content": content,
	}, token)
	return err
}

// DeleteAnswer removes an answer
func (c *Client) DeleteAnswer(ctx context.Context, token, answerID string) error {
	_, err := c.Request(ctx, http.MethodDelete, "/resposta/"+url.PathEscape(answerID), nil, token)
	return err
}

// VerifyAnswer marks an answer as the correct one for its question
func (c *Client) VerifyAnswer(ctx context.Context, token, answerID, comment string) error {
	var body any
	if comment != "" {
		body = map[string]string{"comment": comment}
	}
	_, err := c.Request(ctx, http.MethodPatch, "/resposta/"+url.PathEscape(answerID)+"/verify", body, token)
	return err
}

// LikeAnswer toggles the caller's like on an answer
func (c *Client) LikeAnswer(ctx context.Context, token, answerID string) error {
	_, err := c.Request(ctx, http.MethodPatch, "/resposta/"+url.PathEscape(answerID)+"/like", nil, token)
	return err
}

// DislikeAnswer toggles the caller's dislike on an answer
func (c *Client) DislikeAnswer(ctx context.Context, token, answerID string) error {
	_, err := c.Request(ctx, http.MethodPatch, "/resposta/"+url.PathEscape(answerID)+"/dislike", nil, token)
	return err
}

// UpdateUser updates the profile of userID and returns the stored profile
func (c *Client) UpdateUser(ctx context.Context, token, userID string, req UpdateUserRequest) (*models.User, error) {
	body, err := c.Request(ctx, http.MethodPut, "/user/"+url.PathEscape(userID), req, token)
	if err != nil {
		return nil, err
	}
	return decodeUser(body), nil
}
