package remote

import (
	"time"

	"duvidapp/internal/errors"
	"duvidapp/models"

	"github.com/tidwall/gjson"
)

const (
	unknownAuthorID   = "unknown"
	unknownAuthorName = "Autor Desconhecido"
)

// listItems accepts either a bare array or an envelope with a data array
func listItems(body []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.InvalidInput("backend returned invalid JSON")
	}
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root.Array(), nil
	}
	if data := root.Get("data"); data.IsArray() {
		return data.Array(), nil
	}
	return nil, errors.InvalidInput("backend returned an unexpected list shape")
}

func decodeQuestions(body []byte) ([]models.Question, error) {
	items, err := listItems(body)
	if err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, len(items))
	for _, item := range items {
		questions = append(questions, decodeQuestion(item))
	}
	return questions, nil
}

func decodeQuestion(item gjson.Result) models.Question {
	q := models.Question{
		ID:         firstString(item, "_id", "id"),
		Title:      item.Get("title").String(),
		Content:    item.Get("content").String(),
		Tags:       stringArray(item.Get("tags")),
		Likes:      int(item.Get("likes").Int()),
		Views:      uint(firstInt(item, "viewing", "views")),
		CreatedAt:  parseTime(item.Get("createdAt")),
		UpdatedAt:  parseTime(item.Get("updatedAt")),
		IsResolved: item.Get("isResolved").Bool(),
		Answers:    []models.Answer{},
		Author: models.Author{
			ID:     unknownAuthorID,
			Name:   unknownAuthorName,
			Role:   models.RoleStudent,
			Avatar: item.Get("author.avatar").String(),
		},
	}

	if id := firstString(item, "author.id", "author._id", "authorId"); id != "" {
		q.Author.ID = id
	}
	if name := firstString(item, "author.name", "authorName"); name != "" {
		q.Author.Name = name
	}
	if role := item.Get("author.role"); role.Exists() {
		q.Author.Role = models.RoleFromBackend(role.String())
	}

	if answers := item.Get("answers"); answers.IsArray() {
		for _, a := range answers.Array() {
			if a.IsObject() {
				q.Answers = append(q.Answers, decodeAnswer(a, q.ID))
			}
		}
	}
	return q
}

func decodeAnswers(body []byte, questionID string) ([]models.Answer, error) {
	items, err := listItems(body)
	if err != nil {
		return nil, err
	}

	answers := make([]models.Answer, 0, len(items))
	for _, item := range items {
		answers = append(answers, decodeAnswer(item, questionID))
	}
	return answers, nil
}

func decodeAnswer(item gjson.Result, questionID string) models.Answer {
	a := models.Answer{
		ID:                  firstString(item, "_id", "id"),
		QuestionID:          firstString(item, "duvidaId", "questionId", "duvida._id", "duvida"),
		Content:             item.Get("content").String(),
		AuthorID:            firstString(item, "author.id", "author._id", "authorId"),
		AuthorName:          firstString(item, "author.name", "authorName"),
		AuthorAvatar:        firstString(item, "author.avatar", "authorAvatar"),
		CreatedAt:           parseTime(item.Get("createdAt")),
		UpdatedAt:           parseTime(item.Get("updatedAt")),
		IsVerified:          item.Get("isVerified").Bool(),
		IsCorrect:           item.Get("isCorrect").Bool(),
		VerificationComment: firstString(item, "verificationComment", "comment"),
		LikedBy:             idArray(item.Get("likes")),
		DislikedBy:          idArray(item.Get("dislikes")),
	}
	if a.QuestionID == "" {
		a.QuestionID = questionID
	}
	if a.AuthorName == "" {
		a.AuthorName = unknownAuthorName
	}
	// a correct answer has necessarily been verified
	if a.IsCorrect {
		a.IsVerified = true
	}
	a.Normalize()
	return a
}

func decodeUser(body []byte) *models.User {
	if !gjson.ValidBytes(body) {
		return nil
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil
	}
	user := &models.User{
		ID:     firstString(root, "_id", "id", "sub"),
		Name:   root.Get("name").String(),
		Email:  root.Get("email").String(),
		Avatar: root.Get("avatar").String(),
	}
	if role := root.Get("role"); role.Exists() {
		user.Role = models.RoleFromBackend(role.String())
	}
	return user
}

func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() && v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

func firstInt(item gjson.Result, paths ...string) int64 {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() {
			return v.Int()
		}
	}
	return 0
}

func stringArray(v gjson.Result) []string {
	out := []string{}
	for _, item := range v.Array() {
		if s := item.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// idArray reads a list of user ids, accepting bare ids or objects with an id
func idArray(v gjson.Result) []string {
	out := []string{}
	for _, item := range v.Array() {
		if item.IsObject() {
			if id := firstString(item, "_id", "id"); id != "" {
				out = append(out, id)
			}
			continue
		}
		if s := item.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseTime(v gjson.Result) time.Time {
	if !v.Exists() {
		return time.Time{}
	}
	if v.Type == gjson.Number {
		return time.UnixMilli(v.Int()).UTC()
	}
	t, err := time.Parse(time.RFC3339Nano, v.String())
	if err != nil {
		return time.Time{}
	}
	return t
}
