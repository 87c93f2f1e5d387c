package dashboard

import (
	"testing"
	"time"

	"duvidapp/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, time.Now())

	assert.Equal(t, 0, s.TotalQuestions)
	assert.Empty(t, s.TopTags)
	assert.Empty(t, s.RecentActivity)
	assert.Zero(t, s.ResolutionRate)
}

func TestCompute(t *testing.T) {
	now := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-30 * 24 * time.Hour)

	questions := []models.Question{
		{
			ID: "q1", Title: "React", Tags: []string{"react", "javascript"}, Views: 40,
			Author: models.Author{Name: "João"}, CreatedAt: now.Add(-time.Hour),
			Answers: []models.Answer{
				{ID: "a1", AuthorName: "Ana", CreatedAt: now.Add(-30 * time.Minute), UpdatedAt: now.Add(-10 * time.Minute), IsVerified: true, IsCorrect: true},
				{ID: "a2", AuthorName: "Prof", CreatedAt: old},
				{ID: "a3", AuthorName: "Prof", CreatedAt: old},
			},
		},
		{
			ID: "q2", Title: "let vs var", Tags: []string{"JavaScript"}, Views: 20,
			Author: models.Author{Name: "Ana"}, CreatedAt: old,
			Answers: []models.Answer{{ID: "a4", AuthorName: "João", CreatedAt: old}},
		},
		{
			ID: "q3", Title: "Go", Tags: []string{"go"}, Views: 0,
			Author: models.Author{Name: "Ana"}, CreatedAt: now.Add(-2 * 24 * time.Hour),
		},
	}

	s := ComputeWithOptions(questions, now, Options{TopTags: 2, Activity: 3})

	assert.Equal(t, 3, s.TotalQuestions)
	assert.Equal(t, 1, s.ResolvedQuestions)
	assert.Equal(t, 2, s.UnresolvedQuestions)
	assert.Equal(t, 4, s.TotalAnswers)
	assert.Equal(t, 1, s.VerifiedAnswers)
	assert.Equal(t, 2, s.QuestionsThisWeek)
	assert.Equal(t, 1, s.AnswersThisWeek)
	assert.Equal(t, 33.33, s.ResolutionRate)
	assert.Equal(t, 1.33, s.MeanAnswers)
	assert.Equal(t, 1.0, s.MedianAnswers)
	assert.Equal(t, 20.0, s.MeanViews)

	assert.Equal(t, []TagShare{
		{Tag: "javascript", Count: 2, Percent: 66.67},
		{Tag: "go", Count: 1, Percent: 33.33},
	}, s.TopTags)

	require.Len(t, s.RecentActivity, 3)
	assert.Equal(t, ActivityVerification, s.RecentActivity[0].Kind)
	assert.Equal(t, ActivityAnswer, s.RecentActivity[1].Kind)
	assert.Equal(t, ActivityQuestion, s.RecentActivity[2].Kind)
	assert.Equal(t, "q1", s.RecentActivity[2].QuestionID)
}
