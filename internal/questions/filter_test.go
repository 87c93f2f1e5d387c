package questions

import (
	"testing"
	"time"

	"duvidapp/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(questions []models.Question) []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		out[i] = q.ID
	}
	return out
}

func answers(n int, verified bool) []models.Answer {
	out := make([]models.Answer, n)
	for i := range out {
		out[i] = models.Answer{ID: string(rune('a' + i))}
	}
	if verified && n > 0 {
		out[0].IsVerified = true
	}
	return out
}

func sample() []models.Question {
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	return []models.Question{
		{
			ID: "q1", Title: "Como implementar autenticação em React?", Content: "Context API",
			Tags: []string{"react", "javascript"}, Author: models.Author{ID: "u1"},
			CreatedAt: base, Views: 45, Answers: answers(0, false),
		},
		{
			ID: "q2", Title: "Diferença entre let, const e var", Content: "escopo de bloco",
			Tags: []string{"javascript"}, Author: models.Author{ID: "u2"},
			CreatedAt: base.Add(-time.Hour), Views: 67, Answers: answers(3, true),
		},
		{
			ID: "q3", Title: "Goroutines e canais", Content: "Como sincronizar em Go?",
			Tags: []string{"go"}, Author: models.Author{ID: "u1"},
			CreatedAt: base.Add(time.Hour), Views: 10, Answers: answers(1, false),
		},
	}
}

func TestApply_Search(t *testing.T) {
	filters := models.DefaultFilters()

	filters.SearchTerm = "react"
	assert.Equal(t, []string{"q1"}, ids(Apply(sample(), filters)))

	filters.SearchTerm = "SINCRONIZAR"
	assert.Equal(t, []string{"q3"}, ids(Apply(sample(), filters)), "content matches case-insensitively")

	filters.SearchTerm = "zzz-no-match"
	assert.Empty(t, Apply(sample(), filters))
}

func TestApply_TagsAnyMatch(t *testing.T) {
	filters := models.DefaultFilters()
	filters.Tags = []string{"react", "go"}

	assert.ElementsMatch(t, []string{"q1", "q3"}, ids(Apply(sample(), filters)))
}

func TestApply_Status(t *testing.T) {
	filters := models.DefaultFilters()

	filters.Status = models.StatusResolved
	assert.Equal(t, []string{"q2"}, ids(Apply(sample(), filters)))

	filters.Status = models.StatusUnresolved
	assert.Equal(t, []string{"q3", "q1"}, ids(Apply(sample(), filters)))
}

func TestApply_Author(t *testing.T) {
	filters := models.DefaultFilters()
	filters.AuthorID = "u1"
	assert.Equal(t, []string{"q3", "q1"}, ids(Apply(sample(), filters)))
}

func TestApply_Sort(t *testing.T) {
	tests := []struct {
		sort models.SortBy
		want []string
	}{
		{models.SortNewest, []string{"q3", "q1", "q2"}},
		{models.SortOldest, []string{"q2", "q1", "q3"}},
		{models.SortMostViewed, []string{"q2", "q1", "q3"}},
		{models.SortMostAnswered, []string{"q2", "q3", "q1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			filters := models.DefaultFilters()
			filters.SortBy = tt.sort
			assert.Equal(t, tt.want, ids(Apply(sample(), filters)))
		})
	}
}

func TestApply_StableOnTies(t *testing.T) {
	questions := []models.Question{{ID: "a", Views: 5}, {ID: "b", Views: 5}, {ID: "c", Views: 5}}
	filters := models.DefaultFilters()
	filters.SortBy = models.SortMostViewed

	assert.Equal(t, []string{"a", "b", "c"}, ids(Apply(questions, filters)))
}

func TestApply_PureAndDeepCopies(t *testing.T) {
	input := sample()
	filters := models.DefaultFilters()

	first := Apply(input, filters)
	second := Apply(input, filters)
	assert.Equal(t, first, second)

	require.NotEmpty(t, first[0].Tags)
	first[0].Tags[0] = "mutated"
	assert.NotEqual(t, "mutated", input[2].Tags[0])
}

func TestCountTags(t *testing.T) {
	got := CountTags(sample(), 2)
	assert.Equal(t, []TagCount{{Tag: "javascript", Count: 2}, {Tag: "go", Count: 1}}, got)
}
