package export

import (
	"bytes"
	"testing"
	"time"

	"duvidapp/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteQuestionsXLSX(t *testing.T) {
	created := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	questions := []models.Question{
		{
			ID: "q1", Title: "Como implementar autenticação em React?", Author: models.Author{Name: "João Silva"},
			Tags: []string{"react", "javascript"}, CreatedAt: created, Views: 45, Likes: 3,
			Answers: []models.Answer{
				{ID: "a1", AuthorName: "Ana Costa", Content: "Use um contexto.", CreatedAt: created, Votes: 2, IsVerified: true, IsCorrect: true, VerificationComment: "Ótimo"},
			},
		},
		{ID: "q2", Title: "let vs var", Author: models.Author{Name: "Ana Costa"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteQuestionsXLSX(&buf, questions))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{QuestionsSheet, AnswersSheet}, f.GetSheetList())

	rows, err := f.GetRows(QuestionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, questionHeaders, rows[0])
	assert.Equal(t, []string{"q1", "Como implementar autenticação em React?", "João Silva", "react, javascript", "2025-07-01 10:00", "45", "3", "1", "Sim"}, rows[1])
	assert.Equal(t, "Não", rows[2][8])

	rows, err = f.GetRows(AnswersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a1", "Como implementar autenticação em React?", "Ana Costa", "Use um contexto.", "2025-07-01 10:00", "2", "Sim", "Sim", "Ótimo"}, rows[1])
}
