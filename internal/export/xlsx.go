// Package export writes the question cache to spreadsheets
package export

import (
	"io"
	"strings"
	"time"

	"duvidapp/internal/errors"
	"duvidapp/models"

	"github.com/xuri/excelize/v2"
)

const (
	QuestionsSheet = "Duvidas"
	AnswersSheet   = "Respostas"
)

var (
	questionHeaders = []string{"ID", "Título", "Autor", "Tags", "Criada em", "Visualizações", "Curtidas", "Respostas", "Resolvida"}
	answerHeaders   = []string{"ID", "Dúvida", "Autor", "Conteúdo", "Criada em", "Votos", "Verificada", "Correta", "Comentário"}
)

// WriteQuestionsXLSX writes one row per question and one row per answer
func WriteQuestionsXLSX(w io.Writer, questions []models.Question) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", QuestionsSheet); err != nil {
		return errors.Wrap(err, "failed to name questions sheet")
	}
	if _, err := f.NewSheet(AnswersSheet); err != nil {
		return errors.Wrap(err, "failed to create answers sheet")
	}

	questionRows := make([][]any, 0, len(questions))
	var answerRows [][]any
	for _, q := range questions {
		questionRows = append(questionRows, []any{
			q.ID, q.Title, q.Author.Name, strings.Join(q.Tags, ", "), formatTime(q.CreatedAt),
			q.Views, q.Likes, q.AnswerCount(), yesNo(q.HasVerifiedAnswer()),
		})
		for _, a := range q.Answers {
			answerRows = append(answerRows, []any{
				a.ID, q.Title, a.AuthorName, a.Content, formatTime(a.CreatedAt),
				a.Votes, yesNo(a.IsVerified), yesNo(a.IsCorrect), a.VerificationComment,
			})
		}
	}

	if err := writeSheet(f, QuestionsSheet, questionHeaders, questionRows); err != nil {
		return err
	}
	if err := writeSheet(f, AnswersSheet, answerHeaders, answerRows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "failed to write spreadsheet")
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return errors.Wrapf(err, "failed to write %s header", sheet)
		}
	}

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write %s row %d", sheet, r+2)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func yesNo(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}
