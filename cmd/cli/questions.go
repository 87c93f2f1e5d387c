package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"duvidapp/internal/export"
	"duvidapp/internal/questions"
	"duvidapp/internal/validation"
	"duvidapp/models"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"
)

func newQuestionsCmd(env *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "questions",
		Aliases: []string{"q"},
		Short:   "Browse and ask questions",
	}
	cmd.AddCommand(
		newQuestionsListCmd(env),
		newQuestionsShowCmd(env),
		newQuestionsAskCmd(env),
		newQuestionsVoteCmd(env),
	)
	return cmd
}

func newQuestionsListCmd(env *cli) *cobra.Command {
	var (
		search string
		tags   []string
		sortBy string
		status string
		mine   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List questions matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := env.loaded(cmd.Context())
			if err != nil {
				return err
			}

			f := models.QuestionFilters{
				SearchTerm: search,
				Tags:       validation.NormalizeTags(tags),
				SortBy:     models.SortBy(sortBy),
				Status:     models.Status(status),
			}
			if mine {
				user, _ := w.Session.User()
				f.AuthorID = user.ID
			}
			w.Questions.SetFilters(f)

			list := w.Questions.List()
			if env.jsonOutput {
				return env.printJSON(list)
			}
			if len(list) == 0 {
				fmt.Println("Nenhuma dúvida encontrada.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTÍTULO\tAUTOR\tRESPOSTAS\tVOTOS\tSTATUS")
			for _, q := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					q.ID, truncate(q.Title, 50), q.Author.Name, q.AnswerCount(), q.Likes, statusLabel(q))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Search in title, content and tags")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Only questions with any of these tags")
	cmd.Flags().StringVar(&sortBy, "sort", string(models.SortNewest), "newest, oldest, mostViewed or mostAnswered")
	cmd.Flags().StringVar(&status, "status", string(models.StatusAll), "all, resolved or unresolved")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only my questions")
	return cmd
}

func newQuestionsShowCmd(env *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show [question-id]",
		Short: "Show a question and its answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := env.loaded(cmd.Context())
			if err != nil {
				return err
			}
			id := args[0]
			if _, ok := w.Questions.GetByID(id); !ok {
				return fmt.Errorf("dúvida %s não encontrada", id)
			}
			if err := w.OpenQuestion(cmd.Context(), id); err != nil {
				return err
			}
			q, _ := w.Questions.GetByID(id)
			if env.jsonOutput {
				return env.printJSON(q)
			}

			fmt.Printf("%s  [%s]\n", q.Title, statusLabel(q))
			fmt.Printf("%s (%s) · %s · %d visualizações · %d votos\n",
				q.Author.Name, q.Author.Role.Label(), q.CreatedAt.Local().Format("02/01/2006 15:04"), q.Views, q.Likes)
			if len(q.Tags) > 0 {
				fmt.Printf("Tags: %s\n", strings.Join(q.Tags, ", "))
			}
			fmt.Printf("\n%s\n", q.Content)

			fmt.Printf("\n%d resposta(s)\n", len(q.Answers))
			for _, a := range q.Answers {
				fmt.Println(strings.Repeat("─", 40))
				mark := ""
				if a.IsCorrect {
					mark = " ✓ correta"
				}
				fmt.Printf("[%s] %s · %+d%s\n", a.ID, a.AuthorName, a.Votes, mark)
				fmt.Println(a.Content)
				if a.VerificationComment != "" {
					fmt.Printf("Comentário do professor: %s\n", a.VerificationComment)
				}
			}
			return nil
		},
	}
}

func newQuestionsAskCmd(env *cli) *cobra.Command {
	var title, content string
	var tags []string

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Publish a new question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := env.loaded(cmd.Context())
			if err != nil {
				return err
			}
			return w.Questions.AddQuestion(cmd.Context(), questions.NewQuestion{
				Title:   title,
				Content: content,
				Tags:    validation.NormalizeTags(tags),
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Question title")
	cmd.Flags().StringVar(&content, "content", "", "Question body, markdown allowed")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tags")
	return cmd
}

func newQuestionsVoteCmd(env *cli) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "vote [question-id]",
		Short: "Toggle an up (or --down) vote on a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := env.loaded(cmd.Context())
			if err != nil {
				return err
			}
			t := models.VoteUp
			if down {
				t = models.VoteDown
			}
			if err := w.Questions.Vote(cmd.Context(), args[0], t); err != nil {
				return err
			}
			q, _ := w.Questions.GetByID(args[0])
			fmt.Printf("%d votos\n", q.Likes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Vote down instead of up")
	return cmd
}

func newStatsCmd(env *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the class dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := env.loaded(cmd.Context())
			if err != nil {
				return err
			}
			s := w.Stats()
			if env.jsonOutput {
				return env.printJSON(s)
			}

			fmt.Printf("Dúvidas: %d (%d resolvidas, %d pendentes)\n", s.TotalQuestions, s.ResolvedQuestions, s.UnresolvedQuestions)
			fmt.Printf("Respostas: %d (%d verificadas)\n", s.TotalAnswers, s.VerifiedAnswers)
			fmt.Printf("Taxa de resolução: %.0f%%\n", s.ResolutionRate)
			fmt.Printf("Respostas por dúvida: média %.2f, mediana %.2f\n", s.MeanAnswers, s.MedianAnswers)
			fmt.Printf("Esta semana: %d dúvidas, %d respostas\n", s.QuestionsThisWeek, s.AnswersThisWeek)
			for _, t := range s.TopTags {
				pct, _ := stats.Round(t.Percent, 0)
				fmt.Printf("  #%-20s %3d (%.0f%%)\n", t.Tag, t.Count, pct)
			}
			return nil
		},
	}
}

func newExportCmd(env *cli) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every cached question and answer to a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := env.loaded(cmd.Context())
			if err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()

			if err := export.WriteQuestionsXLSX(f, w.Questions.All()); err != nil {
				return err
			}
			fmt.Printf("Planilha salva em %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "duvidas.xlsx", "Output file")
	return cmd
}

func statusLabel(q models.Question) string {
	if q.IsResolved {
		return "resolvida"
	}
	return "pendente"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
