package main

import (
	"context"

	"duvidapp/app"
	"duvidapp/internal/answers"

	"github.com/spf13/cobra"
)

func newAnswersCmd(env *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "answers",
		Aliases: []string{"a"},
		Short:   "Answer, edit, verify and vote on answers",
	}

	var comment string
	verify := answerAction(env, "verify [question-id] [answer-id]", "Mark an answer as the correct one",
		func(ctx context.Context, w *app.Workspace, answerID string) error {
			return w.Answers.VerifyAnswer(ctx, answerID, comment)
		})
	verify.Flags().StringVarP(&comment, "comment", "c", "", "Optional comment shown with the verification")

	var content string
	edit := answerAction(env, "edit [question-id] [answer-id]", "Change an answer's text",
		func(ctx context.Context, w *app.Workspace, answerID string) error {
			return w.Answers.UpdateAnswer(ctx, answerID, content)
		})
	edit.Flags().StringVar(&content, "content", "", "New answer text")

	cmd.AddCommand(
		newAnswersAddCmd(env),
		edit,
		answerAction(env, "delete [question-id] [answer-id]", "Remove an answer",
			func(ctx context.Context, w *app.Workspace, answerID string) error {
				return w.Answers.DeleteAnswer(ctx, answerID)
			}),
		verify,
		answerAction(env, "like [question-id] [answer-id]", "Toggle a like on an answer",
			func(ctx context.Context, w *app.Workspace, answerID string) error {
				return w.Answers.LikeAnswer(ctx, answerID)
			}),
		answerAction(env, "dislike [question-id] [answer-id]", "Toggle a dislike on an answer",
			func(ctx context.Context, w *app.Workspace, answerID string) error {
				return w.Answers.DislikeAnswer(ctx, answerID)
			}),
	)
	return cmd
}

func newAnswersAddCmd(env *cli) *cobra.Command {
	var content string

	cmd := &cobra.Command{
		Use:   "add [question-id]",
		Short: "Answer a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := env.loaded(cmd.Context())
			if err != nil {
				return err
			}
			return w.Answers.AddAnswer(cmd.Context(), answers.NewAnswer{QuestionID: args[0], Content: content})
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "Answer text, markdown allowed")
	return cmd
}

// answerAction builds a command acting on one answer. The question's answers
// are reloaded before fn runs so it acts on the backend's current list.
func answerAction(env *cli, use, short string, fn func(context.Context, *app.Workspace, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := env.loaded(ctx)
			if err != nil {
				return err
			}
			if err := w.Answers.Load(ctx, args[0]); err != nil {
				return err
			}
			return fn(ctx, w, args[1])
		},
	}
}
