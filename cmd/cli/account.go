package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"duvidapp/internal/profile"
	"duvidapp/internal/session"
	"duvidapp/models"

	"github.com/spf13/cobra"
)

func newLoginCmd(env *cli) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Sign in and keep the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = prompt("Senha: "); err != nil {
					return err
				}
			}

			w := env.workspace
			if err := w.Login(cmd.Context(), args[0], password); err != nil {
				return err
			}
			user, _ := w.Session.User()
			fmt.Printf("Bem-vindo, %s (%s)\n", user.Name, user.Role.Label())
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(env *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env.workspace.Logout(cmd.Context())
			fmt.Println("Sessão encerrada.")
			return nil
		},
	}
}

func newWhoamiCmd(env *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := env.workspace.Session
			user, ok := sess.User()
			if !ok {
				return fmt.Errorf("não autenticado")
			}
			if env.jsonOutput {
				return env.printJSON(map[string]any{"user": user, "expiresAt": sess.ExpiresAt()})
			}
			fmt.Printf("%s <%s>\n", user.Name, user.Email)
			fmt.Printf("Perfil: %s\n", user.Role.Label())
			fmt.Printf("Sessão expira em: %s\n", sess.ExpiresAt().Local().Format("02/01/2006 15:04"))
			return nil
		},
	}
}

func newRegisterCmd(env *cli) *cobra.Command {
	var (
		name     string
		password string
		teacher  bool
	)

	cmd := &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = prompt("Senha: "); err != nil {
					return err
				}
			}
			role := models.RoleStudent
			if teacher {
				role = models.RoleTeacher
			}

			result := env.workspace.Session.Register(cmd.Context(), session.RegisterInput{
				Name:     name,
				Email:    args[0],
				Password: password,
				Role:     role,
			})
			if !result.Success {
				return fmt.Errorf("%s", result.Message)
			}
			fmt.Println("Conta criada! Use 'duvidapp login' para entrar.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().BoolVar(&teacher, "teacher", false, "Register as a teacher")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProfileCmd(env *cli) *cobra.Command {
	var name, email, password, current string

	update := &cobra.Command{
		Use:   "update",
		Short: "Change name, email or password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !env.workspace.Session.IsAuthenticated() {
				return fmt.Errorf("não autenticado; use 'duvidapp login'")
			}
			in := profile.UpdateInput{}
			if cmd.Flags().Changed("name") {
				in.Name = &name
			}
			if cmd.Flags().Changed("email") {
				in.Email = &email
			}
			if cmd.Flags().Changed("password") {
				in.Password = &password
			}
			if cmd.Flags().Changed("current-password") {
				in.CurrentPassword = &current
			}
			return env.workspace.Profile.Update(cmd.Context(), in)
		},
	}
	update.Flags().StringVar(&name, "name", "", "New name")
	update.Flags().StringVar(&email, "email", "", "New email")
	update.Flags().StringVar(&password, "password", "", "New password")
	update.Flags().StringVar(&current, "current-password", "", "Current password, required for a new password")

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the signed-in user's profile",
	}
	cmd.AddCommand(update)
	return cmd
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
