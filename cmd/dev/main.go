package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duvidapp/adapters/sqlstore"
	"duvidapp/app"
	"duvidapp/internal"
	"duvidapp/internal/migration"
	"duvidapp/internal/remote"
	"duvidapp/internal/testkit"
	"duvidapp/models"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "duvidapp-dev",
		Short: "DuvidApp development tools",
	}

	rootCmd.AddCommand(
		newMockAPICmd(),
		newSmokeTestCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newMockAPICmd() *cobra.Command {
	var addr string
	var empty bool

	cmd := &cobra.Command{
		Use:   "mockapi",
		Short: "Serve an in-memory DuvidApp backend",
		Long: `Serve an in-memory implementation of the DuvidApp REST backend.

Unless --empty is given it is seeded with a teacher and two students, all
with password "senha123":
  professor@duvidapp.dev, joao@duvidapp.dev, ana@duvidapp.dev

Example: duvidapp-dev mockapi --addr :9090 && DUVIDAPP_API_URL=http://localhost:9090 go run .`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMockAPI(cmd.Context(), addr, !empty)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9090", "Listen address")
	cmd.Flags().BoolVar(&empty, "empty", false, "Start without seed data")
	return cmd
}

func runMockAPI(ctx context.Context, addr string, seed bool) error {
	logger := internal.NewLogger(internal.LogLevelInfo)

	backend := testkit.NewBackend()
	if seed {
		ids := backend.Seed()
		logger.Info("Seeded %d users", len(ids))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: addr, Handler: backend, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Mock API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newSmokeTestCmd() *cobra.Command {
	var apiURL, email, password string

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run a login, list, answer and vote round trip against a backend",
		Long: `Run smoke tests against a backend. Without --api an in-process mock
backend is started.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmokeTests(cmd.Context(), apiURL, email, password)
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "", "Backend base URL")
	cmd.Flags().StringVar(&email, "email", "professor@duvidapp.dev", "Login email")
	cmd.Flags().StringVar(&password, "password", "senha123", "Login password")
	return cmd
}

func runSmokeTests(ctx context.Context, apiURL, email, password string) error {
	fmt.Println("Running smoke tests...")

	if apiURL == "" {
		backend := testkit.NewBackend()
		backend.Seed()
		srv := &http.Server{Handler: backend, ReadHeaderTimeout: 10 * time.Second}
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return err
		}
		go func() { _ = srv.Serve(ln) }()
		defer srv.Close()
		apiURL = "http://" + ln.Addr().String()
	}

	logger := internal.NewLogger(internal.LogLevelWarn)
	client := remote.NewClient(remote.Config{BaseURL: apiURL, Timeout: 10 * time.Second, Logger: logger})
	w := app.NewWorkspace(ctx, "smoke", client, app.WorkspaceConfig{Logger: logger})
	defer w.Close()

	steps := []struct {
		name string
		run  func() error
	}{
		{"login", func() error { return w.Login(ctx, email, password) }},
		{"list questions", func() error {
			if n := len(w.Questions.All()); n == 0 {
				return fmt.Errorf("no questions returned")
			}
			return nil
		}},
		{"load answers", func() error {
			q := w.Questions.All()[0]
			return w.OpenQuestion(ctx, q.ID)
		}},
		{"vote", func() error {
			q := w.Questions.All()[0]
			if err := w.Questions.Vote(ctx, q.ID, models.VoteUp); err != nil {
				return err
			}
			// toggle back so the smoke test leaves no trace
			return w.Questions.Vote(ctx, q.ID, models.VoteUp)
		}},
		{"stats", func() error {
			s := w.Stats()
			if s.TotalQuestions != len(w.Questions.All()) {
				return fmt.Errorf("stats count %d, cache holds %d", s.TotalQuestions, len(w.Questions.All()))
			}
			return nil
		}},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			fmt.Printf("✗ %s: %v\n", step.name, err)
			return fmt.Errorf("smoke test %q failed", step.name)
		}
		fmt.Printf("✓ %s\n", step.name)
	}

	w.Logout(ctx)
	fmt.Println("All smoke tests passed")
	return nil
}

func newMigrateCmd() *cobra.Command {
	var driver, dsn string

	cmd := &cobra.Command{
		Use:   "migrate [up|purge]",
		Short: "Run token store migrations",
		Long: `Manage the SQL token store schema.

Commands:
  up      Create the session_tokens and question_votes schema
  purge   Delete expired session tokens`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), args[0], driver, dsn)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", sqlstore.DriverSQLite, "sqlite3 or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "./duvidapp.db", "Database DSN")
	return cmd
}

func runMigrations(ctx context.Context, action, driver, dsn string) error {
	fmt.Printf("Running migrations: %s\n", action)

	// Open applies the schema
	repo, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()

	switch action {
	case "up":
		fmt.Printf("Schema is up to date (version %s)\n", migration.NewRunner().Version())
		return nil
	case "purge":
		n, err := repo.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d expired sessions\n", n)
		return nil
	default:
		return fmt.Errorf("unknown action: %s", action)
	}
}
