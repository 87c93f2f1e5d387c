package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"duvidapp/app"
	"duvidapp/internal"
	"duvidapp/internal/config"
	"duvidapp/internal/container"
	"duvidapp/internal/notify"
	"duvidapp/internal/remote"
	"duvidapp/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// workspaceKey is the TokenStore key of the CLI's session
const workspaceKey = "cli"

// cli carries what every subcommand needs; it is filled by the root command's
// PersistentPreRunE
type cli struct {
	apiURL     string
	tokenStore string
	tokenDSN   string
	jsonOutput bool
	verbose    bool

	logger    *internal.Logger
	workspace *app.Workspace
	closeFn   func() error
}

func main() {
	_ = godotenv.Load()

	env := &cli{}
	rootCmd := &cobra.Command{
		Use:           "duvidapp",
		Short:         "DuvidApp command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return env.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&env.apiURL, "api", "", "Backend base URL (default $DUVIDAPP_API_URL)")
	rootCmd.PersistentFlags().StringVar(&env.tokenStore, "token-store", config.TokenStoreSQLite, "Where the session token is kept: memory, sqlite, postgres or redis")
	rootCmd.PersistentFlags().StringVar(&env.tokenDSN, "token-dsn", defaultTokenDSN(), "Token store DSN (sqlite path or postgres URL)")
	rootCmd.PersistentFlags().BoolVar(&env.jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "Log backend requests")

	rootCmd.AddCommand(
		newLoginCmd(env),
		newLogoutCmd(env),
		newWhoamiCmd(env),
		newRegisterCmd(env),
		newQuestionsCmd(env),
		newAnswersCmd(env),
		newProfileCmd(env),
		newStatsCmd(env),
		newExportCmd(env),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Erro:", err)
		os.Exit(1)
	}
}

func defaultTokenDSN() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "duvidapp-cli.db"
	}
	return filepath.Join(home, ".duvidapp", "cli.db")
}

// open builds the CLI workspace and restores the persisted session
func (c *cli) open(ctx context.Context) error {
	level := internal.LogLevelError
	if c.verbose {
		level = internal.LogLevelDebug
	}
	c.logger = internal.NewLoggerWithOutput(level, os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = c.apiURL
	}

	storeCfg := cfg.TokenStore
	storeCfg.Driver = c.tokenStore
	storeCfg.DSN = c.tokenDSN
	if storeCfg.Driver == config.TokenStoreSQLite {
		if err := os.MkdirAll(filepath.Dir(storeCfg.DSN), 0o700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	store, closer, err := container.OpenTokenStore(ctx, storeCfg)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	c.closeFn = closer

	client := remote.NewClient(remote.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.RequestTimeout,
		Logger:  c.logger,
	})
	c.workspace = app.NewWorkspace(ctx, workspaceKey, client, app.WorkspaceConfig{
		Tokens:            store,
		Votes:             store,
		ToastTTL:          cfg.UI.ToastTTL,
		AnswerConcurrency: cfg.API.AnswerFetchConcurrency,
		Logger:            c.logger,
	})
	c.workspace.Notifications.Subscribe(printToast)
	return nil
}

func (c *cli) close() error {
	if c.workspace != nil {
		c.workspace.Close()
	}
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// printToast mirrors the toasts the stores raise on stderr
func printToast(ev notify.Event) {
	if ev.Type != notify.EventToastAdded || ev.Toast == nil {
		return
	}
	prefix := "i"
	switch ev.Toast.Severity {
	case ports.SeveritySuccess:
		prefix = "✓"
	case ports.SeverityError:
		prefix = "✗"
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", prefix, ev.Toast.Message)
}

// loaded returns the workspace after making sure the user is signed in and
// the question collection is cached
func (c *cli) loaded(ctx context.Context) (*app.Workspace, error) {
	w := c.workspace
	if !w.Session.IsAuthenticated() {
		return nil, fmt.Errorf("não autenticado; use 'duvidapp login'")
	}
	if err := w.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
