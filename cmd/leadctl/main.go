// Package main is the leadctl command line client for the lead management API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/leadflow/leadctl/internal/app"
	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/infrastructure/config"
	"github.com/leadflow/leadctl/pkg/logger"
)

var (
	// Global flags
	envFile  string
	logLevel string
	quiet    bool
	jsonOut  bool

	application *app.App
	log         zerolog.Logger
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

var rootCmd = &cobra.Command{
	Use:   "leadctl",
	Short: "Manage sales leads from the terminal",
	Long: `leadctl talks to the lead management backend.

Log in once; the session is kept in local storage until you log out or the
token expires. Results go to stdout, notifications and logs to stderr.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress notifications")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, profileCmd, passwordCmd, deleteAccountCmd)
	rootCmd.AddCommand(leadsCmd, checkCmd)
}

// setup loads configuration and builds the application. An application
// installed beforehand is reused.
func setup(cmd *cobra.Command, _ []string) error {
	if application != nil {
		return nil
	}

	cfg, err := config.Load(cmd.Context(), envFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log = logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	var notes io.Writer
	if !quiet {
		notes = cmd.ErrOrStderr()
	}
	application, err = app.New(cmd.Context(), cfg, log, app.Options{Notifications: notes})
	return err
}

func shutdown(ctx context.Context) {
	if application == nil {
		return
	}
	if err := application.PushMetrics(ctx); err != nil {
		log.Warn().Err(err).Msg("metrics push failed")
	}
	if err := application.Close(); err != nil {
		log.Warn().Err(err).Msg("close failed")
	}
	application = nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	shutdown(context.Background())
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" "+describe(err))
		os.Exit(exitCode(err))
	}
}

// describe turns store errors into something a user can act on.
func describe(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		keys := make([]string, 0, len(verr.Fields))
		for k := range verr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("invalid input")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %s", k, verr.Fields[k])
		}
		return b.String()
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "not logged in, run `leadctl login` first"
	case errors.Is(err, domain.ErrUnauthorized):
		return "the server rejected the session, run `leadctl login` again"
	case errors.Is(err, domain.ErrNetwork):
		return "cannot reach the lead service: " + err.Error()
	default:
		return err.Error()
	}
}

func exitCode(err error) int {
	switch domain.Classify(err) {
	case domain.FailureValidation:
		return 2
	case domain.FailureUnauthenticated:
		return 3
	case domain.FailureNotFound:
		return 4
	case domain.FailureNetwork:
		return 5
	default:
		return 1
	}
}
