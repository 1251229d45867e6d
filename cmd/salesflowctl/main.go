// Command salesflowctl runs maintenance tasks against the CRM backend
// with the credentials of a signed-in user.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/backend"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose   bool
	apiURL    string
	tokenPath string
	timeout   time.Duration

	cfg    *config.Config
	log    *zap.Logger
	tokens auth.TokenStore
)

var rootCmd = &cobra.Command{
	Use:           "salesflowctl",
	Short:         "SalesFlow maintenance tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.NewCLILogger(verbose)

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if apiURL != "" {
			cfg.Backend.BaseURL = apiURL
		}

		path := tokenPath
		if path == "" {
			if path, err = auth.DefaultTokenPath(); err != nil {
				return err
			}
		}
		tokens = auth.NewFileTokenStore(path)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "CRM backend base URL (default: BACKEND_BASEURL)")
	rootCmd.PersistentFlags().StringVar(&tokenPath, "token-file", "", "Session token file (default: $XDG_CONFIG_HOME/salesflow/token)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(loginCmd, logoutCmd, pipelineCmd, advanceCmd, contextCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newClient() *backend.Client {
	return backend.NewClient(&cfg.Backend, log)
}

// authenticated returns a context carrying the stored session
func authenticated(parent context.Context) (context.Context, error) {
	token, err := tokens.Get(parent)
	if errors.Is(err, auth.ErrNoToken) {
		return nil, fmt.Errorf("not signed in, run 'salesflowctl login' first")
	}
	if err != nil {
		return nil, err
	}

	user, err := auth.ParseClaims(token, time.Now())
	if errors.Is(err, auth.ErrExpiredToken) {
		return nil, fmt.Errorf("session expired, run 'salesflowctl login' again")
	}
	if err != nil {
		return nil, err
	}
	return auth.WithUserContext(parent, user), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
