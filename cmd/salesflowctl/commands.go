package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/salesflow/salesflow-api/internal/assistant"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	loginEmail    string
	loginPassword string

	pipelineComputed bool

	advanceDryRun   bool
	advanceMaxStage string

	contextSummaryOnly bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in against the CRM backend and store the issued token for later commands.

The password is read from --password, then SALESFLOW_PASSWORD, then stdin.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tokens.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Print pipeline metrics",
	RunE:  runPipeline,
}

var advanceCmd = &cobra.Command{
	Use:   "advance-opportunities",
	Short: "Move every open opportunity one stage forward",
	Long: `Move every open opportunity one funnel stage forward, stopping at --max-stage.

Failures are reported per opportunity. Requires an Admin or SalesManager session.`,
	RunE: runAdvance,
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the CRM context the assistant would see",
	RunE:  runContext,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	_ = loginCmd.MarkFlagRequired("email")

	pipelineCmd.Flags().BoolVar(&pipelineComputed, "computed", false, "Compute metrics locally instead of using the backend pipeline")

	advanceCmd.Flags().BoolVar(&advanceDryRun, "dry-run", false, "Report planned moves without changing anything")
	advanceCmd.Flags().StringVar(&advanceMaxStage, "max-stage", domain.StageNegotiation.String(), "Furthest stage to move to")

	contextCmd.Flags().BoolVar(&contextSummaryOnly, "summary", false, "Print only the summary")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	password := loginPassword
	if password == "" {
		password = strings.TrimSpace(os.Getenv("SALESFLOW_PASSWORD"))
	}
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := readLine(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = line
	}

	authService := service.NewAuthService(newClient(), log)
	result, err := authService.Login(ctx, &domain.LoginRequest{Email: loginEmail, Password: password})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := tokens.Set(ctx, result.Token); err != nil {
		return err
	}

	name := loginEmail
	if result.User != nil && result.User.FullName() != "" {
		name = result.User.FullName()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", name)
	return nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, err := authenticated(cmd.Context())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opportunities := service.NewOpportunityService(newClient(), &cfg.Assistant, log)
	if pipelineComputed {
		metrics, err := opportunities.ComputedMetrics(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), metrics)
	}

	data, err := opportunities.Pipeline(ctx)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to decode pipeline: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), v)
}

func runAdvance(cmd *cobra.Command, args []string) error {
	maxStage, err := domain.ParseStage(advanceMaxStage)
	if err != nil {
		return err
	}

	ctx, err := authenticated(cmd.Context())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opportunities := service.NewOpportunityService(newClient(), &cfg.Assistant, log)
	results, err := opportunities.AdvanceOpen(ctx, service.AdvanceOptions{DryRun: advanceDryRun, MaxStage: maxStage})
	if err != nil {
		return err
	}

	failed := writeAdvanceResults(cmd.OutOrStdout(), results)
	verb := "Advanced"
	if advanceDryRun {
		verb = "Would advance"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s %d opportunities (%d failed)\n", verb, len(results)-failed, failed)

	if failed > 0 {
		log.Warn("some opportunities could not be advanced", zap.Int("failed", failed))
	}
	return nil
}

// writeAdvanceResults prints one row per opportunity and returns the number of failures
func writeAdvanceResults(w io.Writer, results []domain.AdvanceResult) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tFROM\tTO\tRESULT")
	failed := 0
	for _, r := range results {
		status := "ok"
		if r.Error != "" {
			status = r.Error
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.OpportunityID, r.Title, r.From, r.To, status)
	}
	_ = tw.Flush()
	return failed
}

func runContext(cmd *cobra.Command, args []string) error {
	ctx, err := authenticated(cmd.Context())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	builder := assistant.NewBuilder(newClient(), assistant.LimitsFromConfig(&cfg.Assistant), log)
	crm := builder.Build(ctx)
	if contextSummaryOnly {
		return printJSON(cmd.OutOrStdout(), crm.Summary)
	}
	return printJSON(cmd.OutOrStdout(), crm)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
