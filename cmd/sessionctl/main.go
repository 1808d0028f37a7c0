// sessionctl is the operator CLI: a scripted demo session against the real
// model API and an environment check.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"psychsession/internal/config"
	"psychsession/internal/core"
	"psychsession/internal/db"
	"psychsession/internal/llm"
	"psychsession/internal/transcript"
)

var demoMessages = []string{
	"Hello, I'm feeling really anxious about work lately.",
	"I keep having trouble sleeping because my mind races at night.",
	"Sometimes I feel like I'm not good enough at my job.",
	"What can I do to manage these feelings better?",
}

func main() {
	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Operate the time-bounded therapy session framework",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newDemoCmd(), newCheckCmd(), newWatchCmd())

	if err := root.Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func newDemoCmd() *cobra.Command {
	var durationMinutes int
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted session against the configured model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			gateway := llm.NewGateway(client, logger)
			store := transcript.NewStore(transcript.NewMemoryStore())
			o := core.NewOrchestrator(
				core.Config{Model: cfg.Model, SessionDurationMinutes: durationMinutes},
				gateway, store, logger,
			)

			ctx := cmd.Context()
			id, err := o.StartSession(ctx)
			if err != nil {
				return err
			}
			color.Green("Session started (ID: %s)", id)
			fmt.Println()

			patientLabel := color.New(color.FgCyan, color.Bold)
			therapistLabel := color.New(color.FgGreen, color.Bold)
			notesLabel := color.New(color.FgYellow)

			for _, message := range demoMessages {
				patientLabel.Print("Patient: ")
				fmt.Println(message)

				result, err := o.ProcessMessage(ctx, message)
				if err != nil {
					return fmt.Errorf("process message: %w", err)
				}

				therapistLabel.Print("Therapist: ")
				fmt.Println(result.PatientResponse)
				notesLabel.Print("Clinical Notes: ")
				fmt.Println(result.PsychiatristThoughts)
				fmt.Printf("Time Left: %s | Tokens Used: %d\n", result.TimeLeft, result.UsageStats.TotalTokens)
				fmt.Println("--------------------------------------------------")
			}

			summary, err := o.EndSession(ctx)
			if err != nil {
				return err
			}
			fmt.Println()
			color.Green("Session Summary")
			fmt.Printf("  Messages: %d (user %d / assistant %d)\n",
				summary.MessageCount.Total, summary.MessageCount.User, summary.MessageCount.Assistant)
			fmt.Printf("  Duration: %d minutes\n", summary.SessionDurationMinutes)
			fmt.Printf("  Patient: %s\n", summary.PatientName)
			fmt.Printf("  Completion: %.2f%%\n", summary.SessionMetrics.CompletionPercentage)
			return nil
		},
	}
	cmd.Flags().IntVar(&durationMinutes, "duration", 10, "session duration in minutes")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Tail session activity from the Postgres notify channel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("watch requires DATABASE_URL")
			}

			ctx := cmd.Context()
			updates, err := db.Listen(ctx, cfg.DatabaseURL, cfg.NotifyChannel)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.NotifyChannel, err)
			}

			color.Green("Watching channel %q, Ctrl-C to stop", cfg.NotifyChannel)
			for id := range updates {
				fmt.Printf("%s  session %s updated\n", time.Now().Format(time.RFC3339), id)
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify environment configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ok := color.New(color.FgGreen).PrintfFunc()
			warn := color.New(color.FgYellow).PrintfFunc()

			if cfg.OpenAIAPIKey == "" {
				warn("OpenAI API key not configured (set OPENAI_API_KEY)\n")
			} else {
				ok("OpenAI API key configured\n")
			}
			ok("Model: %s\n", cfg.Model)
			ok("Session duration: %d minutes\n", cfg.SessionDurationMinutes)

			if cfg.DatabaseURL == "" {
				warn("DATABASE_URL not set, server will use the in-memory store\n")
				return nil
			}
			conn, err := sql.Open("postgres", cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer conn.Close()
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if err := conn.PingContext(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			if err := db.Migrate(ctx, conn); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			ok("Database reachable, schema applied\n")
			return nil
		},
	}
}
