// Package main provides the vlmpilot CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/vlmpilot/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "vlmpilot",
		Short: "Drive a screen with a planner and a grounding model",
		Long: `A CLI tool that completes GUI tasks with two vision-language models.

The planner looks at the screen and names the next step in plain words.
The actor turns that step into a concrete click, keystroke or scroll.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./vlmpilot.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database for screenshots and transcripts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(transcriptsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var opts cli.Options

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Complete a task on screen",
		Long: `Run a session until the planner reports the task done or the turn
limit is reached.

Screens come from a headless browser by default. Use --frames to replay a
directory of screenshots instead; actions are then recorded, not performed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = configPath
			opts.DBPath = dbPath
			opts.Verbose = verbose

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cli.Run(ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.PlannerModel, "planner-model", "", "Planner model (see 'vlmpilot models')")
	cmd.Flags().StringVarP(&opts.Provider, "provider", "p", "", "Planner provider override")
	cmd.Flags().StringVar(&opts.ActorModel, "actor-model", "", "Actor model preset or raw model id")
	cmd.Flags().StringVar(&opts.ActorURL, "actor-url", "", "Actor base URL")
	cmd.Flags().IntVarP(&opts.MaxTurns, "max-turns", "m", 0, "Maximum turns")
	cmd.Flags().BoolVar(&opts.Direct, "direct", false, "Skip the planner and send the task to the actor")
	cmd.Flags().StringVar(&opts.FramesDir, "frames", "", "Replay screenshots from a directory")

	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models [prefix]",
		Short: "List supported planner and actor models",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			cli.Models(cmd.OutOrStdout(), prefix)
		},
	}
}

func transcriptsCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Show recorded sessions",
		Long: `List sessions recorded in the database, most recent first.
With --session, print each turn of that session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := dbPath
			if path == "" {
				settings, err := cli.LoadSettings(cli.Options{ConfigPath: configPath})
				if err != nil {
					return err
				}
				path = settings.Storage.DBPath
			}
			if path == "" {
				return fmt.Errorf("no database configured; pass --db or set storage.db_path")
			}
			return cli.Transcripts(context.Background(), cmd.OutOrStdout(), path, session)
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Session id")
	return cmd
}
