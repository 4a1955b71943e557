package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/config"
	"github.com/ok-landscape/syndicate/internal/server"
	"github.com/ok-landscape/syndicate/pkg/logger"
)

var (
	configPath string
	version    = "0.1.0"
	gitCommit  = "unknown"
	buildTime  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "syndicate",
	Short: "Syndicate - Content scheduling and distribution service",
	Long:  `Syndicate routes catalogued content to publishing destinations, schedules it across a rolling horizon and dispatches due posts to the platform APIs.`,
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Syndicate %s\n", version)
		fmt.Printf("Git commit: %s\n", gitCommit)
		fmt.Printf("Build time: %s\n", buildTime)
	},
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a fresh TOTP secret for API authentication",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := server.GenerateSecret()
		if err != nil {
			return err
		}
		fmt.Println(secret)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, appLogger, err := buildServer()
		if err != nil {
			return err
		}
		defer appLogger.Sync()

		stats := srv.Store.Statistics()
		fmt.Printf("Queued:       %d\n", stats.TotalQueued)
		fmt.Printf("Duplicates:   %d\n", stats.Duplicates)
		fmt.Printf("Due in 24h:   %d\n", stats.DueNext24h)
		fmt.Printf("Due in 7d:    %d\n", stats.DueNext7d)
		for dest, count := range stats.ByDestination {
			fmt.Printf("  %-20s %d\n", dest, count)
		}
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Plan and enqueue the next posting horizon",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, appLogger, err := buildServer()
		if err != nil {
			return err
		}
		defer appLogger.Sync()

		before := srv.Store.Len()
		items := srv.Planner.PlanHorizon(time.Now(), 0)
		if err := srv.Store.EnqueueBatch(items); err != nil {
			return fmt.Errorf("failed to enqueue planned horizon: %w", err)
		}
		fmt.Printf("Enqueued %d items (%d total)\n", srv.Store.Len()-before, srv.Store.Len())
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check queue invariants and publisher credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, appLogger, err := buildServer()
		if err != nil {
			return err
		}
		defer appLogger.Sync()

		warnings := srv.Store.ValidateNoSameDayDuplicates()
		for _, w := range warnings {
			fmt.Printf("WARNING: %s\n", w)
		}
		if len(warnings) == 0 {
			fmt.Println("Queue: no same-day duplicates")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for platform, err := range srv.Publishers.ValidateAll(ctx) {
			if err != nil {
				fmt.Printf("%s: INVALID (%v)\n", platform, err)
			} else {
				fmt.Printf("%s: ok\n", platform)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/server.yaml", "config file path")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
}

func buildServer() (*server.Server, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	srv, err := server.NewServer(cfg, appLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create server: %w", err)
	}
	return srv, appLogger, nil
}

func runServer(*cobra.Command, []string) error {
	srv, appLogger, err := buildServer()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Syndicate server", zap.String("version", version))

	// Start server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Start(ctx); err != nil {
			appLogger.Error("Server failed to start", zap.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down server...")
	case <-ctx.Done():
		appLogger.Info("Server context cancelled")
	}

	// Graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	appLogger.Info("Server exited")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
