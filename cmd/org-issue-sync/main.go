package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vilaca/org-issue-sync/internal/api"
	"github.com/vilaca/org-issue-sync/internal/api/github"
	"github.com/vilaca/org-issue-sync/internal/api/gitlab"
	"github.com/vilaca/org-issue-sync/internal/config"
	"github.com/vilaca/org-issue-sync/internal/domain"
	"github.com/vilaca/org-issue-sync/internal/logger"
	"github.com/vilaca/org-issue-sync/internal/org"
	"github.com/vilaca/org-issue-sync/internal/service"
	"github.com/vilaca/org-issue-sync/internal/telemetry"
)

var Version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "org-issue-sync",
		Short:         "Sync issues from GitHub or GitLab into an org-mode document",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.OTel.ServiceVersion == "dev" {
		cfg.OTel.ServiceVersion = Version
	}

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	logger.Setup(cfg, os.Stderr)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:    uuid.NewString(),
		Platform: cfg.Platform,
	})

	updater, err := buildUpdater(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "sync setup failed", "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.WaitTimeout())
	defer cancel()

	if _, err := updater.Update(ctx); err != nil {
		slog.ErrorContext(ctx, "sync failed", "error", err)
		return err
	}
	return nil
}

// buildUpdater wires the pipeline for the configured platform.
func buildUpdater(cfg *config.Config) (*service.Updater, error) {
	token, err := config.LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	source, err := buildSource(cfg, token)
	if err != nil {
		return nil, err
	}

	todos := cfg.Vocabulary()
	fetcher := service.NewFetcher(source, service.FetcherConfig{
		WatchedRepos:        cfg.GetWatchedRepos(),
		IncludePullRequests: cfg.IncludePullRequests,
		PollInterval:        cfg.PollInterval(),
	})
	transformer := service.NewTransformer(fetcher, service.TransformerConfig{
		Todos:    todos,
		Location: location,
	})

	return service.NewUpdater(fetcher, transformer, service.NewReconciler(), org.NewFileStore(todos), cfg.DocumentPath), nil
}

func buildSource(cfg *config.Config, token string) (api.Source, error) {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}
	clientConfig := api.ClientConfig{
		BaseURL: cfg.BaseURL,
		Token:   token,
	}

	switch cfg.Platform {
	case domain.PlatformGitHub:
		return github.NewClient(clientConfig, httpClient), nil
	case domain.PlatformGitLab:
		client, err := gitlab.NewClient(clientConfig, httpClient)
		if err != nil {
			return nil, fmt.Errorf("creating gitlab client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}
