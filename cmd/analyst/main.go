// Command analyst serves analysis jobs for the dashboard's polling flow.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentdesk/agentdesk/internal/analyst"
	"github.com/agentdesk/agentdesk/internal/config"
	"github.com/agentdesk/agentdesk/internal/logging"
	"github.com/agentdesk/agentdesk/internal/scheduler"
	"github.com/agentdesk/agentdesk/pkg/version"
)

func main() {
	var cfg config.AnalystConfig
	if err := config.Load(&cfg, os.Args[1:]); err != nil {
		if config.IsHelp(err) {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.Version {
		fmt.Print(version.GetBanner())
		return
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logging.SetGlobalLogger(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	rec, err := newRecommender(&cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create recommender")
	}

	svc := analyst.NewService(analyst.Config{
		Recommender: rec,
		Timeout:     cfg.RequestTimeout,
		Delay:       cfg.ArtificialDelay,
		Logger:      log,
	})
	defer svc.Close()

	sched := scheduler.New(log)
	if err := sched.AddJob("@every 5m", &scheduler.CleanupJob{
		Target:    svc,
		OlderThan: cfg.JobTTL,
		JobName:   "job_cleanup",
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      analyst.NewHandler(svc, log).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Listen).Str("recommender", rec.Name()).Msg("Starting analyst")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Analyst stopped")
}

func newRecommender(cfg *config.AnalystConfig) (analyst.Recommender, error) {
	switch cfg.Provider {
	case "openai":
		return analyst.NewOpenAIRecommender(analyst.OpenAIConfig{
			APIKey: cfg.OpenAIKey,
			Model:  cfg.OpenAIModel,
		})
	case "anthropic":
		return analyst.NewAnthropicRecommender(analyst.AnthropicConfig{
			APIKey:     cfg.AnthropicKey,
			Model:      cfg.AnthropicModel,
			MaxRetries: 2,
		})
	default:
		return analyst.RulesRecommender{}, nil
	}
}
