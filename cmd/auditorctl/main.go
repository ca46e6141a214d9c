package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a11yscan/auditor/internal/axis"
	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/jobs/orchestrator"
	"github.com/a11yscan/auditor/internal/jobs/progress"
	"github.com/a11yscan/auditor/internal/jobs/registry"
	"github.com/a11yscan/auditor/internal/models"
	"github.com/a11yscan/auditor/internal/services/crawler"
	"github.com/a11yscan/auditor/internal/services/llm"
	"github.com/a11yscan/auditor/internal/storage/badger"
)

var (
	configFile  = flag.String("config", "", "configuration file path (TOML)")
	targetURL   = flag.String("url", "", "root URL to audit")
	plan        = flag.String("plan", "basic", "plan tier: basic|pro|enterprise")
	maxPages    = flag.Int("max-pages", 0, "page cap override (0 = plan default)")
	submitterID = flag.String("submitter", "", "opaque submitter id")
	showVersion = flag.Bool("version", false, "print version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("auditor version %s\n", common.GetVersion())
		os.Exit(0)
	}

	cfg, err := common.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := common.SetupLogger(cfg)
	common.PrintBanner(cfg, logger)

	if *targetURL == "" {
		logger.Fatal().Msg("missing required -url flag")
	}

	axes, err := axis.NewDefaultRegistry(cfg.Templates.Dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build axis registry")
		os.Exit(1)
	}

	if _, err := common.ResolveAPIKey(cfg.LLM.DefaultProvider, providerAPIKey(cfg)); err != nil {
		logger.Fatal().Err(err).Str("code", string(common.CodeOf(err))).Msg("missing LLM credentials")
		os.Exit(1)
	}

	llmFactory := llm.NewFactory(cfg.Claude, cfg.Gemini, cfg.LLM, logger)
	dispatcher := llm.NewDispatcher(axes, llmFactory, cfg.LLM, logger)

	crawlerSvc := crawler.New(crawler.Config{
		MaxPages:         cfg.Crawler.DefaultMaxPages,
		RequestTimeout:   cfg.Crawler.RequestTimeout,
		TotalBudget:      cfg.Crawler.TotalBudget,
		UserAgent:        cfg.Crawler.UserAgent,
		PerDomainDelay:   cfg.Crawler.PerDomainDelay,
		MaxRedirectDepth: cfg.Crawler.MaxRedirectDepth,
		EnableJSFallback: cfg.Crawler.EnableJSFallback,
		JSRenderMinRatio: cfg.Crawler.JSRenderMinBytesRatio,
	}, logger)

	db, err := badger.Open(cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
		os.Exit(1)
	}
	storage := badger.NewManager(db, logger)

	jobRegistry := registry.New()
	publisher := progress.NewPublisher(cfg.Orchestrator.ProgressFlushInterval, logger)

	orch := orchestrator.New(jobRegistry, publisher, storage, crawlerSvc, dispatcher, cfg.Orchestrator.JobWallClockCeiling, logger)

	submission := models.JobSubmission{
		URL:         *targetURL,
		Plan:        models.PlanTier(*plan),
		MaxPages:    *maxPages,
		SubmitterID: *submitterID,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("interrupt received, cancelling job")
		cancel()
	}()

	job, err := orch.Submit(ctx, submission)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to submit job")
		os.Exit(1)
	}
	logger.Info().Str("job_id", job.ID).Str("url", job.URL).Msg("job accepted")

	finalJob := waitForTerminal(ctx, storage, job.ID)
	cancel()

	exitCode := 1
	switch finalJob.Status {
	case models.JobCompleted:
		report, err := storage.GetFinalReport(context.Background(), job.ID)
		if err != nil {
			logger.Error().Err(err).Msg("job completed but final report could not be read")
			break
		}
		fmt.Printf("\nOverall level: %s (score %.1f)\n", report.OverallLevel, report.OverallScore)
		fmt.Printf("%s\n", report.ExecutiveSummary)
		exitCode = 0
	case models.JobFailed:
		logger.Error().Str("code", finalJob.ErrorCode).Str("error", finalJob.Error).Msg("job failed")
	case models.JobCancelled:
		logger.Warn().Msg("job cancelled")
	default:
		logger.Error().Str("status", string(finalJob.Status)).Msg("job ended in unexpected state")
	}

	if err := db.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close storage cleanly")
	}
	_ = llmFactory.Close()

	common.PrintShutdownBanner(logger)
	common.Stop()
	os.Exit(exitCode)
}

// waitForTerminal polls storage for the job's terminal state. The
// orchestrator persists every progress flush, so polling storage (rather
// than the in-process registry) reflects exactly what a future HTTP
// façade would see.
func waitForTerminal(ctx context.Context, storage *badger.Manager, jobID string) *models.Job {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			job, err := storage.GetJob(context.Background(), jobID)
			if err != nil {
				continue
			}
			if job.IsTerminal() {
				return job
			}
		case <-ctx.Done():
			job, err := storage.GetJob(context.Background(), jobID)
			if err != nil {
				return &models.Job{ID: jobID, Status: models.JobCancelled}
			}
			return job
		}
	}
}

func providerAPIKey(cfg *common.Config) string {
	if cfg.LLM.DefaultProvider == "gemini" {
		return cfg.Gemini.APIKey
	}
	return cfg.Claude.APIKey
}
