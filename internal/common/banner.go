package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner.
func PrintBanner(cfg *Config, logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(72)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("AUDITOR")
	b.PrintCenteredText("WCAG 2.1 Accessibility Audit Orchestrator")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", GetVersion(), 15)
	b.PrintKeyValue("Storage", cfg.Storage.Path, 15)
	b.PrintKeyValue("LLM Provider", cfg.LLM.DefaultProvider, 15)
	b.PrintKeyValue("Templates", cfg.Templates.Dir, 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", GetVersion()).
		Str("storage_path", cfg.Storage.Path).
		Str("llm_provider", cfg.LLM.DefaultProvider).
		Int("per_job_concurrency", cfg.LLM.PerJobConcurrency).
		Dur("job_wallclock_ceiling", cfg.Orchestrator.JobWallClockCeiling).
		Msg("auditor started")
}

// PrintShutdownBanner displays the application shutdown banner.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("AUDITOR")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("auditor shutting down")
}
