package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/a11yscan/auditor/internal/axis"
	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/interfaces"
	"github.com/a11yscan/auditor/internal/models"
)

const systemPreamble = "You are an accessibility auditor. Respond with a single JSON object " +
	"matching the documented analysis_result schema and nothing else: no prose, no markdown fence."

// OnModuleResult is invoked once per axis as it reaches a terminal
// state, in completion order (spec.md §4.5 step 5: persist the result
// and publish progress as each module finishes, not when the whole
// fan-out drains). Called from multiple goroutines; the caller is
// responsible for coalescing progress (the Progress Publisher does)
// and the persistence adapter is assumed thread-safe.
type OnModuleResult func(result *models.ModuleResult, completed, total int)

// Dispatcher is the Module Dispatcher (spec.md §4.5): it fans the
// twelve axes out across a bounded worker pool, assembles each
// prompt, calls the LLM, and repairs/validates the response.
type Dispatcher struct {
	registry *axis.Registry
	provider interfaces.LLMProvider
	logger   arbor.ILogger
	cfg      common.LLMConfig
	global   *rate.Limiter

	// globalSlots bounds in-flight LLM calls across every job sharing
	// this dispatcher (spec.md §5 "shared resources": one job hitting
	// provider back-pressure blocks on the semaphore without starving
	// the others of their already-held slots).
	globalSlots chan struct{}

	templateCacheMu sync.Mutex
	templateCache   map[string]string
}

// NewDispatcher builds a Dispatcher. provider is usually a *Factory
// but any interfaces.LLMProvider works, which keeps tests free of
// real network calls.
func NewDispatcher(registry *axis.Registry, provider interfaces.LLMProvider, cfg common.LLMConfig, logger arbor.ILogger) *Dispatcher {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 8
	}
	globalBound := cfg.GlobalConcurrency
	if globalBound <= 0 {
		globalBound = 32
	}
	return &Dispatcher{
		registry:      registry,
		provider:      provider,
		logger:        logger,
		cfg:           cfg,
		global:        rate.NewLimiter(rate.Limit(rps), 1),
		globalSlots:   make(chan struct{}, globalBound),
		templateCache: make(map[string]string),
	}
}

// Dispatch runs every registered axis concurrently (bounded by
// PerJobConcurrency) and returns one ModuleResult per axis, in
// registry key order. A single axis failing never aborts the others.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID string, base *models.BaseSnapshot, checks *models.AutomatedCheckResult, onResult OnModuleResult) []*models.ModuleResult {
	keys := d.registry.Keys()
	total := len(keys)

	concurrency := d.cfg.PerJobConcurrency
	if concurrency < 2 {
		concurrency = 2
	}
	if concurrency > total {
		concurrency = total
	}

	sem := make(chan struct{}, concurrency)
	results := make([]*models.ModuleResult, total)
	var wg sync.WaitGroup
	var completed atomic.Int32

	for i, key := range keys {
		i, key := i, key
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = d.dispatchOne(ctx, jobID, key, base, checks)

			n := completed.Add(1)
			if onResult != nil {
				onResult(results[i], int(n), total)
			}
		}()
	}

	wg.Wait()
	return results
}

// RetryModule re-runs a single axis without recrawling the site,
// supplementing spec.md §9 open question (c).
func (d *Dispatcher) RetryModule(ctx context.Context, jobID string, key models.AxisKey, base *models.BaseSnapshot, checks *models.AutomatedCheckResult) *models.ModuleResult {
	return d.dispatchOne(ctx, jobID, key, base, checks)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, jobID string, key models.AxisKey, base *models.BaseSnapshot, checks *models.AutomatedCheckResult) *models.ModuleResult {
	result := &models.ModuleResult{JobID: jobID, AxisKey: key, Status: models.ModuleRunning, CreatedAt: time.Now()}

	def, ok := d.registry.Get(key)
	if !ok {
		return failModule(result, common.CodeConfigMissing, fmt.Errorf("axis %s not registered", key))
	}

	template, err := d.loadTemplate(def.TemplatePath)
	if err != nil {
		return failModule(result, common.CodeConfigMissing, err)
	}

	prompt, err := assemblePrompt(template, def.Slicer(base), checks, base.SiteURL)
	if err != nil {
		return failModule(result, common.CodeParseFailed, err)
	}

	maxAttempts := d.cfg.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		if err := d.global.Wait(ctx); err != nil {
			return failModule(result, common.CodeCancelled, err)
		}

		select {
		case d.globalSlots <- struct{}{}:
		case <-ctx.Done():
			return failModule(result, common.CodeCancelled, ctx.Err())
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if d.cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, d.cfg.CallTimeout)
		}
		resp, err := d.provider.GenerateContent(callCtx, &interfaces.ContentRequest{
			Messages:          []interfaces.Message{{Role: "user", Text: prompt}},
			Temperature:       d.cfg.Temperature,
			MaxTokens:         d.cfg.MaxTokens,
			SystemInstruction: systemPreamble,
		})
		if cancel != nil {
			cancel()
		}
		<-d.globalSlots

		if err != nil {
			lastErr = err
			if common.CodeOf(err) == common.CodeLLMPermanent {
				return failModule(result, common.CodeLLMPermanent, err)
			}
			if ctx.Err() != nil {
				return failModule(result, common.CodeCancelled, ctx.Err())
			}
			if waitErr := waitModuleBackoff(ctx, attempt); waitErr != nil {
				return failModule(result, common.CodeCancelled, waitErr)
			}
			continue
		}

		result.RawText = resp.Text
		result.TokenUsage += resp.TokenUsage

		analysis, parseErr := ParseAnalysis(resp.Text)
		if parseErr != nil {
			lastErr = parseErr
			if waitErr := waitModuleBackoff(ctx, attempt); waitErr != nil {
				return failModule(result, common.CodeCancelled, waitErr)
			}
			continue
		}

		now := time.Now()
		result.Status = models.ModuleCompleted
		result.Result = analysis
		result.CompletedAt = &now
		return result
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("exhausted attempts with no response")
	}
	code := common.CodeOf(lastErr)
	if code == "" {
		code = common.CodeParseFailed
	}
	return failModule(result, code, lastErr)
}

// moduleRetryBackoff computes the wait before the dispatcher retries an
// entire call+parse cycle, matching spec.md §4.5 step 3's parameters
// exactly (base 1s, factor 2, jitter +-20%) rather than the provider's
// own transient-network backoff policy (retry.go), which governs a
// different layer of retry.
func moduleRetryBackoff(attempt int) time.Duration {
	base := time.Second
	backoff := base * time.Duration(1<<uint(attempt-1))
	jitter := time.Duration((rand.Float64()*0.4 - 0.2) * float64(backoff))
	backoff += jitter
	if backoff < 0 {
		backoff = 0
	}
	return backoff
}

func waitModuleBackoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(moduleRetryBackoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func failModule(result *models.ModuleResult, code common.Code, err error) *models.ModuleResult {
	now := time.Now()
	result.Status = models.ModuleFailed
	result.Error = err.Error()
	result.ErrorCode = string(code)
	result.CompletedAt = &now
	return result
}

func (d *Dispatcher) loadTemplate(path string) (string, error) {
	d.templateCacheMu.Lock()
	defer d.templateCacheMu.Unlock()

	if cached, ok := d.templateCache[path]; ok {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loading prompt template %s: %w", path, err)
	}
	text := string(data)
	d.templateCache[path] = text
	return text, nil
}

const placeholder = "{WEBSITE_ANALYSIS_DATA}"

func assemblePrompt(template string, slice interface{}, checks *models.AutomatedCheckResult, siteURL string) (string, error) {
	payload := struct {
		SiteURL         string      `json:"site_url"`
		Slice           interface{} `json:"slice"`
		AutomatedChecks interface{} `json:"automated_checks,omitempty"`
	}{SiteURL: siteURL, Slice: slice}

	if checks != nil {
		payload.AutomatedChecks = checks.Findings
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("serializing axis slice: %w", err)
	}

	return strings.ReplaceAll(template, placeholder, string(data)), nil
}
