package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/a11yscan/auditor/internal/axis"
	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/interfaces"
	"github.com/a11yscan/auditor/internal/jobs/progress"
	"github.com/a11yscan/auditor/internal/jobs/registry"
	"github.com/a11yscan/auditor/internal/models"
	"github.com/a11yscan/auditor/internal/services/crawler"
	"github.com/a11yscan/auditor/internal/services/llm"
)

const fakeAnalysisJSON = `{
  "summary": {"score": 90, "compliance_level": "AA", "overall_assessment": "Good"},
  "criteria_evaluation": [
    {"criterion_id": "1.1.1", "name": "Non-text Content", "status": "PASSED", "finding": "ok", "impact": "none", "recommendation": "", "severity": "low"}
  ]
}`

// memStorage is a minimal in-memory interfaces.PersistenceAdapter stand-in,
// so these tests exercise the orchestrator's wiring without a real badger
// file, the same way dispatcher_test.go fakes the LLM provider.
type memStorage struct {
	mu      sync.Mutex
	jobs    map[string]*models.Job
	modules []*models.ModuleResult // in persistence (completion) order
	reports map[string]*models.FinalReport
}

func newMemStorage() *memStorage {
	return &memStorage{jobs: map[string]*models.Job{}, reports: map[string]*models.FinalReport{}}
}

func (m *memStorage) UpsertJob(_ context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memStorage) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "job not found")
	}
	cp := *j
	return &cp, nil
}

func (m *memStorage) UpsertModuleResult(_ context.Context, result *models.ModuleResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *result
	m.modules = append(m.modules, &cp)
	return nil
}

func (m *memStorage) ListModuleResults(_ context.Context, jobID string) ([]*models.ModuleResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ModuleResult
	for _, r := range m.modules {
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStorage) UpsertFinalReport(_ context.Context, report *models.FinalReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.JobID] = report
	return nil
}

func (m *memStorage) GetFinalReport(_ context.Context, jobID string) (*models.FinalReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[jobID]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "report not found")
	}
	return r, nil
}

func (m *memStorage) Close() error { return nil }

type fakeProvider struct{}

func (fakeProvider) GenerateContent(context.Context, *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	return &interfaces.ContentResponse{Text: fakeAnalysisJSON, Model: "fake", Provider: "fake"}, nil
}

func (fakeProvider) Close() error { return nil }

// blockingProvider never answers; it parks until the call's context is
// cancelled, standing in for an LLM call in flight when a cancellation
// signal arrives.
type blockingProvider struct{}

func (blockingProvider) GenerateContent(ctx context.Context, _ *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) Close() error { return nil }

func buildAxes(t *testing.T) *axis.Registry {
	t.Helper()
	dir := t.TempDir()
	for _, key := range models.AllAxes() {
		path := filepath.Join(dir, string(key)+".txt")
		require.NoError(t, os.WriteFile(path, []byte("Analyze: {WEBSITE_ANALYSIS_DATA}"), 0o644))
	}
	reg, err := axis.NewDefaultRegistry(dir)
	require.NoError(t, err)
	return reg
}

func waitUntilTerminal(t *testing.T, storage *memStorage, jobID string) *models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := storage.GetJob(context.Background(), jobID)
		if err == nil && job.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func newTestOrchestrator(t *testing.T, crawlerSvc *crawler.Crawler) (*Orchestrator, *memStorage) {
	t.Helper()
	logger := arbor.NewLogger()
	storage := newMemStorage()
	reg := registry.New()
	publisher := progress.NewPublisher(10*time.Millisecond, logger)
	dispatcher := llm.NewDispatcher(buildAxes(t), fakeProvider{}, common.LLMConfig{PerJobConcurrency: 4, MaxRetries: 1, RequestsPerSecond: 1000}, logger)
	orch := New(reg, publisher, storage, crawlerSvc, dispatcher, time.Minute, logger)
	return orch, storage
}

func TestOrchestratorRunCompletesWithFullCrawl(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html lang="en"><head><title>Home</title></head><body>hi</body></html>`))
	}))
	defer srv.Close()

	c := crawler.New(crawler.Config{MaxPages: 3, RequestTimeout: 5 * time.Second, UserAgent: "test-agent"}, arbor.NewLogger())
	orch, storage := newTestOrchestrator(t, c)

	job, err := orch.Submit(context.Background(), models.JobSubmission{URL: srv.URL, Plan: models.PlanBasic})
	require.NoError(t, err)

	final := waitUntilTerminal(t, storage, job.ID)
	require.Equal(t, models.JobCompleted, final.Status)
	require.Empty(t, final.WarningCode)

	report, err := storage.GetFinalReport(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.TotalAxisCount, report.ContributingModules)

	persisted, err := storage.ListModuleResults(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, persisted, models.TotalAxisCount, "every axis must be persisted as it completes")
	seen := map[models.AxisKey]bool{}
	for _, r := range persisted {
		require.False(t, seen[r.AxisKey], "axis %s persisted twice", r.AxisKey)
		seen[r.AxisKey] = true
	}
}

func TestOrchestratorRunRecordsCrawlPartialWarning(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/broken">broken</a></body></html>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		hijacker, ok := w.(http.Hijacker)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		conn, _, _ := hijacker.Hijack()
		conn.Close() // forces a transport-level fetch error, not just a 5xx status
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := crawler.New(crawler.Config{MaxPages: 5, RequestTimeout: 2 * time.Second, UserAgent: "test-agent"}, arbor.NewLogger())
	orch, storage := newTestOrchestrator(t, c)

	job, err := orch.Submit(context.Background(), models.JobSubmission{URL: srv.URL, Plan: models.PlanBasic})
	require.NoError(t, err)

	final := waitUntilTerminal(t, storage, job.ID)
	require.Equal(t, models.JobCompleted, final.Status)
	require.Equal(t, string(common.CodeCrawlPartial), final.WarningCode)
	require.NotEmpty(t, final.Warning)
}

func TestOrchestratorCancelMidFlight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html lang="en"><head><title>Home</title></head><body>hi</body></html>`))
	}))
	defer srv.Close()

	logger := arbor.NewLogger()
	storage := newMemStorage()
	reg := registry.New()
	publisher := progress.NewPublisher(10*time.Millisecond, logger)
	dispatcher := llm.NewDispatcher(buildAxes(t), blockingProvider{}, common.LLMConfig{PerJobConcurrency: 4, MaxRetries: 1, RequestsPerSecond: 1000}, logger)
	c := crawler.New(crawler.Config{MaxPages: 1, RequestTimeout: 5 * time.Second, UserAgent: "test-agent"}, logger)
	orch := New(reg, publisher, storage, c, dispatcher, time.Minute, logger)

	job, err := orch.Submit(context.Background(), models.JobSubmission{URL: srv.URL, Plan: models.PlanBasic})
	require.NoError(t, err)

	// Let the run park inside the module fan-out, then cancel.
	require.Eventually(t, func() bool {
		snap, err := orch.Status(job.ID)
		return err == nil && snap.Status == models.JobRunning
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, orch.Cancel(job.ID))

	final := waitUntilTerminal(t, storage, job.ID)
	require.Equal(t, models.JobCancelled, final.Status)

	_, err = storage.GetFinalReport(context.Background(), job.ID)
	require.Error(t, err, "a cancelled job must not have a final report")
}
