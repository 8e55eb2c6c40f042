package logging

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fakeIntake collects the batches a core ships, standing in for Datadog's
// HTTP intake endpoint.
type fakeIntake struct {
	srv     *httptest.Server
	batches chan []record
	apiKeys chan string
}

func newFakeIntake(t *testing.T) *fakeIntake {
	t.Helper()

	f := &fakeIntake{
		batches: make(chan []record, 16),
		apiKeys: make(chan string, 16),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var batch []record
		if err := json.Unmarshal(body, &batch); err != nil {
			t.Errorf("intake received invalid JSON: %v", err)
		}
		f.batches <- batch
		f.apiKeys <- r.Header.Get("DD-API-KEY")
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIntake) waitBatch(t *testing.T) []record {
	t.Helper()
	select {
	case b := <-f.batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a shipped batch")
		return nil
	}
}

func testCore(intakeURL string, minLevel zapcore.Level) *DatadogCore {
	return NewDatadogCore(DatadogOptions{
		APIKey:        "test-api-key",
		Service:       "greeting-service",
		Source:        "go",
		Hostname:      "test-host",
		Tags:          []string{"env:test", "version:0.1.0"},
		MinLevel:      minLevel,
		QueueSize:     64,
		BatchSize:     8,
		FlushInterval: 50 * time.Millisecond,
		IntakeURL:     intakeURL,
	})
}

func TestDatadogCore_ShipsRecords(t *testing.T) {
	intake := newFakeIntake(t)
	core := testCore(intake.srv.URL, zapcore.InfoLevel)
	defer core.Stop()

	logger := zap.New(core)
	logger.Info("saying hello", zap.String("route", "/"))

	batch := intake.waitBatch(t)
	if len(batch) != 1 {
		t.Fatalf("expected 1 record, got %d", len(batch))
	}

	rec := batch[0]
	if rec.Service != "greeting-service" {
		t.Errorf("service = %q", rec.Service)
	}
	if rec.DDSource != "go" {
		t.Errorf("ddsource = %q", rec.DDSource)
	}
	if rec.Hostname != "test-host" {
		t.Errorf("hostname = %q", rec.Hostname)
	}
	if rec.Status != "info" {
		t.Errorf("status = %q", rec.Status)
	}
	if !strings.Contains(rec.DDTags, "env:test") || !strings.Contains(rec.DDTags, "version:0.1.0") {
		t.Errorf("ddtags missing expected tags: %q", rec.DDTags)
	}
	// The message is the encoded entry: JSON with the log line and fields.
	if !strings.Contains(rec.Message, `"saying hello"`) || !strings.Contains(rec.Message, `"route":"/"`) {
		t.Errorf("message missing entry content: %q", rec.Message)
	}

	if key := <-intake.apiKeys; key != "test-api-key" {
		t.Errorf("DD-API-KEY = %q", key)
	}
}

func TestDatadogCore_MinLevelFilters(t *testing.T) {
	intake := newFakeIntake(t)
	core := testCore(intake.srv.URL, zapcore.WarnLevel)
	defer core.Stop()

	logger := zap.New(core)
	logger.Info("below the export threshold")
	logger.Warn("at the export threshold")

	batch := intake.waitBatch(t)
	if len(batch) != 1 {
		t.Fatalf("expected 1 record, got %d", len(batch))
	}
	if batch[0].Status != "warn" {
		t.Errorf("expected the warn record, got status %q", batch[0].Status)
	}
}

func TestDatadogCore_BatchesUpToLimit(t *testing.T) {
	intake := newFakeIntake(t)
	core := testCore(intake.srv.URL, zapcore.InfoLevel)
	defer core.Stop()

	logger := zap.New(core)
	for i := 0; i < 8; i++ {
		logger.Info("hello", zap.Int("i", i))
	}

	// 8 records is exactly one full batch.
	batch := intake.waitBatch(t)
	if len(batch) != 8 {
		t.Errorf("expected a full batch of 8, got %d", len(batch))
	}
}

// Write must never block, even when the intake is stuck and the queue fills.
// This is the drop-newest overflow policy.
func TestDatadogCore_OverflowDropsInsteadOfBlocking(t *testing.T) {
	release := make(chan struct{})
	stuck := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer stuck.Close()
	defer close(release)

	core := NewDatadogCore(DatadogOptions{
		APIKey:        "test-api-key",
		Service:       "greeting-service",
		MinLevel:      zapcore.InfoLevel,
		QueueSize:     4,
		BatchSize:     1,
		FlushInterval: 10 * time.Millisecond,
		IntakeURL:     stuck.URL,
		HTTPClient:    &http.Client{Timeout: 200 * time.Millisecond},
	})
	defer func() {
		go core.Stop() // Stop flushes into the stuck server; don't wait on it
	}()

	logger := zap.New(core)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			logger.Info("flood")
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("logging blocked on a stuck intake")
	}

	if core.ship.dropped.Load() == 0 {
		t.Error("expected overflow to be counted as drops")
	}
}

// An unreachable backend is a local nuisance, never an error for the caller.
func TestDatadogCore_UnreachableIntake(t *testing.T) {
	core := NewDatadogCore(DatadogOptions{
		APIKey:        "test-api-key",
		Service:       "greeting-service",
		MinLevel:      zapcore.InfoLevel,
		QueueSize:     8,
		BatchSize:     2,
		FlushInterval: 10 * time.Millisecond,
		IntakeURL:     "http://127.0.0.1:1/api/v2/logs",
		HTTPClient:    &http.Client{Timeout: 100 * time.Millisecond},
	})
	defer core.Stop()

	logger := zap.New(core)
	logger.Info("into the void")

	if err := core.Sync(); err != nil {
		t.Errorf("Sync returned %v, want nil", err)
	}
}

// Shutdown paths compose defers, so a double Stop must be a no-op rather
// than a panic on an already-closed channel.
func TestDatadogCore_StopIsIdempotent(t *testing.T) {
	intake := newFakeIntake(t)
	core := testCore(intake.srv.URL, zapcore.InfoLevel)

	core.Stop()
	core.Stop()
}

func TestDatadogCore_SyncFlushesPartialBatch(t *testing.T) {
	intake := newFakeIntake(t)
	core := NewDatadogCore(DatadogOptions{
		APIKey:        "test-api-key",
		Service:       "greeting-service",
		MinLevel:      zapcore.InfoLevel,
		QueueSize:     64,
		BatchSize:     50,
		FlushInterval: time.Hour, // never fires on its own
		IntakeURL:     intake.srv.URL,
	})
	defer core.Stop()

	logger := zap.New(core)
	logger.Info("one")
	logger.Info("two")

	if err := core.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	batch := intake.waitBatch(t)
	if len(batch) != 2 {
		t.Errorf("expected 2 records after Sync, got %d", len(batch))
	}
}
