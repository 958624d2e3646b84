package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true

	m := NewManager(cfg)
	if m == nil {
		t.Fatal("NewManager returned nil")
	}

	if !m.Enabled() {
		t.Error("Expected metrics to be enabled")
	}
}

func TestNewManager_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	m := NewManager(cfg)
	if m == nil {
		t.Fatal("NewManager returned nil")
	}

	if m.Enabled() {
		t.Error("Expected metrics to be disabled")
	}
}

func TestMetricsHandler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true

	m := NewManager(cfg)

	m.RecordOperation("create_node", "success", "")
	m.RecordOperation("create_node", "failure", "node_exists")
	m.RecordPhase("create_node", "lock_and_read", 5*time.Millisecond)
	m.RecordTotal("create_node", 12*time.Millisecond)
	m.ObserveCounter(42)
	m.RecordLockRetry("target")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if body == "" {
		t.Error("Expected non-empty metrics output")
	}

	expectedMetrics := []string{
		"writepath_operations_total",
		"writepath_phase_duration_seconds",
		"writepath_operation_duration_seconds",
		"writepath_system_counter",
		"writepath_lock_retries_total",
	}

	for _, metric := range expectedMetrics {
		if !contains(body, metric) {
			t.Errorf("Expected metric %s not found in output", metric)
		}
	}
}

func TestMetricsHandler_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	m := NewManager(cfg)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when disabled, got %d", w.Code)
	}
}

func TestStartServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Port = 19091 // Use different port for testing

	m := NewManager(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		err := m.StartServer(ctx, cfg.Port, cfg.Path)
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://localhost:19091/metrics")
	if err != nil {
		t.Fatalf("Failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	cancel()

	select {
	case err := <-errCh:
		t.Errorf("Server error: %v", err)
	case <-time.After(1 * time.Second):
	}
}

func TestNoOpManager(t *testing.T) {
	m := NoOpManager()

	if m.Enabled() {
		t.Error("NoOpManager should not be enabled")
	}

	// These should not panic.
	m.RecordOperation("create_node", "success", "")
	m.RecordPhase("create_node", "lock_and_read", time.Millisecond)
	m.RecordTotal("create_node", time.Millisecond)
	m.ObserveCounter(1)
	m.RecordLockRetry("parent")
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > len(substr) &&
		(s[:len(substr)] == substr || contains(s[1:], substr)))
}

func BenchmarkRecordOperation(b *testing.B) {
	m := NewManager(DefaultConfig())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordOperation("set_data", "success", "")
	}
}

func BenchmarkRecordPhase(b *testing.B) {
	m := NewManager(DefaultConfig())
	d := 2 * time.Millisecond
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordPhase("set_data", "commit_and_unlock", d)
	}
}

func BenchmarkRecordHTTPRequest(b *testing.B) {
	m := NewManager(DefaultConfig())
	d := 5 * time.Millisecond
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordHTTPRequest("POST", "/v1/submit", "200", d)
	}
}

func BenchmarkNoOpRecording(b *testing.B) {
	m := NoOpManager()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordOperation("create_node", "success", "")
		m.RecordPhase("create_node", "lock_and_read", time.Millisecond)
	}
}

func TestMetricsMemoryUsage(t *testing.T) {
	m := NewManager(DefaultConfig())

	operations := []string{"create_node", "set_data", "delete_node", "deregister_session"}
	outcomes := []string{"success", "failure"}
	reasons := []string{"", "node_exists", "node_doesnt_exist", "not_empty"}
	methods := []string{"GET", "POST"}
	paths := []string{"/v1/submit", "/health", "/ready"}

	for i := 0; i < 100000; i++ {
		m.RecordOperation(operations[i%len(operations)], outcomes[i%len(outcomes)], reasons[i%len(reasons)])
		m.RecordPhase(operations[i%len(operations)], "commit_and_unlock", time.Duration(i)*time.Microsecond)
		m.RecordTotal(operations[i%len(operations)], time.Duration(i)*time.Microsecond)
		m.RecordHTTPRequest(methods[i%len(methods)], paths[i%len(paths)], "200", time.Duration(i)*time.Microsecond)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 after heavy load, got %d", w.Code)
	}

	body := w.Body.String()
	if len(body) > 10*1024*1024 {
		t.Errorf("Metrics output too large: %d bytes", len(body))
	}
}
