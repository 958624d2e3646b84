package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goclaw/goclaw/pkg/coordinator"
	"github.com/goclaw/goclaw/pkg/distributor"
	"github.com/goclaw/goclaw/pkg/logger"
	"github.com/goclaw/goclaw/pkg/storage/memory"
)

type noopDistributor struct{}

func (noopDistributor) Push(ctx context.Context, event distributor.Event) error { return nil }

func testLogger() logger.Logger {
	return logger.New(&logger.Config{Level: logger.InfoLevel, Format: "json", Output: "stdout"})
}

func TestOperationHandler_Submit_Success(t *testing.T) {
	c := coordinator.New(memory.NewMemoryStorage(), noopDistributor{}, testLogger())
	handler := NewOperationHandler(c, testLogger())

	body := `{"operation":"create_node","session_id":"session-1","event_id":"evt-1","path":"/a"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/operations", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Submit(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Submit() status = %v, want %v, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestOperationHandler_Submit_MalformedBody(t *testing.T) {
	c := coordinator.New(memory.NewMemoryStorage(), noopDistributor{}, testLogger())
	handler := NewOperationHandler(c, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/operations", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	handler.Submit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Submit() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
}

func TestOperationHandler_Submit_UnknownOperation(t *testing.T) {
	c := coordinator.New(memory.NewMemoryStorage(), noopDistributor{}, testLogger())
	handler := NewOperationHandler(c, testLogger())

	body := `{"operation":"nonsense","session_id":"session-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/operations", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Submit(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Submit() status = %v, want %v, body=%s", w.Code, http.StatusConflict, w.Body.String())
	}
}
