// Package handlers provides HTTP request handlers.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/goclaw/goclaw/pkg/api/response"
	"github.com/goclaw/goclaw/pkg/coordinator"
	"github.com/goclaw/goclaw/pkg/logger"
)

// operationEnvelope extracts just enough of the request body to route and
// attribute it; the full envelope is re-parsed by the executor's request
// type once the operation name is known.
type operationEnvelope struct {
	Operation string `json:"operation"`
	SessionID string `json:"session_id"`
}

// OperationHandler is the single entry point client mutations are submitted
// through: create_node, set_data, delete_node, deregister_session.
type OperationHandler struct {
	coordinator *coordinator.Coordinator
	log         logger.Logger
}

// NewOperationHandler creates a new OperationHandler.
func NewOperationHandler(c *coordinator.Coordinator, log logger.Logger) *OperationHandler {
	return &OperationHandler{coordinator: c, log: log}
}

// Submit handles POST /api/v1/operations.
// @Summary Submit a write-path operation
// @Description Run the lock_and_read / commit_and_unlock / distributor_push pipeline for one mutation
// @Tags operations
// @Accept json
// @Produce json
// @Success 200 {object} executor.Reply
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/operations [post]
func (h *OperationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "failed to read request body", "")
		return
	}

	var env operationEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "malformed request envelope", "")
		return
	}

	reply := h.coordinator.Submit(r.Context(), env.Operation, env.SessionID, body)

	status := http.StatusOK
	if reply.Status != "success" {
		status = http.StatusConflict
	}
	response.JSON(w, status, reply)
}
