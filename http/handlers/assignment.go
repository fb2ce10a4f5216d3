package handlers

import (
	"encoding/json"
	"net/http"

	"counseling-module/errors"
	"counseling-module/logger"
	"counseling-module/services"
	"counseling-module/services/assignment"
	"counseling-module/utils"
)

// AssignmentHandler exposes the assignment engine over HTTP for operational
// re-drives: the same selection and commit path as the Kafka trigger, so a
// duplicate call on an already assigned request is a safe no-op.
type AssignmentHandler struct {
	engine *assignment.Engine
}

func NewAssignmentHandler(engine *assignment.Engine) *AssignmentHandler {
	return &AssignmentHandler{engine: engine}
}

// AssignRequest runs the engine for one pending request.
// POST /assign-request {"request_id": 123}
func (h *AssignmentHandler) AssignRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var body struct {
		RequestID int64 `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RequestID <= 0 {
		utils.SendError(w, http.StatusBadRequest, "Body must contain a positive request_id")
		return
	}

	result := h.engine.Assign(r.Context(), body.RequestID)
	if result.Success {
		services.PublishRequestAssignedEvent(result)
		utils.SendSuccess(w, http.StatusOK, "Request assigned", result)
		return
	}

	logger.Info("Manual assignment of request %d did not assign: %s (%s)", body.RequestID, result.Error, result.ErrorKind)
	utils.SendJSON(w, statusForResult(result), utils.StandardResponse{
		Status: "error",
		Error:  result.Error,
		Data:   result,
	})
}

// statusForResult maps the engine's error taxonomy to HTTP status codes.
func statusForResult(result assignment.Result) int {
	switch result.ErrorKind {
	case errors.Invalid.String():
		return http.StatusBadRequest
	case errors.NotFound.String():
		return http.StatusNotFound
	case errors.AlreadyAssigned.String():
		return http.StatusConflict
	case errors.NoAvailableCounselors.String(), errors.NoCapacity.String():
		return http.StatusUnprocessableEntity
	case errors.TransactionConflict.String():
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
