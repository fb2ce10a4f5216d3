package handlers

import (
	"net/http"

	"counseling-module/db"
	"counseling-module/services"
	"counseling-module/utils"
)

// Health reports the liveness of the service's dependencies.
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	dbOK := false
	if db.DB != nil && db.DB.PingContext(r.Context()) == nil {
		dbOK = true
	}

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}

	utils.SendSuccess(w, status, "health", map[string]interface{}{
		"database":       dbOK,
		"kafka_producer": services.IsConnected(),
		"kafka_consumer": services.IsConsumerRunning(),
	})
}
