package http

import (
	"net/http"

	"counseling-module/http/handlers"
	"counseling-module/http/middleware"
	"counseling-module/services/assignment"
)

// SetupRoutes configures all HTTP routes and middleware
func SetupRoutes(engine *assignment.Engine) {
	assignmentHandler := handlers.NewAssignmentHandler(engine)

	http.HandleFunc("/health", middleware.EnableCORS(handlers.Health))

	// Assignment APIs
	http.HandleFunc("/assign-request", middleware.EnableCORS(assignmentHandler.AssignRequest))

	// DLQ Management APIs
	http.HandleFunc("/api/dlq/messages", middleware.EnableCORS(handlers.GetDLQMessages))
	http.HandleFunc("/api/dlq/messages/retry/", middleware.EnableCORS(handlers.RetryDLQMessage))
	http.HandleFunc("/api/dlq/messages/resolve/", middleware.EnableCORS(handlers.ResolveDLQMessage))
	http.HandleFunc("/api/dlq/stats", middleware.EnableCORS(handlers.GetDLQStats))
}
