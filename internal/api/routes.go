package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(handler.logRequests)

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/overview", handler.GetOverview).Methods("GET")

	// Strategy routes
	api.HandleFunc("/strategies", handler.GetStrategies).Methods("GET")
	api.HandleFunc("/strategies/{id}", handler.GetStrategy).Methods("GET")
	api.HandleFunc("/strategies/{id}", handler.PutStrategy).Methods("PUT")
	api.HandleFunc("/strategies/{id}/report", handler.GetStrategyReport).Methods("GET")
	api.HandleFunc("/strategies/{id}/rules/{ruleId}/metrics", handler.GetRuleMetrics).Methods("GET")
	api.HandleFunc("/strategies/{id}/auto-rules", handler.PutAutoRules).Methods("PUT")

	// Trade annotation routes
	api.HandleFunc("/trades/{id}/metadata", handler.GetTradeMetadata).Methods("GET")
	api.HandleFunc("/trades/{id}/metadata", handler.PutTradeMetadata).Methods("PUT")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(started)))
	})
}
