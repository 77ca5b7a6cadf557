package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/trogers1052/trade-journal/internal/analytics"
	"github.com/trogers1052/trade-journal/internal/database"
	"github.com/trogers1052/trade-journal/internal/logger"
	"github.com/trogers1052/trade-journal/internal/models"
	"github.com/trogers1052/trade-journal/internal/report"
)

// Reports computes analytics for the handlers
type Reports interface {
	Overview(ctx context.Context) (*report.Report, error)
	StrategyReport(ctx context.Context, strategyID string) (*report.Report, error)
	RuleMetrics(ctx context.Context, strategyID, ruleID string) (*analytics.RuleMetrics, error)
	Invalidate(ctx context.Context, strategyID string)
}

// Store is the persistence the handlers write through
type Store interface {
	Ping(ctx context.Context) error
	GetStrategy(ctx context.Context, id string) (*models.Strategy, error)
	ListStrategies(ctx context.Context) ([]models.Strategy, error)
	UpsertStrategy(ctx context.Context, s *models.Strategy) error
	UpdateAutoRules(ctx context.Context, strategyID string, cfg models.AutoRulesConfig) error
	GetTradeMetadata(ctx context.Context, tradeID string) (*models.TradeMetadata, error)
	UpsertTradeMetadata(ctx context.Context, md *models.TradeMetadata) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store   Store
	reports Reports
	logger  *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(store Store, reports Reports, log *zap.Logger) *Handler {
	return &Handler{
		store:   store,
		reports: reports,
		logger:  logger.OrNop(log).Named("api"),
	}
}

// GetOverview handles GET /overview
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Overview(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, rep)
}

// GetStrategies handles GET /strategies
func (h *Handler) GetStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.store.ListStrategies(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, strategies)
}

// GetStrategy handles GET /strategies/{id}
func (h *Handler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.store.GetStrategy(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, strategy)
}

// PutStrategy handles PUT /strategies/{id}. The body replaces the
// strategy's name, auto rules and playbook.
func (h *Handler) PutStrategy(w http.ResponseWriter, r *http.Request) {
	var strategy models.Strategy
	if err := json.NewDecoder(r.Body).Decode(&strategy); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	strategy.ID = mux.Vars(r)["id"]
	strategy.Name = strings.TrimSpace(strategy.Name)
	if strategy.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	for _, g := range strategy.RuleGroups {
		if g.ID == "" {
			http.Error(w, "rule group id is required", http.StatusBadRequest)
			return
		}
		for _, rule := range g.Rules {
			if rule.ID == "" {
				http.Error(w, "rule id is required", http.StatusBadRequest)
				return
			}
		}
	}

	if err := h.store.UpsertStrategy(r.Context(), &strategy); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.reports.Invalidate(r.Context(), strategy.ID)

	respondJSON(w, http.StatusOK, strategy)
}

// GetStrategyReport handles GET /strategies/{id}/report
func (h *Handler) GetStrategyReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.StrategyReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, rep)
}

// GetRuleMetrics handles GET /strategies/{id}/rules/{ruleId}/metrics
func (h *Handler) GetRuleMetrics(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	metrics, err := h.reports.RuleMetrics(r.Context(), vars["id"], vars["ruleId"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, metrics)
}

// PutAutoRules handles PUT /strategies/{id}/auto-rules. Legacy shapes are
// accepted and stored normalized.
func (h *Handler) PutAutoRules(w http.ResponseWriter, r *http.Request) {
	var cfg models.AutoRulesConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.store.UpdateAutoRules(r.Context(), id, cfg); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.reports.Invalidate(r.Context(), id)

	respondJSON(w, http.StatusOK, cfg)
}

// GetTradeMetadata handles GET /trades/{id}/metadata
func (h *Handler) GetTradeMetadata(w http.ResponseWriter, r *http.Request) {
	md, err := h.store.GetTradeMetadata(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, md)
}

// PutTradeMetadata handles PUT /trades/{id}/metadata
func (h *Handler) PutTradeMetadata(w http.ResponseWriter, r *http.Request) {
	var md models.TradeMetadata
	if err := json.NewDecoder(r.Body).Decode(&md); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	md.TradeID = mux.Vars(r)["id"]
	md.Model = strings.TrimSpace(md.Model)

	if err := h.store.UpsertTradeMetadata(r.Context(), &md); err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, md)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// respondError maps lookup failures to 404 and everything else to 500
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrStrategyNotFound),
		errors.Is(err, database.ErrTradeNotFound),
		errors.Is(err, report.ErrRuleNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
