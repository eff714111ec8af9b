package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/churn"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/dataset"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/history"
)

// Version is the service version reported by the root endpoint.
const Version = "2.2.0"

// TrainingStatus reports whether the startup model bootstrap is still
// running. Satisfied by trainer.Trainer.
type TrainingStatus interface {
	Loading() bool
}

// Handlers carries the dependencies shared by all HTTP handlers.
type Handlers struct {
	predictor *churn.Predictor
	history   *history.Service
	status    TrainingStatus
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(predictor *churn.Predictor, historySvc *history.Service, status TrainingStatus) *Handlers {
	return &Handlers{predictor: predictor, history: historySvc, status: status}
}

// Root returns service info.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Welcome to ChurnShield AI!",
		"version":  Version,
		"model":    "gradient boosting",
		"features": len(dataset.DefaultFeatures()),
		"endpoints": map[string]string{
			"predict": "/predict (POST) - Single customer",
			"batch":   "/predict/batch (POST) - CSV upload",
			"metrics": "/metrics (GET) - Model performance",
			"history": "/history (GET) - Prediction history",
			"stats":   "/history/stats (GET) - History statistics",
			"health":  "/health (GET) - Service status",
		},
	})
}

// HealthCheck reports service and model status.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.status.Loading() {
		status = "starting"
	}

	accuracy := 0.0
	if m, err := h.predictor.Metrics(); err == nil {
		accuracy = m.Accuracy
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        status,
		"model_trained": h.predictor.Trained(),
		"model_loading": h.status.Loading(),
		"accuracy":      accuracy,
	})
}

// GetMetrics returns model performance metrics and feature importance.
func (h *Handlers) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.predictor.Metrics()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Model not trained")
		return
	}
	weights, err := h.predictor.FeatureImportance()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Model not trained")
		return
	}

	respondJSON(w, http.StatusOK, metricsResponse{
		Accuracy:          metrics.Accuracy,
		TrainSamples:      metrics.TrainSamples,
		TestSamples:       metrics.TestSamples,
		TotalSamples:      metrics.TotalSamples,
		FeatureImportance: importanceByWeight(weights, h.predictor.FeatureNames()),
	})
}

// PredictChurn scores a single customer and records the result.
func (h *Handlers) PredictChurn(w http.ResponseWriter, r *http.Request) {
	if !h.predictor.Trained() {
		respondError(w, http.StatusServiceUnavailable, "Model not trained")
		return
	}

	var customer CustomerInput
	if err := json.NewDecoder(r.Body).Decode(&customer); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if missing := customer.missingFields(); len(missing) > 0 {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
		return
	}
	customer.applyDefaults()

	result, err := h.predictor.Predict(customer.record())
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Prediction failed: %v", err))
		return
	}

	h.recordPrediction(r.Context(), "", customer, result, history.TypeSingle)

	respondJSON(w, http.StatusOK, result)
}

// GetHistory returns recent predictions, newest first.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", history.DefaultLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	page, err := h.history.List(r.Context(), limit, offset)
	if err != nil {
		log.Printf("[api] listing history: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if page == nil {
		page = []history.Prediction{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": page,
		"total":       len(page),
	})
}

// GetHistoryStats returns aggregate statistics over the prediction log.
func (h *Handlers) GetHistoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.Stats(r.Context())
	if err != nil {
		log.Printf("[api] history stats: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if stats.RecentTrend == nil {
		stats.RecentTrend = []history.TrendPoint{}
	}

	respondJSON(w, http.StatusOK, stats)
}

// DeleteHistoryItem removes one prediction from history.
func (h *Handlers) DeleteHistoryItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "prediction id must be an integer")
		return
	}

	if err := h.history.Delete(r.Context(), id); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Prediction not found")
			return
		}
		log.Printf("[api] deleting prediction %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Prediction deleted",
		"id":      id,
	})
}

// ClearHistory removes all predictions and reports how many went away.
func (h *Handlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	count, err := h.history.Clear(r.Context())
	if err != nil {
		log.Printf("[api] clearing history: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "History cleared",
		"deleted_count": count,
	})
}

// recordPrediction persists a scored result. Failures are logged, not
// surfaced; losing a history row should not fail the prediction.
func (h *Handlers) recordPrediction(ctx context.Context, customerID string, customer CustomerInput, result *churn.Prediction, kind string) {
	data, err := json.Marshal(customer)
	if err != nil {
		log.Printf("[api] encoding customer data: %v", err)
		return
	}

	p := &history.Prediction{
		CustomerID:       customerID,
		CustomerData:     data,
		ChurnProbability: result.ChurnProbability,
		RiskLevel:        string(result.RiskLevel),
		WillChurn:        result.WillChurn,
		PredictionType:   kind,
	}
	if err := h.history.Record(ctx, p); err != nil {
		log.Printf("[api] recording prediction: %v", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError keeps the error envelope the dashboard already consumes.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}
