// Package api provides the HTTP surface for annual reports and reward redemption.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"cuprecap/internal/recap"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the cuprecap HTTP API server.
type Server struct {
	svc            *recap.Service
	redeemBaseURL  string
	metricsEnabled bool
}

func NewServer(svc *recap.Service, redeemBaseURL string) *Server {
	return &Server{svc: svc, redeemBaseURL: redeemBaseURL}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/report/{phone}", s.handleReport)
		r.Get("/report/{phone}/insight", s.handleInsight)
		r.Get("/report/{phone}/orders", s.handleOrders)
		r.Get("/tier/{rank}", s.handleTier)
		r.Get("/redeem", s.handleRedeemView)
		r.Post("/redeem", s.handleRedeem)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeInternalError hides err from the client and returns an ID to find it in the logs.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	id := uuid.NewString()
	log.Printf("api error id=%s method=%s path=%s request_id=%s: %v", id, r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"message": "internal error",
			"type":    "error",
			"id":      id,
		},
	})
}
