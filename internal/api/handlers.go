package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cuprecap/internal/domain"
	"cuprecap/internal/recap"
	"cuprecap/internal/redemption"
	"cuprecap/internal/tier"

	"github.com/go-chi/chi/v5"
)

type reportResponse struct {
	domain.ReportRecord
	MonthLabels []string `json:"monthLabels"`
	RedeemURL   string   `json:"redeemUrl,omitempty"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Report(chi.URLParam(r, "phone"))
	if errors.Is(err, domain.ErrCustomerNotFound) {
		reportsServed.WithLabelValues("not_found").Inc()
		writeError(w, http.StatusNotFound, recap.NotFoundMessage)
		return
	}
	if err != nil {
		reportsServed.WithLabelValues("error").Inc()
		writeInternalError(w, r, err)
		return
	}
	reportsServed.WithLabelValues("ok").Inc()

	resp := reportResponse{ReportRecord: rec, MonthLabels: s.svc.ReportOptions().MonthLabels()}
	if s.redeemBaseURL != "" && rec.TotalCupsRank > 0 {
		resp.RedeemURL = redemption.URL(s.redeemBaseURL, rec.PhoneNumber, rec.TotalCupsRank)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	insight, err := s.svc.Insight(r.Context(), chi.URLParam(r, "phone"))
	if errors.Is(err, domain.ErrCustomerNotFound) {
		writeError(w, http.StatusNotFound, recap.NotFoundMessage)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	insightsServed.WithLabelValues(insight.Source).Inc()
	writeJSON(w, http.StatusOK, insight)
}

type ordersResponse struct {
	Orders  []recap.OrderLine `json:"orders"`
	Total   int               `json:"total"`
	Message string            `json:"message,omitempty"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	lines, err := s.svc.Orders(chi.URLParam(r, "phone"))
	if errors.Is(err, domain.ErrCustomerNotFound) {
		writeError(w, http.StatusNotFound, recap.NotFoundMessage)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	resp := ordersResponse{Orders: lines, Total: len(lines)}
	if len(lines) == 0 {
		resp.Message = recap.NoOrdersMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTier(w http.ResponseWriter, r *http.Request) {
	rank, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "rank")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "rank must be an integer")
		return
	}
	t, err := tier.Resolve(rank)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rank must be a positive integer")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type redeemViewResponse struct {
	Mode string `json:"mode"`
	*recap.RedeemView
	Prompt string `json:"confirmPrompt,omitempty"`
}

// handleRedeemView answers ?redeem=<phone>&rank=<n>. Missing or malformed
// parameters fall back to the default entry view instead of failing.
func (s *Server) handleRedeemView(w http.ResponseWriter, r *http.Request) {
	p, err := redemption.ParseParams(r.URL.Query())
	if errors.Is(err, domain.ErrNoRedeemParams) {
		writeJSON(w, http.StatusOK, redeemViewResponse{Mode: "entry"})
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "rank must be a positive integer")
		return
	}
	view, err := s.svc.RedeemView(p)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	resp := redeemViewResponse{Mode: "redeem", RedeemView: &view}
	if !view.Redeemed() {
		resp.Prompt = redemption.ConfirmPrompt
	}
	writeJSON(w, http.StatusOK, resp)
}

type redeemRequest struct {
	Phone   string `json:"phone"`
	Rank    int    `json:"rank"`
	Confirm bool   `json:"confirm"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p := redemption.Params{Phone: strings.TrimSpace(req.Phone), Rank: req.Rank}
	if p.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	// The client collects the operator's answer to ConfirmPrompt and sends it as confirm.
	confirmed := redemption.ConfirmFunc(func(string) (bool, error) { return req.Confirm, nil })
	view, err := s.svc.Redeem(p, confirmed)
	switch {
	case err == nil:
		redemptions.WithLabelValues("redeemed").Inc()
		writeJSON(w, http.StatusOK, view)
	case errors.Is(err, domain.ErrInvalidRank):
		redemptions.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "rank must be a positive integer")
	case errors.Is(err, domain.ErrNotConfirmed):
		redemptions.WithLabelValues("declined").Inc()
		writeError(w, http.StatusPreconditionRequired, "confirmation required: "+redemption.ConfirmPrompt)
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		redemptions.WithLabelValues("duplicate").Inc()
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": map[string]interface{}{
				"message": "reward already redeemed",
				"type":    "error",
			},
			"status": view.Status,
		})
	default:
		redemptions.WithLabelValues("error").Inc()
		writeInternalError(w, r, err)
	}
}
