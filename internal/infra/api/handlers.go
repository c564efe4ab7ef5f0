package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"franchise-subscription/internal/domain"
	"franchise-subscription/internal/infra/logging"
	"franchise-subscription/internal/infra/metrics"
	red "franchise-subscription/internal/infra/redis"
)

type redeemRequest struct {
	Code string `json:"code"`
}

type redeemResponse struct {
	Code      string    `json:"code"`
	DaysAdded int       `json:"days_added"`
	EndsAt    time.Time `json:"ends_at"`
}

type subscriptionResponse struct {
	PlanName string    `json:"plan_name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Active   bool      `json:"active"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := accountIDFrom(ctx)

	allowed, err := s.limiter.Allow(ctx, red.RedeemAttemptKey(accountID), s.cfg.RateLimit, s.cfg.RateLimitWindow)
	if err != nil {
		// Fail open: losing the limiter must not take redemption down.
		logging.With(ctx, s.log).Warn().Err(err).Msg("rate limiter unavailable")
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, "too many attempts, slow down")
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	receipt, err := s.redeemer.Redeem(ctx, accountID, req.Code)
	metrics.ObserveRedemptionLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		status, msg := redemptionError(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, redeemResponse{
		Code:      receipt.Code,
		DaysAdded: receipt.DaysAdded,
		EndsAt:    receipt.EndsAt,
	})
}

func (s *Server) handleCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sub, err := s.subUC.GetCurrent(ctx, accountIDFrom(ctx))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no subscription")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}

	writeJSON(w, http.StatusOK, subscriptionResponse{
		PlanName: sub.PlanName,
		StartsAt: sub.StartsAt,
		EndsAt:   sub.EndsAt,
		Active:   sub.IsActive(time.Now()),
	})
}

func (s *Server) handleSubscriptionHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subs, err := s.subUC.ListByAccount(ctx, accountIDFrom(ctx))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load subscriptions")
		return
	}

	now := time.Now()
	data := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		data = append(data, subscriptionResponse{
			PlanName: sub.PlanName,
			StartsAt: sub.StartsAt,
			EndsAt:   sub.EndsAt,
			Active:   sub.IsActive(now),
		})
	}

	writeJSON(w, http.StatusOK, struct {
		Data []subscriptionResponse `json:"data"`
	}{Data: data})
}

// redemptionError maps engine errors onto HTTP statuses. Every rejection is
// client-correctable except storage failures, which are safe to retry.
func redemptionError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, "code not found"
	case errors.Is(err, domain.ErrCodeAlreadyRedeemed):
		return http.StatusConflict, "voucher already redeemed"
	case errors.Is(err, domain.ErrCodeRedeemedByAccount):
		return http.StatusConflict, "code already redeemed by this account"
	case errors.Is(err, domain.ErrCodeQuotaExhausted):
		return http.StatusGone, "promo quota exhausted"
	default:
		return http.StatusServiceUnavailable, "temporary failure, try again"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}
