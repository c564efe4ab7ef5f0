package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"franchise-subscription/internal/domain"
	"franchise-subscription/internal/domain/model"
	"franchise-subscription/internal/usecase"
)

// A struct to define the expected JSON request body for creating a code.
type codeCreateRequest struct {
	Kind         string `json:"kind"` // "voucher" | "promo"
	PlanName     string `json:"plan_name"`
	DurationDays int    `json:"duration_days"`
	Quota        int    `json:"quota"` // promo only
}

type codeResponse struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Kind         string     `json:"kind"`
	PlanName     string     `json:"plan_name"`
	DurationDays int        `json:"duration_days"`
	IsUsed       bool       `json:"is_used,omitempty"`
	UsedBy       *string    `json:"used_by,omitempty"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	Quota        int        `json:"quota,omitempty"`
	UsedCount    int        `json:"used_count,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toCodeResponse(c *model.RedemptionCode) codeResponse {
	return codeResponse{
		ID:           c.ID,
		Code:         c.Code,
		Kind:         string(c.Kind),
		PlanName:     c.PlanName,
		DurationDays: c.DurationDays,
		IsUsed:       c.IsUsed,
		UsedBy:       c.UsedByAccountID,
		UsedAt:       c.UsedAt,
		Quota:        c.Quota,
		UsedCount:    c.UsedCount,
		CreatedAt:    c.CreatedAt,
	}
}

// Handler for creating a new redemption code.
func codesCreateHandler(codeUC usecase.CodeUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req codeCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var code *model.RedemptionCode
		var err error
		switch req.Kind {
		case string(model.CodeKindVoucher):
			code, err = codeUC.CreateVoucher(ctx, req.PlanName, req.DurationDays)
		case string(model.CodeKindPromo):
			code, err = codeUC.CreatePromo(ctx, req.PlanName, req.DurationDays, req.Quota)
		default:
			http.Error(w, "kind must be 'voucher' or 'promo'", http.StatusBadRequest)
			return
		}
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to create code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(toCodeResponse(code))
	}
}

// codesListHandler returns a paginated list of codes.
// It accepts 'offset' and 'limit' query parameters.
func codesListHandler(codeUC usecase.CodeUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50 // Default page size
		}
		if offset < 0 {
			offset = 0
		}

		codes, err := codeUC.List(ctx, offset, limit)
		if err != nil {
			http.Error(w, "Failed to list codes", http.StatusInternalServerError)
			return
		}

		data := make([]codeResponse, 0, len(codes))
		for _, c := range codes {
			data = append(data, toCodeResponse(c))
		}

		response := struct {
			Data   []codeResponse `json:"data"`
			Limit  int            `json:"limit"`
			Offset int            `json:"offset"`
		}{
			Data:   data,
			Limit:  limit,
			Offset: offset,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

func codeGetHandler(codeUC usecase.CodeUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Extract code from URL path: /api/v1/codes/{code}
		code := strings.TrimPrefix(r.URL.Path, "/api/v1/codes/")
		code = strings.TrimSuffix(code, "/")
		if code == "" {
			http.Error(w, "Code is required", http.StatusBadRequest)
			return
		}

		c, err := codeUC.Get(ctx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(toCodeResponse(c))
	}
}

// expireHandler runs the expiry sweep on demand and reports how many rows
// were flipped. POST only; the sweep is idempotent but still a write.
func expireHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		n, err := subUC.ExpireDue(r.Context())
		if err != nil {
			http.Error(w, "Failed to expire subscriptions", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(struct {
			Expired int `json:"expired"`
		}{Expired: n})
	}
}

// statsHandler returns an http.HandlerFunc that serves marketplace statistics.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		accounts, subsByStatus, codesByKind, redemptions, err := statsUC.Totals(ctx)
		if err != nil {
			http.Error(w, "Failed to get totals", http.StatusInternalServerError)
			return
		}

		subs := make(map[string]int, len(subsByStatus))
		for k, v := range subsByStatus {
			subs[string(k)] = v
		}
		codes := make(map[string]int, len(codesByKind))
		for k, v := range codesByKind {
			codes[string(k)] = v
		}

		response := struct {
			TotalAccounts        int            `json:"total_accounts"`
			SubscriptionByStatus map[string]int `json:"subscriptions_by_status"`
			CodesByKind          map[string]int `json:"codes_by_kind"`
			TotalRedemptions     int            `json:"total_redemptions"`
		}{
			TotalAccounts:        accounts,
			SubscriptionByStatus: subs,
			CodesByKind:          codes,
			TotalRedemptions:     redemptions,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
