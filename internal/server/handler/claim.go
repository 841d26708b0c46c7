package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/wordmarket/internal/domain"
	"github.com/alanyoungcy/wordmarket/internal/ledger"
)

// ClaimService defines the methods the claim handler requires from the
// service layer.
type ClaimService interface {
	Claim(ctx context.Context, caller, market domain.ID) (domain.Claim, ledger.Payout, error)
	ListClaims(ctx context.Context, market domain.ID, opts domain.ListOpts) ([]domain.Claim, error)
}

// ClaimHandler serves claim HTTP endpoints.
type ClaimHandler struct {
	claims ClaimService
	logger *slog.Logger
}

// NewClaimHandler creates a ClaimHandler with the given service and logger.
func NewClaimHandler(claims ClaimService, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{
		claims: claims,
		logger: logger,
	}
}

type claimRequest struct {
	Caller domain.ID `json:"caller"`
}

type claimResponse struct {
	Claim  domain.Claim `json:"claim"`
	Payout payoutBody   `json:"payout"`
}

// Claim redeems the caller's entire winning position on a resolved market.
// POST /api/markets/{id}/claims
func (h *ClaimHandler) Claim(w http.ResponseWriter, r *http.Request) {
	market, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claim, payout, err := h.claims.Claim(r.Context(), req.Caller, market)
	if err != nil {
		if statusFor(err) >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: claim failed",
				slog.String("market", market.Hex()),
				slog.String("caller", req.Caller.Hex()),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, claimResponse{
		Claim:  claim,
		Payout: payoutBody{To: payout.To, Amount: payout.Amount},
	})
}

// ListClaims returns a market's claim journal, newest first.
// GET /api/markets/{id}/claims
func (h *ClaimHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	market, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	opts := parseListOpts(r)

	claims, err := h.claims.ListClaims(r.Context(), market, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list claims failed",
			slog.String("market", market.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list claims")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"claims": claims,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
