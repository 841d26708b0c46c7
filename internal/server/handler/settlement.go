package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// SettlementService defines the methods the settlement handler requires from
// the service layer.
type SettlementService interface {
	Settle(ctx context.Context, market, yesBuyer, noBuyer domain.ID, price, quantity uint64) (domain.Settlement, error)
	ListSettlements(ctx context.Context, market domain.ID, opts domain.ListOpts) ([]domain.Settlement, error)
}

// SettlementHandler serves settlement HTTP endpoints.
type SettlementHandler struct {
	settlements SettlementService
	logger      *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler with the given service and
// logger.
func NewSettlementHandler(settlements SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlements: settlements,
		logger:      logger,
	}
}

type settleRequest struct {
	Market   domain.ID `json:"market"`
	YesBuyer domain.ID `json:"yes_buyer"`
	NoBuyer  domain.ID `json:"no_buyer"`
	Price    uint64    `json:"price"`
	Quantity uint64    `json:"quantity"`
}

// Settle applies one matched pair against a market.
// POST /api/settlements
func (h *SettlementHandler) Settle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.settlements.Settle(r.Context(), req.Market, req.YesBuyer, req.NoBuyer, req.Price, req.Quantity)
	if err != nil {
		if statusFor(err) >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: settle failed",
				slog.String("market", req.Market.Hex()),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// ListSettlements returns a market's settlement journal, newest first.
// GET /api/markets/{id}/settlements
func (h *SettlementHandler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	market, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	opts := parseListOpts(r)

	settlements, err := h.settlements.ListSettlements(r.Context(), market, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list settlements failed",
			slog.String("market", market.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list settlements")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"settlements": settlements,
		"limit":       opts.Limit,
		"offset":      opts.Offset,
	})
}
