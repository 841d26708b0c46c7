package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// MarketService defines the methods the market handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type MarketService interface {
	CreateMarket(ctx context.Context, authority domain.ID, marketID uint64, wordIndex uint16, label string) (domain.Market, error)
	PauseMarket(ctx context.Context, caller, market domain.ID) (domain.Market, error)
	ResumeMarket(ctx context.Context, caller, market domain.ID) (domain.Market, error)
	ResolveMarket(ctx context.Context, caller, market domain.ID, outcome domain.Outcome) (domain.Market, error)
	GetMarket(ctx context.Context, addr domain.ID) (domain.Market, error)
	ListMarkets(ctx context.Context) []domain.Market
}

// MarketHandler serves market lifecycle HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

type createMarketRequest struct {
	Authority domain.ID `json:"authority"`
	MarketID  uint64    `json:"market_id"`
	WordIndex uint16    `json:"word_index"`
	Label     string    `json:"label"`
}

type lifecycleRequest struct {
	Caller domain.ID `json:"caller"`
}

type resolveRequest struct {
	Caller  domain.ID `json:"caller"`
	Outcome string    `json:"outcome"`
}

// CreateMarket initializes a new market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.markets.CreateMarket(r.Context(), req.Authority, req.MarketID, req.WordIndex, req.Label)
	if err != nil {
		h.fail(r, "create", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ListMarkets returns every market.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := h.markets.ListMarkets(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"markets": markets,
		"total":   len(markets),
	})
}

// GetMarket returns a single market by its derived address.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	addr, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	m, err := h.markets.GetMarket(r.Context(), addr)
	if err != nil {
		h.fail(r, "get", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// PauseMarket transitions an active market to paused.
// POST /api/markets/{id}/pause
func (h *MarketHandler) PauseMarket(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.markets.PauseMarket)
}

// ResumeMarket transitions a paused market back to active where policy
// allows it.
// POST /api/markets/{id}/resume
func (h *MarketHandler) ResumeMarket(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.markets.ResumeMarket)
}

func (h *MarketHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.ID, domain.ID) (domain.Market, error)) {
	addr, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req lifecycleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := op(r.Context(), req.Caller, addr)
	if err != nil {
		h.fail(r, "transition", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ResolveMarket fixes a market's outcome and opens claims.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	addr, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}

	m, err := h.markets.ResolveMarket(r.Context(), req.Caller, addr, outcome)
	if err != nil {
		h.fail(r, "resolve", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MarketHandler) fail(r *http.Request, op string, err error) {
	if statusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "handler: market "+op+" failed",
			slog.String("error", err.Error()),
		)
	}
}
