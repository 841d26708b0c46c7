package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/wordmarket/internal/domain"
	"github.com/alanyoungcy/wordmarket/internal/ledger"
)

// EscrowService defines the methods the escrow handler requires from the
// service layer.
type EscrowService interface {
	Deposit(ctx context.Context, owner domain.ID, amount uint64) (domain.UserEscrow, error)
	Withdraw(ctx context.Context, caller domain.ID, amount uint64) (domain.UserEscrow, ledger.Payout, error)
	LockFunds(ctx context.Context, owner domain.ID, amount uint64) (domain.UserEscrow, error)
	UnlockFunds(ctx context.Context, owner domain.ID, amount uint64) (domain.UserEscrow, error)
	GetEscrow(ctx context.Context, owner domain.ID) (domain.UserEscrow, error)
	ListHoldings(ctx context.Context, owner domain.ID) ([]domain.Holding, error)
}

// EscrowHandler serves escrow-related HTTP endpoints.
type EscrowHandler struct {
	escrows EscrowService
	logger  *slog.Logger
}

// NewEscrowHandler creates an EscrowHandler with the given service and logger.
func NewEscrowHandler(escrows EscrowService, logger *slog.Logger) *EscrowHandler {
	return &EscrowHandler{
		escrows: escrows,
		logger:  logger,
	}
}

// escrowMoveRequest is the shared request body for the four balance moves.
type escrowMoveRequest struct {
	Owner  domain.ID `json:"owner"`
	Amount uint64    `json:"amount"`
}

// withdrawResponse pairs the updated escrow with the outbound payout.
type withdrawResponse struct {
	Escrow domain.UserEscrow `json:"escrow"`
	Payout payoutBody        `json:"payout"`
}

type payoutBody struct {
	To     domain.ID `json:"to"`
	Amount uint64    `json:"amount"`
}

// Deposit credits an owner's escrow balance.
// POST /api/escrow/deposit
func (h *EscrowHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req escrowMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	esc, err := h.escrows.Deposit(r.Context(), req.Owner, req.Amount)
	if err != nil {
		h.fail(r, "deposit", req.Owner, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, esc)
}

// Withdraw debits an owner's unlocked balance and reports the payout.
// POST /api/escrow/withdraw
func (h *EscrowHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req escrowMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	esc, payout, err := h.escrows.Withdraw(r.Context(), req.Owner, req.Amount)
	if err != nil {
		h.fail(r, "withdraw", req.Owner, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResponse{
		Escrow: esc,
		Payout: payoutBody{To: payout.To, Amount: payout.Amount},
	})
}

// Lock commits unlocked balance to open orders.
// POST /api/escrow/lock
func (h *EscrowHandler) Lock(w http.ResponseWriter, r *http.Request) {
	var req escrowMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	esc, err := h.escrows.LockFunds(r.Context(), req.Owner, req.Amount)
	if err != nil {
		h.fail(r, "lock", req.Owner, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, esc)
}

// Unlock releases locked balance back to the withdrawable pool.
// POST /api/escrow/unlock
func (h *EscrowHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req escrowMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	esc, err := h.escrows.UnlockFunds(r.Context(), req.Owner, req.Amount)
	if err != nil {
		h.fail(r, "unlock", req.Owner, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, esc)
}

// GetEscrow returns an owner's escrow record.
// GET /api/escrow/{owner}
func (h *EscrowHandler) GetEscrow(w http.ResponseWriter, r *http.Request) {
	owner, err := pathID(r, "owner")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner id")
		return
	}

	esc, err := h.escrows.GetEscrow(r.Context(), owner)
	if err != nil {
		h.fail(r, "get", owner, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, esc)
}

// ListHoldings returns an owner's share positions.
// GET /api/escrow/{owner}/holdings
func (h *EscrowHandler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	owner, err := pathID(r, "owner")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner id")
		return
	}

	holdings, err := h.escrows.ListHoldings(r.Context(), owner)
	if err != nil {
		h.fail(r, "holdings", owner, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"holdings": holdings})
}

func (h *EscrowHandler) fail(r *http.Request, op string, owner domain.ID, err error) {
	if statusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "handler: escrow "+op+" failed",
			slog.String("owner", owner.Hex()),
			slog.String("error", err.Error()),
		)
	}
}
