package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/wordmarket/internal/domain"
	"github.com/alanyoungcy/wordmarket/internal/ledger"
)

// StatusService defines the methods the status handler requires from the
// service layer.
type StatusService interface {
	CheckInvariants(ctx context.Context) ([]ledger.MarketReport, error)
	ListAudit(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// StatusHandler serves operational endpoints: mode, invariant reports, the
// audit trail, and the archive listing.
type StatusHandler struct {
	Mode     string
	status   StatusService
	archives domain.BlobReader
	logger   *slog.Logger
}

// NewStatusHandler creates a StatusHandler. archives may be nil when blob
// storage is not configured; the archives endpoint then reports 503.
func NewStatusHandler(mode string, status StatusService, archives domain.BlobReader, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		Mode:     mode,
		status:   status,
		archives: archives,
		logger:   logger,
	}
}

// GetStatus responds with the current backend mode.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode": h.Mode,
	})
}

// CheckInvariants runs the full invariant sweep and reports per-market
// results. A violation returns 409 alongside the reports so operators see
// exactly which market and which invariant failed.
// GET /api/invariants
func (h *StatusHandler) CheckInvariants(w http.ResponseWriter, r *http.Request) {
	reports, err := h.status.CheckInvariants(r.Context())
	if err != nil && !errors.Is(err, ledger.ErrInvariantViolated) {
		h.logger.ErrorContext(r.Context(), "handler: invariant check failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "invariant check failed")
		return
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{
		"ok":      err == nil,
		"reports": reports,
	})
}

// ListAudit returns audit entries with pagination and time filtering.
// GET /api/audit
func (h *StatusHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	entries, err := h.status.ListAudit(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}

// ListArchives enumerates archived journal exports and checkpoints.
// GET /api/archives?prefix=archive/
func (h *StatusHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.archives == nil {
		writeError(w, http.StatusServiceUnavailable, "blob storage not configured")
		return
	}

	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "archive/"
	}

	infos, err := h.archives.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archives failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prefix":  prefix,
		"objects": infos,
	})
}
