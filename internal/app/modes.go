package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/wordmarket/internal/pipeline"
	"github.com/alanyoungcy/wordmarket/internal/server"
	"github.com/alanyoungcy/wordmarket/internal/server/handler"
	"github.com/alanyoungcy/wordmarket/internal/server/ws"
)

// invariantSweepInterval is how often serve mode re-checks conservation and
// supply invariants across all markets in the background.
const invariantSweepInterval = 10 * time.Minute

// ServeMode hydrates the ledger and runs the HTTP + WebSocket API, the
// background invariant sweep, and (when enabled) the periodic archiver.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	svc := a.buildLedgerService(deps)
	if err := a.hydrate(ctx, svc); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if !a.cfg.Server.Enabled {
		a.logger.WarnContext(ctx, "server.enabled is false, but serve mode always runs the HTTP server")
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
		},
		server.Handlers{
			Health:      handler.NewHealthHandler(a.logger),
			Escrows:     handler.NewEscrowHandler(svc, a.logger),
			Markets:     handler.NewMarketHandler(svc, a.logger),
			Settlements: handler.NewSettlementHandler(svc, a.logger),
			Claims:      handler.NewClaimHandler(svc, a.logger),
			Status:      handler.NewStatusHandler(a.cfg.Mode, svc, deps.BlobReader, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	// Background invariant sweep. A violation here means persisted and
	// in-memory state diverged; it is logged and audited, not fatal.
	g.Go(func() error {
		ticker := time.NewTicker(invariantSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := svc.CheckInvariants(ctx); err != nil {
					a.logger.ErrorContext(ctx, "invariant sweep failed",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	})

	// In-process archival when enabled alongside serving.
	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		arch := pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
		g.Go(func() error {
			if cron := a.cfg.Archive.Cron; cron != "" {
				return arch.RunCron(ctx, cron)
			}
			return arch.RunLoop(ctx, a.cfg.Archive.Interval.Duration)
		})
	}

	return g.Wait()
}

// AuditMode hydrates the ledger from the stores, runs a full invariant check,
// reports per-market results, and exits. A violation is a non-zero exit.
func (a *App) AuditMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting audit mode")

	svc := a.buildLedgerService(deps)
	if err := a.hydrate(ctx, svc); err != nil {
		return err
	}

	reports, err := svc.CheckInvariants(ctx)
	for _, rep := range reports {
		if len(rep.Violations) > 0 {
			a.logger.ErrorContext(ctx, "market invariants violated",
				slog.String("market", rep.Market.Hex()),
				slog.String("label", rep.Label),
				slog.String("status", rep.Status),
				slog.Any("violations", rep.Violations),
			)
		} else {
			a.logger.InfoContext(ctx, "market invariants hold",
				slog.String("market", rep.Market.Hex()),
				slog.String("label", rep.Label),
				slog.Uint64("total_collateral", rep.TotalCollateral),
			)
		}
	}
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "audit complete",
		slog.Int("markets_checked", len(reports)),
	)
	return nil
}

// ArchiveMode hydrates the ledger and exports aged journal rows plus a binary
// checkpoint to object storage. Without a cron schedule it runs once and
// exits; with one it keeps running on the schedule.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	svc := a.buildLedgerService(deps)
	if err := a.hydrate(ctx, svc); err != nil {
		return err
	}

	arch := pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
	if cron := a.cfg.Archive.Cron; cron != "" {
		return arch.RunCron(ctx, cron)
	}
	return arch.Run(ctx)
}
