package notification

import (
	"context"
	"log/slog"
	"time"
)

// Guard keeps one notification per (PR, type). The legacy stores are read
// first; the canonical insert is atomic, so concurrent callers cannot both
// create a record.
type Guard struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewGuard(store Store, logger *slog.Logger) *Guard {
	return &Guard{store: store, logger: logger, now: time.Now}
}

// Reserve returns the id of the record to send under and whether it already
// existed. A record whose earlier send failed is handed out again so the
// notification can be retried.
func (g *Guard) Reserve(ctx context.Context, log *Log) (string, bool, error) {
	since := g.now().Add(-recentWindow)
	id, found, err := g.store.FindLegacy(ctx, log.PRID, log.Type, since)
	if err != nil {
		// the canonical insert below still protects against duplicates
		g.logger.Warn("legacy notification lookup failed", "pr_id", log.PRID, "type", log.Type, "error", err)
	} else if found {
		return id, true, nil
	}

	id, created, err := g.store.CreateIfAbsent(ctx, log)
	if err != nil {
		return "", false, err
	}
	if created {
		return id, false, nil
	}

	reclaimed, err := g.store.Reclaim(ctx, id)
	if err != nil {
		return "", false, err
	}
	if !reclaimed {
		return id, true, nil
	}
	g.logger.Info("retrying failed notification", "notification_id", id, "pr_id", log.PRID, "type", log.Type)
	log.ID = id
	return id, false, nil
}

// MarkSent records delivery and mirrors the record into the per-PR read
// model. Failed sends are never mirrored, so they do not block a retry.
func (g *Guard) MarkSent(ctx context.Context, log *Log) error {
	if err := g.store.MarkSent(ctx, log.ID, g.now()); err != nil {
		return err
	}
	if err := g.store.Mirror(ctx, log); err != nil {
		g.logger.Warn("failed to mirror notification into read model", "notification_id", log.ID, "error", err)
	}
	return nil
}

func (g *Guard) MarkFailed(ctx context.Context, id, reason string) error {
	return g.store.MarkFailed(ctx, id, reason)
}
