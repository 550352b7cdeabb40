// workers/xp_resync_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"phunction/services"
	"phunction/store"
)

// XPResyncWorker periodically re-pushes each user's authoritative XP into
// every event-side attendee cache. Fan-out writes have no transaction around
// them, so a crash or network failure mid-fan-out leaves some events stale;
// this sweep is the repair path. Re-pushing an already-correct value is a
// no-op in effect, so overlapping or repeated sweeps are harmless.
type XPResyncWorker struct {
	store    *store.Store
	users    *services.UserService
	interval time.Duration
}

func NewXPResyncWorker(st *store.Store, users *services.UserService) *XPResyncWorker {
	return &XPResyncWorker{
		store:    st,
		users:    users,
		interval: 1 * time.Minute,
	}
}

func (w *XPResyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting XP Resync Worker (users → event attendee caches)…")
	go w.run(ctx)
}

func (w *XPResyncWorker) run(ctx context.Context) {
	// Initial sweep covers everyone, repairing whatever drifted while the
	// service was down.
	if err := w.sweep(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial XP resync sweep failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cursor := w.lastSweepCursor(ctx)
			if err := w.sweep(ctx, cursor); err != nil {
				log.Printf("❌ XP resync sweep failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ XP Resync Worker stopped")
			return
		}
	}
}

// lastSweepCursor bounds incremental sweeps to users written since the last
// interval. The window overlaps on purpose: resyncing a user twice is safe,
// missing one is not.
func (w *XPResyncWorker) lastSweepCursor(ctx context.Context) time.Time {
	last, err := w.store.LastUpdatedAt(ctx, "users")
	if err != nil || last.IsZero() {
		return time.Time{}
	}
	return last.Add(-2 * w.interval)
}

func (w *XPResyncWorker) sweep(ctx context.Context, since time.Time) error {
	users, err := w.store.UpdatedSince(ctx, "users", since)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	log.Printf("[RESYNC] 📡 Sweeping %d user(s) updated since %s", len(users), since.UTC().Format(time.RFC3339))

	synced := 0
	for _, doc := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.users.SyncUserXPAcrossEvents(ctx, doc.ID); err != nil {
			log.Printf("⚠️ Failed to resync xp for user %s: %v", doc.ID, err)
			continue
		}
		synced++
	}

	log.Printf("[RESYNC] ✅ Resynced %d/%d user(s)", synced, len(users))
	return nil
}
