package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"billing/internal/amqp"
	"billing/internal/core"
	"billing/internal/sheets"
	"billing/internal/store"
)

// SyncLedger tracks which entries still need mirroring.
type SyncLedger interface {
	ListPendingSync(ctx context.Context, limit int) ([]string, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// Consumer delivers billing change messages.
type Consumer interface {
	ConsumeBillingSync(ctx context.Context, handler func(context.Context, *amqp.BillingSyncMessage) error) error
}

// SyncWorker mirrors billing entries into a spreadsheet.
type SyncWorker struct {
	entries   store.BillingReader
	ledger    SyncLedger
	mirror    sheets.Mirror
	batchSize int
}

// NewSyncWorker builds a worker. ledger may be nil when the store does
// not track sync state; reconciliation is then a no-op.
func NewSyncWorker(entries store.BillingReader, ledger SyncLedger, mirror sheets.Mirror, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		entries:   entries,
		ledger:    ledger,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleMessage applies one change message to the mirror.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.BillingSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "entry_id", msg.ID, "op", msg.Op)

	switch msg.Op {
	case amqp.OpDelete:
		if err := w.mirror.DeleteEntry(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete entry from sheet: %w", err)
		}
		slog.InfoContext(ctx, "Deleted entry from sheet", "entry_id", msg.ID)
		return nil
	case amqp.OpUpsert:
		e, err := w.entries.Get(ctx, msg.ID)
		if errors.Is(err, store.ErrNotFound) {
			// Deleted after the message was sent; its delete message follows.
			slog.WarnContext(ctx, "Entry no longer exists, skipping upsert", "entry_id", msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get entry from store: %w", err)
		}
		return w.syncEntry(ctx, e)
	default:
		return fmt.Errorf("unknown op %q", msg.Op)
	}
}

// ReconcilePending mirrors entries whose change message may have been lost.
func (w *SyncWorker) ReconcilePending(ctx context.Context) error {
	if w.ledger == nil {
		return nil
	}

	ids, err := w.ledger.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(ids))

	synced, failed := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e, err := w.entries.Get(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get entry", "entry_id", id, "error", err)
			w.markError(ctx, id)
			failed++
			continue
		}
		if err := w.syncEntry(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to sync entry", "entry_id", id, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Reconciliation completed", "total", len(ids), "synced", synced, "errors", failed)
	return nil
}

// Run consumes change messages and reconciles on schedule until ctx is
// done. consumer may be nil, leaving only the scheduled reconciliation.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, schedule string) error {
	if err := w.ReconcilePending(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup reconciliation failed", "error", err)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() {
		if err := w.ReconcilePending(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled reconciliation failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reconciliation %q: %w", schedule, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.Start()
		slog.InfoContext(ctx, "Reconciliation scheduled", "schedule", schedule)
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	})

	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumeBillingSync(ctx, w.HandleMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

func (w *SyncWorker) syncEntry(ctx context.Context, e core.BillingEntry) error {
	ref, err := w.mirror.UpsertEntry(ctx, e)
	if err != nil {
		w.markError(ctx, e.ID)
		return fmt.Errorf("upsert entry to sheet: %w", err)
	}

	if w.ledger != nil {
		if err := w.ledger.MarkSynced(ctx, e.ID); err != nil {
			// The sheet is already up to date.
			slog.ErrorContext(ctx, "Failed to mark as synced", "entry_id", e.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Synced entry",
		"entry_id", e.ID,
		"sheets_ref", ref,
		"clinic", e.Clinic,
		"gross", e.GrossBilling.String())
	return nil
}

func (w *SyncWorker) markError(ctx context.Context, id string) {
	if w.ledger == nil {
		return
	}
	if err := w.ledger.MarkSyncError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error", "entry_id", id, "error", err)
	}
}
