package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"billing/internal/amqp"
	"billing/internal/core"
	"billing/internal/store"
)

// Publisher announces billing changes to the sync worker.
type Publisher interface {
	PublishBillingSync(ctx context.Context, id string, op amqp.Op) error
}

// BillingService writes to the store and then announces each change.
// Publishing failures are logged and never fail the write.
type BillingService struct {
	store     store.BillingStore
	publisher Publisher
}

var _ store.BillingStore = (*BillingService)(nil)

// NewBillingService wraps s. publisher may be nil.
func NewBillingService(s store.BillingStore, publisher Publisher) *BillingService {
	return &BillingService{store: s, publisher: publisher}
}

func (s *BillingService) List(ctx context.Context, f store.Filter) ([]core.BillingEntry, error) {
	return s.store.List(ctx, f)
}

func (s *BillingService) Get(ctx context.Context, id string) (core.BillingEntry, error) {
	return s.store.Get(ctx, id)
}

func (s *BillingService) Insert(ctx context.Context, e store.NewEntry) (core.BillingEntry, error) {
	created, err := s.store.Insert(ctx, e)
	if err != nil {
		return core.BillingEntry{}, err
	}
	s.publish(ctx, created.ID, amqp.OpUpsert)
	return created, nil
}

func (s *BillingService) Update(ctx context.Context, id string, f core.EntryFields) (core.BillingEntry, error) {
	updated, err := s.store.Update(ctx, id, f)
	if err != nil {
		return core.BillingEntry{}, err
	}
	s.publish(ctx, id, amqp.OpUpsert)
	return updated, nil
}

func (s *BillingService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, amqp.OpDelete)
	return nil
}

// Ping reports the health of the underlying store.
func (s *BillingService) Ping(ctx context.Context) error {
	if p, ok := s.store.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *BillingService) publish(ctx context.Context, id string, op amqp.Op) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping sync message", "entry_id", id, "op", op)
		return
	}
	if err := s.publisher.PublishBillingSync(ctx, id, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "entry_id", id, "op", op, "error", err)
	}
}

// Close closes the store and the publisher when they hold resources.
func (s *BillingService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close billing service: %w", errors.Join(errs...))
	}
	return nil
}
