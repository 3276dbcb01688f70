package services

import (
	"context"
	"errors"
	"fmt"

	"billbook/internal/amqp"
	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/storage"
)

// EventPublisher announces committed bill mutations.
type EventPublisher interface {
	PublishBillEvent(ctx context.Context, event *amqp.BillEvent) error
	Close() error
}

// BillService validates bills, keeps total_price derived, persists through
// the store and then announces the change.
type BillService struct {
	store     storage.BillStore
	publisher EventPublisher
}

// NewBillService wires a store with an optional publisher; pass nil to run
// without bill events.
func NewBillService(store storage.BillStore, publisher EventPublisher) *BillService {
	return &BillService{
		store:     store,
		publisher: publisher,
	}
}

// List returns every bill in store order.
func (s *BillService) List(ctx context.Context) ([]core.Bill, error) {
	bills, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// Create stores a new bill and returns its id. Any client supplied
// total_price is replaced by quantity * base_price.
func (s *BillService) Create(ctx context.Context, in core.BillInput) (int64, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.Insert(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("save bill: %w", err)
	}

	bill := in.WithID(id)
	s.publish(ctx, amqp.EventCreated, id, &bill)
	return id, nil
}

// Update replaces every field of bill id. It returns storage.ErrNotFound when
// the id does not exist.
func (s *BillService) Update(ctx context.Context, id int64, in core.BillInput) error {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	if err := s.store.Replace(ctx, id, in); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update bill %d: %w", id, err)
	}

	bill := in.WithID(id)
	s.publish(ctx, amqp.EventUpdated, id, &bill)
	return nil
}

// Remove deletes bill id. Removing an unknown id succeeds.
func (s *BillService) Remove(ctx context.Context, id int64) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete bill %d: %w", id, err)
	}

	s.publish(ctx, amqp.EventDeleted, id, nil)
	return nil
}

// Ping reports whether the store is reachable.
func (s *BillService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish never fails the caller: the mutation is already durable.
func (s *BillService) publish(ctx context.Context, t amqp.EventType, id int64, bill *core.Bill) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentAMQP)
	fields := log.NewFields().WithOperation(log.OpPublish).WithBillID(id)
	fields[log.FieldEventType] = string(t)

	if s.publisher == nil {
		logger.DebugContext(ctx, "AMQP publisher not configured, skipping bill event", fields.ToSlice()...)
		return
	}
	if err := s.publisher.PublishBillEvent(ctx, amqp.NewBillEvent(t, id, bill)); err != nil {
		logger.ErrorContext(ctx, "Failed to publish bill event", fields.WithError(err, log.ErrorTypeNetwork).ToSlice()...)
	}
}

// Close closes both storage and AMQP connections
func (s *BillService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close bill service: %w", errors.Join(errs...))
	}

	return nil
}
