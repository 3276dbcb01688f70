package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"billbook/internal/amqp"
	"billbook/internal/log"
	"billbook/internal/sheets"
)

// MirrorWorker applies bill events from the queue to a BillMirror.
type MirrorWorker struct {
	mirror sheets.BillMirror

	applied atomic.Int64
	failed  atomic.Int64
}

// Stats counts events handled since start.
type Stats struct {
	Applied int64
	Failed  int64
}

func NewMirrorWorker(mirror sheets.BillMirror) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// Handle matches the amqp consumer signature. A returned error makes the
// consumer requeue the message.
func (w *MirrorWorker) Handle(ctx context.Context, event *amqp.BillEvent) error {
	logger := log.FromContext(ctx).WithComponent(log.ComponentWorker)
	if err := event.Validate(); err != nil {
		// Nothing to retry: the event can never be applied.
		logger.WarnContext(ctx, "Dropping invalid bill event",
			log.NewFields().WithOperation(log.OpValidate).WithError(err, log.ErrorTypeValidation).ToSlice()...)
		return nil
	}

	fields := log.NewFields().WithOperation(log.OpMirror).WithBillID(event.ID)
	fields[log.FieldEventType] = string(event.Type)
	logger.InfoContext(ctx, "Processing bill event", fields.ToSlice()...)

	var err error
	switch event.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		bill := *event.Bill
		bill.ID = event.ID
		err = w.mirror.Upsert(ctx, bill)
	case amqp.EventDeleted:
		err = w.mirror.Remove(ctx, event.ID)
	}
	if err != nil {
		w.failed.Add(1)
		logger.ErrorContext(ctx, "Failed to apply bill event", fields.WithError(err, log.ErrorTypeNetwork).ToSlice()...)
		return fmt.Errorf("apply %s for bill %d: %w", event.Type, event.ID, err)
	}

	w.applied.Add(1)
	return nil
}

func (w *MirrorWorker) Stats() Stats {
	return Stats{Applied: w.applied.Load(), Failed: w.failed.Load()}
}
