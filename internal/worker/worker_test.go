package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"billbook/internal/amqp"
	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/sheets"
	"billbook/internal/sheets/memory"
)

func sampleBill(id int64, qty int64) core.Bill {
	return core.Bill{
		ID:           id,
		Date:         core.NewDate(2024, 5, 1),
		CustomerName: "Latha",
		Product:      "Adhurusam",
		Quantity:     qty,
		BasePrice:    15,
		TotalPrice:   core.TotalPrice(qty, 15),
	}
}

type failingMirror struct {
	*memory.Mirror
	err error
}

func (f failingMirror) Upsert(context.Context, core.Bill) error { return f.err }
func (f failingMirror) Remove(context.Context, int64) error     { return f.err }

func TestMirrorWorkerDispatch(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	w := NewMirrorWorker(mirror)

	created := sampleBill(1, 2)
	updated := sampleBill(1, 5)
	other := sampleBill(2, 1)

	steps := []struct {
		name    string
		event   *amqp.BillEvent
		wantIDs []int64
		wantQty int64
	}{
		{"created", amqp.NewBillEvent(amqp.EventCreated, 1, &created), []int64{1}, 2},
		{"second created", amqp.NewBillEvent(amqp.EventCreated, 2, &other), []int64{1, 2}, 2},
		{"updated", amqp.NewBillEvent(amqp.EventUpdated, 1, &updated), []int64{1, 2}, 5},
		{"deleted", amqp.NewBillEvent(amqp.EventDeleted, 2, nil), []int64{1}, 5},
		{"deleted again", amqp.NewBillEvent(amqp.EventDeleted, 2, nil), []int64{1}, 5},
	}
	for _, step := range steps {
		if err := w.Handle(ctx, step.event); err != nil {
			t.Fatalf("%s: Handle: %v", step.name, err)
		}
		got := mirror.Bills()
		if len(got) != len(step.wantIDs) {
			t.Fatalf("%s: mirror has %d bills, want %d", step.name, len(got), len(step.wantIDs))
		}
		for i, id := range step.wantIDs {
			if got[i].ID != id {
				t.Errorf("%s: bill %d has id %d, want %d", step.name, i, got[i].ID, id)
			}
		}
		if got[0].Quantity != step.wantQty {
			t.Errorf("%s: quantity = %d, want %d", step.name, got[0].Quantity, step.wantQty)
		}
	}

	if s := w.Stats(); s.Applied != 5 || s.Failed != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestMirrorWorkerUsesEventID(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(mirror)
	b := sampleBill(0, 1)

	if err := w.Handle(context.Background(), amqp.NewBillEvent(amqp.EventCreated, 7, &b)); err != nil {
		t.Fatal(err)
	}
	if got := mirror.Bills(); len(got) != 1 || got[0].ID != 7 {
		t.Errorf("unexpected mirror %+v", got)
	}
}

func TestMirrorWorkerInvalidEventIsDropped(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(mirror)

	events := []*amqp.BillEvent{
		{Type: "bill.archived", ID: 1},
		{Type: amqp.EventCreated, ID: 1},
		{Type: amqp.EventDeleted, ID: 0},
	}
	for _, ev := range events {
		if err := w.Handle(context.Background(), ev); err != nil {
			t.Errorf("invalid event %+v should be dropped, got %v", ev, err)
		}
	}
	if s := w.Stats(); s.Applied != 0 || s.Failed != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestMirrorWorkerFailureRequeues(t *testing.T) {
	boom := errors.New("quota exceeded")
	w := NewMirrorWorker(failingMirror{Mirror: memory.New(), err: boom})
	b := sampleBill(3, 1)

	err := w.Handle(context.Background(), amqp.NewBillEvent(amqp.EventUpdated, 3, &b))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped mirror error, got %v", err)
	}
	err = w.Handle(context.Background(), amqp.NewBillEvent(amqp.EventDeleted, 3, nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped mirror error, got %v", err)
	}
	if s := w.Stats(); s.Failed != 2 {
		t.Errorf("Failed = %d, want 2", s.Failed)
	}
}

type fakeSource struct {
	mu    sync.Mutex
	bills []core.Bill
	err   error
	calls int
}

func (f *fakeSource) List(context.Context) ([]core.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.bills, f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestReconcilerRunOnce(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	_ = mirror.Upsert(ctx, sampleBill(9, 1))
	src := &fakeSource{bills: []core.Bill{sampleBill(2, 1), sampleBill(1, 3)}}
	r := NewReconciler(src, mirror, ReconcilerConfig{})

	if r.config.Interval != DefaultReconcilerConfig().Interval {
		t.Errorf("zero interval should fall back to default, got %v", r.config.Interval)
	}

	rewrote, err := r.RunOnce(ctx)
	if err != nil || !rewrote {
		t.Fatalf("first RunOnce = %v, %v; want rewrite", rewrote, err)
	}
	got := mirror.Bills()
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("unexpected mirror %+v", got)
	}
	if src.bills[0].ID != 2 {
		t.Error("source slice was reordered")
	}

	rewrote, err = r.RunOnce(ctx)
	if err != nil || rewrote {
		t.Errorf("second RunOnce = %v, %v; want no rewrite", rewrote, err)
	}
}

// rowMirror stores bills as sheet cells, like the Google mirror does.
type rowMirror struct {
	rows     [][]interface{}
	rewrites int
}

func (m *rowMirror) EnsureHeader(context.Context) error     { return nil }
func (m *rowMirror) Upsert(context.Context, core.Bill) error { return nil }
func (m *rowMirror) Remove(context.Context, int64) error     { return nil }
func (m *rowMirror) ReplaceAll(_ context.Context, bills []core.Bill) error {
	m.rewrites++
	m.rows = m.rows[:0]
	for _, b := range bills {
		m.rows = append(m.rows, sheets.Row(b))
	}
	return nil
}

func (m *rowMirror) List(context.Context) ([]core.Bill, error) {
	var out []core.Bill
	for _, row := range m.rows {
		b, err := sheets.ParseRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func TestReconcilerStableThroughSheetRows(t *testing.T) {
	legacy := sampleBill(3, 1)
	legacy.BasePrice, legacy.TotalPrice = 0.125, 0.125
	cents := sampleBill(4, 7)
	cents.BasePrice, cents.TotalPrice = 0.07, core.TotalPrice(7, 0.07)

	mirror := &rowMirror{}
	r := NewReconciler(&fakeSource{bills: []core.Bill{legacy, cents}}, mirror, DefaultReconcilerConfig())

	for i := 0; i < 3; i++ {
		if _, err := r.RunOnce(context.Background()); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}
	if mirror.rewrites != 1 {
		t.Fatalf("mirror rewritten %d times, want once", mirror.rewrites)
	}
}

func TestReconcilerLogsAsWorker(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(log.Config{Level: slog.LevelDebug, Format: "json", Output: &buf})
	ctx := log.NewContext(context.Background(), l)

	r := NewReconciler(&fakeSource{bills: []core.Bill{sampleBill(1, 1)}}, memory.New(), DefaultReconcilerConfig())
	if _, err := r.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}

	var line map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			t.Fatalf("log line is not JSON: %q", raw)
		}
		if m["msg"] == "Mirror reconciled" {
			line = m
		}
	}
	if line[log.FieldComponent] != log.ComponentWorker || line[log.FieldOperation] != log.OpReconcile {
		t.Fatalf("unexpected reconcile log %v", line)
	}
}

func TestReconcilerSourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("api down")}
	mirror := memory.New()
	_ = mirror.Upsert(context.Background(), sampleBill(1, 1))
	r := NewReconciler(src, mirror, DefaultReconcilerConfig())

	if _, err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(mirror.Bills()) != 1 {
		t.Error("mirror must be left alone when the source fails")
	}
}

func TestReconcilerLifecycle(t *testing.T) {
	src := &fakeSource{bills: []core.Bill{sampleBill(1, 1)}}
	r := NewReconciler(src, memory.New(), ReconcilerConfig{Interval: 10 * time.Millisecond})

	if r.IsRunning() {
		t.Fatal("reconciler should not be running initially")
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("expected error when starting a running reconciler")
	}

	deadline := time.Now().Add(time.Second)
	for src.Calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if src.Calls() < 2 {
		t.Errorf("expected repeated reconciles, got %d", src.Calls())
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r.IsRunning() {
		t.Error("reconciler still running after Stop")
	}
}
