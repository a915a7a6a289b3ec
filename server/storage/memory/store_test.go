package memory

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/cyp0633/librecur/server/storage"
	"github.com/cyp0633/librecur/server/storage/storagetest"
)

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return New()
	})
}

func TestStore_Clock(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := New(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	sched := &storage.Schedule{Title: "Test", StartAt: fixed}
	if err := store.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("unexpected error creating schedule: %v", err)
	}
	if !sched.Created.Equal(fixed) || !sched.Modified.Equal(fixed) {
		t.Errorf("got created %v modified %v, want %v", sched.Created, sched.Modified, fixed)
	}
}

func TestStore_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := New(WithLogger(logger))
	ctx := context.Background()

	sched := &storage.Schedule{ID: "dup", Title: "Test", StartAt: time.Now()}
	if err := store.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("unexpected error creating schedule: %v", err)
	}
	if err := store.CreateSchedule(ctx, sched); err == nil {
		t.Error("expected error creating duplicate schedule")
	} else if err.(*storage.Error).Type != storage.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	if !bytes.Contains(buf.Bytes(), []byte("already exists")) {
		t.Errorf("expected duplicate warning in log, got %q", buf.String())
	}
}
