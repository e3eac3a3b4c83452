package ratelimit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/user/nutricare/internal/domain/mocks"
)

func newTestLimiter() (*Limiter, *mocks.MemoryKV) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := mocks.NewMemoryKV()
	return New(kv, logger, nil), kv
}

func TestCheckFixedWindow(t *testing.T) {
	l, kv := newTestLimiter()
	ctx := context.Background()

	now := time.Now()
	kv.Now = func() time.Time { return now }

	// Five rapid calls succeed with decreasing remaining.
	for i := int64(1); i <= 5; i++ {
		d, err := l.Check(ctx, "login:alice", 5, time.Minute)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("call %d should be allowed", i)
		}
		if d.Remaining != 5-i {
			t.Errorf("call %d remaining = %d, want %d", i, d.Remaining, 5-i)
		}
	}

	// The sixth call in the same window is denied.
	d, err := l.Check(ctx, "login:alice", 5, time.Minute)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Allowed {
		t.Error("sixth call in the window should be denied")
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", d.Remaining)
	}

	// After the window elapses, calls succeed again.
	now = now.Add(61 * time.Second)
	d, err = l.Check(ctx, "login:alice", 5, time.Minute)
	if err != nil {
		t.Fatalf("check after window: %v", err)
	}
	if !d.Allowed {
		t.Error("call after window reset should be allowed")
	}
	if d.Remaining != 4 {
		t.Errorf("remaining = %d, want 4", d.Remaining)
	}
}

func TestCheckIdentifiersIndependent(t *testing.T) {
	l, _ := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Check(ctx, "login:alice", 3, time.Minute); err != nil {
			t.Fatalf("check: %v", err)
		}
	}

	d, err := l.Check(ctx, "login:bob", 3, time.Minute)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !d.Allowed || d.Remaining != 2 {
		t.Errorf("bob's window should be fresh, got %+v", d)
	}
}

func TestCheckFailsOpenOnStoreOutage(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	kv := mocks.NewMemoryKV()
	l := New(kv, logger, nil)
	ctx := context.Background()

	kv.Err = errors.New("connection refused")

	d, err := l.Check(ctx, "login:alice", 5, time.Minute)
	if err != nil {
		t.Fatalf("fail-open must not surface the store error, got %v", err)
	}
	if !d.Allowed {
		t.Error("limiter must fail open during a backing-store outage")
	}
	if !strings.Contains(logs.String(), "failing open") {
		t.Error("outage must be logged as a security-relevant event")
	}
}

func TestCheckValidation(t *testing.T) {
	l, _ := newTestLimiter()
	ctx := context.Background()

	if _, err := l.Check(ctx, "", 5, time.Minute); err == nil {
		t.Error("empty identifier must be rejected")
	}
	if _, err := l.Check(ctx, "x", 0, time.Minute); err == nil {
		t.Error("non-positive limit must be rejected")
	}
	if _, err := l.Check(ctx, "x", 5, 0); err == nil {
		t.Error("non-positive window must be rejected")
	}
}
