package store

import (
	"testing"
	"time"
)

func TestWorktreeLock_LockUnlock(t *testing.T) {
	newTestRepoDir(t)
	wl, err := NewWorktreeLock()
	if err != nil {
		t.Fatalf("NewWorktreeLock: %v", err)
	}
	if err := wl.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := wl.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestWorktreeLock_SecondLockTimesOut(t *testing.T) {
	newTestRepoDir(t)
	first, err := NewWorktreeLock()
	if err != nil {
		t.Fatalf("NewWorktreeLock: %v", err)
	}
	if err := first.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer func() { _ = first.Unlock() }()

	second, err := NewWorktreeLock()
	if err != nil {
		t.Fatalf("NewWorktreeLock: %v", err)
	}
	second.Timeout = 100 * time.Millisecond
	if err := second.Lock(); err == nil {
		t.Error("expected the second lock attempt to fail while the first is held")
	}
}

func TestStore_AcquireWorktreeLock(t *testing.T) {
	newTestRepoDir(t)
	s := New()
	wl, err := s.AcquireWorktreeLock()
	if err != nil {
		t.Fatalf("AcquireWorktreeLock: %v", err)
	}
	if err := wl.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}
