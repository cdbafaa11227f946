package session

import (
	"errors"
	"testing"
	"time"

	"recipe-importer/internal/pkg/common"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(Dependencies{}, time.Minute, 0)
	defer r.Close()

	s := r.Create()
	got, err := r.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d", r.Len())
	}
	if err := r.Delete(s.ID()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := r.Get(s.ID()); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if err := r.Delete(s.ID()); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestRegistrySweepRemovesIdleSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(Dependencies{Now: func() time.Time { return now }}, 10*time.Minute, 0)
	defer r.Close()

	r.Create()
	r.Create()

	if removed := r.Sweep(now.Add(5 * time.Minute)); removed != 0 {
		t.Fatalf("removed %d sessions too early", removed)
	}
	if removed := r.Sweep(now.Add(11 * time.Minute)); removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d", r.Len())
	}
}
