package app

import (
	"context"
	"testing"

	"coin-ledger/internal/config"
	"coin-ledger/internal/storage/memory"
)

func TestOpenStores_Memory(t *testing.T) {
	s, err := OpenStores(context.Background(), config.StorageConfig{Backend: config.BackendMemory}, nil)
	if err != nil {
		t.Fatalf("OpenStores failed: %v", err)
	}
	defer s.Close()

	if _, ok := s.Ledger.(*memory.LedgerStore); !ok {
		t.Errorf("Ledger = %T, want *memory.LedgerStore", s.Ledger)
	}
	if _, ok := s.Audits.(*memory.AuditStore); !ok {
		t.Errorf("Audits = %T, want *memory.AuditStore", s.Audits)
	}
	s.ReportStats()
}

func TestOpenStores_UnknownBackend(t *testing.T) {
	if _, err := OpenStores(context.Background(), config.StorageConfig{Backend: "sqlite"}, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
