package config

import "testing"

func TestDeriveTuning_ClampsToBounds(t *testing.T) {
	cfg := &Config{CPUCores: 1, MemoryBytes: 2 * gib, Storage: StorageHDD}
	tuning := DeriveTuning(cfg)
	if tuning.TargetConcurrency < concurrencyClampLow {
		t.Fatalf("concurrency = %d, want >= %d", tuning.TargetConcurrency, concurrencyClampLow)
	}
	if tuning.PoolMaxConns < poolMaxClampLow {
		t.Fatalf("pool max = %d, want >= %d", tuning.PoolMaxConns, poolMaxClampLow)
	}
}

func TestDeriveTuning_HighEndMachine(t *testing.T) {
	cfg := &Config{CPUCores: 64, MemoryBytes: 128 * gib, Storage: StorageSSD}
	tuning := DeriveTuning(cfg)
	if tuning.TargetConcurrency != concurrencyClampHigh {
		t.Fatalf("concurrency = %d, want clamp high %d", tuning.TargetConcurrency, concurrencyClampHigh)
	}
	// Concurrency is capped at concurrencyClampHigh, so the pool max is
	// 1.5x that cap, which stays below poolMaxClampHigh.
	if want := int32(1.5 * concurrencyClampHigh); tuning.PoolMaxConns != want {
		t.Fatalf("pool max = %d, want 1.5 x concurrency cap = %d", tuning.PoolMaxConns, want)
	}
	if tuning.BatchSize != batchClampHigh {
		t.Fatalf("batch = %d, want clamp high %d", tuning.BatchSize, batchClampHigh)
	}
}

func TestDeriveTuning_MemoryHaircut(t *testing.T) {
	small := targetConcurrency(16, 3*gib, StorageSSD)
	large := targetConcurrency(16, 8*gib, StorageSSD)
	if small >= large {
		t.Fatalf("expected low-memory concurrency (%d) < high-memory concurrency (%d)", small, large)
	}
}

func TestDeriveTuning_StorageCap(t *testing.T) {
	hdd := targetConcurrency(64, 64*gib, StorageHDD)
	ssd := targetConcurrency(64, 64*gib, StorageSSD)
	if hdd > 50 {
		t.Fatalf("HDD concurrency = %d, want <= 50", hdd)
	}
	if ssd <= hdd {
		t.Fatalf("expected SSD concurrency (%d) > HDD concurrency (%d)", ssd, hdd)
	}
}
