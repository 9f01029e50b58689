package config

// Tuning is the derived concurrency/pool sizing spec §4.8 requires,
// computed once at startup from the host's CPU count, memory and storage
// class.
type Tuning struct {
	TargetConcurrency int
	PoolMaxConns      int32
	PoolMinConns      int32
	BatchSize         int
}

const (
	gib = 1 << 30

	poolMaxClampLow  = 20
	poolMaxClampHigh = 200
	poolMinFloor     = 5

	concurrencyClampLow  = 10
	concurrencyClampHigh = 100

	batchClampLow  = 500
	batchClampHigh = 10000
)

// DeriveTuning runs the concurrency-tuning pipeline from spec §4.8:
// CPU baseline, memory haircut, storage cap, then a final clamp; the pool
// size and batch size are both derived from the resulting target
// concurrency.
func DeriveTuning(c *Config) Tuning {
	concurrency := targetConcurrency(c.CPUCores, c.MemoryBytes, c.Storage)

	poolMax := clampInt(int(1.5*float64(concurrency)), poolMaxClampLow, poolMaxClampHigh)
	poolMin := poolMax / 5
	if poolMin < poolMinFloor {
		poolMin = poolMinFloor
	}

	batch := clampInt(concurrency*100, batchClampLow, batchClampHigh)

	return Tuning{
		TargetConcurrency: concurrency,
		PoolMaxConns:      int32(poolMax),
		PoolMinConns:      int32(poolMin),
		BatchSize:         batch,
	}
}

func targetConcurrency(cpuCores int, memoryBytes uint64, storage StorageClass) int {
	if cpuCores < 1 {
		cpuCores = 1
	}
	baseline := float64(cpuCores * 2)

	memoryGiB := float64(memoryBytes) / gib
	switch {
	case memoryGiB < 4:
		baseline /= 4
	case memoryGiB < 6:
		baseline /= 2
	}

	storageCap := 100.0
	if storage == StorageHDD {
		storageCap = 50.0
	}
	if baseline > storageCap {
		baseline = storageCap
	}

	return clampInt(int(baseline), concurrencyClampLow, concurrencyClampHigh)
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
