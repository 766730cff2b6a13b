package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForVisitsEveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}
	n := 1000

	counts := make([]int32, n)
	For(n, func(i int) {
		atomic.AddInt32(&counts[i], 1)
	}, cfg)

	for i, c := range counts {
		assert.Equal(t, int32(1), c, "index %d", i)
	}
}

func TestForRangeChunksCoverWithoutOverlap(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 10}
	n := 95

	var visited int64
	ForRange(n, func(start, end int) {
		assert.Less(t, start, end)
		atomic.AddInt64(&visited, int64(end-start))
	}, cfg)
	assert.Equal(t, int64(n), visited)
}

func TestForRangeSequentialFallback(t *testing.T) {
	var calls int
	ForRange(100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 100, end)
	}, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1024})
	assert.Equal(t, 1, calls, "below MinChunkSize runs in one chunk")

	calls = 0
	ForRange(5000, func(start, end int) { calls++ }, Config{})
	assert.Equal(t, 1, calls, "zero-value config is sequential")
}

func TestForRangeZeroLength(t *testing.T) {
	ForRange(0, func(start, end int) {
		t.Fatal("callback must not run for an empty range")
	}, DefaultConfig())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Positive(t, cfg.NumWorkers)
	assert.Equal(t, 1024, cfg.MinChunkSize)
}
