package main

import (
	"bytes"
	"testing"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRun(t *testing.T) {
	tests := map[string]struct {
		cfg          config
		expectedKind string
	}{
		"shared safe arena, single allocs": {
			cfg:          config{capacity: 2, workers: 4, allocs: 1000, batch: 1, safe: true},
			expectedKind: "shared SafeArena",
		},
		"shared safe arena, batches": {
			cfg:          config{capacity: 2, workers: 4, allocs: 1000, batch: 33, safe: true},
			expectedKind: "shared SafeArena",
		},
		"arena per worker": {
			cfg:          config{workers: 3, allocs: 500, batch: 7, safe: false},
			expectedKind: "Arena per worker",
		},
		"no allocations": {
			cfg:          config{workers: 1, allocs: 0, batch: 1, safe: false},
			expectedKind: "Arena per worker",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, run(tc.cfg, log.NewNopLogger(), &out))
			assert.Contains(t, out.String(), tc.expectedKind)
			assert.NotContains(t, out.String(), "typedarena_allocations_total")
		})
	}
}

func TestRunSummary(t *testing.T) {
	var out bytes.Buffer
	cfg := config{capacity: 2, workers: 2, allocs: 1000, batch: 1, safe: true}
	require.NoError(t, run(cfg, log.NewNopLogger(), &out))

	assert.Contains(t, out.String(), "Elements:       2,000\n")
	assert.Contains(t, out.String(), "Allocations:    2,000\n")
}

func TestRunDumpsMetrics(t *testing.T) {
	var out bytes.Buffer
	cfg := config{capacity: 2, workers: 2, allocs: 10, batch: 1, safe: true, dumpMetrics: true}
	require.NoError(t, run(cfg, log.NewNopLogger(), &out))

	assert.Contains(t, out.String(), "typedarena_allocations_total 20")
	assert.Contains(t, out.String(), "typedarena_allocated_elements_total 20")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	for name, cfg := range map[string]config{
		"no workers":      {workers: 0, allocs: 1, batch: 1},
		"negative allocs": {workers: 1, allocs: -1, batch: 1},
		"zero batch":      {workers: 1, allocs: 1, batch: 0},
	} {
		t.Run(name, func(t *testing.T) {
			require.Error(t, run(cfg, log.NewNopLogger(), &bytes.Buffer{}))
		})
	}
}

func TestVerifyList(t *testing.T) {
	a := &listNode{worker: 0, seq: 0}
	b := &listNode{prev: a, worker: 0, seq: 1}

	require.NoError(t, verifyList(b, 0, 2))
	require.ErrorContains(t, verifyList(b, 0, 3), "found node 1, expected 2")
	require.ErrorContains(t, verifyList(b, 1, 2), "belongs to worker 0")
	require.ErrorContains(t, verifyList(a, 0, 2), "found node 0, expected 1")
	require.ErrorContains(t, verifyList(b, 0, 1), "found node 1, expected 0")

	c := &listNode{prev: nil, worker: 0, seq: 1}
	require.ErrorContains(t, verifyList(c, 0, 2), "missing 1 nodes")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn")
	require.NoError(t, level.Info(logger).Log("msg", "dropped"))
	require.NoError(t, level.Warn(logger).Log("msg", "kept"))
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")
	buf.Reset()
	require.NoError(t, level.Debug(logger).Log("msg", "dropped"))
	assert.Empty(t, buf.String())
}
