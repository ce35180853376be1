package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearHistory(n int) []HostMetric {
	history := make([]HostMetric, n)
	for i := range n {
		history[i] = HostMetric{
			Timestamp:   t0.Add(time.Duration(i) * 5 * time.Second),
			CPUUsage:    Float(float64(i)),
			MemoryUsage: Float(50),
			Containers:  map[string]ContainerMetric{"api": {CPUUsage: float64(i), MemoryUsage: 10}},
		}
	}
	return history
}

func TestDownsample_AtOrBelowThreshold(t *testing.T) {
	for _, n := range []int{0, 1, 50, 100} {
		history := linearHistory(n)
		out := Downsample(history, 100)
		assert.Len(t, out, n)
		assert.Equal(t, history, out)
	}
}

func TestDownsample_ReturnsCopy(t *testing.T) {
	history := linearHistory(3)
	out := Downsample(history, 10)
	*out[0].CPUUsage = 99
	out[0].Containers["api"] = ContainerMetric{}

	assert.InDelta(t, 0.0, *history[0].CPUUsage, 0.001)
	assert.InDelta(t, 0.0, history[0].Containers["api"].CPUUsage, 0.001)
}

func TestDownsample_BoundsAndSpan(t *testing.T) {
	tests := []struct {
		n, threshold int
	}{
		{n: 101, threshold: 100},
		{n: 250, threshold: 100},
		{n: 1000, threshold: 100},
		{n: 17281, threshold: 100},
		{n: 10, threshold: 3},
	}

	for _, tt := range tests {
		history := linearHistory(tt.n)
		out := Downsample(history, tt.threshold)

		require.NotEmpty(t, out)
		assert.LessOrEqual(t, len(out), tt.threshold, "n=%d threshold=%d", tt.n, tt.threshold)
		assert.Equal(t, history[0].Timestamp, out[0].Timestamp, "span start preserved")
		assert.Equal(t, history[tt.n-1].Timestamp, out[len(out)-1].Timestamp, "span end preserved")
		for i := 1; i < len(out); i++ {
			assert.False(t, out[i].Timestamp.Before(out[i-1].Timestamp))
		}
	}
}

func TestDownsample_AveragesChunks(t *testing.T) {
	history := linearHistory(8)
	// Drop readings to check that only present values are averaged.
	history[1].CPUUsage = nil
	delete(history[2].Containers, "api")
	history[3].Containers["db"] = ContainerMetric{CPUUsage: 4, MemoryUsage: 40}

	out := Downsample(history, 2)
	require.Len(t, out, 2)

	// First chunk: entries 0..3, cpu present at 0, 2, 3.
	require.NotNil(t, out[0].CPUUsage)
	assert.InDelta(t, 5.0/3.0, *out[0].CPUUsage, 0.001)
	assert.InDelta(t, 50.0, *out[0].MemoryUsage, 0.001)
	assert.InDelta(t, 4.0/3.0, out[0].Containers["api"].CPUUsage, 0.001, "per-container values averaged per chunk")
	assert.InDelta(t, 10.0, out[0].Containers["api"].MemoryUsage, 0.001)
	assert.InDelta(t, 4.0, out[0].Containers["db"].CPUUsage, 0.001)

	// Second chunk: entries 4..7.
	assert.InDelta(t, 5.5, *out[1].CPUUsage, 0.001)
	assert.InDelta(t, 5.5, out[1].Containers["api"].CPUUsage, 0.001)
	assert.NotContains(t, out[1].Containers, "db")
}

func TestDownsample_MiddleChunkTimestamp(t *testing.T) {
	history := linearHistory(9)
	out := Downsample(history, 3)
	require.Len(t, out, 3)
	// Chunk 2 covers entries 3,4,5; its mean is entry 4.
	assert.Equal(t, history[4].Timestamp, out[1].Timestamp)
}

func TestDownsample_AllAbsent(t *testing.T) {
	history := make([]HostMetric, 10)
	for i := range history {
		history[i] = HostMetric{Timestamp: t0.Add(time.Duration(i) * time.Second)}
	}

	out := Downsample(history, 5)
	require.Len(t, out, 5)
	for _, m := range out {
		assert.Nil(t, m.CPUUsage)
		assert.Nil(t, m.MemoryUsage)
		assert.Nil(t, m.Containers)
	}
}
