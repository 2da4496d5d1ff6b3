package instrument

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/reglet-dev/native-counter/countertest"
	"github.com/reglet-dev/native-counter/domain/entities"
	"github.com/reglet-dev/native-counter/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindings_Conformance(t *testing.T) {
	countertest.RunConformance(t, func(t *testing.T) ports.CounterBindings {
		return Wrap(countertest.NewEngine())
	})
}

func TestBindings_CountsCalls(t *testing.T) {
	ctx := context.Background()
	b := Wrap(countertest.NewEngine())

	h, err := b.Create(ctx, entities.CounterArgs{By: 1})
	require.NoError(t, err)

	_, err = b.Increment(ctx, h)
	require.NoError(t, err)
	_, err = b.Increment(ctx, h)
	require.NoError(t, err)
	_, err = b.IncrementByMany(ctx, h, []uint32{1, 2})
	require.NoError(t, err)
	require.NoError(t, b.Destroy(ctx, h))

	assert.Equal(t, int64(1), b.Calls(ports.OpCreate))
	assert.Equal(t, int64(2), b.Calls(ports.OpIncrement))
	assert.Equal(t, int64(1), b.Calls(ports.OpIncrementByMany))
	assert.Equal(t, int64(1), b.Calls(ports.OpDestroy))
	assert.Equal(t, int64(0), b.Calls(ports.OpPositions))
	assert.Equal(t, int64(0), b.Calls("unknown"))
	assert.Equal(t, int64(5), b.TotalCalls())
}

func TestBindings_ForwardsErrors(t *testing.T) {
	boom := errors.New("trap")
	b := Wrap(countertest.NewEngine(countertest.WithFailure(ports.OpValue, boom)))
	ctx := context.Background()

	h, err := b.Create(ctx, entities.CounterArgs{})
	require.NoError(t, err)
	defer func() { require.NoError(t, b.Destroy(ctx, h)) }()

	_, err = b.Value(ctx, h)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), b.Calls(ports.OpValue))
}

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	boom := errors.New("trap")
	b := Wrap(countertest.NewEngine(countertest.WithFailure(ports.OpSnapshot, boom)),
		WithMetrics(NewMetrics(reg)),
		WithBackend("fake"),
	)
	ctx := context.Background()

	h, err := b.Create(ctx, entities.CounterArgs{By: 2})
	require.NoError(t, err)
	for range 3 {
		_, err = b.Increment(ctx, h)
		require.NoError(t, err)
	}
	_, err = b.Snapshot(ctx, h)
	require.Error(t, err)
	require.NoError(t, b.Destroy(ctx, h))

	assert.Equal(t, 3.0, counterValue(t, reg, "native_calls_total", ports.OpIncrement))
	assert.Equal(t, 1.0, counterValue(t, reg, "native_calls_total", ports.OpCreate))
	assert.Equal(t, 1.0, counterValue(t, reg, "native_call_errors_total", ports.OpSnapshot))
	assert.Equal(t, uint64(3), histogramCount(t, reg, "native_call_duration_seconds", ports.OpIncrement))
}

func TestMetrics_NilRegistererIsNoop(t *testing.T) {
	m := NewMetrics(nil)
	assert.NotPanics(t, func() {
		m.calls.With("x", "y").Inc()
		m.duration.With("x", "y").Observe(1)
	})
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, op string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabel(m.GetLabel(), "op", op) && hasLabel(m.GetLabel(), "backend", "fake") {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s{op=%q} not found", name, op)
	return 0
}

func histogramCount(t *testing.T, reg *prometheus.Registry, name, op string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabel(m.GetLabel(), "op", op) {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	t.Fatalf("metric %s{op=%q} not found", name, op)
	return 0
}

type labelPair interface {
	GetName() string
	GetValue() string
}

func hasLabel[L labelPair](labels []L, name, value string) bool {
	for _, l := range labels {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
