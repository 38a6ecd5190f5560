package observe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/born-ml/circleloss/internal/autodiff"
	"github.com/born-ml/circleloss/internal/backend/cpu"
	"github.com/born-ml/circleloss/internal/nn"
	"github.com/born-ml/circleloss/internal/tensor"
)

func sampleStats() nn.ForwardStats {
	return nn.ForwardStats{
		Similarity: nn.SimilarityCosine,
		Policy:     nn.PolicyBCE,
		Reduction:  nn.ReductionSum,
		Queries:    2,
		Positives:  3,
		Negatives:  4,
		Loss:       1.5,
		AlphaP:     nn.Summary{Min: 0.1, Max: 0.9, Mean: 0.5},
	}
}

func TestZapObserver_LogsAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	o := NewZapObserver(zap.New(core))

	o.ObserveForward(sampleStats())

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "forward", entry.Message)
	assert.Equal(t, "circleloss", entry.LoggerName)

	fields := entry.ContextMap()
	assert.Equal(t, "cosine", fields["similarity"])
	assert.Equal(t, "bce", fields["policy"])
	assert.Equal(t, int64(3), fields["positives"])
	assert.Equal(t, 1.5, fields["loss"])
	assert.Equal(t, map[string]any{"min": 0.1, "max": 0.9, "mean": 0.5}, fields["alpha_p"])
}

func TestZapObserver_SilentAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	NewZapObserver(zap.New(core)).ObserveForward(sampleStats())
	assert.Equal(t, 0, logs.Len())

	NewZapObserver(nil).ObserveForward(sampleStats())
}

func TestNewMulti(t *testing.T) {
	assert.Nil(t, NewMulti())
	assert.Nil(t, NewMulti(nil, nil))

	var calls []string
	a := nn.ObserverFunc(func(nn.ForwardStats) { calls = append(calls, "a") })
	b := nn.ObserverFunc(func(nn.ForwardStats) { calls = append(calls, "b") })

	single := NewMulti(nil, a)
	single.ObserveForward(sampleStats())
	assert.Equal(t, []string{"a"}, calls)

	calls = nil
	NewMulti(a, nil, b).ObserveForward(sampleStats())
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestZapObserver_WiredIntoLoss(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	backend := autodiff.New(cpu.New())
	cfg := nn.DefaultCircleLossConfig()
	cfg.Observer = NewZapObserver(zap.New(core))
	criterion, err := nn.NewCircleLoss[float32](cfg, backend)
	require.NoError(t, err)

	x, err := tensor.FromSlice([]float32{1, 0, 0, 1}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	_, err = criterion.Forward(x, x, x)
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(2), logs.All()[0].ContextMap()["queries"])
}
