package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/circleloss/internal/nn"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	loss := cfg.LossConfig()
	assert.Equal(t, float32(32), loss.Scale)
	assert.Equal(t, float32(0.25), loss.Margin)
	assert.Equal(t, nn.SimilarityDot, loss.Similarity)
	assert.Equal(t, nn.PolicyLogSumExp, loss.Policy)
	assert.True(t, cfg.Batches.Empty())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "circle.toml", `
metrics = true

[loss]
scale = 64.0
margin = 0.4
similarity = "cos"
policy = "bce"
reduction = "mean"
negative_margin = "plus"
detach_weights = true

[log]
format = "json"
level = "debug"

[batches]
positives = [[0.8, 0.6]]
negatives = [[0.1, 0.3], [0.5, 0.5]]
queries = [[1.0, 0.0]]
`)
	cfg, err := Load(path, writeFile(t, "empty.env", ""))
	require.NoError(t, err)

	loss := cfg.LossConfig()
	assert.Equal(t, float32(64), loss.Scale)
	assert.Equal(t, float32(0.4), loss.Margin)
	assert.Equal(t, nn.SimilarityCosine, loss.Similarity)
	assert.Equal(t, nn.PolicyBCE, loss.Policy)
	assert.Equal(t, nn.ReductionMean, loss.Reduction)
	assert.Equal(t, nn.NegativeMarginPlus, loss.NegativeMargin)
	assert.True(t, loss.DetachWeights)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, "debug", cfg.LogConfig().Level)
	assert.Len(t, cfg.Batches.Negatives, 2)
	assert.False(t, cfg.Batches.Empty())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unsupported similarity", "[loss]\nsimilarity = \"invalid\"\n"},
		{"unknown key", "[loss]\nscael = 3\n"},
		{"margin out of range", "[loss]\nmargin = 1.5\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"syntax", "[loss\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.toml", tt.content), writeFile(t, "empty.env", ""))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "circle.toml", "[loss]\nscale = 16.0\npolicy = \"bce\"\n")
	t.Setenv("CIRCLE_LOSS_SCALE", "8")
	t.Setenv("CIRCLE_LOSS_SIMILARITY", "cosine")
	t.Setenv("CIRCLE_LOG_LEVEL", "warn")

	cfg, err := Load(path, writeFile(t, "empty.env", ""))
	require.NoError(t, err)
	assert.Equal(t, float32(8), cfg.Loss.Scale)
	assert.Equal(t, nn.SimilarityCosine, cfg.Loss.Similarity)
	assert.Equal(t, nn.PolicyBCE, cfg.Loss.Policy)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	// godotenv sets process variables; t.Setenv registers cleanup.
	t.Setenv("CIRCLE_LOSS_MARGIN", "")
	require.NoError(t, os.Unsetenv("CIRCLE_LOSS_MARGIN"))

	envFile := writeFile(t, "test.env", "CIRCLE_LOSS_MARGIN=0.5\nCIRCLE_LOSS_REDUCTION=mean\n")
	t.Setenv("CIRCLE_LOSS_REDUCTION", "sum")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), cfg.Loss.Margin)
	// already-set variables win over the .env file
	assert.Equal(t, nn.ReductionSum, cfg.Loss.Reduction)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("CIRCLE_LOSS_POLICY", "hinge")
	_, err := Load("", writeFile(t, "empty.env", ""))
	assert.Error(t, err)
}

func TestParallelConfig(t *testing.T) {
	cfg := Default()
	cfg.Parallel = ParallelConfig{Enabled: true, Workers: 0, MinChunkSize: 4}
	par := cfg.ParallelConfig()
	assert.True(t, par.Enabled)
	assert.Positive(t, par.NumWorkers)
	assert.Equal(t, 4, par.MinChunkSize)

	cfg.Parallel.Workers = -1
	assert.Error(t, cfg.Validate())
}

func TestMatrix(t *testing.T) {
	data, shape, err := Matrix("query", [][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, data)
	assert.Equal(t, []int{3, 2}, shape)

	_, _, err = Matrix("query", nil)
	assert.ErrorContains(t, err, "query is empty")

	_, _, err = Matrix("positive", [][]float64{{1, 2}, {3}})
	assert.ErrorContains(t, err, "row 1")
}
