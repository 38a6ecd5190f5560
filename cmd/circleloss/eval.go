package main

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/circleloss/internal/autodiff"
	"github.com/born-ml/circleloss/internal/backend/cpu"
	"github.com/born-ml/circleloss/internal/config"
	"github.com/born-ml/circleloss/internal/nn"
	"github.com/born-ml/circleloss/internal/tensor"
)

type evalBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newEvalCmd(a *app) *cobra.Command {
	var grads bool

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the loss on the batches in the configuration file",
		Example: `  circleloss eval --config batches.toml
  circleloss eval --config batches.toml --similarity cosine --grads`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runEval(cmd, grads)
		},
	}
	cmd.Flags().BoolVar(&grads, "grads", false, "also print the L2 norm of each input gradient")
	return cmd
}

func (a *app) runEval(cmd *cobra.Command, withGrads bool) error {
	if a.cfg.Batches.Empty() {
		return errors.New("eval: no [batches] section in the configuration")
	}

	backend := autodiff.New(cpu.NewWithConfig(a.cfg.ParallelConfig()))
	if withGrads {
		backend.Tape().StartRecording()
	}

	named := []struct {
		name string
		rows [][]float64
	}{
		{"positive", a.cfg.Batches.Positives},
		{"negative", a.cfg.Batches.Negatives},
		{"query", a.cfg.Batches.Queries},
	}
	inputs := make([]*tensor.Tensor[float32, evalBackend], len(named))
	for i, b := range named {
		t, err := batchTensor(b.name, b.rows, backend)
		if err != nil {
			return err
		}
		inputs[i] = t
	}

	criterion, err := nn.NewCircleLoss[float32](a.lossConfig(), backend)
	if err != nil {
		return err
	}
	loss, err := criterion.Forward(inputs[0], inputs[1], inputs[2])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "loss: %.6f\n", loss.Item()); err != nil {
		return err
	}
	a.logger.Info("loss evaluated",
		zap.Float32("loss", loss.Item()),
		zap.Int("queries", inputs[2].Shape()[0]),
	)

	if !withGrads {
		return nil
	}
	grads := autodiff.Backward(loss, backend)
	for i, b := range named {
		g := autodiff.Grad(grads, inputs[i])
		if g == nil {
			return fmt.Errorf("eval: no gradient for %s batch", b.name)
		}
		if _, err := fmt.Fprintf(out, "grad_norm[%s]: %.6f\n", b.name, l2(g.Data())); err != nil {
			return err
		}
	}
	return nil
}

func batchTensor(name string, rows [][]float64, b evalBackend) (*tensor.Tensor[float32, evalBackend], error) {
	data, shape, err := config.Matrix(name, rows)
	if err != nil {
		return nil, err
	}
	values := make([]float32, len(data))
	for i, v := range data {
		values[i] = float32(v)
	}
	return tensor.FromSlice(values, tensor.Shape(shape), b)
}

func l2(values []float32) float64 {
	var acc float64
	for _, v := range values {
		acc += float64(v) * float64(v)
	}
	return math.Sqrt(acc)
}
