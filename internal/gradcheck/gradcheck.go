// Package gradcheck compares autodiff gradients with central finite
// differences.
//
// Every function is evaluated in float64 on a fresh CPU autodiff backend,
// so checks are deterministic and independent of any caller state.
package gradcheck

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/born-ml/circleloss/internal/autodiff"
	"github.com/born-ml/circleloss/internal/backend/cpu"
	"github.com/born-ml/circleloss/internal/nn"
	"github.com/born-ml/circleloss/internal/tensor"
)

// Backend is the backend every checked function runs on.
type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// Func maps input tensors to a single-element loss.
type Func func(inputs []*tensor.Tensor[float64, Backend]) (*tensor.Tensor[float64, Backend], error)

// Input is one named function argument.
type Input struct {
	Name  string
	Shape tensor.Shape
	Data  []float64
}

// Options controls the finite-difference step and the pass threshold.
type Options struct {
	// Epsilon is the central difference step. Default 1e-6.
	Epsilon float64
	// Tolerance is the largest accepted relative error. Default 1e-4.
	Tolerance float64
	// Workers bounds concurrent evaluations. Zero means one per CPU.
	Workers int
}

// DefaultOptions returns Epsilon 1e-6, Tolerance 1e-4 and one worker per CPU.
func DefaultOptions() Options {
	return Options{Epsilon: 1e-6, Tolerance: 1e-4, Workers: runtime.NumCPU()}
}

// Result compares the two gradients for one input coordinate.
type Result struct {
	Input    string
	Index    int
	Analytic float64
	Numeric  float64
	RelErr   float64
}

// Report collects every coordinate checked.
type Report struct {
	Results   []Result
	Worst     Result
	Tolerance float64
}

// Passed reports whether every coordinate stayed within tolerance.
// A non-finite gradient never passes.
func (r *Report) Passed() bool {
	return !math.IsNaN(r.Worst.RelErr) && r.Worst.RelErr <= r.Tolerance
}

// ErrNoGradient is returned when an input is unreachable from the loss.
var ErrNoGradient = errors.New("no gradient reached input")

// Check evaluates f once with recording on and then twice per input
// coordinate with perturbed values. Perturbed evaluations run concurrently,
// each on its own backend, so f must not share mutable state between calls.
// Results are ordered by input, then coordinate.
func Check(ctx context.Context, f Func, inputs []Input, opts Options) (*Report, error) {
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultOptions().Epsilon
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	ts, err := build(inputs, backend)
	if err != nil {
		return nil, err
	}
	loss, err := f(ts)
	if err != nil {
		return nil, err
	}
	if loss.NumElements() != 1 {
		return nil, fmt.Errorf("gradcheck: loss has shape %v, want a single element", loss.Shape())
	}
	grads := autodiff.Backward(loss, backend)

	var results []Result
	for k, in := range inputs {
		g := autodiff.Grad(grads, ts[k])
		if g == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoGradient, in.Name)
		}
		for i, v := range g.Data() {
			results = append(results, Result{Input: in.Name, Index: i, Analytic: v})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	pos := 0
	for k, in := range inputs {
		for i := range in.Data {
			res := &results[pos]
			pos++
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				numeric, err := centralDifference(f, inputs, k, i, opts.Epsilon)
				if err != nil {
					return err
				}
				res.Numeric = numeric
				res.RelErr = relativeError(res.Analytic, numeric)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Results: results, Tolerance: opts.Tolerance}
	for i, res := range results {
		if i == 0 || worse(res.RelErr, report.Worst.RelErr) {
			report.Worst = res
		}
	}
	return report, nil
}

// CircleLoss adapts a circle loss configuration to a Func over
// (positives, negatives, queries).
func CircleLoss(cfg nn.CircleLossConfig) Func {
	return func(inputs []*tensor.Tensor[float64, Backend]) (*tensor.Tensor[float64, Backend], error) {
		if len(inputs) != 3 {
			return nil, fmt.Errorf("gradcheck: circle loss takes 3 inputs, got %d", len(inputs))
		}
		criterion, err := nn.NewCircleLoss[float64](cfg, inputs[0].Backend())
		if err != nil {
			return nil, err
		}
		return criterion.Forward(inputs[0], inputs[1], inputs[2])
	}
}

// RandomInputs draws standard normal positive, negative and query batches.
func RandomInputs(rng *rand.Rand, positives, negatives, queries, dim int) []Input {
	draw := func(name string, rows int) Input {
		data := make([]float64, rows*dim)
		for i := range data {
			data[i] = rng.NormFloat64()
		}
		return Input{Name: name, Shape: tensor.Shape{rows, dim}, Data: data}
	}
	return []Input{
		draw("positive", positives),
		draw("negative", negatives),
		draw("query", queries),
	}
}

func centralDifference(f Func, inputs []Input, k, i int, eps float64) (float64, error) {
	eval := func(delta float64) (float64, error) {
		shifted := make([]Input, len(inputs))
		copy(shifted, inputs)
		data := append([]float64(nil), inputs[k].Data...)
		data[i] += delta
		shifted[k].Data = data

		ts, err := build(shifted, autodiff.New(cpu.New()))
		if err != nil {
			return 0, err
		}
		loss, err := f(ts)
		if err != nil {
			return 0, err
		}
		return loss.Item(), nil
	}

	plus, err := eval(eps)
	if err != nil {
		return 0, err
	}
	minus, err := eval(-eps)
	if err != nil {
		return 0, err
	}
	return (plus - minus) / (2 * eps), nil
}

func build(inputs []Input, backend Backend) ([]*tensor.Tensor[float64, Backend], error) {
	ts := make([]*tensor.Tensor[float64, Backend], len(inputs))
	for k, in := range inputs {
		t, err := tensor.FromSlice(in.Data, in.Shape, backend)
		if err != nil {
			return nil, fmt.Errorf("gradcheck: input %s: %w", in.Name, err)
		}
		ts[k] = t
	}
	return ts, nil
}

// relativeError is +Inf when either gradient is NaN or infinite.
func relativeError(a, b float64) float64 {
	if !isFinite(a) || !isFinite(b) {
		return math.Inf(1)
	}
	return math.Abs(a-b) / math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// worse orders NaN above every number.
func worse(a, b float64) bool {
	if math.IsNaN(b) {
		return false
	}
	return math.IsNaN(a) || a > b
}
