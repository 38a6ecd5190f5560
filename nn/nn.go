// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/circleloss/internal/nn"
	"github.com/born-ml/circleloss/internal/tensor"
)

// Similarity selects how query/candidate similarity is measured.
type Similarity = nn.Similarity

// Similarity modes.
const (
	SimilarityDot    = nn.SimilarityDot
	SimilarityCosine = nn.SimilarityCosine
)

// Policy selects how weighted logits are reduced to the loss.
type Policy = nn.Policy

// Reduction policies.
const (
	PolicyLogSumExp = nn.PolicyLogSumExp
	PolicyBCE       = nn.PolicyBCE
)

// Reduction selects sum or per-query mean for the log-sum-exp policy.
type Reduction = nn.Reduction

// Reductions.
const (
	ReductionSum  = nn.ReductionSum
	ReductionMean = nn.ReductionMean
)

// NegativeMargin selects the sign of the negative margin.
type NegativeMargin = nn.NegativeMargin

// Negative margin conventions.
const (
	NegativeMarginAuto  = nn.NegativeMarginAuto
	NegativeMarginPlus  = nn.NegativeMarginPlus
	NegativeMarginMinus = nn.NegativeMarginMinus
)

// CircleLossConfig configures a CircleLoss.
type CircleLossConfig = nn.CircleLossConfig

// CircleLoss computes the circle loss for positive, negative and query batches.
type CircleLoss[T tensor.DType, B tensor.Backend] = nn.CircleLoss[T, B]

// Observer receives statistics from every forward pass.
type Observer = nn.Observer

// ObserverFunc adapts a function to Observer.
type ObserverFunc = nn.ObserverFunc

// ForwardStats describes one forward pass.
type ForwardStats = nn.ForwardStats

// Summary holds min, max and mean of a tensor.
type Summary = nn.Summary

// Sentinel errors.
var (
	ErrUnsupportedSimilarity = nn.ErrUnsupportedSimilarity
	ErrInvalidConfig         = nn.ErrInvalidConfig
	ErrDimensionMismatch     = nn.ErrDimensionMismatch
	ErrInvalidShape          = nn.ErrInvalidShape
	ErrZeroNorm              = nn.ErrZeroNorm
)

// DefaultCircleLossConfig returns scale 32, margin 0.25, dot similarity,
// log-sum-exp policy and sum reduction.
func DefaultCircleLossConfig() CircleLossConfig {
	return nn.DefaultCircleLossConfig()
}

// NewCircleLoss validates cfg and creates a circle loss.
func NewCircleLoss[T tensor.DType, B tensor.Backend](cfg CircleLossConfig, backend B) (*CircleLoss[T, B], error) {
	return nn.NewCircleLoss[T, B](cfg, backend)
}

// DotSimilarity returns x @ yᵀ.
func DotSimilarity[T tensor.DType, B tensor.Backend](x, y *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	return nn.DotSimilarity(x, y)
}

// CosineSimilarity returns the cosine similarity of every row pair.
func CosineSimilarity[T tensor.DType, B tensor.Backend](x, y *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	return nn.CosineSimilarity(x, y)
}

// ComputeSimilarity dispatches on mode.
func ComputeSimilarity[T tensor.DType, B tensor.Backend](mode Similarity, x, y *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	return nn.ComputeSimilarity(mode, x, y)
}

// ParseSimilarity parses "dot", "cosine" or "cos".
func ParseSimilarity(s string) (Similarity, error) { return nn.ParseSimilarity(s) }

// ParsePolicy parses "logsumexp" or "bce".
func ParsePolicy(s string) (Policy, error) { return nn.ParsePolicy(s) }

// ParseReduction parses "sum" or "mean".
func ParseReduction(s string) (Reduction, error) { return nn.ParseReduction(s) }

// ParseNegativeMargin parses "auto", "plus" or "minus".
func ParseNegativeMargin(s string) (NegativeMargin, error) { return nn.ParseNegativeMargin(s) }
