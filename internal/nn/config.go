package nn

import (
	"fmt"
	"math"
	"strings"
)

// Similarity selects how query/candidate similarity is measured.
type Similarity int

const (
	// SimilarityDot is the raw inner product x·y.
	SimilarityDot Similarity = iota
	// SimilarityCosine is the inner product divided by both norms.
	SimilarityCosine
)

// ParseSimilarity parses "dot" or "cosine" ("cos" is accepted too).
func ParseSimilarity(s string) (Similarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dot":
		return SimilarityDot, nil
	case "cosine", "cos":
		return SimilarityCosine, nil
	default:
		return 0, fmt.Errorf("%w: %q (want dot or cosine)", ErrUnsupportedSimilarity, s)
	}
}

func (s Similarity) String() string {
	switch s {
	case SimilarityDot:
		return "dot"
	case SimilarityCosine:
		return "cosine"
	default:
		return fmt.Sprintf("Similarity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Similarity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Similarity) UnmarshalText(text []byte) error {
	v, err := ParseSimilarity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Policy selects how weighted logits are reduced to the loss.
type Policy int

const (
	// PolicyLogSumExp computes log(1 + Σexp(logit_p)·Σexp(logit_n)).
	PolicyLogSumExp Policy = iota
	// PolicyBCE computes the mean binary cross-entropy of the rescaled
	// logits against labels 1 (positives) and 0 (negatives).
	PolicyBCE
)

// ParsePolicy parses "logsumexp" (or "lse") and "bce".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "logsumexp", "lse":
		return PolicyLogSumExp, nil
	case "bce":
		return PolicyBCE, nil
	default:
		return 0, fmt.Errorf("%w: policy %q (want logsumexp or bce)", ErrInvalidConfig, s)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyLogSumExp:
		return "logsumexp"
	case PolicyBCE:
		return "bce"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Reduction selects how the log-sum-exp policy aggregates over queries.
// The BCE policy always averages.
type Reduction int

const (
	// ReductionSum sums the exponentiated logits over every entry.
	ReductionSum Reduction = iota
	// ReductionMean divides both sums by the number of queries.
	ReductionMean
)

// ParseReduction parses "sum" or "mean".
func ParseReduction(s string) (Reduction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum":
		return ReductionSum, nil
	case "mean":
		return ReductionMean, nil
	default:
		return 0, fmt.Errorf("%w: reduction %q (want sum or mean)", ErrInvalidConfig, s)
	}
}

func (r Reduction) String() string {
	switch r {
	case ReductionSum:
		return "sum"
	case ReductionMean:
		return "mean"
	default:
		return fmt.Sprintf("Reduction(%d)", int(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Reduction) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reduction) UnmarshalText(text []byte) error {
	v, err := ParseReduction(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// NegativeMargin selects the sign of the negative-pair margin.
type NegativeMargin int

const (
	// NegativeMarginAuto uses +m with PolicyLogSumExp and -m with PolicyBCE.
	NegativeMarginAuto NegativeMargin = iota
	// NegativeMarginPlus always uses +m.
	NegativeMarginPlus
	// NegativeMarginMinus always uses -m.
	NegativeMarginMinus
)

// ParseNegativeMargin parses "auto", "plus" or "minus".
func ParseNegativeMargin(s string) (NegativeMargin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return NegativeMarginAuto, nil
	case "plus", "+":
		return NegativeMarginPlus, nil
	case "minus", "-":
		return NegativeMarginMinus, nil
	default:
		return 0, fmt.Errorf("%w: negative margin %q (want auto, plus or minus)", ErrInvalidConfig, s)
	}
}

func (n NegativeMargin) String() string {
	switch n {
	case NegativeMarginAuto:
		return "auto"
	case NegativeMarginPlus:
		return "plus"
	case NegativeMarginMinus:
		return "minus"
	default:
		return fmt.Sprintf("NegativeMargin(%d)", int(n))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (n NegativeMargin) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NegativeMargin) UnmarshalText(text []byte) error {
	v, err := ParseNegativeMargin(string(text))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// CircleLossConfig holds the circle loss hyperparameters.
type CircleLossConfig struct {
	// Scale multiplies every logit. Must be positive and finite.
	Scale float32
	// Margin relaxes the decision boundary. Must lie in (0, 1).
	Margin float32

	Similarity     Similarity
	Policy         Policy
	Reduction      Reduction
	NegativeMargin NegativeMargin

	// DetachWeights treats alpha_p and alpha_n as constants in the
	// backward pass.
	DetachWeights bool

	// Observer receives statistics after every Forward. Nil disables it.
	Observer Observer
}

// DefaultCircleLossConfig returns scale 32, margin 0.25, dot similarity
// and the log-sum-exp policy with sum reduction.
func DefaultCircleLossConfig() CircleLossConfig {
	return CircleLossConfig{
		Scale:          32,
		Margin:         0.25,
		Similarity:     SimilarityDot,
		Policy:         PolicyLogSumExp,
		Reduction:      ReductionSum,
		NegativeMargin: NegativeMarginAuto,
	}
}

// Validate checks every field and reports the first problem found.
func (c CircleLossConfig) Validate() error {
	scale := float64(c.Scale)
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: scale must be positive and finite, got %v", ErrInvalidConfig, c.Scale)
	}
	if !(c.Margin > 0 && c.Margin < 1) {
		return fmt.Errorf("%w: margin must lie in (0, 1), got %v", ErrInvalidConfig, c.Margin)
	}
	if c.Similarity != SimilarityDot && c.Similarity != SimilarityCosine {
		return fmt.Errorf("%w: %s", ErrUnsupportedSimilarity, c.Similarity)
	}
	if c.Policy != PolicyLogSumExp && c.Policy != PolicyBCE {
		return fmt.Errorf("%w: unknown %s", ErrInvalidConfig, c.Policy)
	}
	if c.Reduction != ReductionSum && c.Reduction != ReductionMean {
		return fmt.Errorf("%w: unknown %s", ErrInvalidConfig, c.Reduction)
	}
	if c.NegativeMargin < NegativeMarginAuto || c.NegativeMargin > NegativeMarginMinus {
		return fmt.Errorf("%w: unknown %s", ErrInvalidConfig, c.NegativeMargin)
	}
	return nil
}

// PositiveMargin returns margin_p = 1 - m.
func (c CircleLossConfig) PositiveMargin() float64 {
	return 1 - float64(c.Margin)
}

// NegativeMarginValue returns margin_n with the sign convention resolved.
func (c CircleLossConfig) NegativeMarginValue() float64 {
	m := float64(c.Margin)
	switch c.NegativeMargin {
	case NegativeMarginPlus:
		return m
	case NegativeMarginMinus:
		return -m
	default:
		if c.Policy == PolicyBCE {
			return -m
		}
		return m
	}
}
