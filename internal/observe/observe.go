// Package observe provides circle loss observers that log or fan out
// forward-pass statistics.
package observe

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/born-ml/circleloss/internal/nn"
)

// ZapObserver writes one debug entry per forward pass.
type ZapObserver struct {
	logger *zap.Logger
}

// NewZapObserver returns an observer logging to logger. A nil logger
// discards everything.
func NewZapObserver(logger *zap.Logger) *ZapObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapObserver{logger: logger.Named("circleloss")}
}

// ObserveForward logs stats at debug level.
func (o *ZapObserver) ObserveForward(stats nn.ForwardStats) {
	ce := o.logger.Check(zapcore.DebugLevel, "forward")
	if ce == nil {
		return
	}
	ce.Write(
		zap.Stringer("similarity", stats.Similarity),
		zap.Stringer("policy", stats.Policy),
		zap.Stringer("reduction", stats.Reduction),
		zap.Int("queries", stats.Queries),
		zap.Int("positives", stats.Positives),
		zap.Int("negatives", stats.Negatives),
		zap.Float64("loss", stats.Loss),
		zap.Object("alpha_p", summary(stats.AlphaP)),
		zap.Object("alpha_n", summary(stats.AlphaN)),
		zap.Object("sim_p", summary(stats.SimP)),
		zap.Object("sim_n", summary(stats.SimN)),
	)
}

type summary nn.Summary

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s summary) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddFloat64("min", s.Min)
	enc.AddFloat64("max", s.Max)
	enc.AddFloat64("mean", s.Mean)
	return nil
}

// Multi fans stats out to every non-nil observer in order.
type Multi []nn.Observer

// NewMulti drops nil observers. It returns nil when none remain, so the
// result can be assigned straight to CircleLossConfig.Observer.
func NewMulti(observers ...nn.Observer) nn.Observer {
	var m Multi
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	default:
		return m
	}
}

// ObserveForward forwards stats to each observer.
func (m Multi) ObserveForward(stats nn.ForwardStats) {
	for _, o := range m {
		o.ObserveForward(stats)
	}
}
