package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/born-ml/circleloss/internal/config"
	"github.com/born-ml/circleloss/internal/logging"
	"github.com/born-ml/circleloss/internal/metrics"
	"github.com/born-ml/circleloss/internal/nn"
	"github.com/born-ml/circleloss/internal/observe"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	envFiles   []string

	scale          float32
	margin         float32
	similarity     string
	policy         string
	reduction      string
	negativeMargin string
	detachWeights  bool
	debug          bool
	logFormat      string
	metrics        bool

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{logger: logging.DiscardLogger()}
	defaults := nn.DefaultCircleLossConfig()

	root := &cobra.Command{
		Use:           "circleloss",
		Short:         "Evaluate and gradient-check the circle loss",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	f.StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load (default .env when present)")
	f.Float32Var(&a.scale, "scale", defaults.Scale, "logit scale factor")
	f.Float32Var(&a.margin, "margin", defaults.Margin, "relaxation margin in (0, 1)")
	f.StringVar(&a.similarity, "similarity", defaults.Similarity.String(), "similarity: dot or cosine")
	f.StringVar(&a.policy, "policy", defaults.Policy.String(), "reduction policy: logsumexp or bce")
	f.StringVar(&a.reduction, "reduction", defaults.Reduction.String(), "logsumexp aggregation: sum or mean")
	f.StringVar(&a.negativeMargin, "negative-margin", defaults.NegativeMargin.String(), "negative margin sign: auto, plus or minus")
	f.BoolVar(&a.detachWeights, "detach-weights", false, "treat adaptive weights as constants in the backward pass")
	f.BoolVar(&a.debug, "debug", false, "log per-evaluation statistics")
	f.StringVar(&a.logFormat, "log-format", "console", "log format: console or json")
	f.BoolVar(&a.metrics, "metrics", false, "print Prometheus metrics after the command")

	root.AddCommand(newVersionCmd(), newEvalCmd(a), newGradcheckCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, a.envFiles...)
	if err != nil {
		return err
	}
	if err := a.applyFlags(cmd, cfg); err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := cfg.LogConfig()
	logCfg.Output = zapcore.AddSync(cmd.ErrOrStderr())
	a.logger, err = logging.NewLogger(logCfg)
	if err != nil {
		return err
	}
	a.registry = prometheus.NewRegistry()

	a.logger.Debug("configuration loaded",
		zap.String("config", a.configPath),
		zap.Stringer("similarity", cfg.Loss.Similarity),
		zap.Stringer("policy", cfg.Loss.Policy),
		zap.Float32("scale", cfg.Loss.Scale),
		zap.Float32("margin", cfg.Loss.Margin),
	)
	return nil
}

// applyFlags overrides cfg with every flag set on the command line.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()

	if f.Changed("scale") {
		cfg.Loss.Scale = a.scale
	}
	if f.Changed("margin") {
		cfg.Loss.Margin = a.margin
	}
	if f.Changed("similarity") {
		s, err := nn.ParseSimilarity(a.similarity)
		if err != nil {
			return err
		}
		cfg.Loss.Similarity = s
	}
	if f.Changed("policy") {
		p, err := nn.ParsePolicy(a.policy)
		if err != nil {
			return err
		}
		cfg.Loss.Policy = p
	}
	if f.Changed("reduction") {
		r, err := nn.ParseReduction(a.reduction)
		if err != nil {
			return err
		}
		cfg.Loss.Reduction = r
	}
	if f.Changed("negative-margin") {
		n, err := nn.ParseNegativeMargin(a.negativeMargin)
		if err != nil {
			return err
		}
		cfg.Loss.NegativeMargin = n
	}
	if f.Changed("detach-weights") {
		cfg.Loss.DetachWeights = a.detachWeights
	}
	if f.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if a.debug {
		cfg.Log.Level = "debug"
	}
	if f.Changed("metrics") {
		cfg.Metrics = a.metrics
	}

	return cfg.Validate()
}

// lossConfig returns the loss configuration with observers attached.
// Metrics are collected only when they will be printed.
func (a *app) lossConfig() nn.CircleLossConfig {
	cfg := a.cfg.LossConfig()

	var prom nn.Observer
	if a.cfg.Metrics {
		prom = metrics.New(a.registry)
	}
	cfg.Observer = observe.NewMulti(observe.NewZapObserver(a.logger), prom)
	return cfg
}

func (a *app) teardown(cmd *cobra.Command) error {
	if a.cfg != nil && a.cfg.Metrics {
		families, err := a.registry.Gather()
		if err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(cmd.OutOrStdout(), mf); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
		}
	}
	_ = a.logger.Sync()
	return nil
}
