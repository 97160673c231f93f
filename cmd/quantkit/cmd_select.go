package main

import (
	"errors"
	"fmt"

	"quantkit/internal/cfg"
	"quantkit/internal/proba"
	"quantkit/internal/service"

	"github.com/spf13/cobra"
)

func newSelectCommand(opts *rootOptions) *cobra.Command {
	var (
		rf      requestFlags
		weights string
		scores  string
		method  string
		beta    float64
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Draw one name from a weight map",
		Long: `Select draws one name with probability equal to its weight. Weights must be
non-negative and sum to 1. Without --weights or --input the operator weights
from the config are used.

With --scores the values are raw scores: they are first turned into
probabilities with --method and --beta, then one name is drawn.`,
		Example: `  quantkit select --weights crossover=0.7,mutation=0.3
  quantkit select --scores a=3,b=1,c=2 --method rank`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if scores != "" {
				return selectByScore(cmd, opts, scores, method, beta)
			}

			var req service.SelectRequest
			if err := rf.load(cmd, &req); err != nil {
				return err
			}
			if weights != "" {
				w, err := cfg.ParseOperators(weights)
				if err != nil {
					return &UsageError{Err: fmt.Errorf("--weights: %w", err)}
				}
				req.Weights = w
			}
			if len(req.Weights) == 0 {
				req.Weights = opts.settings.Operators
			}
			if rf.store != "" {
				req.Name = rf.store
			}

			b, release, err := opts.backend(req.Name != "")
			if err != nil {
				return err
			}
			defer release()

			resp, err := b.Select(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, resp)
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVarP(&weights, "weights", "w", "", "Comma-separated name=weight pairs")
	cmd.Flags().StringVar(&scores, "scores", "", "Comma-separated name=score pairs to transform before drawing")
	cmd.Flags().StringVarP(&method, "method", "m", "", "Transform method for --scores (default from config)")
	cmd.Flags().Float64Var(&beta, "beta", 0, "Softmax sharpness for --scores (default from config)")
	cmd.MarkFlagsMutuallyExclusive("weights", "scores")
	return cmd
}

func selectByScore(cmd *cobra.Command, opts *rootOptions, pairs, methodName string, beta float64) error {
	if opts.remote {
		return &UsageError{Err: errors.New("--scores is not supported with --remote")}
	}
	parsed, err := cfg.ParsePairs(pairs)
	if err != nil {
		return &UsageError{Err: fmt.Errorf("--scores: %w", err)}
	}

	m := opts.settings.Method
	if methodName != "" {
		if m, err = proba.ParseMethod(methodName); err != nil {
			return err
		}
	}
	if !cmd.Flags().Changed("beta") {
		beta = opts.settings.Beta
	}

	names := make([]string, 0, len(parsed))
	values := make([]float64, 0, len(parsed))
	for _, p := range parsed {
		names = append(names, p.Name)
		values = append(values, p.Value)
	}

	choice, err := opts.newSampler().SelectByScore(names, values, m, beta)
	if err != nil {
		return err
	}
	return writeJSON(cmd, service.SelectResponse{Choice: choice})
}

func newSampleCommand(opts *rootOptions) *cobra.Command {
	var (
		rf requestFlags
		n  int
		p  float64
	)

	cmd := &cobra.Command{
		Use:     "sample",
		Short:   "Keep each index in [0, n) with probability p",
		Example: `  quantkit sample --n 10 --p 0.3`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req service.SampleRequest
			if err := rf.load(cmd, &req); err != nil {
				return err
			}
			if cmd.Flags().Changed("n") {
				req.N = n
			}
			if cmd.Flags().Changed("p") {
				req.P = p
			}
			if rf.store != "" {
				req.Name = rf.store
			}

			b, release, err := opts.backend(req.Name != "")
			if err != nil {
				return err
			}
			defer release()

			resp, err := b.Sample(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, resp)
		},
	}

	rf.register(cmd)
	cmd.Flags().IntVar(&n, "n", 0, "Number of indices")
	cmd.Flags().Float64Var(&p, "p", 0, "Probability of keeping each index")
	return cmd
}
