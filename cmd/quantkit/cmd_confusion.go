package main

import (
	"quantkit/internal/service"

	"github.com/spf13/cobra"
)

func newConfusionCommand(opts *rootOptions) *cobra.Command {
	var (
		rf       requestFlags
		yTrue    []int
		scores   []float64
		nClasses int
		start    int
	)

	cmd := &cobra.Command{
		Use:   "confusion",
		Short: "Count true positives, false positives and false negatives per class",
		Long: `Confusion compares true labels with predictions and counts outcomes per
class, starting from --start-from (class 0 is skipped by default).

Binary problems take one positive-class score per sample with --scores; a
score above 0.5 predicts class 1. Multi-class problems need a score table,
one row per sample, which is only accepted through --input.`,
		Example: `  quantkit confusion --y-true 1,1,0,0 --scores 0.9,0.2,0.7,0.1
  quantkit confusion -i request.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req service.ConfusionRequest
			if err := rf.load(cmd, &req); err != nil {
				return err
			}
			if cmd.Flags().Changed("y-true") {
				req.YTrue = yTrue
			}
			if cmd.Flags().Changed("scores") {
				req.Scores = scores
			}
			if cmd.Flags().Changed("n-classes") {
				req.NClasses = nClasses
			}
			if cmd.Flags().Changed("start-from") {
				req.StartFromClass = &start
			}
			if rf.store != "" {
				req.Name = rf.store
			}

			b, release, err := opts.backend(req.Name != "")
			if err != nil {
				return err
			}
			defer release()

			resp, err := b.Confusion(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, resp)
		},
	}

	rf.register(cmd)
	cmd.Flags().IntSliceVar(&yTrue, "y-true", nil, "Comma-separated true labels")
	cmd.Flags().Float64SliceVar(&scores, "scores", nil, "Comma-separated positive-class scores")
	cmd.Flags().IntVar(&nClasses, "n-classes", 0, "Number of classes (default: distinct labels in --y-true)")
	cmd.Flags().IntVar(&start, "start-from", 1, "First class to report")
	return cmd
}
