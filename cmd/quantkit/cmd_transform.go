package main

import (
	"quantkit/internal/service"

	"github.com/spf13/cobra"
)

// requestFlags are shared by every command that runs one request.
type requestFlags struct {
	input string
	store string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Read the JSON request from a file, or - for stdin")
	cmd.Flags().StringVar(&f.store, "store", "", "Keep the result under this name")
}

// load fills v from --input when given. Flags set on the command line are
// applied afterwards by the caller and win over the file.
func (f *requestFlags) load(cmd *cobra.Command, v any) error {
	if f.input == "" {
		return nil
	}
	return readRequest(cmd, f.input, v)
}

func newTransformCommand(opts *rootOptions) *cobra.Command {
	var (
		rf     requestFlags
		scores []float64
		method string
		beta   float64
	)

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Turn scores into a probability vector",
		Long: `Transform converts a vector of scores into probabilities that sum to 1.

Methods:
  default  proportional to the raw (non-negative) scores
  rank     proportional to each score's rank
  softmax  softmax of the standardized scores, sharpened by --beta
  uniform  equal probability for every score`,
		Example: `  quantkit transform --scores 1,2,3,4 --method rank
  echo '{"scores":[3,1,2],"method":"softmax","beta":2}' | quantkit transform -i -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req service.ProbabilitiesRequest
			if err := rf.load(cmd, &req); err != nil {
				return err
			}
			if cmd.Flags().Changed("scores") {
				req.Scores = scores
			}
			if cmd.Flags().Changed("method") {
				req.Method = method
			}
			if cmd.Flags().Changed("beta") {
				req.Beta = &beta
			}
			if rf.store != "" {
				req.Name = rf.store
			}

			b, release, err := opts.backend(req.Name != "")
			if err != nil {
				return err
			}
			defer release()

			resp, err := b.Probabilities(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, resp)
		},
	}

	rf.register(cmd)
	cmd.Flags().Float64SliceVar(&scores, "scores", nil, "Comma-separated scores")
	cmd.Flags().StringVarP(&method, "method", "m", "", "Transform method (default from config)")
	cmd.Flags().Float64Var(&beta, "beta", 1, "Softmax sharpness (default from config)")
	return cmd
}

func newScaleCommand(opts *rootOptions) *cobra.Command {
	var (
		rf     requestFlags
		values []float64
	)

	cmd := &cobra.Command{
		Use:     "scale",
		Short:   "Standardize values to zero mean and unit variance",
		Example: `  quantkit scale --values 1,2,3`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req service.ScaleRequest
			if err := rf.load(cmd, &req); err != nil {
				return err
			}
			if cmd.Flags().Changed("values") {
				req.Values = values
			}
			if rf.store != "" {
				req.Name = rf.store
			}

			b, release, err := opts.backend(req.Name != "")
			if err != nil {
				return err
			}
			defer release()

			resp, err := b.Scale(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, resp)
		},
	}

	rf.register(cmd)
	cmd.Flags().Float64SliceVar(&values, "values", nil, "Comma-separated values")
	return cmd
}
