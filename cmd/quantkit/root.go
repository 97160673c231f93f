package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"quantkit/internal/cfg"
	"quantkit/internal/client"
	"quantkit/internal/common"
	"quantkit/internal/sampling"
	"quantkit/internal/service"
	"quantkit/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

// rootOptions holds the persistent flags and the settings they resolve to.
type rootOptions struct {
	configPath string
	logLevel   string
	remote     bool

	settings cfg.Settings
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "quantkit",
		Short: "Probability transforms, weighted sampling and confusion counts",
		Long: `quantkit turns fitness scores into selection probabilities, draws weighted
choices and Bernoulli index samples, and counts per-class classifier outcomes.

Each command reads a JSON request from --input or builds one from flags and
prints the JSON result. Results can be kept in the local store with --store,
or the request can be sent to a running "quantkit serve" with --remote.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (overrides "+common.EnvConfigFile+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.remote, "remote", false, "Send requests to the configured server instead of running locally")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return opts.init(cmd)
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	cmd.AddCommand(newTransformCommand(opts))
	cmd.AddCommand(newScaleCommand(opts))
	cmd.AddCommand(newSelectCommand(opts))
	cmd.AddCommand(newSampleCommand(opts))
	cmd.AddCommand(newConfusionCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newHealthCommand(opts))

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// init loads .env, resolves settings and configures logging.
func (o *rootOptions) init(cmd *cobra.Command) error {
	envErr := godotenv.Load()

	if o.configPath != "" {
		if err := os.Setenv(common.EnvConfigFile, o.configPath); err != nil {
			return err
		}
	}
	settings, err := cfg.Load()
	if err != nil {
		return err
	}
	o.settings = settings

	levelName := settings.LogLevel
	if o.logLevel != "" {
		levelName = o.logLevel
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return &UsageError{Err: fmt.Errorf("invalid log level %q", levelName)}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})

	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file loaded, using process environment")
	}
	return nil
}

// backend runs requests either in process or against a remote server.
type backend interface {
	Probabilities(context.Context, service.ProbabilitiesRequest) (service.ProbabilitiesResponse, error)
	Scale(context.Context, service.ScaleRequest) (service.ScaleResponse, error)
	Select(context.Context, service.SelectRequest) (service.SelectResponse, error)
	Sample(context.Context, service.SampleRequest) (service.SampleResponse, error)
	Confusion(context.Context, service.ConfusionRequest) (service.ConfusionResponse, error)
}

var _ backend = (*client.Client)(nil)

type localBackend struct {
	svc *service.Service
}

func (b localBackend) Probabilities(_ context.Context, req service.ProbabilitiesRequest) (service.ProbabilitiesResponse, error) {
	return b.svc.Probabilities(req)
}

func (b localBackend) Scale(_ context.Context, req service.ScaleRequest) (service.ScaleResponse, error) {
	return b.svc.Scale(req)
}

func (b localBackend) Select(_ context.Context, req service.SelectRequest) (service.SelectResponse, error) {
	return b.svc.Select(req)
}

func (b localBackend) Sample(_ context.Context, req service.SampleRequest) (service.SampleResponse, error) {
	return b.svc.Sample(req)
}

func (b localBackend) Confusion(_ context.Context, req service.ConfusionRequest) (service.ConfusionResponse, error) {
	return b.svc.Confusion(req)
}

// backend returns where to run a request. The local store is opened only
// when the result is to be kept; the returned func releases it.
func (o *rootOptions) backend(keep bool) (backend, func(), error) {
	if o.remote {
		log.Debug().Str("server", o.settings.ServerURL).Msg("using remote server")
		return client.New(o.settings.ServerURL, o.settings.RESTTimeout), func() {}, nil
	}

	svcOpts := []service.Option{service.WithDefaults(service.Defaults{
		Method: o.settings.Method,
		Beta:   o.settings.Beta,
	})}
	release := func() {}
	if keep {
		store, err := openStore(o.settings.DataPath)
		if err != nil {
			return nil, nil, err
		}
		svcOpts = append(svcOpts, service.WithStore(store))
		release = func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close store")
			}
		}
	}
	return localBackend{svc: service.New(o.newSampler(), svcOpts...)}, release, nil
}

// openStore opens the store under dataPath, creating the directory first.
func openStore(dataPath string) (*storage.Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return storage.New(dataPath)
}

func (o *rootOptions) newSampler() *sampling.Sampler {
	return sampling.New(o.settings.Seed, sampling.WithTolerance(o.settings.WeightTolerance))
}

// readRequest decodes a JSON request from path, or stdin when path is "-".
func readRequest(cmd *cobra.Command, path string, v any) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return &UsageError{Err: fmt.Errorf("failed to open input: %w", err)}
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.Validationf("invalid request in %s: %v", path, err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
