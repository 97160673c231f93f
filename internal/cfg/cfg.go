package cfg

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"quantkit/internal/common"
	"quantkit/internal/proba"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Method          proba.Method
	Beta            float64
	Seed            uint64
	WeightTolerance float64
	Operators       map[string]float64
	DataPath        string
	ListenPort      int
	ServerURL       string
	RESTTimeout     time.Duration
	LogLevel        string
}

type ConfigFile struct {
	Proba struct {
		Method string  `yaml:"method"`
		Beta   float64 `yaml:"beta"`
	} `yaml:"proba"`

	Sampling struct {
		Seed            uint64             `yaml:"seed"`
		WeightTolerance float64            `yaml:"weightTolerance"`
		Operators       map[string]float64 `yaml:"operators"`
	} `yaml:"sampling"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		ListenPort  int    `yaml:"listenPort"`
		ServerURL   string `yaml:"serverURL"`
		RESTTimeout string `yaml:"restTimeout"`
		LogLevel    string `yaml:"logLevel"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// defaultConfig is the file layout with every default filled in, so keys
// missing from a YAML file keep their defaults.
func defaultConfig() ConfigFile {
	var c ConfigFile
	c.Proba.Method = common.DefaultMethod
	c.Proba.Beta = common.DefaultBeta
	c.Sampling.WeightTolerance = common.DefaultWeightTolerance
	c.System.DataPath = common.DefaultDataPath
	c.System.ListenPort = common.DefaultListenPort
	c.System.ServerURL = common.DefaultServerURL
	c.System.RESTTimeout = "5s"
	c.System.LogLevel = common.DefaultLogLevel
	return c
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	restTimeout, err := time.ParseDuration(config.System.RESTTimeout)
	if err != nil {
		restTimeout = 5 * time.Second
	}

	return build(config, restTimeout)
}

func loadFromEnv() (Settings, error) {
	return build(defaultConfig(), 5*time.Second)
}

// build applies environment overrides on top of config and validates the result.
func build(config ConfigFile, restTimeout time.Duration) (Settings, error) {
	method, err := proba.ParseMethod(getEnvOrDefault(common.EnvMethod, config.Proba.Method))
	if err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	operators := config.Sampling.Operators
	if env := os.Getenv(common.EnvOperators); env != "" {
		operators, err = ParseOperators(env)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid %s: %w", common.EnvOperators, err)
		}
	}

	settings := Settings{
		Method:          method,
		Beta:            getFloatOrDefault(common.EnvBeta, config.Proba.Beta),
		Seed:            getUintOrDefault(common.EnvSeed, config.Sampling.Seed),
		WeightTolerance: getFloatOrDefault(common.EnvWeightTolerance, config.Sampling.WeightTolerance),
		Operators:       operators,
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		ListenPort:      getIntOrDefault(common.EnvListenPort, config.System.ListenPort),
		ServerURL:       getEnvOrDefault(common.EnvServerURL, config.System.ServerURL),
		RESTTimeout:     getDurationOrDefault(common.EnvRESTTimeout, restTimeout),
		LogLevel:        strings.ToLower(getEnvOrDefault(common.EnvLogLevel, config.System.LogLevel)),
	}
	if settings.Operators == nil {
		settings.Operators = make(map[string]float64)
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Pair is one name=value entry in the order it was written.
type Pair struct {
	Name  string
	Value float64
}

// ParsePairs parses "name=value" pairs separated by commas, keeping their
// order. Names must be unique.
func ParsePairs(v string) ([]Pair, error) {
	var out []Pair
	seen := make(map[string]bool)
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", item)
		}
		name = strings.TrimSpace(name)
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", name, err)
		}
		if seen[name] {
			return nil, fmt.Errorf("%q listed twice", name)
		}
		seen[name] = true
		out = append(out, Pair{Name: name, Value: f})
	}
	return out, nil
}

// ParseOperators parses "name=weight" pairs into a weight map.
func ParseOperators(v string) (map[string]float64, error) {
	pairs, err := ParsePairs(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		out[p.Name] = p.Value
	}
	return out, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getUintOrDefault(key string, defaultValue uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseUint(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// validateSettings performs range checks on every configuration value
func validateSettings(settings *Settings) error {
	if math.IsNaN(settings.Beta) || math.Abs(settings.Beta) > common.MaxAbsBeta {
		return fmt.Errorf("beta must be between -%g and %g, got %f", common.MaxAbsBeta, common.MaxAbsBeta, settings.Beta)
	}
	if settings.WeightTolerance <= 0 || settings.WeightTolerance > common.MaxWeightTolerance {
		return fmt.Errorf("weight tolerance must be between 0 and %g, got %g", common.MaxWeightTolerance, settings.WeightTolerance)
	}

	if len(settings.Operators) > 0 {
		var total float64
		for name, w := range settings.Operators {
			if name == "" {
				return fmt.Errorf("operator name cannot be empty")
			}
			if w < 0 || math.IsNaN(w) {
				return fmt.Errorf("operator %s: weight must be non-negative, got %f", name, w)
			}
			total += w
		}
		if math.Abs(total-1) > settings.WeightTolerance {
			return fmt.Errorf("operator weights must sum to 1, got %f", total)
		}
	}

	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if settings.ServerURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}
	if settings.ListenPort < common.MinListenPort || settings.ListenPort > common.MaxListenPort {
		return fmt.Errorf("listen port must be between %d and %d, got %d", common.MinListenPort, common.MaxListenPort, settings.ListenPort)
	}
	if settings.RESTTimeout < time.Second || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", settings.RESTTimeout)
	}

	switch settings.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}

	return nil
}
