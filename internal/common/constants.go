package common

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvMethod          = "PROBA_METHOD"
	EnvBeta            = "PROBA_BETA"
	EnvSeed            = "SAMPLER_SEED"
	EnvWeightTolerance = "WEIGHT_TOLERANCE"
	EnvDataPath        = "DATA_PATH"
	EnvListenPort      = "LISTEN_PORT"
	EnvServerURL       = "SERVER_URL"
	EnvRESTTimeout     = "REST_TIMEOUT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvOperators       = "OPERATORS"
)

// Configuration defaults
const (
	DefaultMethod          = "default"
	DefaultBeta            = 1.0
	DefaultWeightTolerance = 1e-6
	DefaultDataPath        = "data"
	DefaultListenPort      = 8080
	DefaultServerURL       = "http://localhost:8080"
	DefaultLogLevel        = "info"
	DefaultStartFromClass  = 1
)

// MinSamplesPerJob is the smallest chunk worth counting on its own goroutine.
const MinSamplesPerJob = 10000

// BinaryThreshold is the score above which a binary prediction counts as class 1.
const BinaryThreshold = 0.5

// Validation constants
const (
	MinListenPort      = 1024
	MaxListenPort      = 65535
	MaxWeightTolerance = 0.01
	MaxAbsBeta         = 1000.0
)

// Bucket names used by the result store
const (
	KindProbabilities = "probabilities"
	KindScaled        = "scaled"
	KindSelection     = "selections"
	KindSample        = "samples"
	KindConfusion     = "confusion"
)
