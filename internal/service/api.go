package service

import "quantkit/internal/confusion"

// Request and response bodies shared by the HTTP server, the client and the CLI.

type ProbabilitiesRequest struct {
	Scores []float64 `json:"scores"`
	Method string    `json:"method,omitempty"`
	Beta   *float64  `json:"beta,omitempty"`
	Name   string    `json:"name,omitempty"`
}

type ProbabilitiesResponse struct {
	Method        string    `json:"method"`
	Beta          float64   `json:"beta"`
	Probabilities []float64 `json:"probabilities"`
}

type ScaleRequest struct {
	Values []float64 `json:"values"`
	Name   string    `json:"name,omitempty"`
}

type ScaleResponse struct {
	Values []float64 `json:"values"`
}

type SelectRequest struct {
	Weights map[string]float64 `json:"weights"`
	Name    string             `json:"name,omitempty"`
}

type SelectResponse struct {
	Choice string `json:"choice"`
}

type SampleRequest struct {
	N    int     `json:"n"`
	P    float64 `json:"p"`
	Name string  `json:"name,omitempty"`
}

type SampleResponse struct {
	Indices []int `json:"indices"`
}

// ConfusionRequest carries either Scores (binary) or Table (multi-class).
type ConfusionRequest struct {
	YTrue          []int                 `json:"y_true"`
	Scores         []float64             `json:"scores,omitempty"`
	Table          *confusion.ScoreTable `json:"table,omitempty"`
	NClasses       int                   `json:"n_classes,omitempty"`
	StartFromClass *int                  `json:"start_from_class,omitempty"`
	Name           string                `json:"name,omitempty"`
}

type ConfusionResponse struct {
	confusion.Counts
	Report []confusion.ClassReport `json:"report"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
