package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl / yaml pipeline documents

	Workers         int
	FailFast        bool
	Platform        string // defaults to the host OS when empty
	ReportPath      string // "" or "-" writes the JSON report to stdout
	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &cfg, nil
}
