package app

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var configValidate = validator.New()

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SurveyPaths []string `validate:"required_without=RulesPath,dive,required"` // .hcl files or directories
	RulesPath   string   `validate:"required_without=SurveyPaths"`              // rule collection JSON (migrate)
	AnswersPath string   // YAML or JSON answers file (walk)

	LogFormat string `validate:"oneof=text json"`
	LogLevel  string `validate:"oneof=debug info warn error"`

	Agents   int `validate:"gte=0"`
	Workers  int `validate:"gte=0"`
	Seed     uint64
	Textify  bool // name-keyed DAG output
	Scenario map[string]any
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
